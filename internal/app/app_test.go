package app

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"chartkit/internal/config"
	"chartkit/internal/domain"
	"chartkit/internal/service"
)

func newTestApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()

	statsPath := filepath.Join(dir, "stats.db")
	db, err := sql.Open("sqlite", statsPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE stats (day TEXT, country TEXT, gdp INTEGER)`,
		`INSERT INTO stats VALUES ('2020-01-01', 'DE', 10), ('2020-02-01', 'FR', 15), ('2020-03-01', 'IT', 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	db.Close()

	cfg := config.Defaults()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Render = config.RenderConfig{Width: 400, Height: 300}
	cfg.Connections = []domain.DatabaseConnection{
		{Name: "local", Driver: domain.DatabaseDriverSQLite, Host: statsPath},
	}

	a, err := Open(cfg, &service.MockEmitter{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a, dir
}

func createBarView(t *testing.T, a *App) *domain.View {
	t.Helper()
	v, err := a.Views.CreateView(context.Background(), service.CreateViewInput{
		Name:          "gdp",
		SourceType:    "database",
		SourceConfig:  map[string]any{"connection": "local", "query": "SELECT country, gdp FROM stats"},
		Parse:         domain.ParseOptions{NumberFields: []string{"gdp"}},
		Kind:          domain.ChartBar,
		CategoryField: "country",
		ValueField:    "gdp",
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func createLogLinesView(t *testing.T, a *App) *domain.View {
	t.Helper()
	v, err := a.Views.CreateView(context.Background(), service.CreateViewInput{
		Name:         "gdp-log",
		SourceType:   "database",
		SourceConfig: map[string]any{"connection": "local", "query": "SELECT day, gdp FROM stats"},
		Parse:        domain.ParseOptions{TimeField: "day", NumberFields: []string{"gdp"}},
		Kind:         domain.ChartLines,
		SeriesOrder:  []string{"gdp"},
		Scale:        domain.ScaleLog,
	})
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestOpenCreatesDatabase(t *testing.T) {
	a, dir := newTestApp(t)
	if _, err := os.Stat(filepath.Join(dir, "data", "chartkit.db")); err != nil {
		t.Fatalf("expected database file, got %v", err)
	}
	views, err := a.Views.ListViews()
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Errorf("expected no views, got %d", len(views))
	}
}

func TestRenderDatabaseView(t *testing.T) {
	a, dir := newTestApp(t)
	createBarView(t, a)

	out := filepath.Join(dir, "out", "gdp.svg")
	if err := a.Render(context.Background(), "gdp", out); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Errorf("expected svg output, got %q", firstBytes(data))
	}

	jsonOut := filepath.Join(dir, "out", "gdp.json")
	if err := a.Render(context.Background(), "gdp", jsonOut); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(jsonOut)
	if !strings.Contains(string(data), `"FR"`) {
		t.Errorf("expected FR in chart json, got %s", data)
	}
}

func TestRenderLogScaleWritesPlaceholder(t *testing.T) {
	a, dir := newTestApp(t)
	createLogLinesView(t, a)

	out := filepath.Join(dir, "gdp-log.svg")
	err := a.Render(context.Background(), "gdp-log", out)
	var perr *domain.ProjectionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProjectionError, got %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "log scale") {
		t.Errorf("expected placeholder message, got %q", firstBytes(data))
	}
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	a, dir := newTestApp(t)
	createBarView(t, a)
	if err := a.Render(context.Background(), "gdp", filepath.Join(dir, "gdp.png")); err == nil {
		t.Fatal("expected error for png output")
	}
}

func TestConnectorProviderUnknownConnection(t *testing.T) {
	a, _ := newTestApp(t)
	p := &connectorProvider{cfg: a.Config, secrets: a.secrets}
	if _, err := p.OpenConnector(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown connection")
	}
	c, err := p.OpenConnector(context.Background(), "local")
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestRunExportsWithoutJobs(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.RunExports(ctx); err == nil {
		t.Fatal("expected error when no triggered jobs exist")
	}
}

func TestSetPasswordNeedsWritableBackend(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.SetPassword("local", []byte("pw"))
	if err == nil || !strings.Contains(err.Error(), "CHARTKIT_SECRET_DB_LOCAL") {
		t.Errorf("expected read-only error naming the env var, got %v", err)
	}
	if err := a.SetPassword("missing", []byte("pw")); err == nil {
		t.Error("expected error for unknown connection")
	}
}

func TestSetPasswordStoresUnderConnectionKey(t *testing.T) {
	a, _ := newTestApp(t)
	store := &memorySecrets{items: map[string][]byte{}}
	a.secrets = store

	if err := a.SetPassword("local", []byte("pw")); err != nil {
		t.Fatal(err)
	}
	if got := string(store.items["db:local"]); got != "pw" {
		t.Errorf("expected pw under db:local, got %q", got)
	}
	if err := a.DeletePassword("local"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.items["db:local"]; ok {
		t.Error("expected password to be deleted")
	}
}

type memorySecrets struct{ items map[string][]byte }

func (m *memorySecrets) Get(key string) ([]byte, error) { return m.items[key], nil }

func (m *memorySecrets) Set(key string, value []byte) error {
	m.items[key] = value
	return nil
}

func (m *memorySecrets) Delete(key string) error {
	delete(m.items, key)
	return nil
}

func firstBytes(b []byte) string {
	if len(b) > 80 {
		b = b[:80]
	}
	return string(b)
}
