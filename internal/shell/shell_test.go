package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "chartkit/internal/datasource/sources"
	"chartkit/internal/domain"
	"chartkit/internal/render"
	"chartkit/internal/service"
	"chartkit/internal/storage"
)

const indicatorsCSV = "date,country,gdp,population\n" +
	"2019-06-01,DE,8,4\n" +
	"2020-01-01,DE,10,5\n" +
	"2020-06-01,FR,20,3\n"

func newShell(t *testing.T) (*Shell, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "chartkit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	csvPath := filepath.Join(dir, "indicators.csv")
	os.WriteFile(csvPath, []byte(indicatorsCSV), 0644)

	views := service.NewViewService(storage.NewViewStore(db), &service.MockEmitter{}, "en-US")
	if _, err := views.CreateView(context.Background(), service.CreateViewInput{
		Name:         "indicators",
		SourceType:   "csv_file",
		SourceConfig: map[string]any{"filePath": csvPath},
		Parse:        domain.ParseOptions{TimeField: "date", NumberFields: []string{"gdp", "population"}},
		Kind:         domain.ChartLines,
		SeriesOrder:  []string{"gdp", "population"},
	}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	return New(service.NewDashboardService(views), "indicators", &out, render.DefaultSize), &out, dir
}

func TestExecCommands(t *testing.T) {
	sh, out, _ := newShell(t)
	ctx := context.Background()

	if err := sh.Exec(ctx, "toggle gdp"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "values 0..5") {
		t.Errorf("expected population-only domain, got %q", out.String())
	}

	out.Reset()
	if err := sh.Exec(ctx, "range 2020-01-01 2020-12-31"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "dates 2020-01-01..2020-06-01") {
		t.Errorf("expected 2020 dates, got %q", out.String())
	}

	out.Reset()
	if err := sh.Exec(ctx, "where country FR"); err != nil {
		t.Fatal(err)
	}
	if err := sh.Exec(ctx, "rows"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "2020-06-01\tFR\t20\t3") {
		t.Errorf("expected the FR row, got %q", out.String())
	}

	out.Reset()
	sh.Exec(ctx, "clear")
	sh.Exec(ctx, "show")
	if !strings.Contains(out.String(), "filter: all rows") {
		t.Errorf("expected cleared filter, got %q", out.String())
	}
}

func TestExecErrors(t *testing.T) {
	sh, _, _ := newShell(t)
	ctx := context.Background()
	for _, line := range []string{"where country", "range 2020-01-01", "toggle nope", "scale cubic", "bogus", "rows x"} {
		if err := sh.Exec(ctx, line); err == nil {
			t.Errorf("%q: expected error", line)
		}
	}
	if err := sh.Exec(ctx, "exit"); err != errQuit {
		t.Errorf("expected errQuit, got %v", err)
	}
}

func TestExecRender(t *testing.T) {
	sh, _, dir := newShell(t)
	path := filepath.Join(dir, "chart.svg")
	if err := sh.Exec(context.Background(), "render "+path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("expected svg file")
	}
}

func TestCompleter(t *testing.T) {
	sh, _, _ := newShell(t)
	sess, _, err := sh.dash.Session(context.Background(), sh.view)
	if err != nil {
		t.Fatal(err)
	}
	complete := sh.completer(sess.Rows().Schema())

	if got := complete("to"); len(got) != 1 || got[0] != "toggle" {
		t.Errorf("expected toggle, got %v", got)
	}
	if got := complete("toggle "); len(got) != 2 || got[0] != "toggle gdp" {
		t.Errorf("expected series names, got %v", got)
	}
	if got := complete("where country "); len(got) != 3 || got[0] != "where country All" {
		t.Errorf("expected All, DE, FR, got %v", got)
	}
}
