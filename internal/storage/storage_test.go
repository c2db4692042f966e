package storage_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"chartkit/internal/domain"
	"chartkit/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "nested", "chartkit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleView() *domain.View {
	r, _ := domain.ParseDateRange("2020-01-01", "2020-12-31")
	return &domain.View{
		Name:         "indicators",
		Title:        "Economic indicators",
		SourceType:   "http",
		SourceConfig: map[string]any{"url": "https://example.com/data.csv"},
		Parse:        domain.ParseOptions{TimeField: "date", NumberFields: []string{"gdp", "population"}},
		Kind:         domain.ChartLines,
		SeriesOrder:  []string{"gdp", "population"},
		State: domain.ViewState{
			Criteria:  domain.InRange(r),
			Selection: domain.NewSeriesSelection("gdp"),
			Scale:     domain.ScaleLog,
		},
		Locale: "de-DE",
	}
}

// ─────────────────────────────────────────────────────────────
// Migrations
// ─────────────────────────────────────────────────────────────

func TestNew_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chartkit.db")
	db, err := storage.New(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = storage.New(path)
	if err != nil {
		t.Fatalf("expected migrations to be idempotent, got %v", err)
	}
	db.Close()
}

// ─────────────────────────────────────────────────────────────
// Views
// ─────────────────────────────────────────────────────────────

func TestViewStore_RoundTrip(t *testing.T) {
	s := storage.NewViewStore(openDB(t))
	v := sampleView()
	if err := s.CreateView(v); err != nil {
		t.Fatal(err)
	}
	if v.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := s.GetView(v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "indicators" || got.Kind != domain.ChartLines || got.Locale != "de-DE" {
		t.Errorf("unexpected view: %+v", got)
	}
	if got.SourceConfig["url"] != "https://example.com/data.csv" {
		t.Errorf("expected url config, got %v", got.SourceConfig)
	}
	if got.State.Criteria.Mode != domain.ModeRange || got.State.Criteria.Range.String() != "2020-01-01..2020-12-31" {
		t.Errorf("expected range criteria, got %v", got.State.Criteria)
	}
	if !got.State.Selection.Has("gdp") || got.State.Selection.Len() != 1 {
		t.Errorf("expected selection [gdp], got %v", got.State.Selection.Fields())
	}
	if got.State.Scale != domain.ScaleLog {
		t.Errorf("expected log scale, got %q", got.State.Scale)
	}
	if len(got.SeriesOrder) != 2 || got.Parse.TimeField != "date" {
		t.Errorf("unexpected parse/order: %+v %v", got.Parse, got.SeriesOrder)
	}

	byName, err := s.GetViewByName("indicators")
	if err != nil || byName.ID != v.ID {
		t.Errorf("expected lookup by name, got %v %v", byName, err)
	}
}

func TestViewStore_DuplicateName(t *testing.T) {
	s := storage.NewViewStore(openDB(t))
	if err := s.CreateView(sampleView()); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateView(sampleView()); err == nil {
		t.Fatal("expected unique name violation")
	}
}

func TestViewStore_UpdateAndDelete(t *testing.T) {
	s := storage.NewViewStore(openDB(t))
	v := sampleView()
	if err := s.CreateView(v); err != nil {
		t.Fatal(err)
	}

	v.State.Criteria = domain.Categorical(map[string]string{"country": "DE"})
	v.State.Selection = v.State.Selection.Toggle("population")
	if err := s.UpdateView(v); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetView(v.ID)
	if got.State.Criteria.Equals["country"] != "DE" {
		t.Errorf("expected updated criteria, got %v", got.State.Criteria)
	}
	if f := got.State.Selection.Fields(); len(f) != 2 || f[1] != "population" {
		t.Errorf("expected [gdp population], got %v", f)
	}

	if err := s.DeleteView(v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetView(v.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteView(v.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// Export jobs
// ─────────────────────────────────────────────────────────────

func TestExportStore_Jobs(t *testing.T) {
	db := openDB(t)
	views := storage.NewViewStore(db)
	exports := storage.NewExportStore(db)

	v := sampleView()
	if err := views.CreateView(v); err != nil {
		t.Fatal(err)
	}

	manual := &domain.ExportJob{ViewID: v.ID, OutputPath: "out.svg", Format: domain.ExportSVG, Enabled: true}
	cron := &domain.ExportJob{ViewID: v.ID, OutputPath: "out.json", Format: domain.ExportJSON,
		TriggerType: domain.TriggerSchedule, TriggerConfig: "@hourly", Enabled: true}
	disabled := &domain.ExportJob{ViewID: v.ID, OutputPath: "off.svg", Format: domain.ExportSVG,
		TriggerType: domain.TriggerFileWatch, TriggerConfig: "data.csv"}
	for _, j := range []*domain.ExportJob{manual, cron, disabled} {
		if err := exports.CreateJob(j); err != nil {
			t.Fatal(err)
		}
	}
	if manual.TriggerType != domain.TriggerManual {
		t.Errorf("expected manual default trigger, got %q", manual.TriggerType)
	}

	all, err := exports.ListJobs()
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d (%v)", len(all), err)
	}
	triggered, err := exports.ListEnabledTriggeredJobs()
	if err != nil {
		t.Fatal(err)
	}
	if len(triggered) != 1 || triggered[0].ID != cron.ID {
		t.Errorf("expected only the enabled cron job, got %+v", triggered)
	}

	got, _ := exports.GetJob(manual.ID)
	if !got.LastRunAt.IsZero() || got.LastStatus != "" {
		t.Errorf("expected never-run job, got %+v", got)
	}
	if err := exports.UpdateJobStatus(manual.ID, "error", "boom"); err != nil {
		t.Fatal(err)
	}
	got, _ = exports.GetJob(manual.ID)
	if got.LastStatus != "error" || got.LastError != "boom" || got.LastRunAt.IsZero() {
		t.Errorf("expected recorded status, got %+v", got)
	}

	if err := exports.DeleteJob(manual.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := exports.GetJob(manual.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportStore_RunLogs(t *testing.T) {
	db := openDB(t)
	views := storage.NewViewStore(db)
	exports := storage.NewExportStore(db)

	v := sampleView()
	views.CreateView(v)
	job := &domain.ExportJob{ViewID: v.ID, OutputPath: "out.svg", Format: domain.ExportSVG}
	if err := exports.CreateJob(job); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		l := &domain.ExportRunLog{
			JobID:      job.ID,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Status:     "success",
			Rows:       10 * (i + 1),
		}
		if err := exports.CreateRunLog(l); err != nil {
			t.Fatal(err)
		}
	}

	logs, err := exports.ListRunLogs(job.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Rows != 30 || logs[1].Rows != 20 {
		t.Errorf("expected newest first, got %d then %d", logs[0].Rows, logs[1].Rows)
	}
}

func TestDeleteViewCascades(t *testing.T) {
	db := openDB(t)
	views := storage.NewViewStore(db)
	exports := storage.NewExportStore(db)

	v := sampleView()
	views.CreateView(v)
	job := &domain.ExportJob{ViewID: v.ID, OutputPath: "out.svg", Format: domain.ExportSVG}
	exports.CreateJob(job)

	if err := views.DeleteView(v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := exports.GetJob(job.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected job removed with its view, got %v", err)
	}
}
