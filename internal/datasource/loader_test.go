package datasource_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"chartkit/internal/datasource"
	"chartkit/internal/domain"
)

// staticSource serves fixed rows; registered once for every test here.
type staticSource struct{}

var staticRows = map[string][][]any{
	"scores": {
		{"A", "3"},
		{"B", "7"},
		{"C", "11"},
	},
	"nan": {
		{"A", "3"},
		{"B", "NaN"},
	},
	"blank": {
		{"A", ""},
	},
}

func init() { datasource.RegisterSource(staticSource{}) }

func (staticSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{Type: "static", Label: "Static"}
}

func (staticSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	return []string{"name", "score"}, nil
}

func (staticSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	out := make(chan datasource.RawRow, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for _, values := range staticRows[cfg.String("set")] {
			select {
			case out <- datasource.RawRow{Fields: []string{"name", "score"}, Values: values}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errCh
}

// headerOnlySource announces its columns and sends no data rows.
type headerOnlySource struct{ discovered *atomic.Int32 }

func (headerOnlySource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{Type: "header_only", Label: "Header only"}
}

func (s headerOnlySource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	s.discovered.Add(1)
	return []string{"name", "score"}, nil
}

func (headerOnlySource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	out := make(chan datasource.RawRow, 1)
	errCh := make(chan error, 1)
	out <- datasource.HeaderRow([]string{"name", "score"})
	close(out)
	close(errCh)
	return out, errCh
}

// quitSource sends a few rows, cancels the caller through cfg["cancel"]
// and then stops without reporting an error.
type quitSource struct{}

func (quitSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{Type: "quit", Label: "Quit"}
}

func (quitSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	return []string{"name", "score"}, nil
}

func (quitSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	out := make(chan datasource.RawRow)
	errCh := make(chan error, 1)
	cancel := cfg["cancel"].(context.CancelFunc)
	go func() {
		defer close(out)
		defer close(errCh)
		for i := 0; i < 1000; i++ {
			if i == 3 {
				cancel()
			}
			select {
			case out <- datasource.RawRow{Fields: []string{"name", "score"}, Values: []any{"A", "1"}}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errCh
}

var headerOnlyDiscovers atomic.Int32

func init() {
	datasource.RegisterSource(headerOnlySource{discovered: &headerOnlyDiscovers})
	datasource.RegisterSource(quitSource{})
}

func TestLoadTypesRows(t *testing.T) {
	table, err := datasource.Load(context.Background(), "static",
		datasource.SourceConfig{"set": "scores"},
		domain.ParseOptions{NumberFields: []string{"score"}})
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	f, _ := table.Schema().Lookup("score")
	if f.Kind != domain.KindNumber {
		t.Errorf("expected score to be a number, got %s", f.Kind)
	}
	if v, _ := table.At(2).Number("score"); v != 11 {
		t.Errorf("expected 11, got %v", v)
	}
}

func TestLoadNaNIsLoadError(t *testing.T) {
	_, err := datasource.Load(context.Background(), "static",
		datasource.SourceConfig{"set": "nan"},
		domain.ParseOptions{NumberFields: []string{"score"}})
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.Row != 2 {
		t.Errorf("expected failure on row 2, got %d", loadErr.Row)
	}
}

func TestLoadBlankNumberIsLoadError(t *testing.T) {
	_, err := datasource.Load(context.Background(), "static",
		datasource.SourceConfig{"set": "blank"},
		domain.ParseOptions{NumberFields: []string{"score"}})
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
}

func TestLoadUnknownField(t *testing.T) {
	_, err := datasource.Load(context.Background(), "static",
		datasource.SourceConfig{"set": "scores"},
		domain.ParseOptions{TimeField: "date"})
	if !errors.Is(err, domain.ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestLoadUnknownSource(t *testing.T) {
	_, err := datasource.Load(context.Background(), "nope", nil, domain.ParseOptions{})
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected LoadError, got %v", err)
	}
}

func TestPreviewLimitsRows(t *testing.T) {
	table, err := datasource.Preview(context.Background(), "static",
		datasource.SourceConfig{"set": "scores"},
		domain.ParseOptions{NumberFields: []string{"score"}}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", table.Len())
	}
}

func TestParserAutoLayout(t *testing.T) {
	p, err := datasource.NewParser([]string{"when"}, domain.ParseOptions{TimeField: "when", TimeLayout: datasource.AutoLayout})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := p.Parse(datasource.RawRow{Fields: []string{"when"}, Values: []any{"2021-03-04"}})
	if err != nil {
		t.Fatal(err)
	}
	d, _ := rec.Time()
	if d.Year() != 2021 || d.Month() != 3 || d.Day() != 4 {
		t.Errorf("expected 2021-03-04, got %v", d)
	}

	if _, err := p.Parse(datasource.RawRow{Fields: []string{"when"}, Values: []any{"not a date"}}); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestParserStrictLayout(t *testing.T) {
	p, err := datasource.NewParser([]string{"date"}, domain.ParseOptions{TimeField: "date"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Parse(datasource.RawRow{Fields: []string{"date"}, Values: []any{"03/04/2021"}}); err == nil {
		t.Error("expected error for non YYYY-MM-DD date")
	}
}

func TestLoadHeaderOnlyKeepsSchema(t *testing.T) {
	table, err := datasource.Load(context.Background(), "header_only", nil,
		domain.ParseOptions{NumberFields: []string{"score"}})
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 {
		t.Errorf("expected 0 rows, got %d", table.Len())
	}
	if _, ok := table.Schema().Lookup("score"); !ok {
		t.Error("expected score in schema")
	}
	if n := headerOnlyDiscovers.Load(); n != 0 {
		t.Errorf("expected no discover call, got %d", n)
	}
}

func TestLoadCancelledMidStreamIsLoadError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table, err := datasource.Load(ctx, "quit",
		datasource.SourceConfig{"cancel": cancel},
		domain.ParseOptions{NumberFields: []string{"score"}})
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got table=%v err=%v", table, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
