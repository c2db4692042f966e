package dashboard_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"chartkit/internal/chart"
	"chartkit/internal/dashboard"
	"chartkit/internal/domain"
)

func indicators(t *testing.T) *domain.Table {
	t.Helper()
	schema := domain.Schema{
		Fields: []domain.Field{
			{Name: "date", Kind: domain.KindDate},
			{Name: "region", Kind: domain.KindText},
			{Name: "gdp", Kind: domain.KindNumber},
			{Name: "population", Kind: domain.KindNumber},
		},
		TimeField: "date",
	}
	rows := []struct {
		date, region    string
		gdp, population float64
	}{
		{"2019-06-01", "north", 8, 4},
		{"2020-01-01", "north", 10, 5},
		{"2020-05-01", "south", 20, 0},
		{"2021-01-01", "south", 30, 2},
	}
	recs := make([]domain.Record, len(rows))
	for i, r := range rows {
		d, _ := time.Parse(domain.DateLayout, r.date)
		b := domain.NewRecordBuilder("date").Date("date", d).Text("region", r.region)
		b.Number("gdp", r.gdp)
		b.Number("population", r.population)
		recs[i] = b.Build()
	}
	return domain.NewTable(schema, recs)
}

func linesState(t *testing.T, rows *domain.Table) dashboard.State {
	t.Helper()
	s, err := dashboard.NewState(&domain.View{
		Name: "indicators",
		Kind: domain.ChartLines,
		State: domain.ViewState{
			Selection: domain.NewSeriesSelection("gdp", "population"),
		},
	}, rows.Schema())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStateDefaults(t *testing.T) {
	s := linesState(t, indicators(t))
	if s.Scale != domain.ScaleLinear {
		t.Errorf("expected linear default, got %q", s.Scale)
	}
	if !reflect.DeepEqual(s.Order, []string{"gdp", "population"}) {
		t.Errorf("expected order from numeric fields, got %v", s.Order)
	}
	if !s.Criteria.IsIdentity() {
		t.Errorf("expected identity criteria, got %v", s.Criteria)
	}
}

func TestReduceRejectsInvalidEvents(t *testing.T) {
	s := linesState(t, indicators(t))

	events := []dashboard.Event{
		dashboard.SetFilter{Field: "colour", Value: "red"},
		dashboard.SetRange{Start: "2020-02-30", End: "2020-12-31"},
		dashboard.SetRange{Start: "2021-01-01", End: "2020-01-01"},
		dashboard.ToggleSeries{Field: "region"},
		dashboard.SetScale{Scale: "sqrt"},
		dashboard.SelectSeries{Fields: []string{"gdp", "inflation"}},
	}
	for _, e := range events {
		next, err := dashboard.Reduce(s, e)
		if err == nil {
			t.Errorf("%s %+v: expected error", e.Name(), e)
		}
		if !reflect.DeepEqual(next, s) {
			t.Errorf("%s: expected state unchanged", e.Name())
		}
	}
}

func TestReduceDoesNotAliasSelection(t *testing.T) {
	s := linesState(t, indicators(t))
	next, err := dashboard.Reduce(s, dashboard.ToggleSeries{Field: "gdp"})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Selection.Has("gdp") {
		t.Error("expected original state to keep gdp selected")
	}
	if next.Selection.Has("gdp") {
		t.Error("expected gdp toggled off in next state")
	}
}

func TestProjectRangeThenToggle(t *testing.T) {
	rows := indicators(t)
	p := chart.NewProjector("en")
	s := linesState(t, rows)

	s, err := dashboard.Reduce(s, dashboard.SetRange{Start: "2020-01-01", End: "2020-12-31"})
	if err != nil {
		t.Fatal(err)
	}
	spec, err := dashboard.Project(rows, s, p)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(spec.Series[0].Points); n != 2 {
		t.Errorf("expected 2 points in 2020, got %d", n)
	}
	if spec.ValueDomain.Max != 20 {
		t.Errorf("expected Y max 20, got %v", spec.ValueDomain.Max)
	}

	s, _ = dashboard.Reduce(s, dashboard.ToggleSeries{Field: "gdp"})
	spec, err = dashboard.Project(rows, s, p)
	if err != nil {
		t.Fatal(err)
	}
	if spec.ValueDomain.Max != 5 {
		t.Errorf("expected Y max 5 after hiding gdp, got %v", spec.ValueDomain.Max)
	}
}

func TestProjectCategoricalThenClear(t *testing.T) {
	rows := indicators(t)
	p := chart.NewProjector("en")
	s := linesState(t, rows)

	s, _ = dashboard.Reduce(s, dashboard.SetFilter{Field: "region", Value: "north"})
	spec, err := dashboard.Project(rows, s, p)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(spec.Series[0].Points); n != 2 {
		t.Errorf("expected 2 northern rows, got %d", n)
	}

	s, _ = dashboard.Reduce(s, dashboard.ClearFilters{})
	spec, _ = dashboard.Project(rows, s, p)
	if n := len(spec.Series[0].Points); n != rows.Len() {
		t.Errorf("expected all rows after clear, got %d", n)
	}
}

func TestSessionDispatch(t *testing.T) {
	rows := indicators(t)
	sess := dashboard.NewSession(rows, linesState(t, rows), chart.NewProjector("en"))

	var rendered []*domain.ChartSpec
	sess.OnRender(func(spec *domain.ChartSpec) { rendered = append(rendered, spec) })

	if _, err := sess.Dispatch(dashboard.SetFilter{Field: "colour", Value: "x"}); err == nil {
		t.Fatal("expected rejected event")
	}
	if len(rendered) != 0 {
		t.Errorf("expected no render for a rejected event, got %d", len(rendered))
	}

	// population holds a zero, so log scale cannot be projected.
	_, err := sess.Dispatch(dashboard.SetScale{Scale: domain.ScaleLog})
	if !errors.Is(err, domain.ErrNonPositiveLog) {
		t.Fatalf("expected ErrNonPositiveLog, got %v", err)
	}
	if sess.State().Scale != domain.ScaleLog {
		t.Error("expected the scale change to be kept")
	}
	if _, err := sess.Spec(); err == nil {
		t.Error("expected Spec to report the projection error")
	}

	spec, err := sess.Dispatch(dashboard.ToggleSeries{Field: "population"})
	if err != nil {
		t.Fatal(err)
	}
	if spec.ValueDomain.Min != 1 || spec.ValueDomain.Max != 30 {
		t.Errorf("expected log domain [1,30], got %+v", spec.ValueDomain)
	}
	if len(rendered) != 1 || rendered[0] != spec {
		t.Errorf("expected one render of the new spec, got %d", len(rendered))
	}
}

func TestSessionFiltered(t *testing.T) {
	rows := indicators(t)
	sess := dashboard.NewSession(rows, linesState(t, rows), chart.NewProjector("en"))
	sess.Dispatch(dashboard.SetFilter{Field: "region", Value: "south"})

	got, err := sess.Filtered()
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", got.Len())
	}
	if sess.Rows().Len() != 4 {
		t.Errorf("expected the loaded table untouched, got %d rows", sess.Rows().Len())
	}
}

func TestBarRejectsLogScale(t *testing.T) {
	s := dashboard.State{Kind: domain.ChartBar, Scale: domain.ScaleLinear}
	if _, err := dashboard.Reduce(s, dashboard.SetScale{Scale: domain.ScaleLog}); err == nil {
		t.Error("expected bar chart to reject log scale")
	}
}

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
		want dashboard.Event
	}{
		{"set_filter", map[string]any{"field": "sex", "value": "F"}, dashboard.SetFilter{Field: "sex", Value: "F"}},
		{"set_filter", map[string]any{"field": "sex"}, dashboard.SetFilter{Field: "sex", Value: domain.AnyValue}},
		{"set_range", map[string]any{"start": "2020-01-01", "end": "2020-12-31"}, dashboard.SetRange{Start: "2020-01-01", End: "2020-12-31"}},
		{"clear", nil, dashboard.ClearFilters{}},
		{"toggle_series", map[string]any{"field": "gdp"}, dashboard.ToggleSeries{Field: "gdp"}},
		{"select_series", map[string]any{"fields": []any{"gdp", "population"}}, dashboard.SelectSeries{Fields: []string{"gdp", "population"}}},
		{"select_series", map[string]any{"fields": "gdp, population"}, dashboard.SelectSeries{Fields: []string{"gdp", "population"}}},
		{"set_scale", map[string]any{"scale": "LOG"}, dashboard.SetScale{Scale: domain.ScaleLog}},
	}
	for _, tc := range cases {
		got, err := dashboard.DecodeEvent(tc.name, tc.args)
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: expected %+v, got %+v", tc.name, tc.want, got)
		}
	}

	if _, err := dashboard.DecodeEvent("zoom", nil); err == nil {
		t.Error("expected error for unknown event")
	}
	if _, err := dashboard.DecodeEvent("toggle_series", map[string]any{}); err == nil {
		t.Error("expected error for missing field")
	}
}
