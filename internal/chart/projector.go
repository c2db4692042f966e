// Package chart projects filtered rows onto a renderer-agnostic
// ChartSpec. There is one capability with two specialisations selected
// by domain.ChartKind: a categorical bar chart and a temporal
// multi-line chart. Every projection builds a fresh spec.
package chart

import (
	"fmt"
	"time"

	"chartkit/internal/domain"

	"github.com/aclements/go-moremath/stats"
)

// DefaultMax is the value-domain upper bound used when the rows give no
// positive maximum, so a renderer never gets a zero-height scale.
const DefaultMax = 1.0

// logFallbackMax replaces an upper bound that would collapse a log
// domain starting at 1.
const logFallbackMax = 10.0

// Request selects what to project.
type Request struct {
	Kind  domain.ChartKind
	Title string

	// Bar charts.
	CategoryField string
	ValueField    string

	// Line charts. Order fixes the series order; when empty it is the
	// table's numeric fields in column order.
	Order     []string
	Selection domain.SeriesSelection
	Scale     domain.ScaleKind
}

// Projector projects rows and decorates the result with locale-aware
// axis ticks.
type Projector struct {
	MaxTicks int
	locale   string
	labels   *Labeler
}

// NewProjector returns a Projector labelling ticks for locale.
func NewProjector(locale string) *Projector {
	return &Projector{MaxTicks: 10, locale: locale, labels: NewLabeler(locale)}
}

func (p *Projector) maxTicks() int {
	if p.MaxTicks <= 0 {
		return 10
	}
	return p.MaxTicks
}

// Project dispatches on req.Kind.
func (p *Projector) Project(rows *domain.Table, req Request) (*domain.ChartSpec, error) {
	var (
		spec *domain.ChartSpec
		err  error
	)
	switch req.Kind {
	case domain.ChartBar:
		spec, err = ProjectBar(rows, req.CategoryField, req.ValueField)
	case domain.ChartLines:
		spec, err = ProjectLines(rows, req.Order, req.Selection, req.Scale)
	default:
		return nil, &domain.ProjectionError{Kind: req.Kind, Err: fmt.Errorf("unknown chart kind %q", req.Kind)}
	}
	if err != nil {
		return nil, err
	}

	spec.Title = req.Title
	spec.Locale = p.locale
	spec.ValueTicks = p.valueTicks(spec.ValueDomain, spec.Scale)
	if spec.TimeDomain != nil {
		spec.TimeTicks = p.timeTicks(*spec.TimeDomain)
	}
	return spec, nil
}

// ── Bar ────────────────────────────────────────────────────

// ProjectBar maps each row to one bar. The category domain holds the
// distinct categories in first-seen order and the value domain is
// [0, max], falling back to [0, DefaultMax] for empty or non-positive
// input.
func ProjectBar(rows *domain.Table, categoryField, valueField string) (*domain.ChartSpec, error) {
	fail := func(err error) error {
		return &domain.ProjectionError{Kind: domain.ChartBar, Err: err}
	}

	schema := rows.Schema()
	if _, ok := schema.Lookup(categoryField); !ok {
		return nil, fail(fmt.Errorf("category %q: %w", categoryField, domain.ErrUnknownField))
	}
	if f, ok := schema.Lookup(valueField); !ok || f.Kind != domain.KindNumber {
		return nil, fail(fmt.Errorf("value %q is not a numeric field: %w", valueField, domain.ErrUnknownField))
	}

	seen := map[string]bool{}
	categories := []string{}
	points := make([]domain.Point, 0, rows.Len())
	values := make([]float64, 0, rows.Len())

	for i := 0; i < rows.Len(); i++ {
		rec := rows.At(i)
		category, ok := rec.Display(categoryField)
		if !ok {
			return nil, fail(fmt.Errorf("row %d has no %q", i+1, categoryField))
		}
		value, ok := rec.Number(valueField)
		if !ok {
			return nil, fail(fmt.Errorf("row %d has no %q", i+1, valueField))
		}
		if !seen[category] {
			seen[category] = true
			categories = append(categories, category)
		}
		points = append(points, domain.Point{Category: category, Y: value})
		values = append(values, value)
	}

	max := DefaultMax
	if len(values) > 0 {
		if _, m := stats.Bounds(values); m > 0 {
			max = m
		}
	}

	return &domain.ChartSpec{
		Kind:           domain.ChartBar,
		Scale:          domain.ScaleLinear,
		CategoryField:  categoryField,
		CategoryDomain: categories,
		ValueDomain:    domain.Domain{Min: 0, Max: max},
		Series: []domain.Series{{
			Name:    valueField,
			Visible: true,
			Points:  points,
		}},
	}, nil
}

// ── Lines ──────────────────────────────────────────────────

// ProjectLines emits one series per field of order, each holding a point
// for every row. The Y domain covers only the selected series, so
// toggling a series rescales the axis even when rows do not change.
// Unselected series are kept with Visible false.
func ProjectLines(rows *domain.Table, order []string, selection domain.SeriesSelection, kind domain.ScaleKind) (*domain.ChartSpec, error) {
	fail := func(err error) error {
		return &domain.ProjectionError{Kind: domain.ChartLines, Err: err}
	}

	if kind == "" {
		kind = domain.ScaleLinear
	}
	if kind != domain.ScaleLinear && kind != domain.ScaleLog {
		return nil, fail(fmt.Errorf("unknown scale %q", kind))
	}

	schema := rows.Schema()
	if schema.TimeField == "" {
		return nil, fail(domain.ErrNoTimeField)
	}
	if len(order) == 0 {
		order = schema.NumberFields()
	}
	for _, f := range order {
		field, ok := schema.Lookup(f)
		if !ok || field.Kind != domain.KindNumber {
			return nil, fail(fmt.Errorf("series %q is not a numeric field: %w", f, domain.ErrUnknownField))
		}
	}
	if err := selection.Validate(schema); err != nil {
		return nil, fail(err)
	}
	if rows.Len() == 0 {
		return nil, fail(domain.ErrEmptyRows)
	}

	series := make([]domain.Series, len(order))
	for i, f := range order {
		series[i] = domain.Series{Name: f, Visible: selection.Has(f), Points: make([]domain.Point, 0, rows.Len())}
	}

	var (
		minX, maxX time.Time
		selected   []float64
		fields     = selection.Fields()
	)
	for i := 0; i < rows.Len(); i++ {
		rec := rows.At(i)
		x, ok := rec.Time()
		if !ok {
			return nil, fail(fmt.Errorf("row %d has no %q", i+1, schema.TimeField))
		}
		if i == 0 || x.Before(minX) {
			minX = x
		}
		if i == 0 || x.After(maxX) {
			maxX = x
		}

		for j := range series {
			y, ok := rec.Number(series[j].Name)
			if !ok {
				return nil, fail(fmt.Errorf("row %d has no %q", i+1, series[j].Name))
			}
			series[j].Points = append(series[j].Points, domain.Point{X: x, Y: y})
		}
		for _, f := range fields {
			y, ok := rec.Number(f)
			if !ok {
				return nil, fail(fmt.Errorf("row %d has no %q", i+1, f))
			}
			if kind == domain.ScaleLog && y <= 0 {
				return nil, fail(fmt.Errorf("%s = %v on row %d: %w", f, y, i+1, domain.ErrNonPositiveLog))
			}
			selected = append(selected, y)
		}
	}

	lower, upper := 0.0, DefaultMax
	if len(selected) > 0 {
		if _, m := stats.Bounds(selected); m > 0 {
			upper = m
		}
	}
	if kind == domain.ScaleLog {
		lower = 1
		if upper <= lower {
			upper = logFallbackMax
		}
	}

	return &domain.ChartSpec{
		Kind:        domain.ChartLines,
		Scale:       kind,
		TimeDomain:  &domain.TimeDomain{Min: minX, Max: maxX},
		ValueDomain: domain.Domain{Min: lower, Max: upper},
		Series:      series,
	}, nil
}
