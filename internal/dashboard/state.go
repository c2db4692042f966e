// Package dashboard holds the control state of one chart and the pure
// reducer that moves it forward. Controls emit Events; Reduce folds an
// Event into the State; Project derives the ChartSpec from the State and
// the loaded table.
package dashboard

import (
	"fmt"

	"chartkit/internal/chart"
	"chartkit/internal/domain"
	"chartkit/internal/filter"
)

// State is everything needed to project a chart, apart from the rows.
// It is a value; Reduce never modifies its argument.
type State struct {
	Schema domain.Schema `json:"schema"`

	Kind          domain.ChartKind `json:"kind"`
	Title         string           `json:"title,omitempty"`
	CategoryField string           `json:"categoryField,omitempty"`
	ValueField    string           `json:"valueField,omitempty"`
	Order         []string         `json:"order,omitempty"`

	Criteria  domain.Criteria        `json:"criteria"`
	Selection domain.SeriesSelection `json:"selection"`
	Scale     domain.ScaleKind       `json:"scale"`
}

// NewState builds the initial state of a saved view over a loaded schema.
func NewState(v *domain.View, schema domain.Schema) (State, error) {
	s := State{
		Schema:        schema,
		Kind:          v.Kind,
		Title:         v.Title,
		CategoryField: v.CategoryField,
		ValueField:    v.ValueField,
		Order:         append([]string(nil), v.SeriesOrder...),
		Criteria:      v.State.Criteria,
		Selection:     v.State.Selection,
		Scale:         v.State.Scale,
	}
	if s.Scale == "" {
		s.Scale = domain.ScaleLinear
	}
	if s.Criteria.Mode == "" {
		s.Criteria = domain.Categorical(s.Criteria.Equals)
	}
	if s.Kind == domain.ChartLines && len(s.Order) == 0 {
		s.Order = schema.NumberFields()
	}
	if err := s.Selection.Validate(schema); err != nil {
		return State{}, fmt.Errorf("view %s: %w", v.Name, err)
	}
	return s, nil
}

// ViewState extracts the part of s that a saved view persists.
func (s State) ViewState() domain.ViewState {
	return domain.ViewState{Criteria: s.Criteria, Selection: s.Selection, Scale: s.Scale}
}

// Request converts s into a projection request.
func (s State) Request() chart.Request {
	return chart.Request{
		Kind:          s.Kind,
		Title:         s.Title,
		CategoryField: s.CategoryField,
		ValueField:    s.ValueField,
		Order:         s.Order,
		Selection:     s.Selection,
		Scale:         s.Scale,
	}
}

// Reduce applies e to s. An invalid event returns s unchanged with the
// error.
func Reduce(s State, e Event) (State, error) {
	next, err := e.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

// Project filters rows by the current criteria and projects the result.
func Project(rows *domain.Table, s State, p *chart.Projector) (*domain.ChartSpec, error) {
	filtered, err := filter.Apply(rows, s.Criteria)
	if err != nil {
		return nil, err
	}
	return p.Project(filtered, s.Request())
}
