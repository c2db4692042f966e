package dashboard

import (
	"fmt"
	"strings"

	"chartkit/internal/domain"
)

// Event is one discrete control change.
type Event interface {
	Name() string
	apply(State) (State, error)
}

// SetFilter constrains a categorical field. Value domain.AnyValue lifts
// the constraint.
type SetFilter struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (SetFilter) Name() string { return "set_filter" }

func (e SetFilter) apply(s State) (State, error) {
	if _, ok := s.Schema.Lookup(e.Field); !ok {
		return s, &domain.FilterError{Field: e.Field, Err: domain.ErrUnknownField}
	}
	base := s.Criteria
	if base.Mode == domain.ModeRange {
		base = domain.Categorical(nil)
	}
	s.Criteria = base.With(e.Field, e.Value)
	return s, nil
}

// SetRange switches to date-range filtering. Bounds are YYYY-MM-DD text
// as typed into the controls.
type SetRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (SetRange) Name() string { return "set_range" }

func (e SetRange) apply(s State) (State, error) {
	if s.Schema.TimeField == "" {
		return s, &domain.FilterError{Err: domain.ErrNoTimeField}
	}
	r, err := domain.ParseDateRange(e.Start, e.End)
	if err != nil {
		return s, err
	}
	s.Criteria = domain.InRange(r)
	return s, nil
}

// ClearFilters drops every constraint.
type ClearFilters struct{}

func (ClearFilters) Name() string { return "clear" }

func (ClearFilters) apply(s State) (State, error) {
	s.Criteria = domain.Categorical(nil)
	return s, nil
}

// ToggleSeries adds or removes one series from the selection.
type ToggleSeries struct {
	Field string `json:"field"`
}

func (ToggleSeries) Name() string { return "toggle_series" }

func (e ToggleSeries) apply(s State) (State, error) {
	if !contains(s.seriesFields(), e.Field) {
		return s, fmt.Errorf("toggle %q: %w", e.Field, domain.ErrUnknownField)
	}
	s.Selection = s.Selection.Toggle(e.Field)
	return s, nil
}

// SelectSeries replaces the selection.
type SelectSeries struct {
	Fields []string `json:"fields"`
}

func (SelectSeries) Name() string { return "select_series" }

func (e SelectSeries) apply(s State) (State, error) {
	known := s.seriesFields()
	for _, f := range e.Fields {
		if !contains(known, f) {
			return s, fmt.Errorf("select %q: %w", f, domain.ErrUnknownField)
		}
	}
	s.Selection = domain.NewSeriesSelection(e.Fields...)
	return s, nil
}

// SetScale switches the value axis between linear and log.
type SetScale struct {
	Scale domain.ScaleKind `json:"scale"`
}

func (SetScale) Name() string { return "set_scale" }

func (e SetScale) apply(s State) (State, error) {
	switch e.Scale {
	case domain.ScaleLinear, domain.ScaleLog:
	default:
		return s, fmt.Errorf("unknown scale %q", e.Scale)
	}
	if s.Kind == domain.ChartBar && e.Scale == domain.ScaleLog {
		return s, fmt.Errorf("bar charts only support a linear scale")
	}
	s.Scale = e.Scale
	return s, nil
}

// seriesFields lists the fields a selection may contain.
func (s State) seriesFields() []string {
	if len(s.Order) > 0 {
		return s.Order
	}
	return s.Schema.NumberFields()
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// DecodeEvent builds an Event from a name and loosely typed arguments,
// as received from the MCP tool surface.
func DecodeEvent(name string, args map[string]any) (Event, error) {
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}
	switch name {
	case "set_filter":
		if str("field") == "" {
			return nil, fmt.Errorf("set_filter requires field")
		}
		value := str("value")
		if value == "" {
			value = domain.AnyValue
		}
		return SetFilter{Field: str("field"), Value: value}, nil
	case "set_range":
		return SetRange{Start: str("start"), End: str("end")}, nil
	case "clear":
		return ClearFilters{}, nil
	case "toggle_series":
		if str("field") == "" {
			return nil, fmt.Errorf("toggle_series requires field")
		}
		return ToggleSeries{Field: str("field")}, nil
	case "select_series":
		var fields []string
		switch v := args["fields"].(type) {
		case []any:
			for _, f := range v {
				if s, ok := f.(string); ok {
					fields = append(fields, s)
				}
			}
		case []string:
			fields = v
		case string:
			for _, f := range strings.Split(v, ",") {
				if f = strings.TrimSpace(f); f != "" {
					fields = append(fields, f)
				}
			}
		}
		return SelectSeries{Fields: fields}, nil
	case "set_scale":
		return SetScale{Scale: domain.ScaleKind(strings.ToLower(str("scale")))}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}

// EventNames lists the names DecodeEvent accepts.
func EventNames() []string {
	return []string{"set_filter", "set_range", "clear", "toggle_series", "select_series", "set_scale"}
}
