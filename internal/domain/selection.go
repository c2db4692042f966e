package domain

import (
	"encoding/json"
	"fmt"
)

// SeriesSelection is the ordered set of numeric fields chosen for display.
type SeriesSelection struct {
	fields []string
}

// NewSeriesSelection returns a selection of the given fields, dropping
// duplicates.
func NewSeriesSelection(fields ...string) SeriesSelection {
	var s SeriesSelection
	for _, f := range fields {
		if !s.Has(f) {
			s.fields = append(s.fields, f)
		}
	}
	return s
}

func (s SeriesSelection) Has(field string) bool {
	for _, f := range s.fields {
		if f == field {
			return true
		}
	}
	return false
}

// Toggle returns a copy with field added or removed.
func (s SeriesSelection) Toggle(field string) SeriesSelection {
	next := SeriesSelection{fields: make([]string, 0, len(s.fields)+1)}
	found := false
	for _, f := range s.fields {
		if f == field {
			found = true
			continue
		}
		next.fields = append(next.fields, f)
	}
	if !found {
		next.fields = append(next.fields, field)
	}
	return next
}

// Fields returns the selected field names in selection order.
func (s SeriesSelection) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s SeriesSelection) Len() int { return len(s.fields) }

// Validate checks that every selected field is a numeric field of schema.
func (s SeriesSelection) Validate(schema Schema) error {
	for _, f := range s.fields {
		field, ok := schema.Lookup(f)
		if !ok {
			return fmt.Errorf("series %q: %w", f, ErrUnknownField)
		}
		if field.Kind != KindNumber {
			return fmt.Errorf("series %q is %s, not a number", f, field.Kind)
		}
	}
	return nil
}

func (s SeriesSelection) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.fields)
}

func (s *SeriesSelection) UnmarshalJSON(data []byte) error {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*s = NewSeriesSelection(fields...)
	return nil
}
