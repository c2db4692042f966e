// Package filter narrows a loaded table down to the rows selected by the
// current criteria. Filtering is pure: the input table is never modified
// and the output keeps the input order.
package filter

import (
	"fmt"

	"chartkit/internal/domain"
)

// Apply returns the ordered subsequence of t matching c.
func Apply(t *domain.Table, c domain.Criteria) (*domain.Table, error) {
	pred, err := Build(t.Schema(), c)
	if err != nil {
		return nil, err
	}
	return Select(t, pred), nil
}

// Build validates c against schema and converts it to a predicate.
func Build(schema domain.Schema, c domain.Criteria) (Predicate, error) {
	switch c.Mode {
	case domain.ModeCategorical, "":
		preds := make(All, 0, len(c.Equals))
		for _, field := range c.Fields() {
			if _, ok := schema.Lookup(field); !ok {
				return nil, &domain.FilterError{Field: field, Err: domain.ErrUnknownField}
			}
			value := c.Equals[field]
			if value == domain.AnyValue {
				continue
			}
			preds = append(preds, Equals{Field: field, Value: value})
		}
		return preds, nil

	case domain.ModeRange:
		if schema.TimeField == "" {
			return nil, &domain.FilterError{Err: domain.ErrNoTimeField}
		}
		if err := c.Range.Validate(); err != nil {
			return nil, &domain.FilterError{Field: schema.TimeField, Err: err}
		}
		return Between{Range: c.Range}, nil

	default:
		return nil, &domain.FilterError{Err: fmt.Errorf("unknown filter mode %q", c.Mode)}
	}
}

// Select keeps the records of t matching p, preserving order.
func Select(t *domain.Table, p Predicate) *domain.Table {
	indices := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if p.Match(t.At(i)) {
			indices = append(indices, i)
		}
	}
	return t.Subset(indices)
}

// Distinct returns the distinct display values of field in first-seen
// order, prefixed with domain.AnyValue. It is what a categorical select
// control offers.
func Distinct(t *domain.Table, field string) []string {
	seen := map[string]bool{}
	out := []string{domain.AnyValue}
	for i := 0; i < t.Len(); i++ {
		v, ok := t.At(i).Display(field)
		if !ok || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
