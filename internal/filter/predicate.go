package filter

import (
	"chartkit/internal/domain"
)

// ── Predicates ─────────────────────────────────────────────
// A filter is a chain of predicates evaluated against each record.
// Every predicate must hold for a record to be kept.

// Predicate decides whether a single record is kept.
type Predicate interface {
	Match(domain.Record) bool
}

// Equals keeps records whose Field displays as Value. A Value equal to
// domain.AnyValue keeps every record.
type Equals struct {
	Field string
	Value string
}

func (p Equals) Match(r domain.Record) bool {
	if p.Value == domain.AnyValue {
		return true
	}
	v, ok := r.Display(p.Field)
	return ok && v == p.Value
}

// Between keeps records whose temporal field falls inside Range.
type Between struct {
	Range domain.DateRange
}

func (p Between) Match(r domain.Record) bool {
	t, ok := r.Time()
	return ok && p.Range.Contains(t)
}

// All is the logical AND of its predicates. An empty All matches every
// record.
type All []Predicate

func (ps All) Match(r domain.Record) bool {
	for _, p := range ps {
		if !p.Match(r) {
			return false
		}
	}
	return true
}
