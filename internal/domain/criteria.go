package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AnyValue is the categorical sentinel meaning "no constraint".
const AnyValue = "All"

// FilterMode selects how Criteria are evaluated.
type FilterMode string

const (
	ModeCategorical FilterMode = "categorical"
	ModeRange       FilterMode = "range"
)

// DateRange is an inclusive range of days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects missing bounds and inverted ranges.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("start: %w", ErrInvalidBound)
	}
	if r.End.IsZero() {
		return fmt.Errorf("end: %w", ErrInvalidBound)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("start %s after end %s: %w",
			r.Start.Format(DateLayout), r.End.Format(DateLayout), ErrInvalidBound)
	}
	return nil
}

// Contains reports whether t falls on or between the start and end days.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End.AddDate(0, 0, 1))
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// ParseDateRange parses two YYYY-MM-DD bounds. Empty or malformed input
// is a FilterError, never an unbounded range.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := parseBound("start", start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := parseBound("end", end)
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{Start: s, End: e}
	if err := r.Validate(); err != nil {
		return DateRange{}, &FilterError{Err: err}
	}
	return r, nil
}

func parseBound(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, &FilterError{Err: fmt.Errorf("%s is empty: %w", name, ErrInvalidBound)}
	}
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return time.Time{}, &FilterError{Err: fmt.Errorf("%s %q: %w", name, v, ErrInvalidBound)}
	}
	return t, nil
}

// Criteria is the current set of user-selected filter constraints. It is
// a value: the With* methods return modified copies.
type Criteria struct {
	Mode   FilterMode        `json:"mode"`
	Equals map[string]string `json:"equals,omitempty"`
	Range  DateRange         `json:"range,omitempty"`
}

// Categorical builds equality criteria. The map is copied.
func Categorical(equals map[string]string) Criteria {
	c := Criteria{Mode: ModeCategorical, Equals: make(map[string]string, len(equals))}
	for k, v := range equals {
		c.Equals[k] = v
	}
	return c
}

// InRange builds date-range criteria.
func InRange(r DateRange) Criteria {
	return Criteria{Mode: ModeRange, Range: r}
}

// With returns a categorical copy of c with field constrained to value.
// Passing AnyValue removes the constraint's effect without dropping the
// field from the criteria.
func (c Criteria) With(field, value string) Criteria {
	next := Categorical(c.Equals)
	next.Equals[field] = value
	return next
}

// IsIdentity reports whether the criteria accept every row.
func (c Criteria) IsIdentity() bool {
	if c.Mode == ModeRange {
		return false
	}
	for _, v := range c.Equals {
		if v != AnyValue {
			return false
		}
	}
	return true
}

// Fields returns the constrained field names in sorted order.
func (c Criteria) Fields() []string {
	fields := make([]string, 0, len(c.Equals))
	for k := range c.Equals {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

func (c Criteria) String() string {
	if c.Mode == ModeRange {
		return "range " + c.Range.String()
	}
	parts := make([]string, 0, len(c.Equals))
	for _, f := range c.Fields() {
		parts = append(parts, f+"="+c.Equals[f])
	}
	if len(parts) == 0 {
		return "all rows"
	}
	return strings.Join(parts, " and ")
}
