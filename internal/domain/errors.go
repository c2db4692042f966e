package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRows      = errors.New("no rows to project")
	ErrNonPositiveLog = errors.New("non-positive value on a log scale")
	ErrInvalidBound   = errors.New("invalid range bound")
	ErrUnknownField   = errors.New("unknown field")
	ErrNoTimeField    = errors.New("table has no temporal field")
)

// LoadError reports a network or parse failure while loading a table.
// Row is the 1-based data row that failed, or 0 if the failure is not
// tied to a row.
type LoadError struct {
	Source string
	Row    int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FilterError reports malformed filter criteria.
type FilterError struct {
	Field string
	Err   error
}

func (e *FilterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("filter %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("filter: %v", e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// ProjectionError reports that a chart could not be projected from the
// given rows. Callers typically render a placeholder instead.
type ProjectionError struct {
	Kind ChartKind
	Err  error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("project %s chart: %v", e.Kind, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }
