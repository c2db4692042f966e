package dashboard

import (
	"sync"

	"chartkit/internal/chart"
	"chartkit/internal/domain"
	"chartkit/internal/filter"
)

// Session binds one loaded table to a moving State. The table never
// changes; every Dispatch rebuilds the ChartSpec from scratch and hands
// it to the registered listeners.
type Session struct {
	rows      *domain.Table
	projector *chart.Projector

	mu        sync.Mutex
	state     State
	spec      *domain.ChartSpec
	err       error
	listeners []func(*domain.ChartSpec)
}

// NewSession projects the initial state. A projection error is kept and
// reported by Spec; the session is still usable.
func NewSession(rows *domain.Table, state State, p *chart.Projector) *Session {
	s := &Session{rows: rows, projector: p, state: state}
	s.spec, s.err = Project(rows, state, p)
	return s
}

// OnRender registers fn to receive every successfully projected spec.
func (s *Session) OnRender(fn func(*domain.ChartSpec)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Dispatch reduces e into the state and reprojects. A rejected event
// leaves the state untouched. A projection error keeps the new state so
// the user can undo the change that caused it.
func (s *Session) Dispatch(e Event) (*domain.ChartSpec, error) {
	s.mu.Lock()
	next, err := Reduce(s.state, e)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = next
	s.spec, s.err = Project(s.rows, next, s.projector)
	spec, perr := s.spec, s.err
	listeners := append([]func(*domain.ChartSpec){}, s.listeners...)
	s.mu.Unlock()

	if perr != nil {
		return nil, perr
	}
	for _, fn := range listeners {
		fn(spec)
	}
	return spec, nil
}

// Spec returns the current spec or the error that prevented it.
func (s *Session) Spec() (*domain.ChartSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec, s.err
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Rows() *domain.Table { return s.rows }

// Filtered returns the rows passing the current criteria.
func (s *Session) Filtered() (*domain.Table, error) {
	st := s.State()
	return filter.Apply(s.rows, st.Criteria)
}
