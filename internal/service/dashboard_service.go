package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"chartkit/internal/dashboard"
	"chartkit/internal/domain"
)

// DashboardService keeps one live session per opened view and persists the
// control state after every accepted event.
type DashboardService struct {
	views *ViewService

	mu       sync.Mutex
	sessions map[string]*openView
}

type openView struct {
	view    *domain.View
	session *dashboard.Session
}

func NewDashboardService(views *ViewService) *DashboardService {
	return &DashboardService{views: views, sessions: make(map[string]*openView)}
}

// Session returns the live session for ref, loading the view's table on
// first use.
func (s *DashboardService) Session(ctx context.Context, ref string) (*dashboard.Session, *domain.View, error) {
	v, err := s.views.GetView(ref)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	ov, ok := s.sessions[v.ID]
	s.mu.Unlock()
	if ok {
		return ov.session, ov.view, nil
	}

	sess, err := s.views.Open(ctx, v)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ov, ok := s.sessions[v.ID]; ok {
		return ov.session, ov.view, nil
	}
	s.sessions[v.ID] = &openView{view: v, session: sess}
	return sess, v, nil
}

// Dispatch decodes and applies a control event to the view's session.
// The state is saved whenever it changed, even if the new state cannot be
// projected.
func (s *DashboardService) Dispatch(ctx context.Context, ref, event string, args map[string]any) (*domain.ChartSpec, error) {
	e, err := dashboard.DecodeEvent(event, args)
	if err != nil {
		return nil, err
	}
	sess, v, err := s.Session(ctx, ref)
	if err != nil {
		return nil, err
	}

	spec, err := sess.Dispatch(e)
	var perr *domain.ProjectionError
	if err != nil && !errors.As(err, &perr) {
		return nil, err
	}

	if serr := s.views.SaveState(ctx, v, sess.State().ViewState()); serr != nil {
		log.Printf("[DASHBOARD] %s: %v", v.Name, serr)
	}
	return spec, err
}

// Reload drops the cached session so the next call reloads the data.
func (s *DashboardService) Reload(ref string) {
	v, err := s.views.GetView(ref)
	if err != nil {
		return
	}
	s.Forget(v.ID)
}

// Forget drops the session of a view id, e.g. after the view is deleted.
func (s *DashboardService) Forget(viewID string) {
	s.mu.Lock()
	delete(s.sessions, viewID)
	s.mu.Unlock()
}
