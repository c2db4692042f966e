package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chartkit/internal/chart"
	"chartkit/internal/dashboard"
	"chartkit/internal/datasource"
	"chartkit/internal/domain"
	"chartkit/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// ViewService: saved views and loading them into sessions
// ─────────────────────────────────────────────────────────────

// DefaultLoadTimeout bounds a single table load.
const DefaultLoadTimeout = 2 * time.Minute

// ViewService manages saved views and turns them into live sessions.
type ViewService struct {
	store   domain.ViewStore
	emitter EventEmitter
	locale  string
}

// NewViewService creates a ViewService. locale is used for views that do
// not set their own.
func NewViewService(store domain.ViewStore, emitter EventEmitter, locale string) *ViewService {
	return &ViewService{store: store, emitter: emitter, locale: locale}
}

type CreateViewInput struct {
	Name          string              `json:"name"`
	Title         string              `json:"title"`
	SourceType    string              `json:"sourceType"`
	SourceConfig  map[string]any      `json:"sourceConfig"`
	Parse         domain.ParseOptions `json:"parse"`
	Kind          domain.ChartKind    `json:"kind"`
	CategoryField string              `json:"categoryField"`
	ValueField    string              `json:"valueField"`
	SeriesOrder   []string            `json:"seriesOrder"`
	Scale         domain.ScaleKind    `json:"scale"`
	Locale        string              `json:"locale"`
}

// CreateView validates and saves a view. Line charts start with every
// series in SeriesOrder selected; fields are checked against the data on
// first load.
func (s *ViewService) CreateView(ctx context.Context, in CreateViewInput) (*domain.View, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("view name is required")
	}
	if _, err := datasource.GetSource(in.SourceType); err != nil {
		return nil, err
	}
	switch in.Kind {
	case domain.ChartBar:
		if in.CategoryField == "" || in.ValueField == "" {
			return nil, errors.New("bar views need categoryField and valueField")
		}
		if in.Scale == domain.ScaleLog {
			return nil, errors.New("bar views only support a linear scale")
		}
	case domain.ChartLines:
		if in.Parse.TimeField == "" {
			return nil, fmt.Errorf("lines view: %w", domain.ErrNoTimeField)
		}
	default:
		return nil, fmt.Errorf("unknown chart kind %q", in.Kind)
	}
	switch in.Scale {
	case "":
		in.Scale = domain.ScaleLinear
	case domain.ScaleLinear, domain.ScaleLog:
	default:
		return nil, fmt.Errorf("unknown scale %q", in.Scale)
	}

	v := &domain.View{
		Name:          in.Name,
		Title:         in.Title,
		SourceType:    in.SourceType,
		SourceConfig:  in.SourceConfig,
		Parse:         in.Parse,
		Kind:          in.Kind,
		CategoryField: in.CategoryField,
		ValueField:    in.ValueField,
		SeriesOrder:   in.SeriesOrder,
		Locale:        in.Locale,
		State: domain.ViewState{
			Criteria:  domain.Categorical(nil),
			Selection: domain.NewSeriesSelection(in.SeriesOrder...),
			Scale:     in.Scale,
		},
	}
	if v.SourceConfig == nil {
		v.SourceConfig = map[string]any{}
	}
	if err := s.store.CreateView(v); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, EventViewUpdated, v.ID)
	return v, nil
}

// GetView resolves ref as a view id, then as a view name.
func (s *ViewService) GetView(ref string) (*domain.View, error) {
	v, err := s.store.GetView(ref)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return s.store.GetViewByName(ref)
}

func (s *ViewService) ListViews() ([]domain.View, error) {
	return s.store.ListViews()
}

func (s *ViewService) DeleteView(ctx context.Context, ref string) error {
	v, err := s.GetView(ref)
	if err != nil {
		return err
	}
	if err := s.store.DeleteView(v.ID); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventViewDeleted, v.ID)
	return nil
}

// SaveState persists the control state of a view.
func (s *ViewService) SaveState(ctx context.Context, v *domain.View, st domain.ViewState) error {
	v.State = st
	if err := s.store.UpdateView(v); err != nil {
		return fmt.Errorf("save view state: %w", err)
	}
	s.emitter.Emit(ctx, EventViewUpdated, v.ID)
	return nil
}

// LoadTable fetches and types the view's data.
func (s *ViewService) LoadTable(ctx context.Context, v *domain.View) (*domain.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultLoadTimeout)
	defer cancel()
	return datasource.Load(ctx, v.SourceType, datasource.SourceConfig(v.SourceConfig), v.Parse)
}

// Projector returns a projector labelling ticks in the view's locale.
func (s *ViewService) Projector(v *domain.View) *chart.Projector {
	if v.Locale != "" {
		return chart.NewProjector(v.Locale)
	}
	return chart.NewProjector(s.locale)
}

// Open loads the view's table and starts a session at its saved state.
func (s *ViewService) Open(ctx context.Context, v *domain.View) (*dashboard.Session, error) {
	rows, err := s.LoadTable(ctx, v)
	if err != nil {
		return nil, err
	}
	st, err := dashboard.NewState(v, rows.Schema())
	if err != nil {
		return nil, err
	}
	return dashboard.NewSession(rows, st, s.Projector(v)), nil
}
