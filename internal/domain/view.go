package domain

import "time"

// ParseOptions control how raw source cells are typed at load time.
type ParseOptions struct {
	TimeField    string   `json:"timeField,omitempty"`
	TimeLayout   string   `json:"timeLayout,omitempty"` // Go layout, or "auto"; default DateLayout
	NumberFields []string `json:"numberFields,omitempty"`
}

// ViewState is the user-controlled part of a dashboard: everything the
// controls can change.
type ViewState struct {
	Criteria  Criteria        `json:"criteria"`
	Selection SeriesSelection `json:"selection"`
	Scale     ScaleKind       `json:"scale"`
}

// View is a saved dashboard: where the data comes from, how it is typed,
// which chart it draws, and the last control state.
type View struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Title         string         `json:"title"`
	SourceType    string         `json:"sourceType"`
	SourceConfig  map[string]any `json:"sourceConfig"`
	Parse         ParseOptions   `json:"parse"`
	Kind          ChartKind      `json:"kind"`
	CategoryField string         `json:"categoryField,omitempty"` // bar charts
	ValueField    string         `json:"valueField,omitempty"`    // bar charts
	SeriesOrder   []string       `json:"seriesOrder,omitempty"`   // line charts
	State         ViewState      `json:"state"`
	Locale        string         `json:"locale,omitempty"` // tick label locale; empty uses the configured default
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ViewStore manages CRUD for saved views.
type ViewStore interface {
	CreateView(v *View) error
	GetView(id string) (*View, error)
	GetViewByName(name string) (*View, error)
	ListViews() ([]View, error)
	UpdateView(v *View) error
	DeleteView(id string) error
}
