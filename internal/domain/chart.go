package domain

import "time"

// ChartKind tags which projection a chart uses.
type ChartKind string

const (
	ChartBar   ChartKind = "bar"
	ChartLines ChartKind = "lines"
)

// ScaleKind selects the value axis scale.
type ScaleKind string

const (
	ScaleLinear ScaleKind = "linear"
	ScaleLog    ScaleKind = "log"
)

// Domain is a closed numeric interval.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TimeDomain is a closed temporal interval.
type TimeDomain struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Tick is a labelled axis tick.
type Tick struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// TimeTick is a labelled tick on a temporal axis.
type TimeTick struct {
	At    time.Time `json:"at"`
	Label string    `json:"label"`
}

// Point is one drawn mark. Bar charts set Category, line charts set X.
type Point struct {
	Category string    `json:"category,omitempty"`
	X        time.Time `json:"x,omitempty"`
	Y        float64   `json:"y"`
}

// Series is one named numeric field plotted as bars or a line.
// Hidden series keep their points so a renderer can toggle them without
// recomputing.
type Series struct {
	Name    string  `json:"name"`
	Visible bool    `json:"visible"`
	Points  []Point `json:"points"`
}

// ChartSpec is the fully-computed, renderer-agnostic description of what
// to draw. It is rebuilt from scratch on every change.
type ChartSpec struct {
	Kind           ChartKind   `json:"kind"`
	Scale          ScaleKind   `json:"scale"`
	Title          string      `json:"title,omitempty"`
	Locale         string      `json:"locale,omitempty"`
	CategoryField  string      `json:"categoryField,omitempty"`
	CategoryDomain []string    `json:"categoryDomain,omitempty"`
	TimeDomain     *TimeDomain `json:"timeDomain,omitempty"`
	TimeTicks      []TimeTick  `json:"timeTicks,omitempty"`
	ValueDomain    Domain      `json:"valueDomain"`
	ValueTicks     []Tick      `json:"valueTicks,omitempty"`
	Series         []Series    `json:"series"`
}

// VisibleSeries returns the series a renderer should draw.
func (c *ChartSpec) VisibleSeries() []Series {
	var out []Series
	for _, s := range c.Series {
		if s.Visible {
			out = append(out, s)
		}
	}
	return out
}
