package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source fetches a raw table from somewhere outside the process.
// Implementations live in datasource/sources/, one file per source type.
//
// Pattern: spec → discover → read.

// SourceConfig is an opaque configuration map parsed per source type.
type SourceConfig map[string]any

// String returns a config value as a string, or "" when absent.
func (c SourceConfig) String(key string) string {
	v, _ := c[key].(string)
	return v
}

// ConfigField describes a single configuration input for a source.
type ConfigField struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"` // "string" | "select" | "textarea" | "password" | "file"
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default,omitempty"`
	Help     string   `json:"help,omitempty"`
}

// SourceSpec describes a source type and its configuration inputs.
type SourceSpec struct {
	Type         string        `json:"type"`
	Label        string        `json:"label"`
	ConfigFields []ConfigField `json:"configFields"`
}

// RawRow is one untyped row as read from a source. Rows from a delimited
// source share the same Fields slice. A Header row carries column names
// only and is sent before any data row.
type RawRow struct {
	Fields []string
	Values []any
	Header bool
}

// HeaderRow announces the columns of a read, so a source with no data
// rows still yields a schema without a second fetch.
func HeaderRow(fields []string) RawRow {
	return RawRow{Fields: fields, Header: true}
}

// Get returns the raw value of a column.
func (r RawRow) Get(name string) (any, bool) {
	for i, f := range r.Fields {
		if f == name {
			if i < len(r.Values) {
				return r.Values[i], true
			}
			return nil, true
		}
	}
	return nil, false
}

// Map flattens the row for previews.
func (r RawRow) Map() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for i, f := range r.Fields {
		if i < len(r.Values) {
			m[f] = r.Values[i]
		} else {
			m[f] = nil
		}
	}
	return m
}

// Source is the interface every data source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Discover introspects the source and returns its column names in
	// source order.
	Discover(ctx context.Context, cfg SourceConfig) ([]string, error)

	// Read streams rows from the source into a channel, starting with a
	// HeaderRow. The channel is closed when all rows have been read or ctx
	// is cancelled. Errors, including ctx's, are sent on the error channel
	// (buffered size 1).
	Read(ctx context.Context, cfg SourceConfig) (<-chan RawRow, <-chan error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[string]Source{}
)

// RegisterSource registers a source by its spec type.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("unknown source type: %q", typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}
