// Package render draws ChartSpecs. The projection core never draws;
// everything that touches an output surface lives behind Sink.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chartkit/internal/domain"
)

// Sink consumes a fully computed ChartSpec.
type Sink interface {
	Render(ctx context.Context, spec *domain.ChartSpec) error
}

// JSONSink writes the chart spec as JSON, for renderers living elsewhere.
type JSONSink struct {
	w io.Writer
}

func NewJSONSink(w io.Writer) *JSONSink { return &JSONSink{w: w} }

func (s *JSONSink) Render(ctx context.Context, spec *domain.ChartSpec) error {
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}

// Size is the output size of drawn charts, in pixels.
type Size struct {
	Width, Height int
}

// DefaultSize is used when the config leaves render size unset.
var DefaultSize = Size{Width: 960, Height: 500}

// FormatForPath picks the export format from a file extension.
func FormatForPath(path string) (domain.ExportFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return domain.ExportSVG, nil
	case ".json":
		return domain.ExportJSON, nil
	default:
		return "", fmt.Errorf("cannot infer format of %q: use .svg or .json", path)
	}
}

// NewSink returns the sink for format writing to w.
func NewSink(w io.Writer, format domain.ExportFormat, size Size) (Sink, error) {
	switch format {
	case domain.ExportSVG, "":
		return NewSVGSink(w, size), nil
	case domain.ExportJSON:
		return NewJSONSink(w), nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// WriteFile renders spec into path. The file is replaced atomically so
// a watcher never sees a half-written chart.
func WriteFile(ctx context.Context, path string, format domain.ExportFormat, size Size, spec *domain.ChartSpec) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chartkit-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	sink, err := NewSink(tmp, format, size)
	if err != nil {
		tmp.Close()
		return err
	}
	if err := sink.Render(ctx, spec); err != nil {
		tmp.Close()
		return fmt.Errorf("render: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Placeholder writes an empty chart carrying a message, for when a
// projection fails and the caller still owes the user a picture.
func Placeholder(w io.Writer, size Size, message string) error {
	_, err := fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
		`<rect width="100%%" height="100%%" fill="#ffffff" stroke="#cccccc"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#666666">%s</text>`+
		"</svg>\n", size.Width, size.Height, html.EscapeString(message))
	return err
}

// WritePlaceholder writes a placeholder SVG to path.
func WritePlaceholder(path string, size Size, message string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Placeholder(f, size, message); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
