package sources

import (
	"context"
	"fmt"
	"os"

	"chartkit/internal/datasource"
)

// ── JSON File Source ────────────────────────────────────────
// Reads a table from a local JSON array of objects.

type jsonFileSource struct{}

func init() { datasource.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{
		Type:  "json_file",
		Label: "JSON File",
		ConfigFields: []datasource.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the JSON file"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Help: "Dot-separated path to the array (e.g., 'data.items'). Leave empty if root is an array."},
		},
	}
}

func (s *jsonFileSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	headers, _, err := readJSONFile(cfg)
	return headers, err
}

func (s *jsonFileSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	return streamFrom(ctx, func() ([]string, []datasource.RawRow, error) {
		return readJSONFile(cfg)
	})
}

func readJSONFile(cfg datasource.SourceConfig) ([]string, []datasource.RawRow, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}
	defer f.Close()
	return decodeJSON(f, cfg.String("dataPath"))
}
