package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"chartkit/internal/datasource"

	"github.com/klauspost/compress/gzip"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads a table from a local CSV file, gzipped when it ends in .gz.

type csvFileSource struct{}

func init() { datasource.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{
		Type:  "csv_file",
		Label: "CSV File",
		ConfigFields: []datasource.ConfigField{
			{Key: "filePath", Label: "File Path", Type: "file", Required: true, Help: "Path to the CSV file"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ",", Help: "Column delimiter (default: comma)"},
			{Key: "hasHeader", Label: "Has Header", Type: "select", Options: []string{"true", "false"}, Default: "true", Help: "Whether the first row contains column names"},
		},
	}
}

func (s *csvFileSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	headers, _, err := readCSVFile(cfg)
	return headers, err
}

func (s *csvFileSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	return streamFrom(ctx, func() ([]string, []datasource.RawRow, error) {
		headers, rows, err := readCSVFile(cfg)
		if err != nil {
			return nil, nil, err
		}
		return headers, csvRows(headers, rows), nil
	})
}

func readCSVFile(cfg datasource.SourceConfig) ([]string, [][]string, error) {
	filePath := cfg.String("filePath")
	if filePath == "" {
		return nil, nil, fmt.Errorf("filePath is required")
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(filePath, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	return decodeCSV(r, cfg.String("delimiter"), boolOption(cfg, "hasHeader", true))
}
