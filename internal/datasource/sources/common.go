package sources

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"chartkit/internal/datasource"
)

// ── Shared decoding ────────────────────────────────────────

// decodeCSV reads a delimited table. Without a header row, columns are
// named col_1, col_2, ...
func decodeCSV(r io.Reader, delimiter string, hasHeader bool) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	if len(delimiter) > 0 {
		reader.Comma = rune(delimiter[0])
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty csv")
	}

	if hasHeader {
		headers := make([]string, len(records[0]))
		for i, h := range records[0] {
			headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
		return headers, records[1:], nil
	}
	headers := make([]string, len(records[0]))
	for i := range headers {
		headers[i] = fmt.Sprintf("col_%d", i+1)
	}
	return headers, records, nil
}

// csvRows converts string cells to RawRows sharing one header slice.
func csvRows(headers []string, rows [][]string) []datasource.RawRow {
	out := make([]datasource.RawRow, len(rows))
	for i, row := range rows {
		values := make([]any, len(headers))
		for j := range headers {
			if j < len(row) {
				values[j] = row[j]
			}
		}
		out[i] = datasource.RawRow{Fields: headers, Values: values}
	}
	return out
}

// decodeJSON parses a JSON document and walks dataPath to the array of
// row objects.
func decodeJSON(r io.Reader, dataPath string) ([]string, []datasource.RawRow, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	if dataPath != "" {
		for _, part := range strings.Split(dataPath, ".") {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, nil, fmt.Errorf("invalid data path: %q not found", part)
			}
			raw = m[part]
		}
	}

	var objects []map[string]any
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				objects = append(objects, m)
			}
		}
	case map[string]any:
		objects = []map[string]any{v}
	default:
		return nil, nil, fmt.Errorf("expected an array of objects, got %T", raw)
	}

	// JSON objects are unordered, so columns are sorted for a stable schema.
	seen := map[string]bool{}
	var headers []string
	for _, obj := range objects {
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	rows := make([]datasource.RawRow, len(objects))
	for i, obj := range objects {
		values := make([]any, len(headers))
		for j, h := range headers {
			values[j] = flattenValue(obj[h])
		}
		rows[i] = datasource.RawRow{Fields: headers, Values: values}
	}
	return headers, rows, nil
}

// flattenValue keeps scalars and serializes nested values as JSON text.
func flattenValue(v any) any {
	switch v.(type) {
	case string, float64, bool, nil:
		return v
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// streamFrom runs fetch in the reader goroutine and streams a header row
// followed by its rows.
func streamFrom(ctx context.Context, fetch func() ([]string, []datasource.RawRow, error)) (<-chan datasource.RawRow, <-chan error) {
	out := make(chan datasource.RawRow, 100)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)

		headers, rows, err := fetch()
		if err != nil {
			errCh <- err
			return
		}
		if !send(ctx, out, datasource.HeaderRow(headers)) {
			errCh <- ctx.Err()
			return
		}
		for _, row := range rows {
			if !send(ctx, out, row) {
				errCh <- ctx.Err()
				return
			}
		}
	}()
	return out, errCh
}

func send(ctx context.Context, out chan<- datasource.RawRow, row datasource.RawRow) bool {
	select {
	case out <- row:
		return true
	case <-ctx.Done():
		return false
	}
}

func boolOption(cfg datasource.SourceConfig, key string, def bool) bool {
	switch v := cfg[key].(type) {
	case bool:
		return v
	case string:
		if v == "" {
			return def
		}
		return strings.ToLower(v) != "false"
	default:
		return def
	}
}
