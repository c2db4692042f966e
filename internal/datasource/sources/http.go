package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chartkit/internal/datasource"

	"github.com/klauspost/compress/gzip"
)

// ── HTTP Source ─────────────────────────────────────────────
// Fetches a delimited table (or a JSON array) from a URL. This is the
// usual way a dashboard gets its data: a static file or a /download
// endpoint.

// DefaultHTTPTimeout applies when a source config sets no timeout.
var DefaultHTTPTimeout = 30 * time.Second

type httpSource struct{}

func init() { datasource.RegisterSource(&httpSource{}) }

func (s *httpSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{
		Type:  "http",
		Label: "HTTP",
		ConfigFields: []datasource.ConfigField{
			{Key: "url", Label: "URL", Type: "string", Required: true, Help: "Address of the CSV or JSON document"},
			{Key: "format", Label: "Format", Type: "select", Options: []string{"csv", "json"}, Default: "csv"},
			{Key: "delimiter", Label: "Delimiter", Type: "string", Default: ",", Help: "Column delimiter for csv"},
			{Key: "headers", Label: "Headers", Type: "textarea", Help: "JSON object of request headers"},
			{Key: "dataPath", Label: "Data Path", Type: "string", Help: "Dot-separated path to the row array for json"},
			{Key: "timeout", Label: "Timeout", Type: "string", Help: "Request timeout, e.g. 10s"},
		},
	}
}

func (s *httpSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	headers, _, err := fetchHTTP(ctx, cfg)
	return headers, err
}

func (s *httpSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	return streamFrom(ctx, func() ([]string, []datasource.RawRow, error) {
		return fetchHTTP(ctx, cfg)
	})
}

func fetchHTTP(ctx context.Context, cfg datasource.SourceConfig) ([]string, []datasource.RawRow, error) {
	rawURL := cfg.String("url")
	if rawURL == "" {
		return nil, nil, fmt.Errorf("url is required")
	}

	timeout := DefaultHTTPTimeout
	if t := cfg.String("timeout"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		timeout = d
	}

	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	// Asking explicitly turns off the transport's transparent gzip, so the
	// body is decoded below whether the server compresses or serves .gz.
	req.Header.Set("Accept-Encoding", "gzip")
	if err := setHeaders(req, cfg["headers"]); err != nil {
		return nil, nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body io.Reader = resp.Body
	if isGzip(resp, rawURL) {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		body = zr
	}

	switch format := strings.ToLower(cfg.String("format")); format {
	case "", "csv":
		headers, rows, err := decodeCSV(body, cfg.String("delimiter"), true)
		if err != nil {
			return nil, nil, err
		}
		return headers, csvRows(headers, rows), nil
	case "json":
		return decodeJSON(body, cfg.String("dataPath"))
	default:
		return nil, nil, fmt.Errorf("unsupported format %q", format)
	}
}

// setHeaders accepts either a JSON object string or a decoded map.
func setHeaders(req *http.Request, raw any) error {
	var headers map[string]string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(v), &headers); err != nil {
			return fmt.Errorf("invalid headers: %w", err)
		}
	case map[string]any:
		headers = make(map[string]string, len(v))
		for k, val := range v {
			headers[k] = fmt.Sprint(val)
		}
	case map[string]string:
		headers = v
	default:
		return fmt.Errorf("invalid headers: %T", raw)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return nil
}

func isGzip(resp *http.Response, rawURL string) bool {
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return true
	}
	u, err := url.Parse(rawURL)
	return err == nil && strings.HasSuffix(u.Path, ".gz")
}
