package mcpserver

import (
	"context"
	"fmt"
	"time"

	"chartkit/internal/chart"
	"chartkit/internal/datasource"
	"chartkit/internal/domain"
	"chartkit/internal/filter"

	"github.com/mark3labs/mcp-go/mcp"
)

const parseDescription = `Optional JSON object typing the columns: {"timeField": "date", "timeLayout": "2006-01-02" or "auto", "numberFields": ["gdp", "population"]}. Columns not listed stay text.`

const criteriaDescription = `Optional JSON object of field → value equality constraints, e.g. {"sex": "F", "race": "All"}. "All" matches every value.`

// maxRowsInResult caps the rows echoed back to the agent.
const maxRowsInResult = 200

func (s *Server) registerSourceTools() {
	s.mcp.AddTool(mcp.NewTool("list_sources",
		mcp.WithDescription("List the data source types a table can be loaded from, with their configuration fields"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListSources)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Load the first rows of a source and show the typed schema"),
		mcp.WithString("sourceType", mcp.Description("Source type (see list_sources)"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("parseJSON", mcp.Description(parseDescription)),
		mcp.WithNumber("limit", mcp.Description("Rows to load (default 20)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handlePreviewSource)

	s.mcp.AddTool(mcp.NewTool("filter_rows",
		mcp.WithDescription("Load a source and return the rows matching either equality constraints or an inclusive date range"),
		mcp.WithString("sourceType", mcp.Description("Source type"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("parseJSON", mcp.Description(parseDescription)),
		mcp.WithString("equals", mcp.Description(criteriaDescription)),
		mcp.WithString("rangeStart", mcp.Description("Range start YYYY-MM-DD (with rangeEnd, replaces equals)")),
		mcp.WithString("rangeEnd", mcp.Description("Range end YYYY-MM-DD, inclusive")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleFilterRows)

	s.mcp.AddTool(mcp.NewTool("project_chart",
		mcp.WithDescription("Load a source, filter it and return the chart description (domains, ticks, series) without saving anything"),
		mcp.WithString("sourceType", mcp.Description("Source type"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("parseJSON", mcp.Description(parseDescription)),
		mcp.WithString("kind", mcp.Description("Chart kind"), mcp.Enum("bar", "lines"), mcp.Required()),
		mcp.WithString("categoryField", mcp.Description("Bar charts: the category column")),
		mcp.WithString("valueField", mcp.Description("Bar charts: the numeric column")),
		mcp.WithString("series", mcp.Description("Line charts: selected numeric columns, comma separated or a JSON array (default: all)")),
		mcp.WithString("scale", mcp.Description("Value axis scale"), mcp.Enum("linear", "log")),
		mcp.WithString("equals", mcp.Description(criteriaDescription)),
		mcp.WithString("rangeStart", mcp.Description("Range start YYYY-MM-DD")),
		mcp.WithString("rangeEnd", mcp.Description("Range end YYYY-MM-DD, inclusive")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleProjectChart)
}

func (s *Server) handleListSources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(datasource.ListSources())
}

// loadArgs reads the sourceType, sourceConfigJSON and parseJSON arguments.
func loadArgs(args map[string]any) (string, datasource.SourceConfig, domain.ParseOptions, error) {
	var (
		cfg  datasource.SourceConfig
		opts domain.ParseOptions
	)
	sourceType, _ := args["sourceType"].(string)
	if sourceType == "" {
		return "", nil, opts, fmt.Errorf("sourceType is required")
	}
	if err := objectArg(args, "sourceConfigJSON", &cfg); err != nil {
		return "", nil, opts, err
	}
	if err := objectArg(args, "parseJSON", &opts); err != nil {
		return "", nil, opts, err
	}
	return sourceType, cfg, opts, nil
}

func (s *Server) load(ctx context.Context, args map[string]any) (*domain.Table, error) {
	sourceType, cfg, opts, err := loadArgs(args)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	return datasource.Load(ctx, sourceType, cfg, opts)
}

// tableResult is how tables are shown to agents.
type tableResult struct {
	Schema    domain.Schema    `json:"schema"`
	Total     int              `json:"total"`
	Rows      []map[string]any `json:"rows"`
	Truncated bool             `json:"truncated,omitempty"`
}

func summarizeTable(t *domain.Table, limit int) tableResult {
	out := tableResult{Schema: t.Schema(), Total: t.Len()}
	n := t.Len()
	if n > limit {
		n = limit
		out.Truncated = true
	}
	out.Rows = make([]map[string]any, n)
	for i := 0; i < n; i++ {
		out.Rows[i] = t.At(i).Map()
	}
	return out
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sourceType, cfg, opts, err := loadArgs(args)
	if err != nil {
		return errorResult(err), nil
	}
	limit := req.GetInt("limit", 20)

	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	t, err := datasource.Preview(previewCtx, sourceType, cfg, opts, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(summarizeTable(t, limit))
}

func (s *Server) handleFilterRows(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	criteria, err := criteriaArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	t, err := s.load(ctx, args)
	if err != nil {
		return errorResult(err), nil
	}
	filtered, err := filter.Apply(t, criteria)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(summarizeTable(filtered, maxRowsInResult))
}

func (s *Server) handleProjectChart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	criteria, err := criteriaArg(args)
	if err != nil {
		return errorResult(err), nil
	}
	t, err := s.load(ctx, args)
	if err != nil {
		return errorResult(err), nil
	}
	filtered, err := filter.Apply(t, criteria)
	if err != nil {
		return errorResult(err), nil
	}

	r := chart.Request{
		Kind:          domain.ChartKind(req.GetString("kind", "")),
		CategoryField: req.GetString("categoryField", ""),
		ValueField:    req.GetString("valueField", ""),
		Scale:         domain.ScaleKind(req.GetString("scale", string(domain.ScaleLinear))),
	}
	if r.Kind == domain.ChartLines {
		series := stringsArg(args, "series")
		if len(series) == 0 {
			series = t.Schema().NumberFields()
		}
		r.Selection = domain.NewSeriesSelection(series...)
	}

	spec, err := chart.NewProjector(s.locale).Project(filtered, r)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(spec)
}
