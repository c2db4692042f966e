package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"chartkit/internal/dashboard"
	"chartkit/internal/domain"
	"chartkit/internal/render"
	"chartkit/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerViewTools() {
	s.mcp.AddTool(mcp.NewTool("create_view",
		mcp.WithDescription("Save a chart view: where its table comes from, how columns are typed and which chart it draws"),
		mcp.WithString("name", mcp.Description("Unique view name"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Chart title")),
		mcp.WithString("sourceType", mcp.Description("Source type (see list_sources)"), mcp.Required()),
		mcp.WithString("sourceConfigJSON", mcp.Description("Source configuration as JSON"), mcp.Required()),
		mcp.WithString("parseJSON", mcp.Description(parseDescription)),
		mcp.WithString("kind", mcp.Description("Chart kind"), mcp.Enum("bar", "lines"), mcp.Required()),
		mcp.WithString("categoryField", mcp.Description("Bar charts: the category column")),
		mcp.WithString("valueField", mcp.Description("Bar charts: the numeric column")),
		mcp.WithString("series", mcp.Description("Line charts: series order, comma separated or a JSON array (default: every numeric column)")),
		mcp.WithString("scale", mcp.Description("Initial value axis scale"), mcp.Enum("linear", "log")),
		mcp.WithString("locale", mcp.Description("Tick label locale, e.g. en-US or de-DE")),
	), s.handleCreateView)

	s.mcp.AddTool(mcp.NewTool("list_views",
		mcp.WithDescription("List saved views"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListViews)

	s.mcp.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Get a saved view with its current control state and chart description"),
		mcp.WithString("view", mcp.Description("View id or name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetView)

	s.mcp.AddTool(mcp.NewTool("delete_view",
		mcp.WithDescription("Delete a saved view and its export jobs"),
		mcp.WithString("view", mcp.Description("View id or name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteView)

	s.mcp.AddTool(mcp.NewTool("dispatch_event",
		mcp.WithDescription(`Apply a control event to a view and return the updated chart. Events and their arguments:
- set_filter: {field, value}, value "All" removes the constraint
- set_range: {start, end}, inclusive YYYY-MM-DD bounds
- clear: {}, drops every filter
- toggle_series: {field}
- select_series: {fields: [..]}
- set_scale: {scale: linear|log}`),
		mcp.WithString("view", mcp.Description("View id or name"), mcp.Required()),
		mcp.WithString("event", mcp.Description("Event name"), mcp.Enum(dashboard.EventNames()...), mcp.Required()),
		mcp.WithString("argsJSON", mcp.Description("Event arguments as a JSON object")),
	), s.handleDispatchEvent)

	s.mcp.AddTool(mcp.NewTool("render_view",
		mcp.WithDescription("Render a view at its current state as SVG or JSON, inline or to a file"),
		mcp.WithString("view", mcp.Description("View id or name"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Output format (default: from outputPath, else svg)"), mcp.Enum("svg", "json")),
		mcp.WithString("outputPath", mcp.Description("Write to this file instead of returning the output")),
	), s.handleRenderView)
}

func (s *Server) handleCreateView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sourceType, cfg, opts, err := loadArgs(args)
	if err != nil {
		return errorResult(err), nil
	}
	in := service.CreateViewInput{
		Name:          req.GetString("name", ""),
		Title:         req.GetString("title", ""),
		SourceType:    sourceType,
		SourceConfig:  cfg,
		Parse:         opts,
		Kind:          domain.ChartKind(req.GetString("kind", "")),
		CategoryField: req.GetString("categoryField", ""),
		ValueField:    req.GetString("valueField", ""),
		SeriesOrder:   stringsArg(args, "series"),
		Scale:         domain.ScaleKind(req.GetString("scale", "")),
		Locale:        req.GetString("locale", ""),
	}
	if in.Kind == domain.ChartLines && len(in.SeriesOrder) == 0 {
		in.SeriesOrder = opts.NumberFields
	}

	v, err := s.views.CreateView(ctx, in)
	if err != nil {
		return errorResult(fmt.Errorf("create view: %w", err)), nil
	}
	return jsonResult(v)
}

func (s *Server) handleListViews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.views.ListViews()
	if err != nil {
		return errorResult(err), nil
	}
	type viewSummary struct {
		ID         string           `json:"id"`
		Name       string           `json:"name"`
		Title      string           `json:"title,omitempty"`
		Kind       domain.ChartKind `json:"kind"`
		SourceType string           `json:"sourceType"`
		Filter     string           `json:"filter"`
	}
	out := make([]viewSummary, len(views))
	for i, v := range views {
		out[i] = viewSummary{ID: v.ID, Name: v.Name, Title: v.Title, Kind: v.Kind,
			SourceType: v.SourceType, Filter: v.State.Criteria.String()}
	}
	return jsonResult(out)
}

func (s *Server) handleGetView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := req.GetString("view", "")
	sess, v, err := s.dashboard.Session(ctx, ref)
	if err != nil {
		return errorResult(err), nil
	}
	result := map[string]any{"view": v}
	if spec, err := sess.Spec(); err != nil {
		result["error"] = err.Error()
	} else {
		result["chart"] = spec
	}
	return jsonResult(result)
}

func (s *Server) handleDeleteView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.views.GetView(req.GetString("view", ""))
	if err != nil {
		return errorResult(err), nil
	}
	if err := s.views.DeleteView(ctx, v.ID); err != nil {
		return errorResult(err), nil
	}
	s.dashboard.Forget(v.ID)
	s.exports.RestartWatchers(ctx)
	return textResult(fmt.Sprintf("Deleted view %s (%s)", v.Name, v.ID)), nil
}

func (s *Server) handleDispatchEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	var eventArgs map[string]any
	if err := objectArg(args, "argsJSON", &eventArgs); err != nil {
		return errorResult(err), nil
	}
	spec, err := s.dashboard.Dispatch(ctx, req.GetString("view", ""), req.GetString("event", ""), eventArgs)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(spec)
}

func (s *Server) handleRenderView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, v, err := s.dashboard.Session(ctx, req.GetString("view", ""))
	if err != nil {
		return errorResult(err), nil
	}
	outPath := req.GetString("outputPath", "")
	format := domain.ExportFormat(strings.ToLower(req.GetString("format", "")))
	if format == "" && outPath != "" {
		if format, err = render.FormatForPath(outPath); err != nil {
			return errorResult(err), nil
		}
	}
	if format == "" {
		format = domain.ExportSVG
	}

	spec, perr := sess.Spec()
	if perr != nil {
		var buf bytes.Buffer
		render.Placeholder(&buf, s.size, perr.Error())
		res := errorResult(fmt.Errorf("view %s: %w", v.Name, perr))
		res.Content = append(res.Content, mcp.TextContent{Type: "text", Text: buf.String()})
		return res, nil
	}

	if outPath != "" {
		if err := render.WriteFile(ctx, outPath, format, s.size, spec); err != nil {
			return errorResult(err), nil
		}
		return textResult(fmt.Sprintf("Rendered %s to %s", v.Name, outPath)), nil
	}

	var buf bytes.Buffer
	sink, err := render.NewSink(&buf, format, s.size)
	if err != nil {
		return errorResult(err), nil
	}
	if err := sink.Render(ctx, spec); err != nil {
		return errorResult(err), nil
	}
	return textResult(buf.String()), nil
}
