package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("explore_table",
		mcp.WithPromptDescription("Inspect a data source and find a chart that shows it well"),
		mcp.WithArgument("sourceType",
			mcp.ArgumentDescription("Source type, e.g. http or csv_file"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("location",
			mcp.ArgumentDescription("URL or file path of the table"),
			mcp.RequiredArgument(),
		),
	), s.handleExploreTablePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("scheduled_chart",
		mcp.WithPromptDescription("Save a view and keep an SVG of it up to date"),
		mcp.WithArgument("view",
			mcp.ArgumentDescription("Name for the new view"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("schedule",
			mcp.ArgumentDescription("Cron expression, e.g. @hourly"),
		),
	), s.handleScheduledChartPrompt)
}

func (s *Server) handleExploreTablePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	sourceType := req.Params.Arguments["sourceType"]
	location := req.Params.Arguments["location"]
	key := "url"
	if sourceType != "http" {
		key = "filePath"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Explore %s", location),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Explore the table at %s. Follow these steps:

1. Call preview_source with sourceType "%s" and sourceConfigJSON {"%s": "%s"} to see the columns
2. Call preview_source again with parseJSON naming the date column as timeField and the numeric columns as numberFields
3. If there is a date column and several numeric columns, call project_chart with kind "lines"
4. Otherwise pick a text column and a numeric column and call project_chart with kind "bar"
5. Use filter_rows to check any interesting subsets before settling on a chart

Report the value domain and the series you would show, and why.`, location, sourceType, key, location),
				},
			},
		},
	}, nil
}

func (s *Server) handleScheduledChartPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	view := req.Params.Arguments["view"]
	schedule := req.Params.Arguments["schedule"]
	if schedule == "" {
		schedule = "@hourly"
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Keep %s rendered", view),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Set up a chart named "%s" that stays current. Follow these steps:

1. Use list_sources and preview_source to settle the source configuration and column types
2. Call create_view with name "%s"
3. Use dispatch_event to set the filters and series the chart should show, checking each result
4. Call create_export_job with triggerType "schedule" and triggerConfig "%s" writing %s.svg
5. Run the job once with run_export_job to confirm the file is written

For a local csv_file or json_file source, triggerType "file_watch" re-renders whenever the file changes.`, view, view, schedule, view),
				},
			},
		},
	}, nil
}
