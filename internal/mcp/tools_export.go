package mcpserver

import (
	"context"
	"fmt"

	"chartkit/internal/domain"
	"chartkit/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("create_export_job",
		mcp.WithDescription("Create a job that renders a view to a file on demand, on a cron schedule, or whenever a local file changes"),
		mcp.WithString("view", mcp.Description("View id or name"), mcp.Required()),
		mcp.WithString("outputPath", mcp.Description("File to write"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Output format (default: from outputPath)"), mcp.Enum("svg", "json")),
		mcp.WithString("triggerType", mcp.Description("When to run"), mcp.Enum(domain.TriggerManual, domain.TriggerSchedule, domain.TriggerFileWatch)),
		mcp.WithString("triggerConfig", mcp.Description("Cron expression for schedule, or the file to watch (defaults to the view's source file)")),
	), s.handleCreateExportJob)

	s.mcp.AddTool(mcp.NewTool("list_export_jobs",
		mcp.WithDescription("List export jobs with their last run status"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListExportJobs)

	s.mcp.AddTool(mcp.NewTool("run_export_job",
		mcp.WithDescription("Run an export job now. Overwrites its output file."),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRunExportJob)

	s.mcp.AddTool(mcp.NewTool("list_export_runs",
		mcp.WithDescription("List the most recent runs of an export job, newest first"),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListExportRuns)

	s.mcp.AddTool(mcp.NewTool("delete_export_job",
		mcp.WithDescription("Delete an export job and its run history. The output file is left in place."),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteExportJob)
}

func (s *Server) handleCreateExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in := service.CreateExportJobInput{
		View:          req.GetString("view", ""),
		OutputPath:    req.GetString("outputPath", ""),
		Format:        domain.ExportFormat(req.GetString("format", "")),
		TriggerType:   req.GetString("triggerType", domain.TriggerManual),
		TriggerConfig: req.GetString("triggerConfig", ""),
		Enabled:       true,
	}
	job, err := s.exports.CreateJob(ctx, in)
	if err != nil {
		return errorResult(fmt.Errorf("create export job: %w", err)), nil
	}
	return jsonResult(job)
}

func (s *Server) handleListExportJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.exports.ListJobs()
	if err != nil {
		return errorResult(err), nil
	}
	if jobs == nil {
		jobs = []domain.ExportJob{}
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return errorResult(fmt.Errorf("jobId is required")), nil
	}
	runLog, err := s.exports.RunJob(ctx, jobID)
	if err != nil {
		if runLog == nil {
			return errorResult(fmt.Errorf("run export job: %w", err)), nil
		}
		res, _ := jsonResult(runLog)
		res.IsError = true
		return res, nil
	}
	return jsonResult(runLog)
}

func (s *Server) handleListExportRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return errorResult(fmt.Errorf("jobId is required")), nil
	}
	if _, err := s.exports.GetJob(jobID); err != nil {
		return errorResult(err), nil
	}
	logs, err := s.exports.ListRunLogs(jobID)
	if err != nil {
		return errorResult(err), nil
	}
	if logs == nil {
		logs = []domain.ExportRunLog{}
	}
	return jsonResult(logs)
}

func (s *Server) handleDeleteExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return errorResult(fmt.Errorf("jobId is required")), nil
	}
	if err := s.exports.DeleteJob(ctx, jobID); err != nil {
		return errorResult(fmt.Errorf("delete export job: %w", err)), nil
	}
	return textResult(fmt.Sprintf("deleted export job %s", jobID)), nil
}
