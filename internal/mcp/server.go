// Package mcpserver exposes chartkit's pipeline as MCP tools so agents can
// load tables, filter them, project charts and manage saved views.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"log"

	"chartkit/internal/render"
	"chartkit/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the chartkit MCP server.
type Server struct {
	mcp *server.MCPServer

	views     *service.ViewService
	dashboard *service.DashboardService
	exports   *service.ExportService
	locale    string
	size      render.Size
}

// Deps holds the services the tools call into.
type Deps struct {
	Views     *service.ViewService
	Dashboard *service.DashboardService
	Exports   *service.ExportService
	Locale    string
	Size      render.Size
}

// New creates the server and registers every tool, resource and prompt.
func New(deps Deps) *Server {
	s := &Server{
		views:     deps.Views,
		dashboard: deps.Dashboard,
		exports:   deps.Exports,
		locale:    deps.Locale,
		size:      deps.Size,
	}
	if s.size.Width <= 0 || s.size.Height <= 0 {
		s.size = render.DefaultSize
	}

	s.mcp = server.NewMCPServer(
		"chartkit-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerSourceTools()
	s.registerViewTools()
	s.registerExportTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server, e.g. to serve it over another transport.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a failure the agent can act on, such as a
// projection error, without failing the call itself.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func boolPtr(v bool) *bool { return &v }
