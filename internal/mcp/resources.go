package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerResources() {
	// ── chartkit://views ───────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		"chartkit://views",
		"Saved Views",
		mcp.WithMIMEType("application/json"),
	), s.handleViewsResource)

	// ── chartkit://view/{view}/chart ───────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"chartkit://view/{view}/chart",
			"Chart description of a view at its current state",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleViewChartResource,
	)
}

func (s *Server) handleViewsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	views, err := s.views.ListViews()
	if err != nil {
		return nil, err
	}
	type viewSummary struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	summaries := make([]viewSummary, len(views))
	for i, v := range views {
		summaries[i] = viewSummary{ID: v.ID, Name: v.Name, Kind: string(v.Kind)}
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "chartkit://views",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleViewChartResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	ref := viewFromURI(uri)
	if ref == "" {
		return nil, fmt.Errorf("could not extract view from URI: %s", uri)
	}

	sess, _, err := s.dashboard.Session(ctx, ref)
	if err != nil {
		return nil, err
	}
	spec, err := sess.Spec()
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(spec, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// viewFromURI extracts the view from "chartkit://view/{view}/chart".
func viewFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, "chartkit://view/")
	if !ok {
		return ""
	}
	ref, ok := strings.CutSuffix(rest, "/chart")
	if !ok || strings.Contains(ref, "/") {
		return ""
	}
	return ref
}
