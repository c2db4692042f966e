package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "chartkit/internal/datasource/sources"
	"chartkit/internal/domain"
	"chartkit/internal/render"
	"chartkit/internal/service"
	"chartkit/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

const scoresCSV = "name,sex,score\nA,F,3\nB,M,7\nC,F,5\n"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "chartkit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	csvPath := filepath.Join(dir, "scores.csv")
	if err := os.WriteFile(csvPath, []byte(scoresCSV), 0644); err != nil {
		t.Fatal(err)
	}

	emitter := &service.MockEmitter{}
	views := service.NewViewService(storage.NewViewStore(db), emitter, "en-US")
	exports := service.NewExportService(storage.NewExportStore(db), views, emitter, render.DefaultSize)
	t.Cleanup(exports.Stop)
	s := New(Deps{
		Views:     views,
		Dashboard: service.NewDashboardService(views),
		Exports:   exports,
		Locale:    "en-US",
	})
	return s, csvPath
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func sourceArgs(csvPath string, extra map[string]any) map[string]any {
	args := map[string]any{
		"sourceType":       "csv_file",
		"sourceConfigJSON": `{"filePath": "` + csvPath + `"}`,
		"parseJSON":        map[string]any{"numberFields": []any{"score"}},
	}
	for k, v := range extra {
		args[k] = v
	}
	return args
}

func TestFilterRows(t *testing.T) {
	s, csvPath := newTestServer(t)
	res, err := s.handleFilterRows(context.Background(), call(sourceArgs(csvPath, map[string]any{
		"equals": `{"sex": "F"}`,
	})))
	if err != nil {
		t.Fatal(err)
	}
	var out tableResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 2 || out.Rows[0]["name"] != "A" || out.Rows[1]["name"] != "C" {
		t.Errorf("expected rows A and C, got %+v", out.Rows)
	}
}

func TestFilterRowsMalformedRange(t *testing.T) {
	s, csvPath := newTestServer(t)
	res, err := s.handleFilterRows(context.Background(), call(sourceArgs(csvPath, map[string]any{
		"rangeStart": "2020-13-01",
		"rangeEnd":   "2020-12-31",
	})))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Errorf("expected an error result, got %q", resultText(t, res))
	}
}

func TestProjectChartBar(t *testing.T) {
	s, csvPath := newTestServer(t)
	res, err := s.handleProjectChart(context.Background(), call(sourceArgs(csvPath, map[string]any{
		"kind":          "bar",
		"categoryField": "name",
		"valueField":    "score",
	})))
	if err != nil {
		t.Fatal(err)
	}
	var spec domain.ChartSpec
	if err := json.Unmarshal([]byte(resultText(t, res)), &spec); err != nil {
		t.Fatal(err)
	}
	if spec.ValueDomain.Min != 0 || spec.ValueDomain.Max != 7 {
		t.Errorf("expected [0,7], got %+v", spec.ValueDomain)
	}
	if strings.Join(spec.CategoryDomain, ",") != "A,B,C" {
		t.Errorf("expected A,B,C, got %v", spec.CategoryDomain)
	}
}

func TestViewLifecycle(t *testing.T) {
	s, csvPath := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleCreateView(ctx, call(sourceArgs(csvPath, map[string]any{
		"name":          "scores",
		"kind":          "bar",
		"categoryField": "name",
		"valueField":    "score",
	})))
	if err != nil {
		t.Fatal(err)
	}
	var v domain.View
	json.Unmarshal([]byte(resultText(t, res)), &v)
	if v.ID == "" {
		t.Fatal("expected saved view id")
	}

	res, err = s.handleDispatchEvent(ctx, call(map[string]any{
		"view":     "scores",
		"event":    "set_filter",
		"argsJSON": `{"field": "sex", "value": "M"}`,
	}))
	if err != nil {
		t.Fatal(err)
	}
	var spec domain.ChartSpec
	json.Unmarshal([]byte(resultText(t, res)), &spec)
	if len(spec.CategoryDomain) != 1 || spec.CategoryDomain[0] != "B" {
		t.Errorf("expected only B, got %v", spec.CategoryDomain)
	}

	res, err = s.handleRenderView(ctx, call(map[string]any{"view": "scores"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "<svg") {
		t.Errorf("expected inline svg")
	}

	res, _ = s.handleDispatchEvent(ctx, call(map[string]any{
		"view": "scores", "event": "set_scale", "argsJSON": map[string]any{"scale": "log"},
	}))
	if !res.IsError {
		t.Error("expected bar chart to reject log scale")
	}

	if _, err := s.handleDeleteView(ctx, call(map[string]any{"view": v.ID})); err != nil {
		t.Fatal(err)
	}
	res, _ = s.handleListViews(ctx, call(nil))
	if strings.TrimSpace(resultText(t, res)) != "[]" {
		t.Errorf("expected no views, got %s", resultText(t, res))
	}
}

func TestExportTools(t *testing.T) {
	s, csvPath := newTestServer(t)
	ctx := context.Background()
	if _, err := s.handleCreateView(ctx, call(sourceArgs(csvPath, map[string]any{
		"name": "scores", "kind": "bar", "categoryField": "name", "valueField": "score",
	}))); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(filepath.Dir(csvPath), "scores.json")
	res, err := s.handleCreateExportJob(ctx, call(map[string]any{"view": "scores", "outputPath": out}))
	if err != nil {
		t.Fatal(err)
	}
	var job domain.ExportJob
	json.Unmarshal([]byte(resultText(t, res)), &job)

	res, err = s.handleRunExportJob(ctx, call(map[string]any{"jobId": job.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("expected success, got %s", resultText(t, res))
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected output file: %v", err)
	}

	res, _ = s.handleListExportJobs(ctx, call(nil))
	if !strings.Contains(resultText(t, res), `"lastStatus": "success"`) {
		t.Errorf("expected success status in %s", resultText(t, res))
	}

	res, err = s.handleListExportRuns(ctx, call(map[string]any{"jobId": job.ID}))
	if err != nil {
		t.Fatal(err)
	}
	var runs []domain.ExportRunLog
	if err := json.Unmarshal([]byte(resultText(t, res)), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != "success" {
		t.Errorf("expected one successful run, got %+v", runs)
	}

	res, err = s.handleDeleteExportJob(ctx, call(map[string]any{"jobId": job.ID}))
	if err != nil || res.IsError {
		t.Fatalf("delete failed: %v", err)
	}
	res, _ = s.handleListExportJobs(ctx, call(nil))
	if got := resultText(t, res); got != "[]" {
		t.Errorf("expected no jobs after delete, got %s", got)
	}
	res, _ = s.handleListExportRuns(ctx, call(map[string]any{"jobId": job.ID}))
	if !res.IsError {
		t.Error("expected error listing runs of a deleted job")
	}
}

func TestHandlersReportBadInputAsToolErrors(t *testing.T) {
	s, csvPath := newTestServer(t)
	ctx := context.Background()

	res, err := s.handlePreviewSource(ctx, call(map[string]any{
		"sourceType":       "csv_file",
		"sourceConfigJSON": `{"filePath": `,
	}))
	if err != nil {
		t.Fatalf("expected tool error result, got protocol error %v", err)
	}
	if !res.IsError {
		t.Error("expected IsError for malformed sourceConfigJSON")
	}

	res, err = s.handleFilterRows(ctx, call(sourceArgs(csvPath, map[string]any{
		"rangeStart": "not-a-date",
	})))
	if err != nil || !res.IsError {
		t.Errorf("expected tool error for a bad range, got res=%v err=%v", res, err)
	}

	for name, h := range map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"run_export_job":    s.handleRunExportJob,
		"list_export_runs":  s.handleListExportRuns,
		"delete_export_job": s.handleDeleteExportJob,
	} {
		res, err := h(ctx, call(map[string]any{}))
		if err != nil || !res.IsError {
			t.Errorf("%s: expected tool error without jobId, got err=%v", name, err)
		}
	}
}

func TestViewFromURI(t *testing.T) {
	cases := map[string]string{
		"chartkit://view/scores/chart": "scores",
		"chartkit://view/a/b/chart":    "",
		"chartkit://views":             "",
	}
	for uri, want := range cases {
		if got := viewFromURI(uri); got != want {
			t.Errorf("%s: expected %q, got %q", uri, want, got)
		}
	}
}
