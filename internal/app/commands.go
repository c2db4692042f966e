package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	mcpserver "chartkit/internal/mcp"
	"chartkit/internal/render"
	"chartkit/internal/shell"
)

// ServeMCP serves the MCP tools on stdin/stdout. Triggered exports run in
// the background while the server is up.
func (a *App) ServeMCP(ctx context.Context) error {
	a.Exports.RestartWatchers(ctx)
	srv := mcpserver.New(mcpserver.Deps{
		Views:     a.Views,
		Dashboard: a.Dashboard,
		Exports:   a.Exports,
		Locale:    a.Config.Locale,
		Size:      renderSize(a.Config),
	})
	return srv.ServeStdio()
}

// RunShell opens the interactive shell on a view.
func (a *App) RunShell(ctx context.Context, view string) error {
	sh := shell.New(a.Dashboard, view, os.Stdout, renderSize(a.Config))
	sh.HistoryFile = filepath.Join(a.Config.DataDir, "shell_history")
	return sh.Run(ctx)
}

// Render writes a view at its saved state to path. A view that cannot be
// drawn into an SVG leaves a placeholder and returns a
// *service.PlaceholderError.
func (a *App) Render(ctx context.Context, view, path string) error {
	v, err := a.Views.GetView(view)
	if err != nil {
		return err
	}
	format, err := render.FormatForPath(path)
	if err != nil {
		return err
	}
	_, err = a.Exports.RenderView(ctx, v, path, format)
	return err
}

// RunExports arms cron and file-watch exports and blocks until ctx is
// cancelled, then waits briefly for running exports to finish.
func (a *App) RunExports(ctx context.Context) error {
	n := a.Exports.RestartWatchers(ctx)
	if n == 0 {
		return fmt.Errorf("no enabled schedule or file_watch export jobs")
	}
	<-ctx.Done()
	log.Println("[EXPORT] shutting down")
	a.Exports.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Exports.WaitRunning(waitCtx)
	return nil
}
