package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"chartkit/internal/domain"
	"chartkit/internal/render"
)

// ─────────────────────────────────────────────────────────────
// ExportService: renders saved views to files
// ─────────────────────────────────────────────────────────────

// WatchDebounce is how long a watched file must stay quiet before its
// export runs.
var WatchDebounce = 500 * time.Millisecond

// ExportService runs export jobs on demand, on cron schedules and on file
// changes.
type ExportService struct {
	store   domain.ExportStore
	views   *ViewService
	emitter EventEmitter
	size    render.Size
	guard   jobGuard

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

func NewExportService(store domain.ExportStore, views *ViewService, emitter EventEmitter, size render.Size) *ExportService {
	if size.Width <= 0 || size.Height <= 0 {
		size = render.DefaultSize
	}
	return &ExportService{store: store, views: views, emitter: emitter, size: size}
}

// ── Job CRUD ───────────────────────────────────────────────

type CreateExportJobInput struct {
	View          string              `json:"view"` // id or name
	OutputPath    string              `json:"outputPath"`
	Format        domain.ExportFormat `json:"format"`
	TriggerType   string              `json:"triggerType"`
	TriggerConfig string              `json:"triggerConfig"`
	Enabled       bool                `json:"enabled"`
}

func (s *ExportService) CreateJob(ctx context.Context, in CreateExportJobInput) (*domain.ExportJob, error) {
	v, err := s.views.GetView(in.View)
	if err != nil {
		return nil, err
	}
	if in.OutputPath == "" {
		return nil, errors.New("outputPath is required")
	}
	if in.Format == "" {
		if in.Format, err = render.FormatForPath(in.OutputPath); err != nil {
			return nil, err
		}
	}
	switch in.Format {
	case domain.ExportSVG, domain.ExportJSON:
	default:
		return nil, fmt.Errorf("unknown export format %q", in.Format)
	}

	switch in.TriggerType {
	case "", domain.TriggerManual:
	case domain.TriggerSchedule:
		if _, err := cron.ParseStandard(in.TriggerConfig); err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", in.TriggerConfig, err)
		}
	case domain.TriggerFileWatch:
		if in.TriggerConfig == "" {
			in.TriggerConfig = sourceFile(v)
		}
		if in.TriggerConfig == "" {
			return nil, errors.New("file_watch needs a path: the view does not read a local file")
		}
	default:
		return nil, fmt.Errorf("unknown trigger type %q", in.TriggerType)
	}

	job := &domain.ExportJob{
		ViewID:        v.ID,
		OutputPath:    in.OutputPath,
		Format:        in.Format,
		TriggerType:   in.TriggerType,
		TriggerConfig: in.TriggerConfig,
		Enabled:       in.Enabled,
	}
	if err := s.store.CreateJob(job); err != nil {
		return nil, err
	}
	s.RestartWatchers(ctx)
	return job, nil
}

func (s *ExportService) GetJob(id string) (*domain.ExportJob, error) {
	return s.store.GetJob(id)
}

func (s *ExportService) ListJobs() ([]domain.ExportJob, error) {
	return s.store.ListJobs()
}

func (s *ExportService) DeleteJob(ctx context.Context, id string) error {
	err := s.store.DeleteJob(id)
	if err == nil {
		s.RestartWatchers(ctx)
	}
	return err
}

func (s *ExportService) ListRunLogs(jobID string) ([]domain.ExportRunLog, error) {
	return s.store.ListRunLogs(jobID, 50)
}

// sourceFile is the local file a view reads, if any.
func sourceFile(v *domain.View) string {
	switch v.SourceType {
	case "csv_file", "json_file":
		if p, ok := v.SourceConfig["filePath"].(string); ok {
			return p
		}
	}
	return ""
}

// ── Run ────────────────────────────────────────────────────

// RunJob reloads the job's view, projects it at its saved state and writes
// the result. A view that cannot be projected is written as a placeholder
// SVG and the run is recorded as failed.
func (s *ExportService) RunJob(ctx context.Context, id string) (*domain.ExportRunLog, error) {
	if !s.guard.TryLock(id) {
		return nil, fmt.Errorf("export %s is already running", id)
	}
	defer s.guard.Unlock(id)

	job, err := s.store.GetJob(id)
	if err != nil {
		return nil, err
	}
	s.store.UpdateJobStatus(id, "running", "")
	s.emitter.Emit(ctx, EventExportRunning, id)

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	runLog := &domain.ExportRunLog{JobID: id, StartedAt: time.Now(), Status: "success"}
	rows, runErr := s.export(runCtx, job)
	runLog.Rows = rows
	runLog.FinishedAt = time.Now()

	errMsg := ""
	if runErr != nil {
		runLog.Status = "error"
		errMsg = runErr.Error()
		runLog.Error = errMsg
		log.Printf("[EXPORT] job %s failed: %v", id, runErr)
	} else {
		log.Printf("[EXPORT] job %s wrote %s (%d rows)", id, job.OutputPath, rows)
	}
	if err := s.store.CreateRunLog(runLog); err != nil {
		log.Printf("[EXPORT] job %s: record run: %v", id, err)
	}
	s.store.UpdateJobStatus(id, runLog.Status, errMsg)
	s.emitter.Emit(ctx, EventExportDone, map[string]string{"jobId": id, "status": runLog.Status})

	return runLog, runErr
}

func (s *ExportService) export(ctx context.Context, job *domain.ExportJob) (int, error) {
	v, err := s.views.GetView(job.ViewID)
	if err != nil {
		return 0, err
	}
	return s.RenderView(ctx, v, job.OutputPath, job.Format)
}

// PlaceholderError reports a view that could not be drawn. Path holds the
// placeholder SVG written in the chart's place.
type PlaceholderError struct {
	Path string
	Err  error
}

func (e *PlaceholderError) Error() string { return e.Err.Error() }

func (e *PlaceholderError) Unwrap() error { return e.Err }

// RenderView draws v at its saved state into path and returns the number
// of rows that passed the saved filters. When the state cannot be drawn,
// an SVG target gets a placeholder and the error is a *PlaceholderError;
// a JSON target is left untouched.
func (s *ExportService) RenderView(ctx context.Context, v *domain.View, path string, format domain.ExportFormat) (int, error) {
	sess, err := s.views.Open(ctx, v)
	if err != nil {
		return 0, err
	}

	spec, drawErr := sess.Spec()
	if drawErr == nil {
		filtered, err := sess.Filtered()
		if err != nil {
			return 0, err
		}
		return filtered.Len(), render.WriteFile(ctx, path, format, s.size, spec)
	}

	// Filtering and projection both fail the same way here: nothing to draw.
	if format != domain.ExportSVG {
		return 0, drawErr
	}
	if err := render.WritePlaceholder(path, s.size, drawErr.Error()); err != nil {
		return 0, err
	}
	return 0, &PlaceholderError{Path: path, Err: drawErr}
}

// ── Watchers (cron + file_watch) ──────────────────────────

// RestartWatchers rebuilds the cron scheduler and file watcher from the
// enabled jobs. It returns the number of jobs armed. Triggered runs outlive
// ctx's cancellation; Stop ends them.
func (s *ExportService) RestartWatchers(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	ctx = context.WithoutCancel(ctx)

	jobs, err := s.store.ListEnabledTriggeredJobs()
	if err != nil {
		log.Printf("[EXPORT] list triggered jobs: %v", err)
		return 0
	}

	armed := 0
	var c *cron.Cron
	pathToJobs := make(map[string][]string)
	for _, j := range jobs {
		switch j.TriggerType {
		case domain.TriggerSchedule:
			if c == nil {
				c = cron.New()
			}
			jid := j.ID
			if _, err := c.AddFunc(j.TriggerConfig, func() {
				log.Printf("[EXPORT] cron: running job %s", jid)
				s.RunJob(ctx, jid)
			}); err != nil {
				log.Printf("[EXPORT] cron: invalid expression %q for job %s: %v", j.TriggerConfig, jid, err)
				continue
			}
			armed++
		case domain.TriggerFileWatch:
			abs, err := filepath.Abs(j.TriggerConfig)
			if err != nil {
				log.Printf("[EXPORT] watcher: bad path %q: %v", j.TriggerConfig, err)
				continue
			}
			pathToJobs[abs] = append(pathToJobs[abs], j.ID)
			armed++
		}
	}

	if c != nil {
		c.Start()
		s.cronSched = c
	}
	if len(pathToJobs) > 0 {
		s.startWatcherLocked(ctx, pathToJobs)
	}
	log.Printf("[EXPORT] %d triggered job(s) armed", armed)
	return armed
}

func (s *ExportService) startWatcherLocked(ctx context.Context, pathToJobs map[string][]string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[EXPORT] watcher: %v", err)
		return
	}
	// Editors replace files on save, so the directory is watched rather
	// than the file itself.
	dirs := make(map[string]bool)
	for path := range pathToJobs {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Printf("[EXPORT] watcher: watch %q: %v", dir, err)
			continue
		}
		dirs[dir] = true
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel

	go func() {
		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				abs, _ := filepath.Abs(event.Name)
				for _, jobID := range pathToJobs[abs] {
					if t, ok := timers[jobID]; ok {
						t.Stop()
					}
					jid := jobID
					timers[jobID] = time.AfterFunc(WatchDebounce, func() {
						log.Printf("[EXPORT] watcher: %s changed, running job %s", abs, jid)
						s.RunJob(watchCtx, jid)
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[EXPORT] watcher: %v", err)
			}
		}
	}()
}

// WaitRunning blocks until running exports finish or ctx is done.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.guard.Wait(ctx)
}

// Stop tears down the scheduler and watcher. It is safe to call twice.
func (s *ExportService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *ExportService) stopLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}
