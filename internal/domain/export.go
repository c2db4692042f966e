package domain

import "time"

// ExportFormat is the file format written by an export job.
type ExportFormat string

const (
	ExportSVG  ExportFormat = "svg"
	ExportJSON ExportFormat = "json"
)

// Trigger types for export jobs.
const (
	TriggerManual    = "manual"
	TriggerSchedule  = "schedule"
	TriggerFileWatch = "file_watch"
)

// ExportJob renders a saved view to a file, on demand, on a cron schedule,
// or whenever a watched file changes.
type ExportJob struct {
	ID            string       `json:"id"`
	ViewID        string       `json:"viewId"`
	OutputPath    string       `json:"outputPath"`
	Format        ExportFormat `json:"format"`
	TriggerType   string       `json:"triggerType"`   // "manual" | "schedule" | "file_watch"
	TriggerConfig string       `json:"triggerConfig"` // cron expression or watch path
	Enabled       bool         `json:"enabled"`
	LastRunAt     time.Time    `json:"lastRunAt"`
	LastStatus    string       `json:"lastStatus"` // "success" | "error" | "running" | ""
	LastError     string       `json:"lastError"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ExportRunLog is a historical record of an export run.
type ExportRunLog struct {
	ID         string    `json:"id"`
	JobID      string    `json:"jobId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
}

// ExportStore manages export jobs and their run logs.
type ExportStore interface {
	CreateJob(j *ExportJob) error
	GetJob(id string) (*ExportJob, error)
	ListJobs() ([]ExportJob, error)
	ListEnabledTriggeredJobs() ([]ExportJob, error)
	UpdateJobStatus(id, status, errMsg string) error
	DeleteJob(id string) error
	CreateRunLog(l *ExportRunLog) error
	ListRunLogs(jobID string, limit int) ([]ExportRunLog, error)
}
