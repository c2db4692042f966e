package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chartkit/internal/domain"

	"github.com/google/uuid"
)

// ExportStore persists export jobs and their run logs.
type ExportStore struct {
	db *DB
}

func NewExportStore(db *DB) *ExportStore {
	return &ExportStore{db: db}
}

const jobColumns = `id, view_id, output_path, format, trigger_type, trigger_config, enabled,
	last_run_at, last_status, last_error, created_at, updated_at`

// ── ExportJob CRUD ─────────────────────────────────────────

func (s *ExportStore) CreateJob(job *domain.ExportJob) error {
	now := time.Now()
	job.ID = uuid.New().String()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.TriggerType == "" {
		job.TriggerType = domain.TriggerManual
	}

	_, err := s.db.conn.Exec(
		`INSERT INTO export_jobs (id, view_id, output_path, format, trigger_type, trigger_config,
		 enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ViewID, job.OutputPath, string(job.Format),
		job.TriggerType, job.TriggerConfig, job.Enabled,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

func (s *ExportStore) GetJob(id string) (*domain.ExportJob, error) {
	job, err := scanJob(s.db.conn.QueryRow(`SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export job %s: %w", id, ErrNotFound)
	}
	return job, err
}

func (s *ExportStore) ListJobs() ([]domain.ExportJob, error) {
	return s.queryJobs(`SELECT ` + jobColumns + ` FROM export_jobs ORDER BY created_at ASC`)
}

// ListEnabledTriggeredJobs returns enabled jobs with a schedule or file_watch trigger.
func (s *ExportStore) ListEnabledTriggeredJobs() ([]domain.ExportJob, error) {
	return s.queryJobs(
		`SELECT `+jobColumns+` FROM export_jobs
		 WHERE enabled = 1 AND trigger_type IN (?, ?)
		 ORDER BY created_at ASC`,
		domain.TriggerSchedule, domain.TriggerFileWatch,
	)
}

func (s *ExportStore) queryJobs(query string, args ...any) ([]domain.ExportJob, error) {
	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *ExportStore) UpdateJobStatus(id, status, errMsg string) error {
	now := time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE export_jobs SET last_run_at=?, last_status=?, last_error=?, updated_at=? WHERE id=?`,
		now, status, errMsg, now, id,
	)
	return err
}

func (s *ExportStore) DeleteJob(id string) error {
	if _, err := s.db.conn.Exec(`DELETE FROM export_run_logs WHERE job_id = ?`, id); err != nil {
		return err
	}
	res, err := s.db.conn.Exec(`DELETE FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("export job %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanJob(row rowScanner) (*domain.ExportJob, error) {
	job := &domain.ExportJob{}
	var format string
	var lastRun sql.NullTime
	if err := row.Scan(
		&job.ID, &job.ViewID, &job.OutputPath, &format,
		&job.TriggerType, &job.TriggerConfig, &job.Enabled,
		&lastRun, &job.LastStatus, &job.LastError,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Format = domain.ExportFormat(format)
	if lastRun.Valid {
		job.LastRunAt = lastRun.Time
	}
	return job, nil
}

// ── Run Logs ───────────────────────────────────────────────

func (s *ExportStore) CreateRunLog(l *domain.ExportRunLog) error {
	l.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO export_run_logs (id, job_id, started_at, finished_at, status, rows_read, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.JobID, l.StartedAt, l.FinishedAt, l.Status, l.Rows, l.Error,
	)
	return err
}

// ListRunLogs returns the most recent runs of a job, newest first.
func (s *ExportStore) ListRunLogs(jobID string, limit int) ([]domain.ExportRunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, job_id, started_at, finished_at, status, rows_read, error
		 FROM export_run_logs WHERE job_id = ? ORDER BY started_at DESC LIMIT ?`,
		jobID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.ExportRunLog
	for rows.Next() {
		var l domain.ExportRunLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.StartedAt, &l.FinishedAt, &l.Status, &l.Rows, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
