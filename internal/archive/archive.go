// Package archive persists terminal job snapshots to Postgres so finished
// work survives restarts and registry eviction. The live registry stays the
// source of truth for running jobs; the archive is history.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/shared/postgresql"
)

const schema = `
CREATE TABLE IF NOT EXISTS archived_jobs (
	job_id        TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	input_text    TEXT NOT NULL,
	voice         TEXT NOT NULL DEFAULT '',
	script        TEXT NOT NULL DEFAULT '',
	result_url    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ,
	archived_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_archived_jobs_created_at
	ON archived_jobs (created_at DESC, job_id DESC);
`

// ArchivedJob is a terminal job row.
type ArchivedJob struct {
	JobID       string     `db:"job_id"`
	Status      string     `db:"status"`
	InputText   string     `db:"input_text"`
	Voice       string     `db:"voice"`
	Script      string     `db:"script"`
	ResultURL   string     `db:"result_url"`
	Error       string     `db:"error_message"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
	ArchivedAt  time.Time  `db:"archived_at"`
}

// Cursor marks a position in the archive listing for keyset pagination.
type Cursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListFilter narrows and pages the archive listing.
type ListFilter struct {
	Status   string
	PageSize int
	Cursor   *Cursor
}

// Archive stores terminal jobs in Postgres.
type Archive struct {
	db *sqlx.DB
}

// New creates an archive on an existing database connection.
func New(pg *postgresql.Client) *Archive {
	return &Archive{
		db: pg.GetDB(),
	}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure archive schema: %w", err)
	}
	return nil
}

// Record upserts a terminal job snapshot. Re-recording the same job updates
// the row, so retries and duplicate archiving stay harmless.
func (a *Archive) Record(ctx context.Context, job domain.Job) error {
	query := `
		INSERT INTO archived_jobs (
			job_id, status, input_text, voice,
			script, result_url, error_message, created_at, completed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
		ON CONFLICT (job_id) DO UPDATE SET
			status        = EXCLUDED.status,
			script        = EXCLUDED.script,
			result_url    = EXCLUDED.result_url,
			error_message = EXCLUDED.error_message,
			completed_at  = EXCLUDED.completed_at,
			archived_at   = now()
	`

	_, err := a.db.ExecContext(
		ctx,
		query,
		job.ID,
		string(job.Status),
		job.InputText,
		job.Voice,
		job.Script,
		job.ResultURL,
		job.Error,
		job.CreatedAt,
		job.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record archived job: %w", err)
	}

	return nil
}

// List returns archived jobs newest first. It fetches one row more than
// PageSize so callers can tell whether another page exists.
func (a *Archive) List(ctx context.Context, filter ListFilter) ([]ArchivedJob, error) {
	query := `
		SELECT
			job_id, status, input_text, voice,
			script, result_url, error_message, created_at, completed_at, archived_at
		FROM archived_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []ArchivedJob
	if err := a.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list archived jobs: %w", err)
	}

	return jobs, nil
}
