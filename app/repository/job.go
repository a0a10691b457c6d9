package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

type JobRepository struct {
	db DBTX
}

func NewJobRepository(db DBTX) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (
			queue, type, dedupe_key, payload_json, status, attempts, run_at, last_error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		job.Queue,
		job.Type,
		nullableStringValue(job.DedupeKey),
		job.PayloadJSON,
		job.Status,
		job.Attempts,
		job.RunAt,
		nullableStringValue(job.LastErr),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	job.ID = uint64(id)

	return nil
}

// ClearPending drops the queue's not-yet-claimed jobs carrying the dedupe
// key so a fresh enqueue can take their place. Jobs already done or failed
// are untouched.
func (r *JobRepository) ClearPending(ctx context.Context, queue string, dedupeKey string) error {
	query := `DELETE FROM jobs WHERE queue = ? AND dedupe_key = ? AND status = ?`

	_, err := r.db.ExecContext(ctx, query, queue, dedupeKey, entity.JobStatusPending)
	return err
}

func (r *JobRepository) ListDue(ctx context.Context, queue string, now time.Time, limit int32) ([]*entity.Job, error) {
	query := `
		SELECT id, queue, type, dedupe_key, payload_json, status, attempts, run_at, last_error, created_at, updated_at
		FROM jobs
		WHERE queue = ?
		  AND status = ?
		  AND run_at <= ?
		ORDER BY run_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, queue, entity.JobStatusPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]*entity.Job, 0)
	for rows.Next() {
		item, err := scanJobFromRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, job *entity.Job) error {
	query := `UPDATE jobs SET status = ?, attempts = ?, last_error = NULL, updated_at = ? WHERE id = ?`

	job.Status = entity.JobStatusDone
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query, job.Status, job.Attempts, job.UpdatedAt, job.ID)
	return err
}

func (r *JobRepository) MarkFailed(ctx context.Context, job *entity.Job, cause string) error {
	query := `UPDATE jobs SET status = ?, attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`

	job.Status = entity.JobStatusFailed
	job.Attempts++
	job.LastErr = &cause
	job.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query, job.Status, job.Attempts, cause, job.UpdatedAt, job.ID)
	return err
}

func scanJobFromRows(rows *sql.Rows) (*entity.Job, error) {
	var job entity.Job
	var dedupeKey, lastErr sql.NullString

	if err := rows.Scan(
		&job.ID,
		&job.Queue,
		&job.Type,
		&dedupeKey,
		&job.PayloadJSON,
		&job.Status,
		&job.Attempts,
		&job.RunAt,
		&lastErr,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.DedupeKey = stringPtrFromNull(dedupeKey)
	job.LastErr = stringPtrFromNull(lastErr)

	return &job, nil
}
