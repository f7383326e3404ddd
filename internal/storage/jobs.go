package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/icoffio/articleflow/internal/core/domain"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `id, type, status, payload, result, error, retries, max_retries, created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		j           domain.Job
		errText     pgtype.Text
		createdAt   pgtype.Timestamptz
		startedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)

	if err := row.Scan(&j.ID, &j.Type, &j.Status, &j.Payload, &j.Result, &errText,
		&j.Retries, &j.MaxRetries, &createdAt, &startedAt, &completedAt); err != nil {
		return nil, err
	}

	j.Error = fromText(errText)
	j.CreatedAt = createdAt.Time
	j.StartedAt = fromTimestamptzPtr(startedAt)
	j.CompletedAt = fromTimestamptzPtr(completedAt)

	return &j, nil
}

// InsertJob writes a new pending job row.
func (db *DB) InsertJob(ctx context.Context, job *domain.Job) error {
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO jobs (id, type, status, payload, retries, max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.ID, job.Type, job.Status, job.Payload, job.Retries, job.MaxRetries, job.CreatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

// PendingJobs returns the oldest pending jobs of the given type.
func (db *DB) PendingJobs(ctx context.Context, jobType string, limit int) ([]domain.Job, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE type = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`, jobType, domain.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// StaleJobs returns processing jobs whose lease started before the cutoff.
func (db *DB) StaleJobs(ctx context.Context, jobType string, olderThan time.Time, limit int) ([]domain.Job, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE type = $1 AND status = $2 AND started_at < $3
		ORDER BY started_at ASC
		LIMIT $4
	`, jobType, domain.JobStatusProcessing, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("select stale jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var jobs []domain.Job

	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		jobs = append(jobs, *j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// MarkProcessing transitions pending -> processing. Returns false when the
// row was not in pending, which means another worker claimed it first.
func (db *DB) MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
	`, domain.JobStatusProcessing, startedAt, id, domain.JobStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark job processing: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkCompleted transitions processing -> completed. Returns false when the
// lease was already lost (recycled by the stale sweep).
func (db *DB) MarkCompleted(ctx context.Context, id string, result []byte, completedAt time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, result = $2, completed_at = $3
		WHERE id = $4 AND status = $5
	`, domain.JobStatusCompleted, result, completedAt, id, domain.JobStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark job completed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkPending transitions processing -> pending for a retry, clearing the
// lease timestamp and recording the failure message.
func (db *DB) MarkPending(ctx context.Context, id string, retries int, errMsg string) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, retries = $2, error = $3, started_at = NULL
		WHERE id = $4 AND status = $5
	`, domain.JobStatusPending, retries, errMsg, id, domain.JobStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark job pending: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkFailed transitions processing -> failed terminally.
func (db *DB) MarkFailed(ctx context.Context, id string, retries int, errMsg string, completedAt time.Time) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, retries = $2, error = $3, completed_at = $4
		WHERE id = $5 AND status = $6
	`, domain.JobStatusFailed, retries, errMsg, completedAt, id, domain.JobStatusProcessing)
	if err != nil {
		return false, fmt.Errorf("mark job failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// JobByID returns a single job row.
func (db *DB) JobByID(ctx context.Context, id string) (*domain.Job, error) {
	j, err := scanJob(db.Pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}

		return nil, fmt.Errorf("get job by id: %w", err)
	}

	return j, nil
}

// CountJobsByStatus reports queue depth per status for metrics.
func (db *DB) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.Pool.Query(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}

		counts[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job counts: %w", err)
	}

	return counts, nil
}
