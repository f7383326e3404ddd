// Package queue implements the durable job queue on top of the jobs table.
// Claims are leases: a job moves to processing only through a conditional
// update, so concurrent workers never share a job.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
)

// ErrNotClaimed reports a completion or failure attempt on a job this worker
// no longer holds. The stale sweeper may have recycled the lease in between.
var ErrNotClaimed = errors.New("job is not claimed by this worker")

const staleLeaseMessage = "stale lease"

// Store is the persistence surface the queue needs.
type Store interface {
	InsertJob(ctx context.Context, job *domain.Job) error
	PendingJobs(ctx context.Context, jobType string, limit int) ([]domain.Job, error)
	StaleJobs(ctx context.Context, jobType string, olderThan time.Time, limit int) ([]domain.Job, error)
	MarkProcessing(ctx context.Context, id string, startedAt time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id string, result []byte, completedAt time.Time) (bool, error)
	MarkPending(ctx context.Context, id string, retries int, errMsg string) (bool, error)
	MarkFailed(ctx context.Context, id string, retries int, errMsg string, completedAt time.Time) (bool, error)
	JobByID(ctx context.Context, id string) (*domain.Job, error)
}

// Config tunes queue behavior.
type Config struct {
	MaxRetries     int
	StaleThreshold time.Duration
	SweepBatchSize int
}

// Queue hands out leases on submission jobs.
type Queue struct {
	store  Store
	logger zerolog.Logger
	cfg    Config

	now func() time.Time
}

func New(store Store, logger zerolog.Logger, cfg Config) *Queue {
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 50
	}

	return &Queue{
		store:  store,
		logger: logger.With().Str("component", "queue").Logger(),
		cfg:    cfg,
		now:    time.Now,
	}
}

// Enqueue persists a new pending job for the payload and returns it.
func (q *Queue) Enqueue(ctx context.Context, payload domain.SubmissionPayload) (*domain.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := q.now()
	job := &domain.Job{
		ID:         newJobID(now),
		Type:       domain.JobTypeSubmission,
		Status:     domain.JobStatusPending,
		Payload:    raw,
		MaxRetries: q.cfg.MaxRetries,
		CreatedAt:  now,
	}

	if err := q.store.InsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	q.logger.Info().Str("job_id", job.ID).Int64("chat_id", payload.ChatID).Msg("job enqueued")

	return job, nil
}

// Claim leases up to limit pending jobs in creation order. Jobs whose
// conditional update loses to another worker are skipped silently.
func (q *Queue) Claim(ctx context.Context, limit int) ([]domain.Job, error) {
	pending, err := q.store.PendingJobs(ctx, domain.JobTypeSubmission, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}

	claimed := make([]domain.Job, 0, len(pending))

	for _, job := range pending {
		startedAt := q.now()

		ok, err := q.store.MarkProcessing(ctx, job.ID, startedAt)
		if err != nil {
			return claimed, fmt.Errorf("claim job %s: %w", job.ID, err)
		}

		if !ok {
			continue
		}

		job.Status = domain.JobStatusProcessing
		job.StartedAt = &startedAt
		claimed = append(claimed, job)
	}

	return claimed, nil
}

// Complete records the result of a successfully processed job.
func (q *Queue) Complete(ctx context.Context, job *domain.Job, result *domain.JobResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	ok, err := q.store.MarkCompleted(ctx, job.ID, raw, q.now())
	if err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}

	if !ok {
		return ErrNotClaimed
	}

	return nil
}

// Fail applies the retry policy to a processing job: back to pending while
// retries remain, terminal failed otherwise.
func (q *Queue) Fail(ctx context.Context, job *domain.Job, cause error) error {
	ok, status, err := q.failWithMessage(ctx, job, cause.Error())
	if err != nil {
		return err
	}

	if !ok {
		return ErrNotClaimed
	}

	q.logger.Warn().
		Str("job_id", job.ID).
		Str("status", status).
		Int("retries", job.Retries+1).
		Err(cause).
		Msg("job failed")

	return nil
}

// RecycleStale applies the retry policy to jobs whose lease expired. Returns
// the number of recycled jobs.
func (q *Queue) RecycleStale(ctx context.Context) (int, error) {
	cutoff := q.now().Add(-q.cfg.StaleThreshold)

	stale, err := q.store.StaleJobs(ctx, domain.JobTypeSubmission, cutoff, q.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list stale jobs: %w", err)
	}

	recycled := 0

	for _, job := range stale {
		ok, status, err := q.failWithMessage(ctx, &job, staleLeaseMessage)
		if err != nil {
			return recycled, err
		}

		if !ok {
			continue
		}

		recycled++

		q.logger.Warn().
			Str("job_id", job.ID).
			Str("status", status).
			Time("started_at", *job.StartedAt).
			Msg("stale job recycled")
	}

	return recycled, nil
}

// Job returns a job by id for status lookups.
func (q *Queue) Job(ctx context.Context, id string) (*domain.Job, error) {
	return q.store.JobByID(ctx, id)
}

func (q *Queue) failWithMessage(ctx context.Context, job *domain.Job, msg string) (bool, string, error) {
	retries := job.Retries + 1

	if retries <= job.MaxRetries {
		ok, err := q.store.MarkPending(ctx, job.ID, retries, msg)
		if err != nil {
			return false, "", fmt.Errorf("requeue job %s: %w", job.ID, err)
		}

		return ok, domain.JobStatusPending, nil
	}

	ok, err := q.store.MarkFailed(ctx, job.ID, retries, msg, q.now())
	if err != nil {
		return false, "", fmt.Errorf("fail job %s: %w", job.ID, err)
	}

	return ok, domain.JobStatusFailed, nil
}

const jobIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func newJobID(now time.Time) string {
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = jobIDAlphabet[rand.Intn(len(jobIDAlphabet))]
	}

	return "job_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix)
}
