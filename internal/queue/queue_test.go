package queue

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icoffio/articleflow/internal/core/domain"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*domain.Job)}
}

func (m *memStore) InsertJob(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *job
	m.jobs[job.ID] = &cp

	return nil
}

func (m *memStore) PendingJobs(_ context.Context, jobType string, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Job

	for _, job := range m.jobs {
		if job.Type == jobType && job.Status == domain.JobStatusPending {
			out = append(out, *job)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *memStore) StaleJobs(_ context.Context, jobType string, olderThan time.Time, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Job

	for _, job := range m.jobs {
		if job.Type == jobType && job.Status == domain.JobStatusProcessing &&
			job.StartedAt != nil && job.StartedAt.Before(olderThan) {
			out = append(out, *job)
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (m *memStore) MarkProcessing(_ context.Context, id string, startedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusPending {
		return false, nil
	}

	job.Status = domain.JobStatusProcessing
	job.StartedAt = &startedAt

	return true, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id string, result []byte, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}

	job.Status = domain.JobStatusCompleted
	job.Result = result
	job.CompletedAt = &completedAt

	return true, nil
}

func (m *memStore) MarkPending(_ context.Context, id string, retries int, errMsg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}

	job.Status = domain.JobStatusPending
	job.Retries = retries
	job.Error = errMsg
	job.StartedAt = nil

	return true, nil
}

func (m *memStore) MarkFailed(_ context.Context, id string, retries int, errMsg string, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != domain.JobStatusProcessing {
		return false, nil
	}

	job.Status = domain.JobStatusFailed
	job.Retries = retries
	job.Error = errMsg
	job.CompletedAt = &completedAt

	return true, nil
}

func (m *memStore) JobByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}

	cp := *job

	return &cp, nil
}

func newTestQueue(store Store) *Queue {
	return New(store, zerolog.Nop(), Config{MaxRetries: 2, StaleThreshold: 10 * time.Minute})
}

func TestEnqueue(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)

	job, err := q.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 42, RawText: "https://example.com"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(job.ID, "job_"))
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.MaxRetries)

	stored, err := q.Job(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
	assert.JSONEq(t, `{"chat_id":42,"raw_text":"https://example.com"}`, string(stored.Payload))
}

func TestClaimIsExclusive(t *testing.T) {
	store := newMemStore()
	first := newTestQueue(store)
	second := newTestQueue(store)

	job, err := first.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 1, RawText: "x"})
	require.NoError(t, err)

	claimedA, err := first.Claim(context.Background(), 5)
	require.NoError(t, err)

	claimedB, err := second.Claim(context.Background(), 5)
	require.NoError(t, err)

	assert.Len(t, claimedA, 1)
	assert.Empty(t, claimedB)
	assert.Equal(t, job.ID, claimedA[0].ID)
	assert.Equal(t, domain.JobStatusProcessing, claimedA[0].Status)
	require.NotNil(t, claimedA[0].StartedAt)
}

func TestFailRequeuesUntilRetriesExhausted(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)

	job, err := q.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 1, RawText: "x"})
	require.NoError(t, err)

	for attempt, wantStatus := range []string{
		domain.JobStatusPending,
		domain.JobStatusPending,
		domain.JobStatusFailed,
	} {
		claimed, err := q.Claim(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, claimed, 1, "attempt %d", attempt+1)

		require.NoError(t, q.Fail(context.Background(), &claimed[0], assert.AnError))

		stored, err := q.Job(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, wantStatus, stored.Status, "attempt %d", attempt+1)
		assert.Equal(t, attempt+1, stored.Retries)
	}

	claimed, err := q.Claim(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestCompleteStoresResult(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)

	job, err := q.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 1, RawText: "x"})
	require.NoError(t, err)

	claimed, err := q.Claim(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	result := &domain.JobResult{ArticleID: "a1", Title: "Hello", Published: true}
	require.NoError(t, q.Complete(context.Background(), &claimed[0], result))

	stored, err := q.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Contains(t, string(stored.Result), `"article_id":"a1"`)
}

func TestCompleteAfterLeaseLostReturnsErrNotClaimed(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)

	_, err := q.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 1, RawText: "x"})
	require.NoError(t, err)

	claimed, err := q.Claim(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// The sweeper takes the lease back before the worker finishes.
	q.now = func() time.Time { return time.Now().Add(time.Hour) }
	recycled, err := q.RecycleStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recycled)

	err = q.Complete(context.Background(), &claimed[0], &domain.JobResult{})
	assert.ErrorIs(t, err, ErrNotClaimed)

	err = q.Fail(context.Background(), &claimed[0], assert.AnError)
	assert.ErrorIs(t, err, ErrNotClaimed)
}

func TestRecycleStaleAppliesRetryPolicy(t *testing.T) {
	store := newMemStore()
	q := newTestQueue(store)

	job, err := q.Enqueue(context.Background(), domain.SubmissionPayload{ChatID: 1, RawText: "x"})
	require.NoError(t, err)

	claimed, err := q.Claim(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// Fresh lease is left alone.
	recycled, err := q.RecycleStale(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recycled)

	q.now = func() time.Time { return time.Now().Add(time.Hour) }
	recycled, err = q.RecycleStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recycled)

	stored, err := q.Job(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Retries)
	assert.Equal(t, "stale lease", stored.Error)
}
