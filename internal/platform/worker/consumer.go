package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/icoffio/articleflow/internal/core/domain"
	"github.com/icoffio/articleflow/internal/platform/observability"
	"github.com/icoffio/articleflow/internal/queue"
)

const queueDepthInterval = 15 * time.Second

// Pipeline turns one claimed job into a result.
type Pipeline interface {
	Process(ctx context.Context, job *domain.Job) (*domain.JobResult, error)
}

// JobQueue is the consumer side of the durable queue.
type JobQueue interface {
	Claim(ctx context.Context, limit int) ([]domain.Job, error)
	Complete(ctx context.Context, job *domain.Job, result *domain.JobResult) error
	Fail(ctx context.Context, job *domain.Job, cause error) error
	RecycleStale(ctx context.Context) (int, error)
}

// DepthReader reports queue depth for the gauge.
type DepthReader interface {
	CountJobsByStatus(ctx context.Context) (map[string]int, error)
}

// ConsumerConfig tunes the claim loop.
type ConsumerConfig struct {
	BatchSize          int
	PollInterval       time.Duration
	StaleSweepInterval time.Duration
}

// Consumer claims pending jobs and drives them through the pipeline. Several
// consumers may run against the same database; the claim is the only
// coordination between them.
type Consumer struct {
	queue    JobQueue
	pipeline Pipeline
	depth    DepthReader
	cfg      ConsumerConfig
	logger   zerolog.Logger
}

func NewConsumer(q JobQueue, p Pipeline, depth DepthReader, cfg ConsumerConfig, logger *zerolog.Logger) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	return &Consumer{
		queue:    q,
		pipeline: p,
		depth:    depth,
		cfg:      cfg,
		logger:   logger.With().Str("component", "consumer").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	tasks := []PeriodicTask{
		{Name: "stale-sweep", Interval: c.cfg.StaleSweepInterval, Run: c.sweepStale},
	}
	if c.depth != nil {
		tasks = append(tasks, PeriodicTask{Name: "queue-depth", Interval: queueDepthInterval, Run: c.reportDepth})
	}

	return Loop(ctx, Config{
		Name:          "pipeline-consumer",
		PollInterval:  c.cfg.PollInterval,
		Process:       c.processBatch,
		PeriodicTasks: tasks,
		Logger:        &c.logger,
	})
}

func (c *Consumer) processBatch(ctx context.Context) error {
	jobs, err := c.queue.Claim(ctx, c.cfg.BatchSize)
	if err != nil {
		return err
	}

	for i := range jobs {
		c.processJob(ctx, &jobs[i])
	}

	return nil
}

func (c *Consumer) processJob(ctx context.Context, job *domain.Job) {
	defer RecoverPanic(&c.logger, "process job")

	logger := c.logger.With().Str("job_id", job.ID).Logger()
	started := time.Now()

	result, err := c.pipeline.Process(ctx, job)

	observability.JobDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		logger.Warn().Err(err).Msg("pipeline run failed")

		if failErr := c.queue.Fail(ctx, job, err); failErr != nil {
			c.recordLostLease(logger, failErr)
			return
		}
		observability.JobsProcessed.WithLabelValues(observability.OutcomeFailed).Inc()
		return
	}

	if err := c.queue.Complete(ctx, job, result); err != nil {
		c.recordLostLease(logger, err)
		return
	}

	observability.JobsProcessed.WithLabelValues(observability.OutcomeCompleted).Inc()
	logger.Info().Dur("took", time.Since(started)).Msg("job completed")
}

// recordLostLease handles the race where the stale sweep reclaimed the job
// while this consumer was still working on it. The other claimant owns the
// job now; this side only records the loss.
func (c *Consumer) recordLostLease(logger zerolog.Logger, err error) {
	if errors.Is(err, queue.ErrNotClaimed) {
		observability.JobsProcessed.WithLabelValues(observability.OutcomeLost).Inc()
		logger.Warn().Msg("lease lost before finish")
		return
	}

	logger.Error().Err(err).Msg("finish job")
}

func (c *Consumer) sweepStale(ctx context.Context) {
	n, err := c.queue.RecycleStale(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("stale sweep")
		return
	}

	if n > 0 {
		observability.StaleJobsRecycled.Add(float64(n))
		c.logger.Info().Int("recycled", n).Msg("stale jobs recycled")
	}
}

func (c *Consumer) reportDepth(ctx context.Context) {
	counts, err := c.depth.CountJobsByStatus(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("queue depth")
		return
	}

	for _, status := range []string{
		domain.JobStatusPending, domain.JobStatusProcessing,
		domain.JobStatusCompleted, domain.JobStatusFailed,
	} {
		observability.QueueDepth.WithLabelValues(status).Set(float64(counts[status]))
	}
}
