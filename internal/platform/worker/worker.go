// Package worker runs poll-based background loops: the queue consumer and
// its periodic maintenance tasks share one loop shape.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ProcessFunc does one iteration of work. It should return quickly when no
// work is available.
type ProcessFunc func(ctx context.Context) error

// PeriodicTask runs at its own interval inside the loop, between process
// iterations. Errors are the task's own problem.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	lastRun  time.Time
}

// Config configures a worker loop.
type Config struct {
	// Name identifies the loop in logs.
	Name string

	// PollInterval is the sleep between process iterations.
	PollInterval time.Duration

	// Process is called each iteration.
	Process ProcessFunc

	// PeriodicTasks run at their configured intervals.
	PeriodicTasks []PeriodicTask

	// OnError is called when Process returns an error. Return true to keep
	// the loop running, false to exit with that error.
	OnError func(err error) bool

	Logger *zerolog.Logger
}

// Loop runs the configured loop until ctx is cancelled or Process returns a
// fatal error.
func Loop(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	logger.Info().Str("worker", cfg.Name).Msg("starting worker loop")
	defer logger.Info().Str("worker", cfg.Name).Msg("worker loop stopped")

	tasks := make([]PeriodicTask, len(cfg.PeriodicTasks))
	copy(tasks, cfg.PeriodicTasks)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("worker loop %s: %w", cfg.Name, ctx.Err())
		default:
		}

		runDueTasks(ctx, tasks, logger)

		if cfg.Process != nil {
			if err := cfg.Process(ctx); err != nil {
				if cfg.OnError != nil && !cfg.OnError(err) {
					return err
				}
				logger.Error().Err(err).Str("worker", cfg.Name).Msg("process error")
			}
		}

		if err := Wait(ctx, cfg.PollInterval); err != nil {
			return err
		}
	}
}

func runDueTasks(ctx context.Context, tasks []PeriodicTask, logger *zerolog.Logger) {
	now := time.Now()

	for i := range tasks {
		task := &tasks[i]
		if task.Interval <= 0 || task.Run == nil {
			continue
		}

		if now.Sub(task.lastRun) >= task.Interval {
			logger.Debug().Str("task", task.Name).Msg("running periodic task")
			task.Run(ctx)
			task.lastRun = now
		}
	}
}

// Wait blocks until d elapses or ctx is cancelled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RecoverPanic converts a panic in a job handler into a logged error so one
// poisoned payload cannot take the consumer down.
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}
