// Package jobs runs the festival's periodic maintenance work: failing
// payments whose provider went silent, expiring lapsed sponsorships and
// sweeping stale login challenges.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Job is one unit of periodic work. Jobs report failure through the error;
// the runner logs and counts it and tries again on the next tick.
type Job func(ctx context.Context) error

// Runner schedules jobs on fixed intervals.
type Runner struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger}
}

// Every runs fn on a fixed interval until the context ends. Each job gets
// its own goroutine and ticker. A panic inside the job is recovered and
// counted as an error run.
func (r *Runner) Every(ctx context.Context, interval time.Duration, name string, fn Job) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.runOnce(ctx, name, fn)
			}
		}
	}()
}

func (r *Runner) runOnce(ctx context.Context, name string, fn Job) {
	start := time.Now()
	defer func() {
		jobRuns.WithLabelValues(name).Inc()
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			jobErrors.WithLabelValues(name).Inc()
			r.logger.ErrorContext(ctx, "background job panicked",
				slog.String("job", name),
				slog.Any("panic", rec),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		jobErrors.WithLabelValues(name).Inc()
		r.logger.ErrorContext(ctx, "background job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
}
