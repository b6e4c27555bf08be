package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fichaje/internal/platform/redis"
	"fichaje/internal/sweep/metrics"
	"fichaje/pkg/requestcontext"
)

// Runner drives the jobs on independent tickers. When a redis client is
// configured, each job tick takes a short-lived SET NX lock so only one
// process instance sweeps at a time; without redis the runner assumes a
// single instance.
type Runner struct {
	jobs     []Job
	interval time.Duration
	locks    *redis.Client
	instance string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type RunnerOption func(*Runner)

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLocks enables cross-instance locking. A nil client is ignored.
func WithLocks(client *redis.Client) RunnerOption {
	return func(r *Runner) { r.locks = client }
}

func NewRunner(interval time.Duration, jobs []Job, opts ...RunnerOption) *Runner {
	r := &Runner{
		jobs:     jobs,
		interval: interval,
		instance: uuid.NewString(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run blocks until the context is canceled, ticking every job on its own
// goroutine. The first pass fires immediately so a restarted process catches
// up without waiting a full interval.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range r.jobs {
		g.Go(func() error {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()

			r.tick(ctx, job)
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					r.tick(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (r *Runner) tick(ctx context.Context, job Job) {
	now := time.Now()
	if !r.acquireLock(ctx, job.Name()) {
		r.metrics.Skipped(job.Name())
		return
	}

	// One consistent instant for the whole pass.
	tickCtx := requestcontext.WithTime(ctx, now)
	start := time.Now()
	if err := job.Run(tickCtx); err != nil {
		r.metrics.Failure(job.Name())
		r.logger.ErrorContext(ctx, "sweep pass failed", "job", job.Name(), "error", err)
		return
	}
	r.metrics.Run(job.Name(), time.Since(start))
	r.logger.DebugContext(ctx, "sweep pass completed",
		"job", job.Name(), "duration_ms", time.Since(start).Milliseconds())
}

// acquireLock takes the per-job tick lock. The lock expires on its own after
// the sweep interval; a crashed holder delays the next pass by at most one
// tick, and jobs stay idempotent regardless.
func (r *Runner) acquireLock(ctx context.Context, job string) bool {
	if r.locks == nil {
		return true
	}
	ok, err := r.locks.SetNX(ctx, "sweep:lock:"+job, r.instance, r.interval).Result()
	if err != nil {
		// Redis being down must not stop the sweeps; dedup still holds at
		// the store level.
		r.logger.WarnContext(ctx, "sweep lock unavailable", "job", job, "error", err)
		return true
	}
	return ok
}
