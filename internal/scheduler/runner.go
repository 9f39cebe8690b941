package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pestwatch/internal/config"
	"pestwatch/internal/observability"
)

// Runner owns the three recurring jobs: the general sweep, the critical-only
// sweep, and the daily digest. Each job fires on its own interval and never
// waits on another.
type Runner struct {
	sweeper *Sweeper
	cfg     config.SchedulerConfig
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRunner creates a Runner driving the given sweeper on the configured
// intervals.
func NewRunner(sweeper *Sweeper, cfg config.SchedulerConfig, metrics *observability.Metrics, logger *slog.Logger, clock clockwork.Clock) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		sweeper: sweeper,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		clock:   clock,
	}
}

// Start registers the three jobs against the clock. Calling Start on a
// running Runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.launch(runCtx, "general", r.cfg.GeneralInterval, r.sweeper.RunGeneral)
	r.launch(runCtx, "critical", r.cfg.CriticalInterval, r.sweeper.RunCritical)
	r.launch(runCtx, "digest", r.cfg.DigestInterval, r.sweeper.RunDigest)

	if r.metrics != nil {
		r.metrics.SchedulerRunning.Set(1)
	}
	r.logger.InfoContext(ctx, "scheduler started",
		"general_interval", r.cfg.GeneralInterval,
		"critical_interval", r.cfg.CriticalInterval,
		"digest_interval", r.cfg.DigestInterval,
	)
}

// launch runs job on its interval until ctx is cancelled. An in-flight run is
// allowed to finish after cancellation; only new runs are prevented.
func (r *Runner) launch(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := r.clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				// Detached from the runner context so stopping the scheduler
				// never cuts a sweep off mid-subscriber.
				if err := job(context.WithoutCancel(ctx)); err != nil {
					r.logger.Error("scheduled job failed", "job", name, "error", err)
				}
			}
		}
	}()
}

// Stop cancels all registered jobs and waits for in-flight runs to finish.
// Safe to call multiple times and from a concurrent shutdown signal.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	r.wg.Wait()

	if r.metrics != nil {
		r.metrics.SchedulerRunning.Set(0)
	}
	r.logger.Info("scheduler stopped")
}

// IsRunning reports whether the jobs are registered.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
