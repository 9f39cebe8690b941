package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pestwatch/internal/observability"
	"pestwatch/internal/types"
)

// Evaluator runs the full assessment pipeline for one subscriber's location.
type Evaluator interface {
	Evaluate(ctx context.Context, loc types.Location, subscriberID string) (types.RiskAssessment, error)
}

// SubscriptionStore is the slice of the registry the sweeper needs.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]types.AlertSubscription, error)
	MarkAlerted(ctx context.Context, subscriberID string, at time.Time) error
}

// Transport delivers a rendered alert message to a contact address. Failures
// are non-fatal per subscriber; the next scheduled sweep is the retry.
type Transport interface {
	Send(ctx context.Context, contact string, message string) error
}

// SweeperConfig holds the dependencies for creating a Sweeper.
type SweeperConfig struct {
	Store     SubscriptionStore
	Evaluator Evaluator
	Transport Transport
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock

	// Cooldown is the minimum gap between non-critical alerts per subscriber.
	Cooldown time.Duration

	// SubscriberDelay is the pause between subscribers within one sweep,
	// respecting upstream provider rate limits.
	SubscriberDelay time.Duration
}

// Sweeper iterates active subscriptions, evaluates each one, applies the
// anti-spam gate, and dispatches alerts. One subscriber's failure never
// aborts the sweep.
type Sweeper struct {
	store     SubscriptionStore
	evaluator Evaluator
	transport Transport
	metrics   *observability.Metrics
	logger    *slog.Logger
	clock     clockwork.Clock

	cooldown        time.Duration
	subscriberDelay time.Duration

	// Dispatch/suppression totals accumulated since the last digest; the
	// digest snapshots and resets them.
	windowMu         sync.Mutex
	windowDispatched int
	windowSuppressed int
}

// NewSweeper creates a Sweeper.
func NewSweeper(cfg SweeperConfig) *Sweeper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{
		store:           cfg.Store,
		evaluator:       cfg.Evaluator,
		transport:       cfg.Transport,
		metrics:         cfg.Metrics,
		logger:          logger,
		clock:           clock,
		cooldown:        cfg.Cooldown,
		subscriberDelay: cfg.SubscriberDelay,
	}
}

// RunGeneral evaluates every active subscription and dispatches whatever the
// gate lets through.
func (s *Sweeper) RunGeneral(ctx context.Context) error {
	return s.run(ctx, "general", false)
}

// RunCritical evaluates every active subscription but dispatches only
// CRITICAL assessments, bypassing the cooldown.
func (s *Sweeper) RunCritical(ctx context.Context) error {
	return s.run(ctx, "critical", true)
}

func (s *Sweeper) run(ctx context.Context, sweep string, criticalOnly bool) error {
	start := s.clock.Now()
	logger := s.logger.With("sweep", sweep)

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list active subscriptions, skipping sweep", "error", err)
		return err
	}
	logger.InfoContext(ctx, "sweep started", "subscriptions", len(subs))

	var dispatched, suppressed, failed int
	for i, sub := range subs {
		if i > 0 && s.subscriberDelay > 0 {
			s.clock.Sleep(s.subscriberDelay)
		}

		if s.processOne(ctx, logger, sweep, sub, criticalOnly, &dispatched, &suppressed) {
			continue
		}
		failed++
	}

	s.windowMu.Lock()
	s.windowDispatched += dispatched
	s.windowSuppressed += suppressed
	s.windowMu.Unlock()

	elapsed := s.clock.Since(start)
	if s.metrics != nil {
		s.metrics.SweepDuration.WithLabelValues(sweep).Observe(elapsed.Seconds())
	}
	logger.InfoContext(ctx, "sweep finished",
		"dispatched", dispatched,
		"suppressed", suppressed,
		"failed", failed,
		"elapsed", elapsed,
	)
	return nil
}

// processOne runs the pipeline and gate for a single subscriber. Returns
// false only when the subscriber's evaluation or dispatch failed.
func (s *Sweeper) processOne(ctx context.Context, logger *slog.Logger, sweep string, sub types.AlertSubscription, criticalOnly bool, dispatched, suppressed *int) bool {
	assessment, err := s.evaluator.Evaluate(ctx, sub.Location, sub.SubscriberID)
	if err != nil {
		// The pipeline degrades internally; an error here is exceptional.
		logger.ErrorContext(ctx, "evaluation failed, continuing with next subscriber",
			"subscriber_id", sub.SubscriberID, "error", err)
		return false
	}

	if criticalOnly && assessment.Level != types.LevelCritical {
		*suppressed++
		if s.metrics != nil {
			s.metrics.AlertsSuppressed.WithLabelValues(sweep, ReasonBelowCritical).Inc()
		}
		return true
	}

	ok, reason := ShouldAlert(sub, assessment, s.clock.Now(), s.cooldown, criticalOnly)
	if !ok {
		*suppressed++
		if s.metrics != nil {
			s.metrics.AlertsSuppressed.WithLabelValues(sweep, reason).Inc()
		}
		logger.InfoContext(ctx, "alert suppressed",
			"subscriber_id", sub.SubscriberID,
			"level", string(assessment.Level),
			"reason", reason,
		)
		return true
	}

	if err := s.transport.Send(ctx, sub.Contact, assessment.Message); err != nil {
		if s.metrics != nil {
			s.metrics.DispatchFailures.Inc()
		}
		logger.ErrorContext(ctx, "dispatch failed, continuing with next subscriber",
			"subscriber_id", sub.SubscriberID, "error", err)
		return false
	}

	*dispatched++
	if s.metrics != nil {
		s.metrics.AlertsDispatched.WithLabelValues(sweep).Inc()
	}
	logger.InfoContext(ctx, "alert dispatched",
		"subscriber_id", sub.SubscriberID,
		"level", string(assessment.Level),
		"score", assessment.Score,
		"confidence", assessment.Confidence,
		"source", string(assessment.Source),
	)

	if err := s.store.MarkAlerted(ctx, sub.SubscriberID, s.clock.Now()); err != nil {
		// The alert went out; a failed timestamp write means the cooldown may
		// not suppress the next one. Log loudly and move on.
		logger.ErrorContext(ctx, "failed to record last alert time",
			"subscriber_id", sub.SubscriberID, "error", err)
	}
	return true
}
