package scheduler

import (
	"context"

	"pestwatch/internal/types"
)

// DigestReport is the daily operational summary. It is logged and exposed to
// operators; subscribers are never messaged by the digest job.
type DigestReport struct {
	ActiveSubscriptions int            `json:"active_subscriptions"`
	LevelCounts         map[string]int `json:"level_counts"`
	EvaluationFailures  int            `json:"evaluation_failures"`

	// Dispatch/suppression totals across the sweeps since the previous digest.
	AlertsDispatched int `json:"alerts_dispatched"`
	AlertsSuppressed int `json:"alerts_suppressed"`
}

// RunDigest evaluates every active subscription and aggregates the resulting
// risk levels into an operational report. No alerts are dispatched and no
// cooldown state is touched.
func (s *Sweeper) RunDigest(ctx context.Context) error {
	logger := s.logger.With("sweep", "digest")

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list active subscriptions, skipping digest", "error", err)
		return err
	}

	s.windowMu.Lock()
	dispatched, suppressed := s.windowDispatched, s.windowSuppressed
	s.windowDispatched, s.windowSuppressed = 0, 0
	s.windowMu.Unlock()

	report := DigestReport{
		ActiveSubscriptions: len(subs),
		AlertsDispatched:    dispatched,
		AlertsSuppressed:    suppressed,
		LevelCounts: map[string]int{
			string(types.LevelLow):      0,
			string(types.LevelModerate): 0,
			string(types.LevelHigh):     0,
			string(types.LevelCritical): 0,
		},
	}

	for i, sub := range subs {
		if i > 0 && s.subscriberDelay > 0 {
			s.clock.Sleep(s.subscriberDelay)
		}

		assessment, err := s.evaluator.Evaluate(ctx, sub.Location, sub.SubscriberID)
		if err != nil {
			report.EvaluationFailures++
			logger.ErrorContext(ctx, "digest evaluation failed",
				"subscriber_id", sub.SubscriberID, "error", err)
			continue
		}
		report.LevelCounts[string(assessment.Level)]++
	}

	logger.InfoContext(ctx, "daily digest",
		"active_subscriptions", report.ActiveSubscriptions,
		"low", report.LevelCounts[string(types.LevelLow)],
		"moderate", report.LevelCounts[string(types.LevelModerate)],
		"high", report.LevelCounts[string(types.LevelHigh)],
		"critical", report.LevelCounts[string(types.LevelCritical)],
		"failures", report.EvaluationFailures,
		"dispatched", report.AlertsDispatched,
		"suppressed", report.AlertsSuppressed,
	)
	return nil
}
