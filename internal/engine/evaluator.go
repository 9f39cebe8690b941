// Package engine wires the evaluation pipeline together: provider fetch,
// plausibility filtering, conditional cross-validation, consensus, and risk
// scoring. It also exposes the subscription facade the API layer consumes.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"pestwatch/internal/consensus"
	"pestwatch/internal/history"
	"pestwatch/internal/observability"
	"pestwatch/internal/risk"
	"pestwatch/internal/types"
	"pestwatch/internal/weather"
)

// Provider fetch outcomes recorded in the provider_requests metric.
const (
	outcomeSuccess    = "success"
	outcomeError      = "error"
	outcomeSuspicious = "suspicious"
)

// EvaluatorConfig holds the dependencies for creating an Evaluator.
type EvaluatorConfig struct {
	Providers *weather.Registry
	Model     *risk.Model
	History   history.Source
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock

	// FetchTimeout bounds each individual provider call.
	FetchTimeout time.Duration

	// FanoutLimit caps concurrent secondary-provider calls.
	FanoutLimit int

	// DefaultHistoryDays stands in when the history source fails; chosen to
	// land in the lowest history step.
	DefaultHistoryDays int
}

// Evaluator runs the full pipeline for one location. It never returns an
// error for provider trouble: missing data degrades through the consensus
// fallback instead.
type Evaluator struct {
	providers *weather.Registry
	model     *risk.Model
	history   history.Source
	metrics   *observability.Metrics
	logger    *slog.Logger
	clock     clockwork.Clock

	fetchTimeout       time.Duration
	fanoutLimit        int
	defaultHistoryDays int
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	fanout := cfg.FanoutLimit
	if fanout <= 0 {
		fanout = 4
	}
	defaultHistory := cfg.DefaultHistoryDays
	if defaultHistory <= 0 {
		defaultHistory = 120
	}
	return &Evaluator{
		providers:          cfg.Providers,
		model:              cfg.Model,
		history:            cfg.History,
		metrics:            cfg.Metrics,
		logger:             logger,
		clock:              clock,
		fetchTimeout:       cfg.FetchTimeout,
		fanoutLimit:        fanout,
		defaultHistoryDays: defaultHistory,
	}
}

// Evaluate runs the pipeline: primary fetch, plausibility check, conditional
// secondary fan-out, consensus, then risk scoring against season and the
// subscriber's pest history.
func (e *Evaluator) Evaluate(ctx context.Context, loc types.Location, subscriberID string) (types.RiskAssessment, error) {
	return e.evaluate(ctx, loc, subscriberID, false)
}

// EvaluateValidated is Evaluate with the secondary fan-out forced on, for
// callers that explicitly demand cross-validation.
func (e *Evaluator) EvaluateValidated(ctx context.Context, loc types.Location, subscriberID string) (types.RiskAssessment, error) {
	return e.evaluate(ctx, loc, subscriberID, true)
}

func (e *Evaluator) evaluate(ctx context.Context, loc types.Location, subscriberID string, forceValidation bool) (types.RiskAssessment, error) {
	primary := e.fetchPrimary(ctx, loc)

	// Cross-validation multiplies outbound calls, so it runs only when the
	// primary is missing or suspicious, or the caller demands it.
	var secondaries []types.WeatherSample
	if primary == nil || forceValidation {
		secondaries = e.fetchSecondaries(ctx, loc)
	}

	result := consensus.Reconcile(primary, secondaries, loc)
	if e.metrics != nil {
		e.metrics.ConsensusResults.WithLabelValues(string(result.SourceLabel)).Inc()
	}
	if result.SourceLabel == types.SourceFallback {
		e.logger.WarnContext(ctx, "no provider data, using fallback sample",
			"lat", loc.Lat, "lon", loc.Lon)
	}

	historyDays, err := e.history.DaysSinceLastAttack(ctx, subscriberID)
	if err != nil {
		// History is an enrichment; fall back to "no known incidents".
		e.logger.ErrorContext(ctx, "pest history lookup failed, assuming no recent incidents",
			"subscriber_id", subscriberID, "error", err)
		historyDays = e.defaultHistoryDays
	}

	season := risk.SeasonFor(e.clock.Now().UTC(), loc.Lat)
	assessment := e.model.Assess(result, season, historyDays)
	if e.metrics != nil {
		e.metrics.Assessments.WithLabelValues(string(assessment.Level)).Inc()
	}

	e.logger.InfoContext(ctx, "assessment produced",
		"subscriber_id", subscriberID,
		"lat", loc.Lat, "lon", loc.Lon,
		"level", string(assessment.Level),
		"score", assessment.Score,
		"confidence", assessment.Confidence,
		"source", string(assessment.Source),
		"samples", result.SampleCount,
	)
	return assessment, nil
}

// fetchPrimary fetches from the primary provider and applies the plausibility
// filter. Returns nil when the fetch failed or the sample is suspicious.
func (e *Evaluator) fetchPrimary(ctx context.Context, loc types.Location) *types.WeatherSample {
	p := e.providers.Primary()
	sample, err := e.fetchOne(ctx, p, loc)
	if err != nil {
		e.logger.WarnContext(ctx, "primary provider fetch failed",
			"provider", p.Name(), "error", err)
		return nil
	}

	if fields := weather.SuspiciousFields(*sample); len(fields) > 0 {
		if e.metrics != nil {
			e.metrics.ProviderRequests.WithLabelValues(p.Name(), outcomeSuspicious).Inc()
		}
		e.logger.WarnContext(ctx, "primary sample rejected as implausible",
			"provider", p.Name(), "fields", fields)
		return nil
	}
	return sample
}

// fetchSecondaries fans out to every secondary provider concurrently, bounded
// by the fan-out limit. Each call has its own timeout; failures and
// suspicious samples are excluded rather than aborting the set.
func (e *Evaluator) fetchSecondaries(ctx context.Context, loc types.Location) []types.WeatherSample {
	providers := e.providers.Secondaries()
	if len(providers) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		samples []types.WeatherSample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.fanoutLimit)
	for _, p := range providers {
		g.Go(func() error {
			sample, err := e.fetchOne(gctx, p, loc)
			if err != nil {
				e.logger.WarnContext(gctx, "secondary provider fetch failed",
					"provider", p.Name(), "error", err)
				return nil
			}
			if fields := weather.SuspiciousFields(*sample); len(fields) > 0 {
				if e.metrics != nil {
					e.metrics.ProviderRequests.WithLabelValues(p.Name(), outcomeSuspicious).Inc()
				}
				e.logger.WarnContext(gctx, "secondary sample rejected as implausible",
					"provider", p.Name(), "fields", fields)
				return nil
			}
			mu.Lock()
			samples = append(samples, *sample)
			mu.Unlock()
			return nil
		})
	}
	// Goroutines never return errors; Wait only synchronizes.
	_ = g.Wait()
	return samples
}

// fetchOne performs a single provider call under the per-call timeout and
// records the outcome metric.
func (e *Evaluator) fetchOne(ctx context.Context, p weather.Provider, loc types.Location) (*types.WeatherSample, error) {
	fetchCtx := ctx
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	sample, err := p.Fetch(fetchCtx, loc.Lat, loc.Lon)
	if e.metrics != nil {
		outcome := outcomeSuccess
		if err != nil {
			outcome = outcomeError
		}
		e.metrics.ProviderRequests.WithLabelValues(p.Name(), outcome).Inc()
	}
	return sample, err
}
