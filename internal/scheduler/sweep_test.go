package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pestwatch/internal/observability"
	"pestwatch/internal/types"
)

// --- Fakes ---

type fakeStore struct {
	subs    []types.AlertSubscription
	listErr error

	marked  []string
	markErr error
}

func (f *fakeStore) ListActive(context.Context) ([]types.AlertSubscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeStore) MarkAlerted(_ context.Context, subscriberID string, _ time.Time) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, subscriberID)
	return nil
}

type fakeEvaluator struct {
	// levels maps subscriber id to the level to return; unknown ids error.
	levels map[string]types.RiskLevel
	calls  []string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ types.Location, subscriberID string) (types.RiskAssessment, error) {
	f.calls = append(f.calls, subscriberID)
	level, ok := f.levels[subscriberID]
	if !ok {
		return types.RiskAssessment{}, errors.New("evaluation blew up")
	}
	return types.RiskAssessment{
		Level:   level,
		Score:   0.9,
		Message: "Pest risk " + string(level),
	}, nil
}

type fakeTransport struct {
	sent    []string
	failFor map[string]bool
}

func (f *fakeTransport) Send(_ context.Context, contact string, _ string) error {
	if f.failFor[contact] {
		return errors.New("delivery channel down")
	}
	f.sent = append(f.sent, contact)
	return nil
}

func sweepSubscription(id string, minSeverity types.RiskLevel) types.AlertSubscription {
	return types.AlertSubscription{
		SubscriberID: id,
		Contact:      "contact-" + id,
		Location:     types.Location{Lat: 6.45, Lon: 2.35},
		MinSeverity:  minSeverity,
		Active:       true,
	}
}

func newTestSweeper(store *fakeStore, eval *fakeEvaluator, transport *fakeTransport, clock clockwork.Clock, delay time.Duration) *Sweeper {
	return NewSweeper(SweeperConfig{
		Store:           store,
		Evaluator:       eval,
		Transport:       transport,
		Metrics:         observability.NewMetricsForTesting(),
		Logger:          slog.New(slog.DiscardHandler),
		Clock:           clock,
		Cooldown:        6 * time.Hour,
		SubscriberDelay: delay,
	})
}

// --- Tests ---

func TestRunGeneral_DispatchesAndMarks(t *testing.T) {
	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("hot", types.LevelModerate),
		sweepSubscription("calm", types.LevelModerate),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"hot":  types.LevelHigh,
		"calm": types.LevelLow,
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	require.NoError(t, s.RunGeneral(context.Background()))

	assert.Equal(t, []string{"hot", "calm"}, eval.calls)
	assert.Equal(t, []string{"contact-hot"}, transport.sent)
	assert.Equal(t, []string{"hot"}, store.marked)
}

func TestRunGeneral_ListFailureSkipsRun(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	err := s.RunGeneral(context.Background())

	assert.Error(t, err)
	assert.Empty(t, eval.calls)
	assert.Empty(t, transport.sent)
}

func TestRunGeneral_OneFailureDoesNotAbortSweep(t *testing.T) {
	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("broken", types.LevelLow),
		sweepSubscription("fine", types.LevelLow),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		// "broken" is absent, so its evaluation errors.
		"fine": types.LevelHigh,
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	require.NoError(t, s.RunGeneral(context.Background()))

	assert.Equal(t, []string{"contact-fine"}, transport.sent)
}

func TestRunGeneral_TransportFailureContinuesAndSkipsMark(t *testing.T) {
	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("undeliverable", types.LevelLow),
		sweepSubscription("fine", types.LevelLow),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"undeliverable": types.LevelHigh,
		"fine":          types.LevelHigh,
	}}
	transport := &fakeTransport{failFor: map[string]bool{"contact-undeliverable": true}}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	require.NoError(t, s.RunGeneral(context.Background()))

	// The failed send is not recorded as alerted; the next run retries it.
	assert.Equal(t, []string{"contact-fine"}, transport.sent)
	assert.Equal(t, []string{"fine"}, store.marked)
}

func TestRunGeneral_CooldownSuppresses(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	recent := clock.Now().Add(-time.Hour)

	sub := sweepSubscription("recently-alerted", types.LevelLow)
	sub.LastAlertAt = &recent

	store := &fakeStore{subs: []types.AlertSubscription{sub}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{"recently-alerted": types.LevelHigh}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clock, 0)
	require.NoError(t, s.RunGeneral(context.Background()))

	assert.Empty(t, transport.sent)
	assert.Empty(t, store.marked)
}

func TestRunCritical_DispatchesOnlyCritical(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))
	recent := clock.Now().Add(-time.Hour)

	critical := sweepSubscription("critical", types.LevelLow)
	critical.LastAlertAt = &recent // cooldown would normally suppress

	store := &fakeStore{subs: []types.AlertSubscription{
		critical,
		sweepSubscription("high", types.LevelLow),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"critical": types.LevelCritical,
		"high":     types.LevelHigh,
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clock, 0)
	require.NoError(t, s.RunCritical(context.Background()))

	assert.Equal(t, []string{"contact-critical"}, transport.sent)
	assert.Equal(t, []string{"critical"}, store.marked)
}

func TestRunDigest_AggregatesWithoutDispatching(t *testing.T) {
	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("a", types.LevelLow),
		sweepSubscription("b", types.LevelLow),
		sweepSubscription("c", types.LevelLow),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"a": types.LevelCritical,
		"b": types.LevelLow,
		// "c" errors, counted as a failure.
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	require.NoError(t, s.RunDigest(context.Background()))

	assert.Empty(t, transport.sent)
	assert.Empty(t, store.marked)
	assert.Equal(t, []string{"a", "b", "c"}, eval.calls)
}

func TestRunDigest_ReportsAndResetsSweepWindow(t *testing.T) {
	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("hot", types.LevelModerate),
		sweepSubscription("calm", types.LevelModerate),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"hot":  types.LevelHigh,
		"calm": types.LevelLow, // suppressed below min severity
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clockwork.NewRealClock(), 0)
	require.NoError(t, s.RunGeneral(context.Background()))

	s.windowMu.Lock()
	assert.Equal(t, 1, s.windowDispatched)
	assert.Equal(t, 1, s.windowSuppressed)
	s.windowMu.Unlock()

	// The digest consumes the window.
	require.NoError(t, s.RunDigest(context.Background()))

	s.windowMu.Lock()
	assert.Equal(t, 0, s.windowDispatched)
	assert.Equal(t, 0, s.windowSuppressed)
	s.windowMu.Unlock()
}

func TestRun_InterSubscriberDelayUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))

	store := &fakeStore{subs: []types.AlertSubscription{
		sweepSubscription("first", types.LevelLow),
		sweepSubscription("second", types.LevelLow),
	}}
	eval := &fakeEvaluator{levels: map[string]types.RiskLevel{
		"first":  types.LevelLow,
		"second": types.LevelLow,
	}}
	transport := &fakeTransport{}

	s := newTestSweeper(store, eval, transport, clock, 500*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.RunGeneral(context.Background()) }()

	// The sweep parks once between the two subscribers.
	clock.BlockUntil(1)
	clock.Advance(500 * time.Millisecond)

	require.NoError(t, <-done)
	assert.Equal(t, []string{"first", "second"}, eval.calls)
}
