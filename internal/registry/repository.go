// Package registry persists alert subscriptions. Three backends implement the
// same contract: Postgres for shared deployments, embedded SQLite for
// single-node installs, and an in-memory map for local development and tests.
package registry

import (
	"context"
	"time"

	"pestwatch/internal/types"
)

// Repository is the subscription store contract. Implementations must allow
// concurrent readers while a sweep iterates and must apply per-record atomic
// updates; a MarkAlerted write may lose to a concurrent later write but must
// never be silently dropped against an older value.
type Repository interface {
	// Subscribe creates the subscription or, if the subscriber already has
	// one, replaces its contact, location, and minimum severity and
	// re-activates it. The stored record is returned.
	Subscribe(ctx context.Context, sub types.AlertSubscription) (types.AlertSubscription, error)

	// Unsubscribe deactivates the subscription. It is idempotent and reports
	// whether an active record existed. The record itself is retained.
	Unsubscribe(ctx context.Context, subscriberID string) (bool, error)

	// Get returns the subscription, active or not. A missing record yields an
	// AppError with code ErrCodeNotFoundSubscription.
	Get(ctx context.Context, subscriberID string) (types.AlertSubscription, error)

	// ListActive returns every active subscription.
	ListActive(ctx context.Context) ([]types.AlertSubscription, error)

	// MarkAlerted records when the subscriber was last sent an alert.
	MarkAlerted(ctx context.Context, subscriberID string, at time.Time) error
}
