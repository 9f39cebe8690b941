package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"pestwatch/internal/types"
)

// MemoryRepository keeps subscriptions in a process-local map. Used for local
// development and tests; state is lost on restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[string]types.AlertSubscription
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[string]types.AlertSubscription)}
}

// Subscribe upserts the subscription, preserving LastAlertAt and CreatedAt
// across re-subscribes.
func (r *MemoryRepository) Subscribe(_ context.Context, sub types.AlertSubscription) (types.AlertSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := sub
	stored.Active = true
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.LastAlertAt = nil

	if existing, ok := r.subs[sub.SubscriberID]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.LastAlertAt = existing.LastAlertAt
	}

	r.subs[sub.SubscriberID] = stored
	return stored, nil
}

// Unsubscribe deactivates the subscription; idempotent.
func (r *MemoryRepository) Unsubscribe(_ context.Context, subscriberID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[subscriberID]
	if !ok || !sub.Active {
		return false, nil
	}
	sub.Active = false
	sub.UpdatedAt = time.Now().UTC()
	r.subs[subscriberID] = sub
	return true, nil
}

// Get returns the subscription regardless of active state.
func (r *MemoryRepository) Get(_ context.Context, subscriberID string) (types.AlertSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subs[subscriberID]
	if !ok {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
	}
	return sub, nil
}

// ListActive returns every active subscription, oldest first.
func (r *MemoryRepository) ListActive(_ context.Context) ([]types.AlertSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []types.AlertSubscription
	for _, sub := range r.subs {
		if sub.Active {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].SubscriberID < subs[j].SubscriberID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// MarkAlerted records the last alert timestamp.
func (r *MemoryRepository) MarkAlerted(_ context.Context, subscriberID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[subscriberID]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
	}
	t := at.UTC()
	sub.LastAlertAt = &t
	sub.UpdatedAt = time.Now().UTC()
	r.subs[subscriberID] = sub
	return nil
}
