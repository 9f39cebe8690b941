package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pestwatch/internal/types"
)

// The memory and sqlite backends share one conformance suite; the postgres
// backend runs the same SQL shape against pgx and is covered by integration
// environments.
func backends(t *testing.T) map[string]Repository {
	t.Helper()

	sqliteRepo, err := OpenSQLite(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteRepo.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqliteRepo,
	}
}

func testSubscription(id string) types.AlertSubscription {
	return types.AlertSubscription{
		SubscriberID: id,
		Contact:      "+22990000001",
		Location:     types.Location{Lat: 6.45, Lon: 2.35},
		MinSeverity:  types.LevelModerate,
	}
}

func TestRepository_SubscribeAndGet(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			stored, err := repo.Subscribe(ctx, testSubscription("farmer-1"))
			require.NoError(t, err)
			assert.True(t, stored.Active)
			assert.Equal(t, types.LevelModerate, stored.MinSeverity)
			assert.Nil(t, stored.LastAlertAt)

			got, err := repo.Get(ctx, "farmer-1")
			require.NoError(t, err)
			assert.Equal(t, stored.SubscriberID, got.SubscriberID)
			assert.Equal(t, stored.Contact, got.Contact)
		})
	}
}

func TestRepository_SubscribeUpsertsAndReactivates(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Subscribe(ctx, testSubscription("farmer-2"))
			require.NoError(t, err)

			existed, err := repo.Unsubscribe(ctx, "farmer-2")
			require.NoError(t, err)
			assert.True(t, existed)

			updated := testSubscription("farmer-2")
			updated.Contact = "+22990000002"
			updated.MinSeverity = types.LevelHigh

			stored, err := repo.Subscribe(ctx, updated)
			require.NoError(t, err)
			assert.True(t, stored.Active)
			assert.Equal(t, "+22990000002", stored.Contact)
			assert.Equal(t, types.LevelHigh, stored.MinSeverity)
		})
	}
}

func TestRepository_UnsubscribeIsIdempotent(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Subscribe(ctx, testSubscription("farmer-3"))
			require.NoError(t, err)

			existed, err := repo.Unsubscribe(ctx, "farmer-3")
			require.NoError(t, err)
			assert.True(t, existed)

			existed, err = repo.Unsubscribe(ctx, "farmer-3")
			require.NoError(t, err)
			assert.False(t, existed)

			existed, err = repo.Unsubscribe(ctx, "never-subscribed")
			require.NoError(t, err)
			assert.False(t, existed)

			// The record survives deactivation for audit history.
			got, err := repo.Get(ctx, "farmer-3")
			require.NoError(t, err)
			assert.False(t, got.Active)
		})
	}
}

func TestRepository_GetMissingIsNotFound(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "nobody")

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeNotFoundSubscription, appErr.Code)
		})
	}
}

func TestRepository_ListActiveExcludesInactive(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Subscribe(ctx, testSubscription("active-1"))
			require.NoError(t, err)
			_, err = repo.Subscribe(ctx, testSubscription("active-2"))
			require.NoError(t, err)
			_, err = repo.Subscribe(ctx, testSubscription("gone-1"))
			require.NoError(t, err)
			_, err = repo.Unsubscribe(ctx, "gone-1")
			require.NoError(t, err)

			subs, err := repo.ListActive(ctx)
			require.NoError(t, err)

			ids := make([]string, 0, len(subs))
			for _, s := range subs {
				ids = append(ids, s.SubscriberID)
			}
			assert.ElementsMatch(t, []string{"active-1", "active-2"}, ids)
		})
	}
}

func TestRepository_MarkAlerted(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := repo.Subscribe(ctx, testSubscription("farmer-4"))
			require.NoError(t, err)

			at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
			require.NoError(t, repo.MarkAlerted(ctx, "farmer-4", at))

			got, err := repo.Get(ctx, "farmer-4")
			require.NoError(t, err)
			require.NotNil(t, got.LastAlertAt)
			assert.Equal(t, at, got.LastAlertAt.UTC())

			err = repo.MarkAlerted(ctx, "nobody", at)
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeNotFoundSubscription, appErr.Code)
		})
	}
}
