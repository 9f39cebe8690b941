// Package history looks up per-subscriber pest incident history. The
// historical-incident store is owned by an external collaborator; this
// package only reads it, and degrades to a pessimism-free default when no
// record exists.
package history

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"pestwatch/internal/types"
)

// Source answers "how many days since this subscriber's last confirmed pest
// attack". Implementations must treat an unknown subscriber as non-fatal.
type Source interface {
	// DaysSinceLastAttack returns the day count for the subscriber, or the
	// source's configured default when no incident is on record.
	DaysSinceLastAttack(ctx context.Context, subscriberID string) (int, error)
}

// StaticSource returns the same day count for every subscriber. It is the
// default when no incident store is wired up; the count is chosen to land in
// the lowest history step so absent data never inflates risk.
type StaticSource struct {
	Days int
}

var _ Source = StaticSource{}

// DaysSinceLastAttack implements Source.
func (s StaticSource) DaysSinceLastAttack(context.Context, string) (int, error) {
	return s.Days, nil
}

// rowQuerier is the read-only slice of the pgx connection surface this
// package needs.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSource reads the external pest_incidents table. Only confirmed
// incidents count.
type PostgresSource struct {
	db          rowQuerier
	defaultDays int
}

var _ Source = (*PostgresSource)(nil)

// NewPostgresSource creates a source reading from the given connection.
// defaultDays is returned for subscribers with no confirmed incidents.
func NewPostgresSource(db rowQuerier, defaultDays int) *PostgresSource {
	return &PostgresSource{db: db, defaultDays: defaultDays}
}

// DaysSinceLastAttack implements Source.
func (s *PostgresSource) DaysSinceLastAttack(ctx context.Context, subscriberID string) (int, error) {
	var days int
	err := s.db.QueryRow(ctx,
		`SELECT EXTRACT(DAY FROM NOW() - MAX(occurred_at))::int
		 FROM pest_incidents
		 WHERE subscriber_id = $1 AND confirmed = TRUE
		 HAVING MAX(occurred_at) IS NOT NULL`,
		subscriberID,
	).Scan(&days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.defaultDays, nil
		}
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to query pest history", err)
	}
	return days, nil
}
