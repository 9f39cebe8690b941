package registry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pestwatch/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx. The
// repository accepts this so the same code works inside or outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores subscriptions in the alert_subscriptions table.
type PostgresRepository struct {
	db DBTX
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository backed by the given connection
// (pool or transaction).
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DB exposes the underlying connection so sibling read-only lookups (the
// pest-history source) can share the pool.
func (r *PostgresRepository) DB() DBTX { return r.db }

const subscriptionColumns = `subscriber_id, contact, lat, lon, country, region,
	min_severity, last_alert_at, active, created_at, updated_at`

// Subscribe upserts the subscription. A returning subscriber gets their
// contact, location, and severity replaced and the record re-activated;
// last_alert_at is preserved so the cooldown survives a re-subscribe.
func (r *PostgresRepository) Subscribe(ctx context.Context, sub types.AlertSubscription) (types.AlertSubscription, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO alert_subscriptions
		 (subscriber_id, contact, lat, lon, country, region, min_severity, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		 ON CONFLICT (subscriber_id) DO UPDATE SET
		   contact = EXCLUDED.contact,
		   lat = EXCLUDED.lat,
		   lon = EXCLUDED.lon,
		   country = EXCLUDED.country,
		   region = EXCLUDED.region,
		   min_severity = EXCLUDED.min_severity,
		   active = TRUE,
		   updated_at = NOW()
		 RETURNING `+subscriptionColumns,
		sub.SubscriberID,
		sub.Contact,
		sub.Location.Lat,
		sub.Location.Lon,
		sub.Location.Country,
		sub.Location.Region,
		string(sub.MinSeverity),
	)

	stored, err := scanSubscriptionRow(row)
	if err != nil {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscription", err)
	}
	return stored, nil
}

// Unsubscribe deactivates the subscription, reporting whether an active
// record existed. Repeating the call is a no-op returning false.
func (r *PostgresRepository) Unsubscribe(ctx context.Context, subscriberID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_subscriptions SET active = FALSE, updated_at = NOW()
		 WHERE subscriber_id = $1 AND active = TRUE`,
		subscriberID,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate subscription", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns the subscription regardless of active state.
func (r *PostgresRepository) Get(ctx context.Context, subscriberID string) (types.AlertSubscription, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM alert_subscriptions WHERE subscriber_id = $1`,
		subscriberID,
	)

	sub, err := scanSubscriptionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.AlertSubscription{}, types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
		}
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve subscription", err)
	}
	return sub, nil
}

// ListActive returns every active subscription, oldest first so long-standing
// subscribers are evaluated earliest in a sweep.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]types.AlertSubscription, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM alert_subscriptions
		 WHERE active = TRUE ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query active subscriptions", err)
	}
	defer rows.Close()

	var subs []types.AlertSubscription
	for rows.Next() {
		sub, scanErr := scanSubscriptionRow(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan subscription row", scanErr)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating subscription rows", err)
	}
	return subs, nil
}

// MarkAlerted records the last alert timestamp. Concurrent sweeps race
// last-writer-wins, which is acceptable: re-sending an alert is idempotent
// and the single UPDATE is atomic per row.
func (r *PostgresRepository) MarkAlerted(ctx context.Context, subscriberID string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE alert_subscriptions SET last_alert_at = $2, updated_at = NOW()
		 WHERE subscriber_id = $1`,
		subscriberID,
		at.UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last_alert_at", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
	}
	return nil
}

// scanSubscriptionRow scans one subscription. Column order must match
// subscriptionColumns.
func scanSubscriptionRow(row pgx.Row) (types.AlertSubscription, error) {
	var (
		sub      types.AlertSubscription
		severity string
	)
	err := row.Scan(
		&sub.SubscriberID,
		&sub.Contact,
		&sub.Location.Lat,
		&sub.Location.Lon,
		&sub.Location.Country,
		&sub.Location.Region,
		&severity,
		&sub.LastAlertAt,
		&sub.Active,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return types.AlertSubscription{}, err
	}
	sub.MinSeverity = types.RiskLevel(severity)
	return sub, nil
}
