package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pestwatch/internal/types"
)

// SQLiteRepository stores subscriptions in an embedded SQLite database for
// single-node deployments without a Postgres server. Timestamps are stored as
// Unix seconds; severities as their string form.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS alert_subscriptions (
	subscriber_id TEXT PRIMARY KEY,
	contact       TEXT NOT NULL,
	lat           REAL NOT NULL,
	lon           REAL NOT NULL,
	country       TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	min_severity  TEXT NOT NULL,
	last_alert_at INTEGER,
	active        INTEGER NOT NULL DEFAULT 1,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON alert_subscriptions(active);
`

// OpenSQLite opens (creating if needed) the database file and ensures the
// schema exists. The single connection limit serializes writers, which SQLite
// requires anyway; readers share it without contention at this scale.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("registry: open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: apply sqlite schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error { return r.db.Close() }

// Subscribe upserts the subscription, preserving last_alert_at across
// re-subscribes.
func (r *SQLiteRepository) Subscribe(ctx context.Context, sub types.AlertSubscription) (types.AlertSubscription, error) {
	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_subscriptions
		 (subscriber_id, contact, lat, lon, country, region, min_severity, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (subscriber_id) DO UPDATE SET
		   contact = excluded.contact,
		   lat = excluded.lat,
		   lon = excluded.lon,
		   country = excluded.country,
		   region = excluded.region,
		   min_severity = excluded.min_severity,
		   active = 1,
		   updated_at = excluded.updated_at`,
		sub.SubscriberID,
		sub.Contact,
		sub.Location.Lat,
		sub.Location.Lon,
		sub.Location.Country,
		sub.Location.Region,
		string(sub.MinSeverity),
		now,
		now,
	)
	if err != nil {
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeInternalDB, "failed to upsert subscription", err)
	}
	return r.Get(ctx, sub.SubscriberID)
}

// Unsubscribe deactivates the subscription; idempotent.
func (r *SQLiteRepository) Unsubscribe(ctx context.Context, subscriberID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_subscriptions SET active = 0, updated_at = ?
		 WHERE subscriber_id = ? AND active = 1`,
		time.Now().UTC().Unix(),
		subscriberID,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to deactivate subscription", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to read rows affected", err)
	}
	return n > 0, nil
}

const sqliteSubscriptionColumns = `subscriber_id, contact, lat, lon, country, region,
	min_severity, last_alert_at, active, created_at, updated_at`

// Get returns the subscription regardless of active state.
func (r *SQLiteRepository) Get(ctx context.Context, subscriberID string) (types.AlertSubscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteSubscriptionColumns+` FROM alert_subscriptions WHERE subscriber_id = ?`,
		subscriberID,
	)

	sub, err := scanSQLiteSubscription(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AlertSubscription{}, types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
		}
		return types.AlertSubscription{}, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve subscription", err)
	}
	return sub, nil
}

// ListActive returns every active subscription, oldest first.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]types.AlertSubscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteSubscriptionColumns+` FROM alert_subscriptions
		 WHERE active = 1 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query active subscriptions", err)
	}
	defer rows.Close()

	var subs []types.AlertSubscription
	for rows.Next() {
		sub, scanErr := scanSQLiteSubscription(rows.Scan)
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

// MarkAlerted records the last alert timestamp.
func (r *SQLiteRepository) MarkAlerted(ctx context.Context, subscriberID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE alert_subscriptions SET last_alert_at = ?, updated_at = ?
		 WHERE subscriber_id = ?`,
		at.UTC().Unix(),
		time.Now().UTC().Unix(),
		subscriberID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last_alert_at", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to read rows affected", err)
	}
	if n == 0 {
		return types.NewAppError(types.ErrCodeNotFoundSubscription, "subscription not found", nil)
	}
	return nil
}

// scanSQLiteSubscription scans one row via the given Scan function, converting
// Unix-second timestamps back to time.Time.
func scanSQLiteSubscription(scan func(dest ...any) error) (types.AlertSubscription, error) {
	var (
		sub         types.AlertSubscription
		severity    string
		lastAlert   sql.NullInt64
		createdUnix int64
		updatedUnix int64
	)
	err := scan(
		&sub.SubscriberID,
		&sub.Contact,
		&sub.Location.Lat,
		&sub.Location.Lon,
		&sub.Location.Country,
		&sub.Location.Region,
		&severity,
		&lastAlert,
		&sub.Active,
		&createdUnix,
		&updatedUnix,
	)
	if err != nil {
		return types.AlertSubscription{}, err
	}
	sub.MinSeverity = types.RiskLevel(severity)
	if lastAlert.Valid {
		t := time.Unix(lastAlert.Int64, 0).UTC()
		sub.LastAlertAt = &t
	}
	sub.CreatedAt = time.Unix(createdUnix, 0).UTC()
	sub.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	return sub, nil
}
