package history

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pestwatch/internal/types"
)

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error { return r.scan(dest...) }

type stubQuerier struct {
	row     stubRow
	gotArgs []any
}

func (q *stubQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.gotArgs = args
	return q.row
}

func TestStaticSource_ReturnsConfiguredDays(t *testing.T) {
	s := StaticSource{Days: 120}

	days, err := s.DaysSinceLastAttack(context.Background(), "farmer-1")

	require.NoError(t, err)
	assert.Equal(t, 120, days)
}

func TestPostgresSource_ReturnsDaysSinceLastAttack(t *testing.T) {
	q := &stubQuerier{row: stubRow{scan: func(dest ...any) error {
		*dest[0].(*int) = 42
		return nil
	}}}
	s := NewPostgresSource(q, 120)

	days, err := s.DaysSinceLastAttack(context.Background(), "farmer-1")

	require.NoError(t, err)
	assert.Equal(t, 42, days)
	assert.Equal(t, []any{"farmer-1"}, q.gotArgs)
}

func TestPostgresSource_NoIncidentsDefaults(t *testing.T) {
	q := &stubQuerier{row: stubRow{scan: func(...any) error {
		return pgx.ErrNoRows
	}}}
	s := NewPostgresSource(q, 120)

	days, err := s.DaysSinceLastAttack(context.Background(), "never-attacked")

	require.NoError(t, err)
	assert.Equal(t, 120, days)
}

func TestPostgresSource_QueryFailureIsDatabaseError(t *testing.T) {
	q := &stubQuerier{row: stubRow{scan: func(...any) error {
		return errors.New("connection reset")
	}}}
	s := NewPostgresSource(q, 120)

	_, err := s.DaysSinceLastAttack(context.Background(), "farmer-1")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
