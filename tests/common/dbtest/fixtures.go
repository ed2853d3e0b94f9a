//go:build unit || e2e

package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestRoom inserts a room and returns its ID.
func CreateTestRoom(t *testing.T, pool *pgxpool.Pool, name string, nightlyRateCents int64) uuid.UUID {
	t.Helper()

	roomID := uuid.New()
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		"INSERT INTO rooms (id, name, nightly_rate_cents) VALUES ($1, $2, $3)",
		roomID, name, nightlyRateCents)
	require.NoError(t, err)

	return roomID
}

// BackdateBooking rewinds a booking's created_at so sweeper tests can age a
// pending booking past the payment window.
func BackdateBooking(t *testing.T, pool *pgxpool.Pool, bookingID uuid.UUID, age time.Duration) {
	t.Helper()

	ctx := context.Background()
	tag, err := pool.Exec(ctx,
		"UPDATE bookings SET created_at = created_at - make_interval(secs => $2) WHERE id = $1",
		bookingID, age.Seconds())
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())
}

// BookingStatus reads a booking's current status directly.
func BookingStatus(t *testing.T, pool *pgxpool.Pool, bookingID uuid.UUID) string {
	t.Helper()

	var status string
	err := pool.QueryRow(context.Background(),
		"SELECT status FROM bookings WHERE id = $1", bookingID).Scan(&status)
	require.NoError(t, err)
	return status
}

// BookingIdempotencyKey reads the idempotency key persisted on a booking row.
func BookingIdempotencyKey(t *testing.T, pool *pgxpool.Pool, bookingID uuid.UUID) uuid.UUID {
	t.Helper()

	var key uuid.UUID
	err := pool.QueryRow(context.Background(),
		"SELECT idempotency_key FROM bookings WHERE id = $1", bookingID).Scan(&key)
	require.NoError(t, err)
	return key
}

// ForceCancelBooking cancels a booking directly, bypassing the usecase layer,
// so tests can stage a terminal booking whose session is still open.
func ForceCancelBooking(t *testing.T, pool *pgxpool.Pool, bookingID uuid.UUID) {
	t.Helper()

	tag, err := pool.Exec(context.Background(),
		"UPDATE bookings SET status = 'cancelled', updated_at = now() WHERE id = $1",
		bookingID)
	require.NoError(t, err)
	require.EqualValues(t, 1, tag.RowsAffected())
}

// SessionStatusByGatewayID reads a payment session's current status.
func SessionStatusByGatewayID(t *testing.T, pool *pgxpool.Pool, gatewaySessionID string) string {
	t.Helper()

	var status string
	err := pool.QueryRow(context.Background(),
		"SELECT status FROM payment_sessions WHERE gateway_session_id = $1", gatewaySessionID).Scan(&status)
	require.NoError(t, err)
	return status
}

// ResetDB truncates mutable tables and reseeds reference data, giving each
// subtest a clean slate without rebuilding the schema.
func ResetDB(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		"TRUNCATE idempotency_keys, payment_sessions, bookings, rooms CASCADE")
	if err != nil {
		return err
	}

	return SeedReferenceData(pool)
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO rooms (id, name, nightly_rate_cents)
		VALUES
			('00000000-0000-0000-0000-000000000001', 'Standard Single', 8000),
			('00000000-0000-0000-0000-000000000002', 'Seaside Double', 10000)
		ON CONFLICT (id) DO NOTHING`)
	return err
}

var (
	RoomStandardSingleID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	RoomSeasideDoubleID  = uuid.MustParse("00000000-0000-0000-0000-000000000002")
)
