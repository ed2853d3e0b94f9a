package repository

import (
	"context"
	"errors"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
)

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(pool db.DBTX) *BookingRepository {
	return &BookingRepository{db: pool}
}

const createBookingQuery = `
INSERT INTO bookings (id, room_id, guest_id, stay, nightly_rate_cents, total_cents, status, idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING id`

// Create inserts the booking. The bookings_no_overlap exclusion constraint
// rejects any insert whose stay overlaps a live booking for the same room,
// atomically with the insert itself.
func (r *BookingRepository) Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error) {
	stay := pgconv.DateRangeToPgtype(b.StaySpan().CheckIn(), b.StaySpan().CheckOut())

	var id uuid.UUID
	err := tx.QueryRow(ctx, createBookingQuery,
		b.ID(),
		b.RoomID(),
		b.GuestID(),
		stay,
		b.NightlyRate().Cents(),
		b.Total().Cents(),
		string(b.Status()),
		b.IdempotencyKey(),
		b.CreatedAt(),
	).Scan(&id)
	if err != nil {
		if isOverlapViolation(err) {
			return uuid.Nil, infra.WrapRepoErr("booking dates overlap an existing booking", err, infra.KindConflict)
		}
		return uuid.Nil, infra.WrapRepoErr("failed to create booking", err)
	}

	return id, nil
}

const transitionBookingQuery = `
UPDATE bookings
SET status = $2, updated_at = $3
WHERE id = $1 AND status = 'pending'`

const bookingStatusQuery = `
SELECT status FROM bookings WHERE id = $1`

// Confirm moves a pending booking to confirmed. Returns false without error
// when the booking is already terminal.
func (r *BookingRepository) Confirm(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, tx, id, booking.StatusConfirmed, now)
}

// Cancel moves a pending booking to cancelled. Returns false without error
// when the booking is already terminal.
func (r *BookingRepository) Cancel(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error) {
	return r.transition(ctx, tx, id, booking.StatusCancelled, now)
}

func (r *BookingRepository) transition(ctx context.Context, tx db.DBTX, id uuid.UUID, next booking.Status, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, transitionBookingQuery, id, string(next), now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to update booking status", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// The guard matched nothing: either the booking does not exist or it
	// already left pending. Distinguish the two for the caller.
	var current string
	if err := tx.QueryRow(ctx, bookingStatusQuery, id).Scan(&current); err != nil {
		if pgconv.IsNoRows(err) {
			return false, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return false, infra.WrapRepoErr("failed to read booking status", err)
	}
	return false, nil
}

const expiredPendingQuery = `
UPDATE bookings
SET status = 'cancelled', updated_at = $2
WHERE status = 'pending' AND created_at < $1
RETURNING id`

// CancelExpired cancels every pending booking created before the cutoff and
// returns the IDs it reclaimed.
func (r *BookingRepository) CancelExpired(ctx context.Context, tx db.DBTX, cutoff, now time.Time) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, expiredPendingQuery, cutoff, now)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to cancel expired bookings", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired booking id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired bookings", err)
	}

	return ids, nil
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolation || pgErr.Code == pgUniqueViolation
	}
	return false
}
