package commands

import (
	"context"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"
	"staybook/internal/infra/db"

	"github.com/google/uuid"
)

// Write-side snapshots prevent dependency on read-side query types (CQRS separation)
type RoomSnapshot struct {
	ID               uuid.UUID
	Name             string
	NightlyRateCents int64
}

type IdempotencyRecord struct {
	Key             uuid.UUID
	GuestID         uuid.UUID
	Status          string
	RequestHash     string
	ResultBookingID *uuid.UUID
	ExpiresAt       time.Time
}

// GatewaySession is the synchronous half of the payment gateway contract:
// the asynchronous half arrives later as a webhook correlated by ID alone.
type GatewaySession struct {
	ID  string
	URL string
}

type BookingRepository interface {
	// Create is atomic with respect to the no-overlap invariant: either the
	// booking is inserted with no overlapping live booking for the room, or
	// the store rejects with a conflict and nothing is written.
	Create(ctx context.Context, tx db.DBTX, b *booking.Booking) (uuid.UUID, error)
	// Confirm and Cancel are idempotent; terminal bookings are left untouched
	// and reported as unchanged.
	Confirm(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error)
	Cancel(ctx context.Context, tx db.DBTX, id uuid.UUID, now time.Time) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, tx db.DBTX, s *payment.Session) error
	FindByGatewayID(ctx context.Context, tx db.DBTX, gatewaySessionID string) (*payment.Session, error)
	Settle(ctx context.Context, tx db.DBTX, id uuid.UUID, status payment.SessionStatus, now time.Time) (bool, error)
}

type RoomRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RoomSnapshot, error)
}

// AvailabilityReads is the advisory pre-check; a positive answer is a fast
// path only and is always re-validated by BookingRepository.Create.
type AvailabilityReads interface {
	RoomAvailable(ctx context.Context, roomID uuid.UUID, span booking.DateRange) (bool, error)
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this attempt. inserted=false means some
	// earlier attempt holds the key; callers consult Get to decide replay vs
	// conflict.
	TryInsert(ctx context.Context, key, guestID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (inserted bool, err error)
	Get(ctx context.Context, key, guestID uuid.UUID) (*IdempotencyRecord, error)
	UpdateStatusCompleted(ctx context.Context, tx db.DBTX, key, guestID uuid.UUID, resultBookingID uuid.UUID) error
	Delete(ctx context.Context, key, guestID uuid.UUID) error
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, bookingID uuid.UUID, amount booking.Money) (*GatewaySession, error)
}
