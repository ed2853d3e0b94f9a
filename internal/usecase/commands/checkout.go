package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"
	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/errs"
	"staybook/internal/pkg/metrics"
	"staybook/internal/usecase/queries"
	"staybook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRoomNotFound            = errs.New("room not found")
	ErrIdempotencyKeyRequired  = errs.New("idempotency key required")
	ErrInvalidDateRange        = errs.New("invalid date range")
	ErrRoomUnavailable         = errs.New("room unavailable")
	ErrDuplicateCheckout       = errs.New("duplicate checkout request")
	ErrIdempotencyInProgress   = errs.New("idempotency in progress")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrGatewayUnavailable      = errs.New("payment gateway unavailable")
	ErrGatewayRejected         = errs.New("payment gateway rejected session")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

const checkoutEndpoint = "POST /bookings"

type CreateCheckoutParams struct {
	RoomID   uuid.UUID `json:"room_id"`
	GuestID  uuid.UUID `json:"guest_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type CheckoutResult struct {
	Booking    *queries.BookingView
	SessionURL string
	IsReplayed bool
}

type CheckoutCommands interface {
	CreateCheckout(ctx context.Context, params CreateCheckoutParams, idempotencyKey uuid.UUID) (*CheckoutResult, error)
}

type checkoutUseCaseImpl struct {
	bookingRepo     BookingRepository
	sessionRepo     SessionRepository
	roomRepo        RoomRepository
	availability    AvailabilityReads
	idempotencyRepo IdempotencyRepository
	gateway         PaymentGateway
	bookingQueries  queries.BookingQueries
	db              *pgxpool.Pool
	clock           clock.Clock
	metrics         *metrics.Metrics
}

func NewCheckoutCommands(
	bookingRepo BookingRepository,
	sessionRepo SessionRepository,
	roomRepo RoomRepository,
	availability AvailabilityReads,
	idempotencyRepo IdempotencyRepository,
	gateway PaymentGateway,
	bookingQueries queries.BookingQueries,
	db *pgxpool.Pool,
	clock clock.Clock,
	metrics *metrics.Metrics,
) CheckoutCommands {
	return &checkoutUseCaseImpl{
		bookingRepo:     bookingRepo,
		sessionRepo:     sessionRepo,
		roomRepo:        roomRepo,
		availability:    availability,
		idempotencyRepo: idempotencyRepo,
		gateway:         gateway,
		bookingQueries:  bookingQueries,
		db:              db,
		clock:           clock,
		metrics:         metrics,
	}
}

func (c *checkoutUseCaseImpl) CreateCheckout(
	ctx context.Context,
	params CreateCheckoutParams,
	idempotencyKey uuid.UUID,
) (*CheckoutResult, error) {
	requestHash := c.calculateRequestHash(params)
	expiresAt := c.clock.Now().Add(24 * time.Hour)

	replayed, err := c.handleIdempotency(ctx, idempotencyKey, params.GuestID, requestHash, expiresAt)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeReplayed).Inc()
		return replayed, nil
	}

	result, err := c.createNewCheckout(ctx, params, idempotencyKey)
	if err != nil {
		c.countFailure(err)
		return nil, err
	}

	c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeCreated).Inc()
	return result, nil
}

func (c *checkoutUseCaseImpl) handleIdempotency(
	ctx context.Context,
	idempotencyKey, guestID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (*CheckoutResult, error) {
	inserted, err := c.idempotencyRepo.TryInsert(ctx, idempotencyKey, guestID, checkoutEndpoint, requestHash, expiresAt)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}
	if inserted {
		// This attempt owns the key; proceed with a fresh checkout.
		return nil, nil
	}

	existing, err := c.idempotencyRepo.Get(ctx, idempotencyKey, guestID)
	if err != nil {
		return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
	}

	switch existing.Status {
	case "completed":
		if existing.ResultBookingID == nil {
			return nil, errs.New("completed request missing result booking ID")
		}
		view, err := c.bookingQueries.GetByID(ctx, *existing.ResultBookingID)
		if err != nil {
			return nil, errs.Mark(err, ErrIdempotencyCheckFailed)
		}
		result := &CheckoutResult{Booking: view, IsReplayed: true}
		if view.CheckoutURL != nil {
			result.SessionURL = *view.CheckoutURL
		}
		return result, nil

	case "processing":
		if existing.RequestHash != requestHash {
			return nil, ErrDuplicateCheckout
		}
		return nil, ErrIdempotencyInProgress

	default:
		return nil, errs.New("invalid idempotency key status")
	}
}

func (c *checkoutUseCaseImpl) createNewCheckout(
	ctx context.Context,
	params CreateCheckoutParams,
	idempotencyKey uuid.UUID,
) (*CheckoutResult, error) {
	// Validation first: nothing below runs, and no state is touched, for a
	// bad date range.
	span, err := booking.NewDateRange(params.CheckIn, params.CheckOut)
	if err != nil {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, errs.Mark(err, ErrInvalidDateRange)
	}

	room, err := c.loadRoom(ctx, params.RoomID)
	if err != nil {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, err
	}

	rate, err := booking.NewMoney(room.NightlyRateCents)
	if err != nil {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	// Advisory pre-check: fast feedback only. The exclusion constraint inside
	// Create stays authoritative for the race two concurrent guests can run.
	available, err := c.availability.RoomAvailable(ctx, params.RoomID, span)
	if err != nil {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if !available {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, ErrRoomUnavailable
	}

	entity := booking.NewPendingBooking(params.RoomID, params.GuestID, span, rate, idempotencyKey, c.clock.Now())

	bookingID, err := c.reserveBooking(ctx, entity)
	if err != nil {
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		return nil, err
	}

	session, err := c.gateway.CreateSession(ctx, bookingID, entity.Total())
	if err != nil {
		c.compensateBooking(ctx, bookingID)
		c.releaseIdempotencyKey(ctx, idempotencyKey, params.GuestID)
		if infra.IsKind(err, infra.KindGatewayRejected) {
			return nil, errs.Mark(err, ErrGatewayRejected)
		}
		return nil, errs.Mark(err, ErrGatewayUnavailable)
	}

	if err := c.finalizeCheckout(ctx, bookingID, entity.Total(), session, idempotencyKey, params.GuestID); err != nil {
		// The pending booking stays; the sweeper reclaims it if the guest
		// never pays through the already-created gateway session.
		return nil, err
	}

	// Read-after-write: return the complete view from the read store
	view, err := c.bookingQueries.GetByID(ctx, bookingID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return &CheckoutResult{
		Booking:    view,
		SessionURL: session.URL,
		IsReplayed: false,
	}, nil
}

func (c *checkoutUseCaseImpl) loadRoom(ctx context.Context, roomID uuid.UUID) (*RoomSnapshot, error) {
	room, err := c.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return room, nil
}

// reserveBooking hits the authoritative serialization point: the overlap
// check and the insert are one atomic operation in the store.
func (c *checkoutUseCaseImpl) reserveBooking(ctx context.Context, entity *booking.Booking) (uuid.UUID, error) {
	return shared.RunInTx(ctx, c.db, func(tx db.DBTX) (uuid.UUID, error) {
		bookingID, err := c.bookingRepo.Create(ctx, tx, entity)
		if err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				// The race the advisory check cannot see. Same user-facing
				// outcome as the pre-check: pick different dates.
				return uuid.Nil, ErrRoomUnavailable
			}
			return uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return bookingID, nil
	})
}

func (c *checkoutUseCaseImpl) finalizeCheckout(
	ctx context.Context,
	bookingID uuid.UUID,
	amount booking.Money,
	session *GatewaySession,
	idempotencyKey, guestID uuid.UUID,
) error {
	_, err := shared.RunInTx(ctx, c.db, func(tx db.DBTX) (struct{}, error) {
		sessionEntity := payment.NewSession(bookingID, session.ID, amount, session.URL, c.clock.Now())
		if err := c.sessionRepo.Create(ctx, tx, sessionEntity); err != nil {
			return struct{}{}, err
		}
		if err := c.idempotencyRepo.UpdateStatusCompleted(ctx, tx, idempotencyKey, guestID, bookingID); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

// compensateBooking undoes the reservation when session creation failed for
// good: the guest has no way to pay, so holding the dates only hurts others.
func (c *checkoutUseCaseImpl) compensateBooking(ctx context.Context, bookingID uuid.UUID) {
	if _, err := c.bookingRepo.Cancel(ctx, c.db, bookingID, c.clock.Now()); err != nil {
		// Not fatal for the caller; the sweeper picks up what we miss here.
		slog.Error("failed to compensate booking after gateway error",
			"booking_id", bookingID, "error", err.Error())
	}
}

// releaseIdempotencyKey frees the key after an attempt that produced no
// booking, so the guest can retry with the same key.
func (c *checkoutUseCaseImpl) releaseIdempotencyKey(ctx context.Context, key, guestID uuid.UUID) {
	if err := c.idempotencyRepo.Delete(ctx, key, guestID); err != nil {
		slog.Warn("failed to release idempotency key", "key", key, "error", err.Error())
	}
}

func (c *checkoutUseCaseImpl) countFailure(err error) {
	switch {
	case errors.Is(err, ErrRoomUnavailable):
		c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeConflict).Inc()
	case errors.Is(err, ErrInvalidDateRange):
		c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeValidation).Inc()
	case errors.Is(err, ErrGatewayUnavailable), errors.Is(err, ErrGatewayRejected):
		c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeGatewayDown).Inc()
	default:
		c.metrics.CheckoutOutcomes.WithLabelValues(metrics.OutcomeFailure).Inc()
	}
}

func (c *checkoutUseCaseImpl) calculateRequestHash(params CreateCheckoutParams) string {
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
