package commands

import (
	"context"
	"log/slog"

	"staybook/internal/domain/payment"
	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/errs"
	"staybook/internal/pkg/metrics"
	"staybook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUnknownSession  = errs.New("unknown gateway session")
	ErrMalformedEvent  = errs.New("malformed gateway event")
	ErrSessionMismatch = errs.New("event booking does not match session")
)

// GatewayEvent is the settlement half of the gateway contract. Correlation
// runs through SessionID alone; BookingID is cross-checked when present but
// never trusted as a lookup key.
type GatewayEvent struct {
	SessionID string
	BookingID string
	Status    string
	Reason    string
}

type ApplyResult struct {
	Applied   bool
	BookingID uuid.UUID
	// BookingStatus is the state this event moved the booking into. Empty
	// when the event changed nothing (duplicate, or booking already terminal).
	BookingStatus string
}

type PaymentCommands interface {
	ApplyGatewayEvent(ctx context.Context, event GatewayEvent) (*ApplyResult, error)
}

type paymentUseCaseImpl struct {
	bookingRepo BookingRepository
	sessionRepo SessionRepository
	db          *pgxpool.Pool
	clock       clock.Clock
	metrics     *metrics.Metrics
}

func NewPaymentCommands(
	bookingRepo BookingRepository,
	sessionRepo SessionRepository,
	db *pgxpool.Pool,
	clock clock.Clock,
	metrics *metrics.Metrics,
) PaymentCommands {
	return &paymentUseCaseImpl{
		bookingRepo: bookingRepo,
		sessionRepo: sessionRepo,
		db:          db,
		clock:       clock,
		metrics:     metrics,
	}
}

func (p *paymentUseCaseImpl) ApplyGatewayEvent(ctx context.Context, event GatewayEvent) (*ApplyResult, error) {
	if event.SessionID == "" {
		return nil, ErrMalformedEvent
	}
	target, err := settledStatus(event.Status)
	if err != nil {
		return nil, err
	}

	result, err := p.applyInTx(ctx, event, target)
	if err != nil {
		return nil, err
	}

	outcome := metrics.EventDuplicate
	if result.Applied {
		outcome = metrics.EventApplied
	}
	p.metrics.PaymentEvents.WithLabelValues(event.Status, outcome).Inc()

	return result, nil
}

// applyInTx settles the session and moves the booking in one transaction so
// a crash can never leave the session settled with the booking untouched.
func (p *paymentUseCaseImpl) applyInTx(ctx context.Context, event GatewayEvent, target payment.SessionStatus) (*ApplyResult, error) {
	return shared.RunInTxWithRetry(ctx, p.db, maxEventRetries, func(tx db.DBTX) (*ApplyResult, error) {
		session, err := p.sessionRepo.FindByGatewayID(ctx, tx, event.SessionID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, ErrUnknownSession
			}
			return nil, errs.Wrap(err, "failed to resolve gateway session")
		}

		if event.BookingID != "" && event.BookingID != session.BookingID().String() {
			return nil, ErrSessionMismatch
		}

		now := p.clock.Now()

		settled, err := p.sessionRepo.Settle(ctx, tx, session.ID(), target, now)
		if err != nil {
			return nil, errs.Wrap(err, "failed to settle session")
		}
		if !settled {
			// Redelivery or a conflicting late event: the first settlement
			// already decided the booking. Report success without reapplying.
			return &ApplyResult{Applied: false, BookingID: session.BookingID()}, nil
		}

		var (
			moved      bool
			nextStatus string
		)
		switch target {
		case payment.SessionSucceeded:
			moved, err = p.bookingRepo.Confirm(ctx, tx, session.BookingID(), now)
			nextStatus = "confirmed"
		default:
			moved, err = p.bookingRepo.Cancel(ctx, tx, session.BookingID(), now)
			nextStatus = "cancelled"
		}
		if err != nil {
			return nil, errs.Wrap(err, "failed to transition booking")
		}

		result := &ApplyResult{Applied: true, BookingID: session.BookingID()}
		if moved {
			result.BookingStatus = nextStatus
		} else {
			// The booking left pending through another path, most likely the
			// expiry sweep. The session settlement still records the gateway
			// outcome, but the booking's state is whatever that path chose,
			// so no status is reported here.
			slog.Warn("payment event settled session but booking was already terminal",
				"booking_id", session.BookingID(), "gateway_session_id", event.SessionID, "status", event.Status)
		}

		return result, nil
	})
}

const maxEventRetries = 3

func settledStatus(status string) (payment.SessionStatus, error) {
	switch status {
	case "succeeded":
		return payment.SessionSucceeded, nil
	case "failed":
		return payment.SessionFailed, nil
	case "expired":
		return payment.SessionExpired, nil
	default:
		return "", ErrMalformedEvent
	}
}
