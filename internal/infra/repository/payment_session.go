package repository

import (
	"context"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"
	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type SessionRepository struct {
	db db.DBTX
}

func NewSessionRepository(pool db.DBTX) *SessionRepository {
	return &SessionRepository{db: pool}
}

const createSessionQuery = `
INSERT INTO payment_sessions (id, booking_id, gateway_session_id, amount_cents, status, checkout_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

func (r *SessionRepository) Create(ctx context.Context, tx db.DBTX, s *payment.Session) error {
	_, err := tx.Exec(ctx, createSessionQuery,
		s.ID(),
		s.BookingID(),
		s.GatewaySessionID(),
		s.Amount().Cents(),
		string(s.Status()),
		s.CheckoutURL(),
		s.CreatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create payment session", err)
	}
	return nil
}

const findSessionByGatewayIDQuery = `
SELECT id, booking_id, gateway_session_id, amount_cents, status, checkout_url, created_at, updated_at
FROM payment_sessions
WHERE gateway_session_id = $1`

// FindByGatewayID is the only correlation path from a webhook to local
// state; nothing in the webhook payload is trusted beyond the session ID.
func (r *SessionRepository) FindByGatewayID(ctx context.Context, tx db.DBTX, gatewaySessionID string) (*payment.Session, error) {
	var (
		id, bookingID        uuid.UUID
		gwID, status, url    string
		amountCents          int64
		createdAt, updatedAt time.Time
	)
	err := tx.QueryRow(ctx, findSessionByGatewayIDQuery, gatewaySessionID).Scan(
		&id, &bookingID, &gwID, &amountCents, &status, &url, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment session not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment session", err)
	}

	amount, err := booking.NewMoney(amountCents)
	if err != nil {
		return nil, infra.WrapRepoErr("corrupt session amount", err)
	}

	return payment.ReconstructSession(id, bookingID, gwID, amount, payment.SessionStatus(status), url, createdAt, updatedAt), nil
}

const settleSessionQuery = `
UPDATE payment_sessions
SET status = $2, updated_at = $3
WHERE id = $1 AND status = 'created'`

// Settle applies a terminal status. Returns false without error when the
// session already settled; the first outcome wins.
func (r *SessionRepository) Settle(ctx context.Context, tx db.DBTX, id uuid.UUID, status payment.SessionStatus, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, settleSessionQuery, id, string(status), now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to settle payment session", err)
	}
	return tag.RowsAffected() > 0, nil
}

const expireSessionsQuery = `
UPDATE payment_sessions
SET status = 'expired', updated_at = $2
WHERE booking_id = ANY($1) AND status = 'created'`

// ExpireForBookings marks still-open sessions of reclaimed bookings so a
// late webhook for them settles as a duplicate instead of confirming.
func (r *SessionRepository) ExpireForBookings(ctx context.Context, tx db.DBTX, bookingIDs []uuid.UUID, now time.Time) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, expireSessionsQuery, bookingIDs, now)
	if err != nil {
		return infra.WrapRepoErr("failed to expire payment sessions", err)
	}
	return nil
}
