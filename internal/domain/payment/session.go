package payment

import (
	"errors"
	"time"

	"staybook/internal/domain/booking"

	"github.com/google/uuid"
)

var ErrSessionSettled = errors.New("payment session already settled")

type SessionStatus string

const (
	SessionCreated   SessionStatus = "created"
	SessionSucceeded SessionStatus = "succeeded"
	SessionFailed    SessionStatus = "failed"
	SessionExpired   SessionStatus = "expired"
)

func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionCreated, SessionSucceeded, SessionFailed, SessionExpired:
		return true
	default:
		return false
	}
}

func (s SessionStatus) IsSettled() bool {
	return s != SessionCreated
}

// Session mirrors one checkout attempt at the external gateway. Exactly one
// session is live per pending booking; a booking accumulates further sessions
// only after earlier ones failed or expired.
type Session struct {
	id               uuid.UUID
	bookingID        uuid.UUID
	gatewaySessionID string
	amount           booking.Money
	status           SessionStatus
	checkoutURL      string
	createdAt        time.Time
	updatedAt        time.Time
}

func NewSession(
	bookingID uuid.UUID,
	gatewaySessionID string,
	amount booking.Money,
	checkoutURL string,
	now time.Time,
) *Session {
	return &Session{
		id:               uuid.New(),
		bookingID:        bookingID,
		gatewaySessionID: gatewaySessionID,
		amount:           amount,
		status:           SessionCreated,
		checkoutURL:      checkoutURL,
		createdAt:        now,
		updatedAt:        now,
	}
}

func ReconstructSession(
	id, bookingID uuid.UUID,
	gatewaySessionID string,
	amount booking.Money,
	status SessionStatus,
	checkoutURL string,
	createdAt, updatedAt time.Time,
) *Session {
	return &Session{
		id:               id,
		bookingID:        bookingID,
		gatewaySessionID: gatewaySessionID,
		amount:           amount,
		status:           status,
		checkoutURL:      checkoutURL,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

// Settle moves the session to a terminal status. Re-settling with the same
// status is a no-op; conflicting settlements keep the first outcome.
func (s *Session) Settle(status SessionStatus, now time.Time) (bool, error) {
	if !status.IsValid() || !status.IsSettled() {
		return false, ErrSessionSettled
	}
	if s.status == status {
		return false, nil
	}
	if s.status.IsSettled() {
		return false, nil
	}
	s.status = status
	s.updatedAt = now
	return true, nil
}

func (s *Session) ID() uuid.UUID            { return s.id }
func (s *Session) BookingID() uuid.UUID     { return s.bookingID }
func (s *Session) GatewaySessionID() string { return s.gatewaySessionID }
func (s *Session) Amount() booking.Money    { return s.amount }
func (s *Session) Status() SessionStatus    { return s.status }
func (s *Session) CheckoutURL() string      { return s.checkoutURL }
func (s *Session) CreatedAt() time.Time     { return s.createdAt }
func (s *Session) UpdatedAt() time.Time     { return s.updatedAt }
