package booking

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	id             uuid.UUID
	roomID         uuid.UUID
	guestID        uuid.UUID
	staySpan       DateRange
	nightlyRate    Money
	total          Money
	status         Status
	idempotencyKey uuid.UUID
	createdAt      time.Time
	updatedAt      time.Time
}

// NewPendingBooking prices the stay and creates the booking in Pending.
// The rate is snapshotted; later rate changes on the room must not affect
// an existing booking's total. The idempotency key that created the booking
// is recorded on it for audit.
func NewPendingBooking(
	roomID, guestID uuid.UUID,
	staySpan DateRange,
	nightlyRate Money,
	idempotencyKey uuid.UUID,
	now time.Time,
) *Booking {
	stay := CalculateStay(staySpan, nightlyRate)
	return &Booking{
		id:             uuid.New(),
		roomID:         roomID,
		guestID:        guestID,
		staySpan:       staySpan,
		nightlyRate:    nightlyRate,
		total:          stay.Total,
		status:         StatusPending,
		idempotencyKey: idempotencyKey,
		createdAt:      now,
		updatedAt:      now,
	}
}

func ReconstructBooking(
	id, roomID, guestID uuid.UUID,
	staySpan DateRange,
	nightlyRate, total Money,
	status Status,
	idempotencyKey uuid.UUID,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		roomID:         roomID,
		guestID:        guestID,
		staySpan:       staySpan,
		nightlyRate:    nightlyRate,
		total:          total,
		status:         status,
		idempotencyKey: idempotencyKey,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// Confirm applies Pending → Confirmed. A repeated confirmation is a no-op
// (changed=false, nil error) so redelivered gateway events stay harmless.
// Confirming a cancelled booking is also a no-op: the cancellation won the
// race and the store keeps it.
func (b *Booking) Confirm(now time.Time) (bool, error) {
	return b.TransitionTo(StatusConfirmed, now)
}

// Cancel applies Pending → Cancelled with the same idempotency rules.
func (b *Booking) Cancel(now time.Time) (bool, error) {
	return b.TransitionTo(StatusCancelled, now)
}

// TransitionTo rejects anything outside the allowed set outright; moving a
// booking back to Pending is a defect or a forged event, never a retry.
func (b *Booking) TransitionTo(next Status, now time.Time) (bool, error) {
	if !next.IsValid() || next == StatusPending {
		return false, ErrIllegalTransition
	}
	return b.transition(next, now)
}

func (b *Booking) transition(next Status, now time.Time) (bool, error) {
	if b.status == next {
		return false, nil
	}
	if b.status.IsTerminal() {
		// Terminal-to-other-terminal: the earlier event already settled the
		// booking; the late event is absorbed.
		return false, nil
	}
	if !b.status.CanTransitionTo(next) {
		return false, ErrIllegalTransition
	}
	b.status = next
	b.updatedAt = now
	return true, nil
}

func (b *Booking) IsPending() bool {
	return b.status == StatusPending
}

func (b *Booking) ID() uuid.UUID             { return b.id }
func (b *Booking) RoomID() uuid.UUID         { return b.roomID }
func (b *Booking) GuestID() uuid.UUID        { return b.guestID }
func (b *Booking) StaySpan() DateRange       { return b.staySpan }
func (b *Booking) NightlyRate() Money        { return b.nightlyRate }
func (b *Booking) Total() Money              { return b.total }
func (b *Booking) Status() Status            { return b.status }
func (b *Booking) IdempotencyKey() uuid.UUID { return b.idempotencyKey }
func (b *Booking) CreatedAt() time.Time      { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time      { return b.updatedAt }
