//go:build unit || e2e

package builder

import (
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/usecase/commands"
	"staybook/internal/usecase/queries"

	"github.com/google/uuid"
)

// BookingBuilder assembles valid booking inputs for tests; individual fields
// are mutated per-case to probe validation boundaries.
type BookingBuilder struct {
	roomID         uuid.UUID
	guestID        uuid.UUID
	checkIn        time.Time
	checkOut       time.Time
	rateCents      int64
	idempotencyKey uuid.UUID
	now            time.Time
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		roomID:         uuid.New(),
		guestID:        uuid.New(),
		checkIn:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		checkOut:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		rateCents:      10000, // $100.00/night
		idempotencyKey: uuid.New(),
		now:            time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC),
	}
}

func (b *BookingBuilder) WithRoomID(id uuid.UUID) *BookingBuilder {
	b.roomID = id
	return b
}

func (b *BookingBuilder) WithGuestID(id uuid.UUID) *BookingBuilder {
	b.guestID = id
	return b
}

func (b *BookingBuilder) WithCheckIn(t time.Time) *BookingBuilder {
	b.checkIn = t
	return b
}

func (b *BookingBuilder) WithCheckOut(t time.Time) *BookingBuilder {
	b.checkOut = t
	return b
}

func (b *BookingBuilder) WithRateCents(cents int64) *BookingBuilder {
	b.rateCents = cents
	return b
}

func (b *BookingBuilder) WithIdempotencyKey(key uuid.UUID) *BookingBuilder {
	b.idempotencyKey = key
	return b
}

func (b *BookingBuilder) WithNow(t time.Time) *BookingBuilder {
	b.now = t
	return b
}

func (b *BookingBuilder) BuildDomain() (*booking.Booking, error) {
	span, err := booking.NewDateRange(b.checkIn, b.checkOut)
	if err != nil {
		return nil, err
	}
	rate, err := booking.NewMoney(b.rateCents)
	if err != nil {
		return nil, err
	}
	return booking.NewPendingBooking(b.roomID, b.guestID, span, rate, b.idempotencyKey, b.now), nil
}

func (b *BookingBuilder) BuildView() *queries.BookingView {
	nights := int32(b.checkOut.Sub(b.checkIn).Hours() / 24)
	return &queries.BookingView{
		ID:               uuid.New(),
		RoomID:           b.roomID,
		RoomName:         "Seaside Double",
		GuestID:          b.guestID,
		CheckIn:          b.checkIn,
		CheckOut:         b.checkOut,
		Nights:           nights,
		NightlyRateCents: b.rateCents,
		TotalCents:       b.rateCents * int64(nights),
		Status:           string(booking.StatusPending),
		CreatedAt:        b.now,
		UpdatedAt:        b.now,
	}
}

func (b *BookingBuilder) BuildCheckoutResult() *commands.CheckoutResult {
	return &commands.CheckoutResult{
		Booking:    b.BuildView(),
		SessionURL: "https://pay.example.test/cs_123",
	}
}

func (b *BookingBuilder) BuildDTO() map[string]any {
	return map[string]any{
		"room_id":   b.roomID.String(),
		"guest_id":  b.guestID.String(),
		"check_in":  b.checkIn.Format(time.RFC3339),
		"check_out": b.checkOut.Format(time.RFC3339),
	}
}
