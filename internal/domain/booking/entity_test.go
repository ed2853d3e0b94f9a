//go:build unit

package booking_test

import (
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/tests/common/builder"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cmpOpts = []cmp.Option{
	cmpopts.IgnoreUnexported(booking.Booking{}, booking.DateRange{}, booking.Money{}),
	cmpopts.EquateEmpty(),
}

func TestNewPendingBooking(t *testing.T) {
	roomID := uuid.New()
	guestID := uuid.New()
	idempotencyKey := uuid.New()
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

	b, err := builder.NewBookingBuilder().
		WithRoomID(roomID).
		WithGuestID(guestID).
		WithRateCents(10000).
		WithIdempotencyKey(idempotencyKey).
		WithNow(now).
		BuildDomain()
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.NotEqual(t, uuid.Nil, b.ID())
	assert.Equal(t, roomID, b.RoomID())
	assert.Equal(t, guestID, b.GuestID())
	assert.Equal(t, booking.StatusPending, b.Status())
	assert.True(t, b.IsPending())
	assert.Equal(t, int64(10000), b.NightlyRate().Cents())
	assert.Equal(t, int64(30000), b.Total().Cents())
	assert.Equal(t, idempotencyKey, b.IdempotencyKey())
	assert.Equal(t, now, b.CreatedAt())
	assert.Equal(t, now, b.UpdatedAt())
}

func TestBookingTransitions(t *testing.T) {
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Minute)

	newPending := func(t *testing.T) *booking.Booking {
		t.Helper()
		b, err := builder.NewBookingBuilder().WithNow(now).BuildDomain()
		require.NoError(t, err)
		return b
	}

	t.Run("pending to confirmed", func(t *testing.T) {
		b := newPending(t)
		changed, err := b.Confirm(later)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, booking.StatusConfirmed, b.Status())
		assert.Equal(t, later, b.UpdatedAt())
	})

	t.Run("pending to cancelled", func(t *testing.T) {
		b := newPending(t)
		changed, err := b.Cancel(later)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, booking.StatusCancelled, b.Status())
	})

	t.Run("repeated confirm is a no-op", func(t *testing.T) {
		b := newPending(t)
		_, err := b.Confirm(later)
		require.NoError(t, err)

		snapshot := *b
		changed, err := b.Confirm(later.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		if diff := cmp.Diff(&snapshot, b, cmpOpts...); diff != "" {
			t.Errorf("booking mutated by repeated confirm (-want +got):\n%s", diff)
		}
		assert.Equal(t, later, b.UpdatedAt())
	})

	t.Run("confirm after cancel is absorbed", func(t *testing.T) {
		b := newPending(t)
		_, err := b.Cancel(later)
		require.NoError(t, err)

		changed, err := b.Confirm(later.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, booking.StatusCancelled, b.Status())
	})

	t.Run("cancel after confirm is absorbed", func(t *testing.T) {
		b := newPending(t)
		_, err := b.Confirm(later)
		require.NoError(t, err)

		changed, err := b.Cancel(later.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, booking.StatusConfirmed, b.Status())
	})

	t.Run("transition back to pending is illegal", func(t *testing.T) {
		b := newPending(t)
		_, err := b.Confirm(later)
		require.NoError(t, err)

		_, err = b.TransitionTo(booking.StatusPending, later.Add(time.Hour))
		assert.ErrorIs(t, err, booking.ErrIllegalTransition)
		assert.Equal(t, booking.StatusConfirmed, b.Status())
	})

	t.Run("unknown status is illegal", func(t *testing.T) {
		b := newPending(t)
		_, err := b.TransitionTo(booking.Status("refunded"), later)
		assert.ErrorIs(t, err, booking.ErrIllegalTransition)
	})
}

func TestStatus(t *testing.T) {
	assert.True(t, booking.StatusPending.CanTransitionTo(booking.StatusConfirmed))
	assert.True(t, booking.StatusPending.CanTransitionTo(booking.StatusCancelled))
	assert.False(t, booking.StatusConfirmed.CanTransitionTo(booking.StatusPending))
	assert.False(t, booking.StatusConfirmed.CanTransitionTo(booking.StatusCancelled))
	assert.False(t, booking.StatusCancelled.CanTransitionTo(booking.StatusConfirmed))

	assert.False(t, booking.StatusPending.IsTerminal())
	assert.True(t, booking.StatusConfirmed.IsTerminal())
	assert.True(t, booking.StatusCancelled.IsTerminal())

	assert.False(t, booking.Status("refunded").IsValid())
}
