//go:build unit

package payment_test

import (
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *payment.Session {
	t.Helper()
	amount, err := booking.NewMoney(30000)
	require.NoError(t, err)
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)
	return payment.NewSession(uuid.New(), "cs_test_123", amount, "https://gateway.example/pay/cs_test_123", now)
}

func TestNewSession(t *testing.T) {
	s := newSession(t)

	assert.NotEqual(t, uuid.Nil, s.ID())
	assert.Equal(t, "cs_test_123", s.GatewaySessionID())
	assert.Equal(t, payment.SessionCreated, s.Status())
	assert.False(t, s.Status().IsSettled())
	assert.Equal(t, int64(30000), s.Amount().Cents())
}

func TestSessionSettle(t *testing.T) {
	now := time.Date(2024, 2, 20, 13, 0, 0, 0, time.UTC)

	t.Run("created to succeeded", func(t *testing.T) {
		s := newSession(t)
		changed, err := s.Settle(payment.SessionSucceeded, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, payment.SessionSucceeded, s.Status())
	})

	t.Run("duplicate settlement is a no-op", func(t *testing.T) {
		s := newSession(t)
		_, err := s.Settle(payment.SessionFailed, now)
		require.NoError(t, err)

		changed, err := s.Settle(payment.SessionFailed, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, now, s.UpdatedAt())
	})

	t.Run("conflicting settlement keeps first outcome", func(t *testing.T) {
		s := newSession(t)
		_, err := s.Settle(payment.SessionSucceeded, now)
		require.NoError(t, err)

		changed, err := s.Settle(payment.SessionFailed, now.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, payment.SessionSucceeded, s.Status())
	})

	t.Run("cannot settle back to created", func(t *testing.T) {
		s := newSession(t)
		_, err := s.Settle(payment.SessionCreated, now)
		assert.ErrorIs(t, err, payment.ErrSessionSettled)
	})
}
