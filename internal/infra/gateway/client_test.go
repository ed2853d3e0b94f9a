//go:build unit

package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"staybook/internal/domain/booking"
	"staybook/internal/infra"
	"staybook/internal/infra/gateway"
	"staybook/internal/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *gateway.Client {
	return gateway.NewClient(config.GatewayConfig{
		BaseURL:       baseURL,
		APIKey:        "test-api-key",
		WebhookSecret: "test-webhook-secret",
		Timeout:       2 * time.Second,
	})
}

func mustMoney(t *testing.T, cents int64) booking.Money {
	t.Helper()
	m, err := booking.NewMoney(cents)
	require.NoError(t, err)
	return m
}

func TestClient_CreateSession(t *testing.T) {
	ctx := context.Background()
	bookingID := uuid.New()

	t.Run("success: posts amount and returns session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, bookingID.String(), req["booking_id"])
			assert.Equal(t, float64(30000), req["amount_cents"])

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":  "cs_123",
				"url": "https://pay.example.test/cs_123",
			})
		}))
		defer server.Close()

		session, err := newTestClient(server.URL).CreateSession(ctx, bookingID, mustMoney(t, 30000))

		require.NoError(t, err)
		assert.Equal(t, "cs_123", session.ID)
		assert.Equal(t, "https://pay.example.test/cs_123", session.URL)
	})

	t.Run("error: 4xx is rejected without retry", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateSession(ctx, bookingID, mustMoney(t, 30000))

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindGatewayRejected))
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("error: persistent 5xx stops after a single retry", func(t *testing.T) {
		// A lost response may mean the gateway already created the session,
		// so exactly one automatic retry is allowed before giving up.
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateSession(ctx, bookingID, mustMoney(t, 30000))

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindGatewayDown))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("success: recovers after a transient 5xx", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"id":  "cs_retry",
				"url": "https://pay.example.test/cs_retry",
			})
		}))
		defer server.Close()

		session, err := newTestClient(server.URL).CreateSession(ctx, bookingID, mustMoney(t, 30000))

		require.NoError(t, err)
		assert.Equal(t, "cs_retry", session.ID)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("error: incomplete response body is gateway down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "cs_123"})
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).CreateSession(ctx, bookingID, mustMoney(t, 30000))

		require.Error(t, err)
		assert.True(t, infra.IsKind(err, infra.KindGatewayDown))
	})
}

func TestSignatureVerifier(t *testing.T) {
	verifier := gateway.NewSignatureVerifier("secret")
	body := []byte(`{"session_id":"cs_123","status":"succeeded"}`)

	t.Run("accepts its own signature", func(t *testing.T) {
		assert.True(t, verifier.Verify(body, verifier.Sign(body)))
	})

	t.Run("rejects a signature for different bytes", func(t *testing.T) {
		other := verifier.Sign([]byte(`{"session_id":"cs_999","status":"succeeded"}`))
		assert.False(t, verifier.Verify(body, other))
	})

	t.Run("rejects a signature under a different secret", func(t *testing.T) {
		foreign := gateway.NewSignatureVerifier("other-secret").Sign(body)
		assert.False(t, verifier.Verify(body, foreign))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		assert.False(t, verifier.Verify(body, "not-hex"))
		assert.False(t, verifier.Verify(body, ""))
	})
}
