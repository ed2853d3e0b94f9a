//go:build e2e

package booking_test

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	resdto "staybook/internal/handler/dto/response"
	"staybook/internal/infra/gateway"
	"staybook/internal/infra/repository"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/metrics"
	"staybook/internal/usecase/commands"
	"staybook/internal/worker"
	"staybook/tests/common/dbtest"
	"staybook/tests/common/httptest"
	"staybook/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

const (
	bookingsURL = "/api/bookings"
	webhookURL  = "/api/payments/webhook"
)

type CheckoutSuite struct {
	e2e.SharedSuite
}

func TestCheckoutSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CheckoutSuite))
}

func (s *CheckoutSuite) bookingBody(roomID, guestID uuid.UUID, checkIn, checkOut string) map[string]any {
	return map[string]any{
		"room_id":   roomID.String(),
		"guest_id":  guestID.String(),
		"check_in":  checkIn + "T00:00:00Z",
		"check_out": checkOut + "T00:00:00Z",
	}
}

func (s *CheckoutSuite) postBooking(body map[string]any, key string) (*resdto.CheckoutResponse, int) {
	headers := map[string]string{"Idempotency-Key": key}
	rec := httptest.PerformRequest(s.T(), s.Router, http.MethodPost, bookingsURL, body, headers)
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		return nil, rec.Code
	}
	var resp resdto.CheckoutResponse
	_ = httptest.DecodeResponseBody(s.T(), rec.Body, &resp)
	return &resp, rec.Code
}

func (s *CheckoutSuite) postWebhook(sessionID, bookingID, status string) int {
	payload := map[string]any{
		"session_id": sessionID,
		"booking_id": bookingID,
		"status":     status,
	}
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	verifier := gateway.NewSignatureVerifier(s.Config.Gateway.WebhookSecret)
	headers := map[string]string{"X-Gateway-Signature": verifier.Sign(body)}

	rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, webhookURL, body, headers)
	return rec.Code
}

// =============================================================================
// TestCreateBooking - checkout creation and idempotency
// =============================================================================

func (s *CheckoutSuite) TestCreateBooking() {
	s.Run("creates a pending booking with a checkout URL", func() {
		guestID := uuid.New()
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, guestID, "2030-03-01", "2030-03-04")
		key := uuid.New()

		resp, code := s.postBooking(body, key.String())

		s.Equal(http.StatusCreated, code)
		s.Equal("pending", resp.Booking.Status)
		s.Equal(int64(30000), resp.Booking.TotalCents)
		s.Equal(int32(3), resp.Booking.Nights)
		s.NotEmpty(resp.CheckoutURL)
		s.Equal("pending", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
		s.Equal(key, dbtest.BookingIdempotencyKey(s.T(), s.DB, resp.Booking.ID))
	})

	s.Run("replays a completed request under the same key", func() {
		guestID := uuid.New()
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, guestID, "2030-04-01", "2030-04-03")
		key := uuid.New().String()

		first, firstCode := s.postBooking(body, key)
		second, secondCode := s.postBooking(body, key)

		s.Equal(http.StatusCreated, firstCode)
		s.Equal(http.StatusOK, secondCode)
		s.Equal(first.Booking.ID, second.Booking.ID)
		s.Equal(first.CheckoutURL, second.CheckoutURL)
	})

	s.Run("rejects a different payload under the same key", func() {
		guestID := uuid.New()
		key := uuid.New().String()
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, guestID, "2030-05-01", "2030-05-03")

		_, firstCode := s.postBooking(body, key)
		s.Equal(http.StatusCreated, firstCode)

		other := s.bookingBody(dbtest.RoomSeasideDoubleID, guestID, "2030-05-10", "2030-05-12")
		_, secondCode := s.postBooking(other, key)
		s.Equal(http.StatusConflict, secondCode)
	})

	s.Run("rejects overlapping stays for the same room", func() {
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-06-01", "2030-06-05")
		_, code := s.postBooking(body, uuid.New().String())
		s.Equal(http.StatusCreated, code)

		overlap := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-06-03", "2030-06-07")
		_, code = s.postBooking(overlap, uuid.New().String())
		s.Equal(http.StatusConflict, code)
	})

	s.Run("allows back-to-back stays on the boundary date", func() {
		first := s.bookingBody(dbtest.RoomStandardSingleID, uuid.New(), "2030-07-01", "2030-07-04")
		_, code := s.postBooking(first, uuid.New().String())
		s.Equal(http.StatusCreated, code)

		adjacent := s.bookingBody(dbtest.RoomStandardSingleID, uuid.New(), "2030-07-04", "2030-07-06")
		_, code = s.postBooking(adjacent, uuid.New().String())
		s.Equal(http.StatusCreated, code)
	})

	s.Run("allows overlapping stays in different rooms", func() {
		first := s.bookingBody(dbtest.RoomStandardSingleID, uuid.New(), "2030-08-01", "2030-08-04")
		_, code := s.postBooking(first, uuid.New().String())
		s.Equal(http.StatusCreated, code)

		otherRoom := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-08-01", "2030-08-04")
		_, code = s.postBooking(otherRoom, uuid.New().String())
		s.Equal(http.StatusCreated, code)
	})

	s.Run("rejects an inverted date range", func() {
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-09-05", "2030-09-01")
		_, code := s.postBooking(body, uuid.New().String())
		s.Equal(http.StatusUnprocessableEntity, code)
	})

	s.Run("rejects an unknown room", func() {
		body := s.bookingBody(uuid.New(), uuid.New(), "2030-10-01", "2030-10-03")
		_, code := s.postBooking(body, uuid.New().String())
		s.Equal(http.StatusNotFound, code)
	})

	s.Run("compensates the booking when the gateway stays down", func() {
		s.Gateway.FailNext(10)

		guestID := uuid.New()
		body := s.bookingBody(dbtest.RoomSeasideDoubleID, guestID, "2030-11-01", "2030-11-03")
		key := uuid.New().String()

		_, code := s.postBooking(body, key)
		s.Equal(http.StatusBadGateway, code)

		// The dates are free again and the key is reusable
		s.Gateway.FailNext(0)
		resp, code := s.postBooking(body, key)
		s.Equal(http.StatusCreated, code)
		s.Equal("pending", resp.Booking.Status)
	})

	s.Run("only one of two concurrent requests wins the dates", func() {
		bodyA := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-12-01", "2030-12-05")
		bodyB := s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2030-12-03", "2030-12-07")

		var wg sync.WaitGroup
		codes := make([]int, 2)
		for i, body := range []map[string]any{bodyA, bodyB} {
			wg.Add(1)
			go func(i int, body map[string]any) {
				defer wg.Done()
				_, codes[i] = s.postBooking(body, uuid.New().String())
			}(i, body)
		}
		wg.Wait()

		s.ElementsMatch([]int{http.StatusCreated, http.StatusConflict}, codes)
	})
}

// =============================================================================
// TestPaymentWebhook - settlement events
// =============================================================================

func (s *CheckoutSuite) TestPaymentWebhook() {
	s.Run("confirms the booking on a success event", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2031-01-01", "2031-01-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)

		sessionID := s.Gateway.LastSessionID()
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "succeeded"))

		s.Equal("confirmed", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
		s.Equal("succeeded", dbtest.SessionStatusByGatewayID(s.T(), s.DB, sessionID))

		// Redelivery is acknowledged without changing anything
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "succeeded"))
		s.Equal("confirmed", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
	})

	s.Run("a late conflicting event does not override the first outcome", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2031-02-01", "2031-02-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)

		sessionID := s.Gateway.LastSessionID()
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "succeeded"))
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "failed"))

		s.Equal("confirmed", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
		s.Equal("succeeded", dbtest.SessionStatusByGatewayID(s.T(), s.DB, sessionID))
	})

	s.Run("cancels the booking and frees the dates on a failure event", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2031-03-01", "2031-03-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)

		sessionID := s.Gateway.LastSessionID()
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "failed"))
		s.Equal("cancelled", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))

		// The same dates can be booked again
		_, code = s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2031-03-01", "2031-03-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)
	})

	s.Run("settling against an already-terminal booking reports no new status", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2031-04-01", "2031-04-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)
		sessionID := s.Gateway.LastSessionID()

		// The booking goes terminal outside the settlement path while its
		// session is still open.
		dbtest.ForceCancelBooking(s.T(), s.DB, resp.Booking.ID)

		payments := commands.NewPaymentCommands(
			repository.NewBookingRepository(s.DB),
			repository.NewSessionRepository(s.DB),
			s.DB,
			clock.NewRealClock(),
			metrics.New("staybook_events_test_"+uuid.New().String()[:8]),
		)
		result, err := payments.ApplyGatewayEvent(s.T().Context(), commands.GatewayEvent{
			SessionID: sessionID,
			Status:    "succeeded",
		})

		s.Require().NoError(err)
		s.True(result.Applied)
		s.Empty(result.BookingStatus)
		s.Equal("cancelled", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
		s.Equal("succeeded", dbtest.SessionStatusByGatewayID(s.T(), s.DB, sessionID))
	})

	s.Run("returns 404 for an unknown session", func() {
		s.Equal(http.StatusNotFound, s.postWebhook("cs_never_issued", uuid.New().String(), "succeeded"))
	})

	s.Run("rejects an unsigned event", func() {
		body, _ := json.Marshal(map[string]any{"session_id": "cs_x", "status": "succeeded"})
		rec := httptest.PerformRawRequest(s.T(), s.Router, http.MethodPost, webhookURL, body, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

// =============================================================================
// TestSweeper - payment window expiry
// =============================================================================

func (s *CheckoutSuite) TestSweeper() {
	newSweeper := func() *worker.Sweeper {
		return worker.NewSweeper(
			repository.NewBookingRepository(s.DB),
			repository.NewSessionRepository(s.DB),
			repository.NewIdempotencyRepository(s.DB),
			s.DB,
			clock.NewRealClock(),
			metrics.New("staybook_sweep_test_"+uuid.New().String()[:8]),
			s.Config.Checkout,
		)
	}

	s.Run("cancels pending bookings past the payment window", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2032-01-01", "2032-01-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)
		sessionID := s.Gateway.LastSessionID()

		dbtest.BackdateBooking(s.T(), s.DB, resp.Booking.ID, s.Config.Checkout.PaymentWindow+time.Minute)

		s.Require().NoError(newSweeper().SweepOnce(s.T().Context()))

		s.Equal("cancelled", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
		s.Equal("expired", dbtest.SessionStatusByGatewayID(s.T(), s.DB, sessionID))

		// A success webhook arriving after the sweep is absorbed
		s.Equal(http.StatusOK, s.postWebhook(sessionID, resp.Booking.ID.String(), "succeeded"))
		s.Equal("cancelled", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))

		// The reclaimed dates are bookable again
		_, code = s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2032-01-01", "2032-01-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)
	})

	s.Run("leaves fresh pending bookings alone", func() {
		resp, code := s.postBooking(
			s.bookingBody(dbtest.RoomSeasideDoubleID, uuid.New(), "2032-02-01", "2032-02-04"),
			uuid.New().String())
		s.Equal(http.StatusCreated, code)

		s.Require().NoError(newSweeper().SweepOnce(s.T().Context()))

		s.Equal("pending", dbtest.BookingStatus(s.T(), s.DB, resp.Booking.ID))
	})
}
