//go:build unit

package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"staybook/internal/handler/api"
	"staybook/internal/infra/gateway"
	"staybook/internal/usecase/commands"
	"staybook/tests/common/httptest"
	commandsmock "staybook/tests/mock/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const webhookSecret = "test-webhook-secret"

type WebhookHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCtrl     *gomock.Controller
	mockPayments *commandsmock.MockPaymentCommands
	verifier     *gateway.SignatureVerifier
	handler      *api.WebhookHandler
}

func (s *WebhookHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCtrl = gomock.NewController(s.T())
	s.mockPayments = commandsmock.NewMockPaymentCommands(s.mockCtrl)
	s.verifier = gateway.NewSignatureVerifier(webhookSecret)
	s.handler = api.NewWebhookHandler(s.mockPayments, s.verifier)

	s.router.POST("/payments/webhook", s.handler.HandleGatewayEvent)
}

func (s *WebhookHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestWebhookHandlerSuite(t *testing.T) {
	suite.Run(t, new(WebhookHandlerTestSuite))
}

func (s *WebhookHandlerTestSuite) signedBody(payload map[string]any) ([]byte, map[string]string) {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)
	return body, map[string]string{"X-Gateway-Signature": s.verifier.Sign(body)}
}

func (s *WebhookHandlerTestSuite) TestHandleGatewayEvent() {
	url := "/payments/webhook"
	bookingID := uuid.New()

	payload := map[string]any{
		"session_id": "cs_123",
		"booking_id": bookingID.String(),
		"status":     "succeeded",
	}

	s.Run("success: applied event returns 200", func() {
		body, headers := s.signedBody(payload)
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(&commands.ApplyResult{Applied: true, BookingID: bookingID, BookingStatus: "confirmed"}, nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"applied":true`)
	})

	s.Run("success: duplicate delivery still returns 200", func() {
		body, headers := s.signedBody(payload)
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(&commands.ApplyResult{Applied: false, BookingID: bookingID}, nil).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusOK, rec.Code)
		s.Contains(rec.Body.String(), `"applied":false`)
	})

	s.Run("error: missing signature returns 401", func() {
		body, _ := s.signedBody(payload)
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("error: wrong signature returns 401", func() {
		body, _ := s.signedBody(payload)
		headers := map[string]string{"X-Gateway-Signature": "deadbeef"}
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("error: signature over different bytes returns 401", func() {
		body, headers := s.signedBody(payload)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-2] = 'X'
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, tampered, headers)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("error: malformed payload returns 400", func() {
		body := []byte(`{"status":"succeeded"}`)
		headers := map[string]string{"X-Gateway-Signature": s.verifier.Sign(body)}
		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: unknown session returns 404", func() {
		body, headers := s.signedBody(payload)
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrUnknownSession).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("error: unsupported status returns 400", func() {
		body, headers := s.signedBody(map[string]any{"session_id": "cs_123", "status": "unknown"})
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrMalformedEvent).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: booking mismatch returns 400", func() {
		body, headers := s.signedBody(payload)
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrSessionMismatch).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("error: internal failure returns 500 so the gateway redelivers", func() {
		body, headers := s.signedBody(payload)
		s.mockPayments.EXPECT().ApplyGatewayEvent(gomock.Any(), gomock.Any()).
			Return(nil, commands.ErrDatabaseOperationFailed).Times(1)

		rec := httptest.PerformRawRequest(s.T(), s.router, http.MethodPost, url, body, headers)

		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}
