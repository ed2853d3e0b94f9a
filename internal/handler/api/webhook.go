package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	reqdto "staybook/internal/handler/dto/request"
	"staybook/internal/infra/gateway"
	"staybook/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Gateway-Signature"

const maxWebhookBodyBytes = 64 * 1024

type WebhookHandler struct {
	payments commands.PaymentCommands
	verifier *gateway.SignatureVerifier
}

func NewWebhookHandler(payments commands.PaymentCommands, verifier *gateway.SignatureVerifier) *WebhookHandler {
	return &WebhookHandler{
		payments: payments,
		verifier: verifier,
	}
}

// @Summary Payment gateway webhook
// @Description Apply a payment settlement event; duplicates succeed without reapplying
// @Tags payments
// @Accept json
// @Produce json
// @Param X-Gateway-Signature header string true "HMAC-SHA256 hex digest of the raw body"
// @Param request body reqdto.GatewayWebhookRequest true "Settlement event"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /payments/webhook [post]
func (h *WebhookHandler) HandleGatewayEvent(c *gin.Context) {
	// Signature covers the raw bytes, so the body must be read before any
	// JSON binding touches it.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader(signatureHeader)
	if signature == "" || !h.verifier.Verify(body, signature) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid webhook signature",
		})
		return
	}

	var req reqdto.GatewayWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil || req.SessionID == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Malformed webhook payload",
		})
		return
	}

	result, err := h.payments.ApplyGatewayEvent(c.Request.Context(), req.ToEvent())
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrUnknownSession):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown gateway session",
			})
		case errors.Is(err, commands.ErrMalformedEvent):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unsupported event status",
			})
		case errors.Is(err, commands.ErrSessionMismatch):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Event booking does not match session",
			})
		default:
			// A 5xx tells the gateway to redeliver; the apply path is
			// idempotent so redelivery is safe.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":    result.Applied,
		"booking_id": result.BookingID,
	})
}
