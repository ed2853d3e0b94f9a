package request

import (
	"staybook/internal/usecase/commands"
)

// GatewayWebhookRequest is the envelope the payment gateway posts on
// settlement. Only session_id is used for correlation; booking_id is an
// integrity cross-check.
type GatewayWebhookRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status" binding:"required"`
	Reason    string `json:"reason"`
}

func (r GatewayWebhookRequest) ToEvent() commands.GatewayEvent {
	return commands.GatewayEvent{
		SessionID: r.SessionID,
		BookingID: r.BookingID,
		Status:    r.Status,
		Reason:    r.Reason,
	}
}
