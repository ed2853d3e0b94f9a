package request

import (
	"time"

	"staybook/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	RoomID   uuid.UUID `json:"room_id" binding:"required"`
	GuestID  uuid.UUID `json:"guest_id" binding:"required"`
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
}

func (r CreateBookingRequest) ToParams() commands.CreateCheckoutParams {
	return commands.CreateCheckoutParams{
		RoomID:   r.RoomID,
		GuestID:  r.GuestID,
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
	}
}
