package response

import (
	"time"

	"staybook/internal/usecase/commands"
	"staybook/internal/usecase/queries"

	"github.com/google/uuid"
)

type BookingResponse struct {
	ID               uuid.UUID `json:"id"`
	RoomID           uuid.UUID `json:"roomId"`
	RoomName         string    `json:"roomName"`
	GuestID          uuid.UUID `json:"guestId"`
	CheckIn          time.Time `json:"checkIn"`
	CheckOut         time.Time `json:"checkOut"`
	Nights           int32     `json:"nights"`
	NightlyRateCents int64     `json:"nightlyRateCents"`
	TotalCents       int64     `json:"totalCents"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CheckoutResponse is the booking plus where to pay for it.
type CheckoutResponse struct {
	Booking     BookingResponse `json:"booking"`
	CheckoutURL string          `json:"checkoutUrl"`
}

type BookingListResponse struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"roomId"`
	RoomName   string    `json:"roomName"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	TotalCents int64     `json:"totalCents"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func FromBookingView(rm *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:               rm.ID,
		RoomID:           rm.RoomID,
		RoomName:         rm.RoomName,
		GuestID:          rm.GuestID,
		CheckIn:          rm.CheckIn,
		CheckOut:         rm.CheckOut,
		Nights:           rm.Nights,
		NightlyRateCents: rm.NightlyRateCents,
		TotalCents:       rm.TotalCents,
		Status:           rm.Status,
		CreatedAt:        rm.CreatedAt,
		UpdatedAt:        rm.UpdatedAt,
	}
}

func FromCheckoutResult(result *commands.CheckoutResult) *CheckoutResponse {
	return &CheckoutResponse{
		Booking:     *FromBookingView(result.Booking),
		CheckoutURL: result.SessionURL,
	}
}

func FromBookingListItem(rm *queries.BookingListItem) *BookingListResponse {
	return &BookingListResponse{
		ID:         rm.ID,
		RoomID:     rm.RoomID,
		RoomName:   rm.RoomName,
		CheckIn:    rm.CheckIn,
		CheckOut:   rm.CheckOut,
		TotalCents: rm.TotalCents,
		Status:     rm.Status,
		CreatedAt:  rm.CreatedAt,
	}
}
