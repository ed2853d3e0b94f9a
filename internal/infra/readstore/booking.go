package readstore

import (
	"context"

	"staybook/internal/domain/booking"
	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/pgconv"
	"staybook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type BookingReadStore struct {
	db db.DBTX
}

func NewBookingReadStore(pool db.DBTX) *BookingReadStore {
	return &BookingReadStore{db: pool}
}

const findBookingByIDQuery = `
SELECT b.id, b.room_id, r.name, b.guest_id, b.stay,
       b.nightly_rate_cents, b.total_cents, b.status,
       ps.checkout_url, b.created_at, b.updated_at
FROM bookings b
JOIN rooms r ON r.id = b.room_id
LEFT JOIN LATERAL (
    SELECT checkout_url
    FROM payment_sessions
    WHERE booking_id = b.id
    ORDER BY created_at DESC
    LIMIT 1
) ps ON true
WHERE b.id = $1`

func (r *BookingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.BookingView, error) {
	var (
		view        queries.BookingView
		stay        pgtype.Range[pgtype.Date]
		checkoutURL pgtype.Text
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, findBookingByIDQuery, id).Scan(
		&view.ID, &view.RoomID, &view.RoomName, &view.GuestID, &stay,
		&view.NightlyRateCents, &view.TotalCents, &view.Status,
		&checkoutURL, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find booking by ID", err)
	}

	if lower, upper, ok := pgconv.DateRangeBounds(stay); ok {
		view.CheckIn = lower
		view.CheckOut = upper
		view.Nights = int32(upper.Sub(lower).Hours() / 24)
	}
	view.CheckoutURL = pgconv.StringPtrFromPgtype(checkoutURL)
	view.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	view.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)

	return &view, nil
}

const findBookingsByGuestIDQuery = `
SELECT b.id, b.room_id, r.name, b.stay, b.total_cents, b.status, b.created_at
FROM bookings b
JOIN rooms r ON r.id = b.room_id
WHERE b.guest_id = $1
ORDER BY b.created_at DESC`

func (r *BookingReadStore) FindByGuestID(ctx context.Context, guestID uuid.UUID) ([]*queries.BookingListItem, error) {
	rows, err := r.db.Query(ctx, findBookingsByGuestIDQuery, guestID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings by guest", err)
	}
	defer rows.Close()

	items := make([]*queries.BookingListItem, 0)
	for rows.Next() {
		var (
			item      queries.BookingListItem
			stay      pgtype.Range[pgtype.Date]
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.RoomID, &item.RoomName, &stay, &item.TotalCents, &item.Status, &createdAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan booking row", err)
		}
		if lower, upper, ok := pgconv.DateRangeBounds(stay); ok {
			item.CheckIn = lower
			item.CheckOut = upper
		}
		item.CreatedAt = pgconv.TimeFromPgtype(createdAt)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate booking rows", err)
	}

	return items, nil
}

const roomAvailableQuery = `
SELECT NOT EXISTS (
    SELECT 1 FROM bookings
    WHERE room_id = $1
      AND status IN ('pending', 'confirmed')
      AND stay && $2
)`

// RoomAvailable answers the advisory availability question. A true result
// can go stale before the booking insert; the exclusion constraint on
// bookings is what actually holds the invariant.
func (r *BookingReadStore) RoomAvailable(ctx context.Context, roomID uuid.UUID, span booking.DateRange) (bool, error) {
	stay := pgconv.DateRangeToPgtype(span.CheckIn(), span.CheckOut())

	var available bool
	if err := r.db.QueryRow(ctx, roomAvailableQuery, roomID, stay).Scan(&available); err != nil {
		return false, infra.WrapRepoErr("failed to check room availability", err)
	}
	return available, nil
}
