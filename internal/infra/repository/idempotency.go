package repository

import (
	"context"
	"time"

	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/pgconv"
	"staybook/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type IdempotencyRepository struct {
	db db.DBTX
}

func NewIdempotencyRepository(pool db.DBTX) *IdempotencyRepository {
	return &IdempotencyRepository{db: pool}
}

const tryInsertIdempotencyKeyQuery = `
INSERT INTO idempotency_keys (key, guest_id, endpoint, request_hash, status, expires_at)
VALUES ($1, $2, $3, $4, 'processing', $5)
ON CONFLICT (key, guest_id) DO NOTHING`

// TryInsert claims the key; ON CONFLICT DO NOTHING makes the claim race-free
// between concurrent retries of the same request.
func (r *IdempotencyRepository) TryInsert(ctx context.Context, key, guestID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, tryInsertIdempotencyKeyQuery, key, guestID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to insert idempotency key", err)
	}
	return tag.RowsAffected() > 0, nil
}

const getIdempotencyKeyQuery = `
SELECT key, guest_id, status, request_hash, result_booking_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND guest_id = $2`

func (r *IdempotencyRepository) Get(ctx context.Context, key, guestID uuid.UUID) (*commands.IdempotencyRecord, error) {
	var (
		record          commands.IdempotencyRecord
		resultBookingID pgtype.UUID
		expiresAt       pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, getIdempotencyKeyQuery, key, guestID).Scan(
		&record.Key, &record.GuestID, &record.Status, &record.RequestHash, &resultBookingID, &expiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get idempotency key", err)
	}

	record.ResultBookingID = pgconv.UUIDPtrFromPgtype(resultBookingID)
	record.ExpiresAt = pgconv.TimeFromPgtype(expiresAt)

	return &record, nil
}

const completeIdempotencyKeyQuery = `
UPDATE idempotency_keys
SET status = 'completed', result_booking_id = $3, updated_at = now()
WHERE key = $1 AND guest_id = $2`

func (r *IdempotencyRepository) UpdateStatusCompleted(ctx context.Context, tx db.DBTX, key, guestID uuid.UUID, resultBookingID uuid.UUID) error {
	_, err := tx.Exec(ctx, completeIdempotencyKeyQuery, key, guestID, resultBookingID)
	if err != nil {
		return infra.WrapRepoErr("failed to complete idempotency key", err)
	}
	return nil
}

const deleteIdempotencyKeyQuery = `
DELETE FROM idempotency_keys
WHERE key = $1 AND guest_id = $2`

func (r *IdempotencyRepository) Delete(ctx context.Context, key, guestID uuid.UUID) error {
	_, err := r.db.Exec(ctx, deleteIdempotencyKeyQuery, key, guestID)
	if err != nil {
		return infra.WrapRepoErr("failed to delete idempotency key", err)
	}
	return nil
}

const deleteExpiredIdempotencyKeysQuery = `
DELETE FROM idempotency_keys
WHERE expires_at < $1`

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, deleteExpiredIdempotencyKeysQuery, now)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
