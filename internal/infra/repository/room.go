package repository

import (
	"context"

	"staybook/internal/infra"
	"staybook/internal/infra/db"
	"staybook/internal/pkg/pgconv"
	"staybook/internal/usecase/commands"

	"github.com/google/uuid"
)

type RoomRepository struct {
	db db.DBTX
}

func NewRoomRepository(pool db.DBTX) *RoomRepository {
	return &RoomRepository{db: pool}
}

const findRoomByIDQuery = `
SELECT id, name, nightly_rate_cents
FROM rooms
WHERE id = $1`

func (r *RoomRepository) FindByID(ctx context.Context, id uuid.UUID) (*commands.RoomSnapshot, error) {
	var snapshot commands.RoomSnapshot
	err := r.db.QueryRow(ctx, findRoomByIDQuery, id).Scan(&snapshot.ID, &snapshot.Name, &snapshot.NightlyRateCents)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("room not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find room", err)
	}
	return &snapshot, nil
}
