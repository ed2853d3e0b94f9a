package pgconv

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

func UUIDPtrFromPgtype(pu pgtype.UUID) *uuid.UUID {
	if !pu.Valid {
		return nil
	}
	id := uuid.UUID(pu.Bytes)
	return &id
}

func StringPtrFromPgtype(pt pgtype.Text) *string {
	if !pt.Valid {
		return nil
	}
	return &pt.String
}

func TimeFromPgtype(pt pgtype.Timestamptz) time.Time {
	return pt.Time
}

func TimeToPgtype(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// DateRangeToPgtype builds a half-open [lower, upper) daterange.
func DateRangeToPgtype(lower, upper time.Time) pgtype.Range[pgtype.Date] {
	return pgtype.Range[pgtype.Date]{
		Lower:     pgtype.Date{Time: lower, Valid: true},
		Upper:     pgtype.Date{Time: upper, Valid: true},
		LowerType: pgtype.Inclusive,
		UpperType: pgtype.Exclusive,
		Valid:     true,
	}
}

func DateRangeBounds(r pgtype.Range[pgtype.Date]) (lower, upper time.Time, ok bool) {
	if !r.Valid {
		return time.Time{}, time.Time{}, false
	}
	return r.Lower.Time, r.Upper.Time, true
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
