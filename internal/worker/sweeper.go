package worker

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/infra/db"
	"staybook/internal/pkg/clock"
	"staybook/internal/pkg/config"
	"staybook/internal/pkg/metrics"
	"staybook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExpiredBookingCanceller interface {
	CancelExpired(ctx context.Context, tx db.DBTX, cutoff, now time.Time) ([]uuid.UUID, error)
}

type SessionExpirer interface {
	ExpireForBookings(ctx context.Context, tx db.DBTX, bookingIDs []uuid.UUID, now time.Time) error
}

type IdempotencyPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper reclaims pending bookings whose payment window has lapsed without
// a gateway settlement, so their dates become bookable again. It is the
// third finalization path next to the success and failure webhooks.
type Sweeper struct {
	bookings    ExpiredBookingCanceller
	sessions    SessionExpirer
	idempotency IdempotencyPruner
	db          *pgxpool.Pool
	clock       clock.Clock
	metrics     *metrics.Metrics
	window      time.Duration
	interval    time.Duration
}

func NewSweeper(
	bookings ExpiredBookingCanceller,
	sessions SessionExpirer,
	idempotency IdempotencyPruner,
	pool *pgxpool.Pool,
	clock clock.Clock,
	metrics *metrics.Metrics,
	cfg config.CheckoutConfig,
) *Sweeper {
	return &Sweeper{
		bookings:    bookings,
		sessions:    sessions,
		idempotency: idempotency,
		db:          pool,
		clock:       clock,
		metrics:     metrics,
		window:      cfg.PaymentWindow,
		interval:    cfg.SweepInterval,
	}
}

// Run loops until the context is cancelled. One failed sweep is logged and
// retried at the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				slog.Error("booking sweep failed", "error", err.Error())
			}
		}
	}
}

// SweepOnce cancels every pending booking older than the payment window and
// expires its open gateway session in the same transaction, so a webhook
// racing the sweep settles as a duplicate rather than reviving the booking.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.window)

	ids, err := shared.RunInTx(ctx, s.db, func(tx db.DBTX) ([]uuid.UUID, error) {
		ids, err := s.bookings.CancelExpired(ctx, tx, cutoff, now)
		if err != nil {
			return nil, err
		}
		if err := s.sessions.ExpireForBookings(ctx, tx, ids, now); err != nil {
			return nil, err
		}
		return ids, nil
	})
	if err != nil {
		return err
	}

	if len(ids) > 0 {
		s.metrics.SweeperCancelled.Add(float64(len(ids)))
		slog.Info("reclaimed expired pending bookings", "count", len(ids), "cutoff", cutoff)
	}

	if _, err := s.idempotency.DeleteExpired(ctx, now); err != nil {
		// Key pruning is housekeeping; a failure must not fail the sweep.
		slog.Warn("failed to prune expired idempotency keys", "error", err.Error())
	}

	return nil
}
