package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spraylab/streetshop/internal/models"
)

// ExpiryWindow is how long an UNPAID order holds its reservation
// before the sweep reclaims it.
const ExpiryWindow = 15 * time.Minute

type SweepResult struct {
	Cancelled int      `json:"cancelled"`
	OrderIDs  []string `json:"order_ids"`
}

// SweepExpired cancels every UNPAID order older than the expiry window
// and restores its stock. Each order is its own transaction: one
// failure is logged and skipped, the next sweep retries it. Safe to
// call at any interval, including concurrently: the conditional
// status flip inside cancelTx makes a second sweep of the same order a
// no-op.
func (s *Service) SweepExpired(ctx context.Context, log *slog.Logger) (*SweepResult, error) {
	cutoff := time.Now().Add(-ExpiryWindow)

	var expired []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND created_at <= ?", string(StatusUnpaid), cutoff).
		Find(&expired).Error
	if err != nil {
		return nil, err
	}

	result := &SweepResult{OrderIDs: []string{}}
	for i := range expired {
		order := &expired[i]
		if err := s.cancelTx(ctx, order); err != nil {
			if errors.Is(err, ErrInvalidState) {
				// Lost the race to another trigger; nothing left to do.
				continue
			}
			log.Error("sweep: cancel failed", "order_id", order.ID, "error", err)
			continue
		}
		log.Info("sweep: order expired", "order_id", order.ID)
		result.Cancelled++
		result.OrderIDs = append(result.OrderIDs, order.ID)
	}
	return result, nil
}

// Sweeper runs SweepExpired on a fixed interval until the context is
// cancelled.
type Sweeper struct {
	Service  *Service
	Interval time.Duration
	Log      *slog.Logger
}

func (sw *Sweeper) Run(ctx context.Context) {
	interval := sw.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sw.Service.SweepExpired(ctx, sw.Log); err != nil {
				sw.Log.Error("sweep failed", "error", err)
			}
		}
	}
}
