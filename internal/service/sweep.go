package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linemk/storefront/internal/storage"
)

// SweepService is the janitor for the pipeline's known gap: if the
// compensating delete after a failed items insert also fails, a pending
// header with zero items stays behind. The sweep deletes such headers once
// they are older than the grace period.
type SweepService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
	interval  time.Duration
	grace     time.Duration
}

func NewSweepService(log *slog.Logger, orderRepo storage.OrderStorage, interval, grace time.Duration) *SweepService {
	return &SweepService{
		log:       log,
		orderRepo: orderRepo,
		interval:  interval,
		grace:     grace,
	}
}

// Run loops until the context is cancelled. Intended to be started as a
// goroutine from main.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("orphan sweep stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes orphaned pending headers older than the grace period.
func (s *SweepService) SweepOnce(ctx context.Context) {
	const op = "service.SweepService.SweepOnce"
	cutoff := time.Now().Add(-s.grace)

	swept, err := s.orderRepo.DeleteOrphanedOrders(ctx, cutoff)
	if err != nil {
		s.log.Error("orphan sweep failed", slog.String("op", op), slog.Any("error", err))
		return
	}
	if swept > 0 {
		s.log.Warn("swept orphaned orders", slog.String("op", op), slog.Int64("count", swept))
	}
}
