package scheduler

import (
	"context"
	"time"

	"travelwithstudents/internal/usecase"

	"go.uber.org/zap"
)

// Sweeper periodically advances deadline-driven state: pending requests
// past their expiry, accepted requests past their payment deadline, and
// confirmed bookings past the attendance grace window.
type Sweeper struct {
	request    usecase.RequestService
	attendance usecase.AttendanceService
	interval   time.Duration
	log        *zap.Logger
}

func NewSweeper(request usecase.RequestService, attendance usecase.AttendanceService, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		request:    request,
		attendance: attendance,
		interval:   interval,
		log:        log.With(zap.String("component", "sweeper")),
	}
}

// Run blocks until ctx is cancelled. Every sweep is idempotent, so a
// missed or doubled tick is harmless.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()

	if err := s.request.ExpireSweep(ctx, now); err != nil {
		s.log.Error("Request expiry sweep failed", zap.Error(err))
	}

	if err := s.attendance.ResolveStale(ctx, now); err != nil {
		s.log.Error("Stale attendance sweep failed", zap.Error(err))
	}
}
