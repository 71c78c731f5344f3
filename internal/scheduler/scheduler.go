// Package scheduler drives the periodic maintenance sweep. It is a plain
// fixed-interval ticker; all decisions about what to do live in the service.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/hmuroya/taskward/internal/service"
	"github.com/hmuroya/taskward/pkg/panicerr"
)

type Scheduler struct {
	svc      *service.TaskService
	interval time.Duration
}

func New(svc *service.TaskService, interval time.Duration) *Scheduler {
	return &Scheduler{
		svc:      svc,
		interval: interval,
	}
}

// Start runs one sweep per tick until ctx is cancelled. A sweep that panics
// or fails never takes the ticker loop down with it.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("maintenance scheduler started", "interval", s.interval)
	run := panicerr.SafeContext(func(ctx context.Context) error {
		_, err := s.svc.RunMaintenanceSweep(ctx, time.Now())
		return err
	})
	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				slog.Error("maintenance sweep failed", "error", err)
			}
		}
	}
}
