package usecase

import (
	"context"
	"time"
)

// RunSweeperScheduler ticks SweepExpired at cfg.Sweeper.Interval until ctx
// is cancelled. A single overrunning sweep is never overlapped by the
// next tick: the ticker fires into the same goroutine, so a slow pass
// simply delays the next one rather than running concurrently with it.
func (u *ReservationUsecase) RunSweeperScheduler(ctx context.Context) {
	interval := u.cfg.Sweeper.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	u.log.Info("sweeper scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			u.log.Info("sweeper scheduler stopped")
			return
		case <-ticker.C:
			swept, err := u.SweepExpired(ctx)
			if err != nil {
				u.log.Error("sweep pass failed", "error", err)
				continue
			}
			if swept > 0 {
				u.log.Info("sweep pass released expired reservations", "count", swept)
			}
		}
	}
}
