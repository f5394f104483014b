package session

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes expired sessions.
type Sweeper struct {
	svc      Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(svc Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

// Run sweeps once per interval until ctx is cancelled.
func (sw *Sweeper) Run(ctx context.Context) {
	if sw.interval <= 0 {
		return
	}
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweepOnce(ctx)
		}
	}
}

func (sw *Sweeper) sweepOnce(ctx context.Context) {
	n, err := sw.svc.Sweep(ctx)
	if err != nil {
		sw.logger.Warn("session sweep failed", "err", err)
		return
	}
	if n > 0 {
		sw.logger.Info("expired sessions removed", "count", n)
	}
}
