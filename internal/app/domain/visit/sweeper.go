package visit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically closes sessions that overran the duration ceiling.
// The location-update path already applies the timeout rule lazily; the
// sweeper covers sessions whose clients stopped polling entirely.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(service Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Session timeout sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session timeout sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			closed, err := s.service.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("Timeout sweep failed", zap.Error(err))
				continue
			}
			if closed > 0 {
				s.logger.Info("Timeout sweep closed sessions", zap.Int("count", closed))
			}
		}
	}
}
