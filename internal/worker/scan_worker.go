package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/room-ticket-service/internal/domain"
)

// Scanner runs one detection pass.
type Scanner interface {
	Scan(ctx context.Context) (*domain.ScanResult, error)
}

// RunScanWorker scans immediately and then every interval until ctx is done.
// A failed scan is logged and the next tick tries again.
func RunScanWorker(ctx context.Context, scanner Scanner, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("scan worker started", zap.Duration("interval", interval))
	defer logger.Info("scan worker stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := scanner.Scan(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduled scan failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
