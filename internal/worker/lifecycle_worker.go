package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TransitionRunner advances due tickets until ctx is done.
type TransitionRunner interface {
	Run(ctx context.Context, interval time.Duration)
}

// RunLifecycleWorker blocks polling for due lifecycle transitions.
func RunLifecycleWorker(ctx context.Context, runner TransitionRunner, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("lifecycle worker started", zap.Duration("interval", interval))
	runner.Run(ctx, interval)
	logger.Info("lifecycle worker stopped")
}
