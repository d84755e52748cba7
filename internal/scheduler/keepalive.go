// internal/scheduler/keepalive.go
package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

// KeepAlive pings the messaging service so the connection stays warm.
func KeepAlive(gateway messaging.Gateway, logger *zap.Logger) JobFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("keepalive")
	return func(ctx context.Context) error {
		if err := gateway.Ping(ctx); err != nil {
			return fmt.Errorf("keep-alive ping: %w", err)
		}
		logger.Debug("Keep-alive ping ok")
		return nil
	}
}
