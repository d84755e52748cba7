// internal/bot/supervisor.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	DefaultMaxRestarts  = 10
	DefaultRestartDelay = 5 * time.Second
)

// RestartRecorder counts restarts.
type RestartRecorder interface {
	RecordRestart()
}

// Supervisor re-runs a crashed bot instance after a fixed delay, up to a
// bounded number of restarts.
type Supervisor struct {
	maxRestarts int
	delay       time.Duration
	metrics     RestartRecorder
	logger      *zap.Logger
}

// NewSupervisor creates a supervisor. A negative maxRestarts or a non-positive
// delay falls back to the default; zero restarts means run once.
func NewSupervisor(maxRestarts int, delay time.Duration, metrics RestartRecorder, logger *zap.Logger) *Supervisor {
	if maxRestarts < 0 {
		maxRestarts = DefaultMaxRestarts
	}
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		maxRestarts: maxRestarts,
		delay:       delay,
		metrics:     metrics,
		logger:      logger.Named("supervisor"),
	}
}

// Run calls run until it returns without error or ctx is cancelled. A
// failure (error or panic) triggers a restart; after maxRestarts restarts the
// last failure is returned.
func (s *Supervisor) Run(ctx context.Context, run func(context.Context) error) error {
	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		err := s.runOnce(ctx, run)
		if ctx.Err() != nil {
			return struct{}{}, nil
		}
		if err != nil {
			s.logger.Error("💥 Bot instance crashed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.delay)),
		backoff.WithMaxTries(uint(s.maxRestarts+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if s.metrics != nil {
				s.metrics.RecordRestart()
			}
			s.logger.Warn("🔄 Restarting bot",
				zap.Int("restart", attempt),
				zap.Int("max_restarts", s.maxRestarts),
				zap.Duration("delay", wait))
		}))

	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		return nil
	}
	return fmt.Errorf("bot stopped after %d restarts: %w", attempt-1, err)
}

func (s *Supervisor) runOnce(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}
