// internal/scheduler/counter.go
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

const (
	DefaultCounterSeed = 72847
	DefaultCounterStep = 2
)

// EngagementCounter publishes a growing "monthly users" figure as the bot's
// profile text. The value outlives the gateway it is published through.
type EngagementCounter struct {
	step    int64
	printer *message.Printer
	logger  *zap.Logger

	mu    sync.Mutex
	value int64
}

// NewEngagementCounter creates a counter starting at seed.
func NewEngagementCounter(seed, step int64, logger *zap.Logger) *EngagementCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementCounter{
		step:    step,
		value:   seed,
		printer: message.NewPrinter(language.English),
		logger:  logger.Named("engagement_counter"),
	}
}

// Value returns the current figure.
func (c *EngagementCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Text renders n with thousands separators.
func (c *EngagementCounter) Text(n int64) string {
	return c.printer.Sprintf("%d monthly users", n)
}

// Job returns the periodic job publishing through gateway. The first run of
// each job republishes the current value; later runs advance it by step.
func (c *EngagementCounter) Job(gateway messaging.Gateway) JobFunc {
	var started bool
	return func(ctx context.Context) error {
		advance := started
		started = true
		return c.publish(ctx, gateway, advance)
	}
}

func (c *EngagementCounter) publish(ctx context.Context, gateway messaging.Gateway, advance bool) error {
	c.mu.Lock()
	if advance {
		c.value += c.step
	}
	n := c.value
	c.mu.Unlock()

	text := c.Text(n)
	if err := gateway.SetProfileText(ctx, text); err != nil {
		return fmt.Errorf("set profile text: %w", err)
	}
	c.logger.Debug("Engagement counter published", zap.Int64("value", n))
	return nil
}
