// internal/scheduler/sweep.go
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/market"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
)

// PriceSource resolves pair prices.
type PriceSource interface {
	PairInfo(ctx context.Context, chainID, pairID string) (market.PairInfo, error)
}

// AlertRecorder counts fired alerts.
type AlertRecorder interface {
	RecordAlertTriggered()
}

// Trigger describes an alert that was delivered.
type Trigger struct {
	UserID    int64
	Pair      string
	PriceUSD  float64
	Threshold float64
}

// AlertSweepConfig wires an AlertSweep.
type AlertSweepConfig struct {
	Store   *session.Store
	Prices  PriceSource
	Gateway messaging.Gateway
	ChainID string
	Metrics AlertRecorder
	Logger  *zap.Logger
	// OnTrigger is called after an alert notification was delivered.
	OnTrigger func(Trigger)
}

// AlertSweep fires one-shot price alerts whose threshold was crossed.
type AlertSweep struct {
	store     *session.Store
	prices    PriceSource
	gateway   messaging.Gateway
	chainID   string
	metrics   AlertRecorder
	logger    *zap.Logger
	onTrigger func(Trigger)
}

// NewAlertSweep creates the sweep job.
func NewAlertSweep(cfg AlertSweepConfig) *AlertSweep {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ChainID == "" {
		cfg.ChainID = "solana"
	}
	return &AlertSweep{
		store:     cfg.Store,
		prices:    cfg.Prices,
		gateway:   cfg.Gateway,
		chainID:   cfg.ChainID,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.Named("alert_sweep"),
		onTrigger: cfg.OnTrigger,
	}
}

// AlertText is the notification pushed when an alert fires.
func AlertText(pair string, price, threshold float64) string {
	return fmt.Sprintf("🚨 *Price Alert!*\n\nToken: `%s`\nCurrent Price: `$%.6f`\nAlert Price: `$%.6f`",
		pair, price, threshold)
}

// Run performs one sweep. No session lock is held while prices are fetched;
// an alert is claimed by compare-and-delete on its registration sequence and
// the pair it was priced against, so a concurrent re-registration or pair
// switch is never lost.
func (a *AlertSweep) Run(ctx context.Context) error {
	alerts := lo.Filter(a.store.Alerts(), func(entry session.AlertEntry, _ int) bool {
		return entry.Pair != ""
	})
	if len(alerts) == 0 {
		return nil
	}

	pairs := lo.Uniq(lo.Map(alerts, func(entry session.AlertEntry, _ int) string {
		return entry.Pair
	}))

	prices := make(map[string]float64, len(pairs))
	var errs []error
	for _, pair := range pairs {
		info, err := a.prices.PairInfo(ctx, a.chainID, pair)
		if err != nil {
			errs = append(errs, fmt.Errorf("pair %s: %w", pair, err))
			continue
		}
		if info.HasPrice {
			prices[pair] = info.PriceUSD
		}
	}

	for _, entry := range alerts {
		price, ok := prices[entry.Pair]
		if !ok || price <= entry.Alert.Threshold {
			continue
		}
		a.fire(ctx, entry, price)
	}

	return errors.Join(errs...)
}

func (a *AlertSweep) fire(ctx context.Context, entry session.AlertEntry, price float64) {
	if !a.store.ConsumeAlert(entry.UserID, entry.Alert.Seq, entry.Pair) {
		a.logger.Debug("Alert or pair changed since snapshot", zap.Int64("user_id", entry.UserID))
		return
	}

	text := AlertText(entry.Pair, price, entry.Alert.Threshold)
	if err := a.gateway.Deliver(ctx, entry.UserID, messaging.Text(text)); err != nil {
		restored := a.store.RestoreAlert(entry.UserID, entry.Alert)
		a.logger.Warn("Failed to deliver price alert",
			zap.Int64("user_id", entry.UserID),
			zap.String("pair", entry.Pair),
			zap.Bool("restored", restored),
			zap.Error(err))
		return
	}

	a.logger.Info("🚨 Price alert triggered",
		zap.Int64("user_id", entry.UserID),
		zap.String("pair", entry.Pair),
		zap.Float64("price", price),
		zap.Float64("threshold", entry.Alert.Threshold))

	if a.metrics != nil {
		a.metrics.RecordAlertTriggered()
	}
	if a.onTrigger != nil {
		a.onTrigger(Trigger{
			UserID:    entry.UserID,
			Pair:      entry.Pair,
			PriceUSD:  price,
			Threshold: entry.Alert.Threshold,
		})
	}
}
