// internal/bot/runner.go
package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain/solbc"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/config"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/health"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/market"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/scheduler"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/telegram"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/trading"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/utils/metrics"
)

// Runner owns the long-lived state (sessions, chain client, price feed,
// engagement counter) and restarts the Telegram side around it.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	metrics    *metrics.Collector
	store      *session.Store
	feed       *market.Feed
	trading    *trading.Service
	counter    *scheduler.EngagementCounter
	supervisor *Supervisor
	health     *health.Server
	shutdown   *ShutdownHandler
	shutdownCh chan os.Signal
}

// NewRunner wires every long-lived component from cfg.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	collector := metrics.NewCollector()

	chain, err := solbc.NewClient(solbc.Config{
		Endpoints: cfg.RPCList,
		Timeout:   cfg.RequestTimeout,
		Logger:    logger,
		Metrics:   collector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chain client: %w", err)
	}

	feed, err := market.NewFeed(market.Config{
		RequestTimeout:  cfg.RequestTimeout,
		SpotTimeout:     cfg.SpotTimeout,
		CacheTTL:        cfg.PriceCacheTTL,
		SpotFallbackUSD: cfg.SpotFallbackUSD,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create market feed: %w", err)
	}

	counterparty, err := solana.PublicKeyFromBase58(cfg.DexWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid dex wallet: %w", err)
	}

	store := session.NewStore(logger)
	tradingService := trading.NewService(trading.Config{
		Chain:        chain,
		Prices:       feed,
		Store:        store,
		ChainID:      cfg.ChainID,
		Counterparty: counterparty,
		Logger:       logger,
		Metrics:      collector,
	})

	shutdown := NewShutdownHandler(logger, 30*time.Second)
	shutdown.Add("market_feed", feed)

	return &Runner{
		logger:     logger,
		config:     cfg,
		metrics:    collector,
		store:      store,
		feed:       feed,
		trading:    tradingService,
		counter:    scheduler.NewEngagementCounter(cfg.CounterSeed, cfg.CounterStep, logger),
		supervisor: NewSupervisor(cfg.MaxRestarts, cfg.RestartDelay, collector, logger),
		health:     health.NewServer(fmt.Sprintf(":%d", cfg.HealthPort), collector.Registry(), logger),
		shutdown:   shutdown,
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// OnShutdown registers fn to run during Shutdown. Later registrations run first.
func (r *Runner) OnShutdown(name string, fn func() error) {
	r.shutdown.AddFunc(name, fn)
}

// Run serves until SIGINT/SIGTERM, ctx cancellation, or the restart bound
// is exceeded.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(r.shutdownCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("📡 Signal received: " + sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	r.logger.Info("🚀 Starting bot",
		zap.Int("rpc_nodes", len(r.config.RPCList)),
		zap.Int("health_port", r.config.HealthPort),
		zap.Int("max_restarts", r.config.MaxRestarts))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.health.Run(gctx)
	})
	g.Go(func() error {
		err := r.supervisor.Run(gctx, r.runInstance)
		cancel()
		return err
	})

	err := g.Wait()
	r.Shutdown()
	return err
}

// runInstance runs one Telegram session: gateway, engine, event bus and
// background jobs. It returns when ctx is cancelled or a part fails.
func (r *Runner) runInstance(ctx context.Context) error {
	gateway, err := telegram.New(telegram.Config{
		Token:  r.config.TelegramToken,
		Logger: r.logger,
	})
	if err != nil {
		return err
	}

	bus := NewEventBus(r.logger)
	defer bus.Wait()

	engine := NewEngine(Config{
		Gateway:         gateway,
		Store:           r.store,
		Trading:         r.trading,
		Market:          r.feed,
		Events:          bus,
		Metrics:         r.metrics,
		Logger:          r.logger,
		ChainID:         r.config.ChainID,
		Passcode:        r.config.Passcode,
		DepositAddress:  r.config.DepositAddress,
		ContractAddress: r.config.ContractAddress,
		GraphicPath:     r.config.GraphicPath,
	})

	reporter := NewActivityReporter(gateway, ActivityTargets{
		LogChannelID:   r.config.LogChannelID,
		BackendGroupID: r.config.BackendGroupID,
		AdminGroupID:   r.config.AdminGroupID,
	}, r.logger)
	if reporter.Enabled() {
		bus.Subscribe(reporter)
	}

	if err := gateway.SetCommands(telegramCommands(engine.Commands())); err != nil {
		r.logger.Warn("Failed to publish command menu", zap.Error(err))
	}

	sweep := scheduler.NewAlertSweep(scheduler.AlertSweepConfig{
		Store:   r.store,
		Prices:  r.feed,
		Gateway: gateway,
		ChainID: r.config.ChainID,
		Metrics: r.metrics,
		Logger:  r.logger,
		OnTrigger: func(t scheduler.Trigger) {
			bus.Publish(AlertTriggeredEvent{
				UserID:    t.UserID,
				Pair:      t.Pair,
				PriceUSD:  t.PriceUSD,
				Threshold: t.Threshold,
				Timestamp: time.Now(),
			})
		},
	})

	jobs := scheduler.New(r.metrics, r.logger)
	jobs.Every("price_alerts", r.config.AlertInterval, false, sweep.Run)
	jobs.Every("engagement_counter", r.config.CounterInterval, true, r.counter.Job(gateway))
	jobs.Every("keepalive", r.config.KeepaliveInterval, true, scheduler.KeepAlive(gateway, r.logger))

	r.logger.Info("✅ Bot instance ready",
		zap.String("bot", gateway.Username()),
		zap.Int("commands", len(engine.Commands())),
		zap.Bool("activity_reporting", reporter.Enabled()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobs.Run(gctx)
	})
	g.Go(func() error {
		return gateway.Start(gctx, engine)
	})
	return g.Wait()
}

// Shutdown closes the registered services.
func (r *Runner) Shutdown() {
	r.logger.Info("👋 Bot shutting down gracefully")
	if err := r.shutdown.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}

func telegramCommands(commands []CommandInfo) []telegram.Command {
	out := make([]telegram.Command, 0, len(commands))
	for _, c := range commands {
		out = append(out, telegram.Command{Name: c.Name, Description: c.Description})
	}
	return out
}
