// internal/bot/engine.go
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/market"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/trading"
)

// MarketData is the part of the market feed the handlers read.
type MarketData interface {
	PairInfo(ctx context.Context, chainID, pairID string) (market.PairInfo, error)
	SpotPriceUSD(ctx context.Context) float64
}

// Recorder receives dispatch metrics.
type Recorder interface {
	RecordCommand(command, status string)
	RecordCallback(callback, status string)
	SetSessions(n int)
}

// Config wires an Engine.
type Config struct {
	Gateway messaging.Gateway
	Store   *session.Store
	Trading *trading.Service
	Market  MarketData
	Events  *EventBus
	Metrics Recorder
	Logger  *zap.Logger

	ChainID         string
	Passcode        string
	DepositAddress  string
	ContractAddress string
	GraphicPath     string
}

// Engine is the dispatch entry point for inbound events. It routes commands
// and callbacks and runs the conversation state machine for free text.
type Engine struct {
	gateway messaging.Gateway
	store   *session.Store
	trading *trading.Service
	market  MarketData
	events  *EventBus
	metrics Recorder
	logger  *zap.Logger

	chainID         string
	passcode        string
	depositAddress  string
	contractAddress string
	graphicPath     string

	commands  *Router
	callbacks *Router
	text      map[session.Awaiting]textHandler

	turns sync.Map // user id -> *sync.Mutex
	now   func() time.Time
}

// NewEngine creates an engine with every command, callback and awaiting
// state registered.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Events == nil {
		cfg.Events = NewEventBus(cfg.Logger)
	}
	if cfg.ChainID == "" {
		cfg.ChainID = "solana"
	}
	if cfg.Passcode == "" {
		cfg.Passcode = DefaultPasscode
	}
	if cfg.DepositAddress == "" {
		cfg.DepositAddress = DefaultDepositAddress
	}
	if cfg.ContractAddress == "" {
		cfg.ContractAddress = DefaultContractAddress
	}

	logger := cfg.Logger.Named("engine")
	e := &Engine{
		gateway:         cfg.Gateway,
		store:           cfg.Store,
		trading:         cfg.Trading,
		market:          cfg.Market,
		events:          cfg.Events,
		metrics:         cfg.Metrics,
		logger:          logger,
		chainID:         cfg.ChainID,
		passcode:        cfg.Passcode,
		depositAddress:  cfg.DepositAddress,
		contractAddress: cfg.ContractAddress,
		graphicPath:     cfg.GraphicPath,
		commands:        NewRouter(logger.Named("commands")),
		callbacks:       NewRouter(logger.Named("callbacks")),
		now:             time.Now,
	}

	// A command abandons whatever the user was in the middle of.
	e.commands.OnMatch(func(_ context.Context, req *Request) {
		e.store.SetAwaiting(req.UserID, session.AwaitingNone)
	})

	e.registerSaleRoutes()
	e.registerTradingRoutes()
	e.registerPlanRoutes()
	e.registerConversation()
	return e
}

// Commands lists the registered commands with descriptions.
func (e *Engine) Commands() []CommandInfo {
	return e.commands.Commands()
}

// Events exposes the engine's event bus.
func (e *Engine) Events() *EventBus {
	return e.events
}

// HandleEvent processes one inbound event. Turns of the same user are
// serialized; different users run concurrently.
func (e *Engine) HandleEvent(ctx context.Context, ev messaging.Event) {
	if ev.ChatID == 0 {
		ev.ChatID = ev.UserID
	}

	unlock := e.lockUser(ev.UserID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Handler panic",
				zap.Int64("user_id", ev.UserID),
				zap.String("kind", ev.Kind.String()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	switch ev.Kind {
	case messaging.EventCommand:
		e.handleCommand(ctx, ev)
	case messaging.EventText:
		e.handleText(ctx, ev)
	case messaging.EventCallback:
		e.handleCallback(ctx, ev)
	default:
		e.logger.Warn("Unknown event kind", zap.Int("kind", int(ev.Kind)))
	}

	if e.metrics != nil {
		e.metrics.SetSessions(e.store.Len())
	}
}

func (e *Engine) handleCommand(ctx context.Context, ev messaging.Event) {
	found, err := e.commands.Dispatch(ctx, ev.Command, ev)
	if !found {
		e.logger.Debug("Unknown command ignored",
			zap.Int64("user_id", ev.UserID),
			zap.String("command", ev.Command))
		return
	}
	e.recordOutcome(ev, ev.Command, err)
}

func (e *Engine) handleCallback(ctx context.Context, ev messaging.Event) {
	handler, suffix, ok := e.callbacks.Lookup(ev.CallbackData)
	if !ok {
		e.logger.Debug("Unknown callback ignored",
			zap.Int64("user_id", ev.UserID),
			zap.String("data", ev.CallbackData))
		return
	}

	err := handler(ctx, &Request{Event: ev, Suffix: suffix})
	e.recordOutcome(ev, strings.TrimSuffix(ev.CallbackData, suffix), err)
}

func (e *Engine) recordOutcome(ev messaging.Event, label string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		e.logger.Error("Handler failed",
			zap.Int64("user_id", ev.UserID),
			zap.String("kind", ev.Kind.String()),
			zap.String("name", label),
			zap.Error(err))
	}
	if e.metrics == nil {
		return
	}
	if ev.Kind == messaging.EventCallback {
		e.metrics.RecordCallback(label, status)
	} else {
		e.metrics.RecordCommand(label, status)
	}
}

func (e *Engine) lockUser(userID int64) func() {
	v, _ := e.turns.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// reply delivers msg to the chat of req.
func (e *Engine) reply(ctx context.Context, req *Request, msg messaging.Message) error {
	if err := e.gateway.Deliver(ctx, req.ChatID, msg); err != nil {
		return fmt.Errorf("deliver to chat %d: %w", req.ChatID, err)
	}
	return nil
}

func (e *Engine) replyText(ctx context.Context, req *Request, text string) error {
	return e.reply(ctx, req, messaging.Text(text))
}

// prompt sends text and arms the awaiting state.
func (e *Engine) prompt(ctx context.Context, req *Request, text string, awaiting session.Awaiting) error {
	err := e.replyText(ctx, req, text)
	e.store.SetAwaiting(req.UserID, awaiting)
	return err
}

func (e *Engine) publish(event BotEvent) {
	e.events.Publish(event)
}

