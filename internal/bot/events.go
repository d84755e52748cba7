// internal/bot/events.go
package bot

import (
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	EventUserStarted         = "user_started"
	EventWalletConnected     = "wallet_connected"
	EventWalletConnectFailed = "wallet_connect_failed"
	EventSaleStep            = "sale_step"
	EventTradeExecuted       = "trade_executed"
	EventTradeFailed         = "trade_failed"
	EventAlertTriggered      = "alert_triggered"
)

// BotEvent is something that happened to a user, published on the EventBus.
type BotEvent interface {
	GetType() string
	GetTimestamp() time.Time
	GetUserID() int64
}

// UserStartedEvent is published when a user sends /start.
type UserStartedEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

func (e UserStartedEvent) GetType() string         { return EventUserStarted }
func (e UserStartedEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e UserStartedEvent) GetUserID() int64        { return e.UserID }

// WalletConnectedEvent carries only the masked public key.
type WalletConnectedEvent struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	MaskedWallet string    `json:"masked_wallet"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e WalletConnectedEvent) GetType() string         { return EventWalletConnected }
func (e WalletConnectedEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e WalletConnectedEvent) GetUserID() int64        { return e.UserID }

type WalletConnectFailedEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func (e WalletConnectFailedEvent) GetType() string         { return EventWalletConnectFailed }
func (e WalletConnectFailedEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e WalletConnectFailedEvent) GetUserID() int64        { return e.UserID }

// SaleStepEvent records progress through the private-sale flow.
type SaleStepEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Step      string    `json:"step"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e SaleStepEvent) GetType() string         { return EventSaleStep }
func (e SaleStepEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e SaleStepEvent) GetUserID() int64        { return e.UserID }

// TradeExecutedEvent is published after a successful buy or sell.
type TradeExecutedEvent struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Side      string    `json:"side"`
	Amount    float64   `json:"amount"`
	Pair      string    `json:"pair,omitempty"`
	PriceUSD  float64   `json:"price_usd,omitempty"`
	Signature string    `json:"signature"`
	Timestamp time.Time `json:"timestamp"`
}

func (e TradeExecutedEvent) GetType() string         { return EventTradeExecuted }
func (e TradeExecutedEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e TradeExecutedEvent) GetUserID() int64        { return e.UserID }

type TradeFailedEvent struct {
	UserID            int64     `json:"user_id"`
	Username          string    `json:"username"`
	Side              string    `json:"side"`
	Amount            float64   `json:"amount"`
	Error             string    `json:"error"`
	InsufficientFunds bool      `json:"insufficient_funds"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e TradeFailedEvent) GetType() string         { return EventTradeFailed }
func (e TradeFailedEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e TradeFailedEvent) GetUserID() int64        { return e.UserID }

// AlertTriggeredEvent is published by the alert sweep after a notification.
type AlertTriggeredEvent struct {
	UserID    int64     `json:"user_id"`
	Pair      string    `json:"pair"`
	PriceUSD  float64   `json:"price_usd"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

func (e AlertTriggeredEvent) GetType() string         { return EventAlertTriggered }
func (e AlertTriggeredEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e AlertTriggeredEvent) GetUserID() int64        { return e.UserID }

// EventSubscriber receives events of the types it lists.
type EventSubscriber interface {
	OnEvent(event BotEvent)
	GetSubscribedEventTypes() []string
}

// EventBus fans events out to subscribers, each on its own goroutine.
type EventBus struct {
	subscribers map[string][]EventSubscriber // event_type -> subscribers
	logger      *zap.Logger
	mu          sync.RWMutex
	inflight    sync.WaitGroup
}

// NewEventBus creates an event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventSubscriber),
		logger:      logger.Named("event_bus"),
	}
}

// Subscribe registers subscriber for its event types.
func (bus *EventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for _, eventType := range subscriber.GetSubscribedEventTypes() {
		bus.subscribers[eventType] = append(bus.subscribers[eventType], subscriber)
		bus.logger.Debug("Subscriber registered",
			zap.String("event_type", eventType),
			zap.String("subscriber", reflect.TypeOf(subscriber).String()))
	}
}

// Publish delivers event asynchronously. A panicking subscriber is logged and
// does not affect the others.
func (bus *EventBus) Publish(event BotEvent) {
	bus.mu.RLock()
	subscribers := bus.subscribers[event.GetType()]
	bus.mu.RUnlock()

	bus.logger.Debug("Publishing event",
		zap.String("event_type", event.GetType()),
		zap.Int64("user_id", event.GetUserID()),
		zap.Int("subscribers", len(subscribers)))

	for _, subscriber := range subscribers {
		bus.inflight.Add(1)
		go func(s EventSubscriber) {
			defer bus.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					bus.logger.Error("Event subscriber panic",
						zap.String("event_type", event.GetType()),
						zap.String("subscriber", reflect.TypeOf(s).String()),
						zap.Any("panic", r))
				}
			}()
			s.OnEvent(event)
		}(subscriber)
	}
}

// Wait blocks until every delivery started so far has finished.
func (bus *EventBus) Wait() {
	bus.inflight.Wait()
}

// GetSubscriberCount returns the number of subscribers for an event type.
func (bus *EventBus) GetSubscriberCount(eventType string) int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType])
}
