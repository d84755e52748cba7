// internal/bot/activity.go
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

// ActivityTargets are the chats activity summaries are forwarded to.
// A zero id disables that target.
type ActivityTargets struct {
	LogChannelID   int64
	BackendGroupID int64
	AdminGroupID   int64
}

// ActivityReporter forwards bot events to the operator chats.
type ActivityReporter struct {
	gateway messaging.Gateway
	targets ActivityTargets
	timeout time.Duration
	logger  *zap.Logger
}

// NewActivityReporter creates a reporter. It still has to be subscribed to a bus.
func NewActivityReporter(gateway messaging.Gateway, targets ActivityTargets, logger *zap.Logger) *ActivityReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityReporter{
		gateway: gateway,
		targets: targets,
		timeout: 10 * time.Second,
		logger:  logger.Named("activity"),
	}
}

// Enabled reports whether any target is configured.
func (r *ActivityReporter) Enabled() bool {
	return r.targets.LogChannelID != 0 || r.targets.BackendGroupID != 0 || r.targets.AdminGroupID != 0
}

func (r *ActivityReporter) GetSubscribedEventTypes() []string {
	return []string{
		EventUserStarted,
		EventWalletConnected,
		EventWalletConnectFailed,
		EventSaleStep,
		EventTradeExecuted,
		EventTradeFailed,
		EventAlertTriggered,
	}
}

func (r *ActivityReporter) OnEvent(event BotEvent) {
	text := activityText(event)

	r.send(r.targets.LogChannelID, "log_channel", text)
	if isUserAction(event) {
		r.send(r.targets.BackendGroupID, "backend_group", text)
	}
	if failed, ok := event.(TradeFailedEvent); ok && !failed.InsufficientFunds {
		r.send(r.targets.AdminGroupID, "admin_group", adminAlertText(failed))
	}
}

func (r *ActivityReporter) send(chatID int64, target, text string) {
	if chatID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.gateway.Deliver(ctx, chatID, messaging.Text(text)); err != nil {
		r.logger.Warn("Failed to forward activity",
			zap.String("target", target),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

func isUserAction(event BotEvent) bool {
	switch event.GetType() {
	case EventUserStarted, EventWalletConnected, EventSaleStep, EventTradeExecuted, EventTradeFailed:
		return true
	}
	return false
}

func activityText(event BotEvent) string {
	var username, action string
	switch ev := event.(type) {
	case UserStartedEvent:
		username, action = ev.Username, "Started the bot"
	case WalletConnectedEvent:
		username, action = ev.Username, fmt.Sprintf("Connected wallet `%s`", ev.MaskedWallet)
	case WalletConnectFailedEvent:
		username, action = ev.Username, "Wallet connection failed: "+escapeMarkdown(ev.Reason)
	case SaleStepEvent:
		username, action = ev.Username, "Private sale: "+escapeMarkdown(ev.Step)
		if ev.Detail != "" {
			action += fmt.Sprintf(" `%s`", codeSafe(ev.Detail))
		}
	case TradeExecutedEvent:
		username = ev.Username
		action = fmt.Sprintf("%s %s SOL", strings.ToUpper(ev.Side), formatAmount(ev.Amount))
		if ev.Pair != "" {
			action += fmt.Sprintf(" on `%s`", codeSafe(ev.Pair))
		}
		action += fmt.Sprintf("\n🔗 Signature: `%s`", ev.Signature)
	case TradeFailedEvent:
		username = ev.Username
		action = fmt.Sprintf("%s %s SOL failed: %s", strings.ToUpper(ev.Side), formatAmount(ev.Amount), escapeMarkdown(ev.Error))
	case AlertTriggeredEvent:
		action = fmt.Sprintf("Price alert on `%s`: $%.6f > $%.6f", codeSafe(ev.Pair), ev.PriceUSD, ev.Threshold)
	default:
		action = escapeMarkdown(event.GetType())
	}

	user := "unknown"
	if username != "" {
		user = "@" + escapeMarkdown(username)
	}
	return fmt.Sprintf("📊 *User Activity*\n👤 User: %s (`%d`)\n⚡ Action: %s\n🕐 Time: %s",
		user, event.GetUserID(), action, event.GetTimestamp().Format(timestampLayout))
}

func adminAlertText(ev TradeFailedEvent) string {
	return fmt.Sprintf("⚠️ *Trade Error*\n👤 User: `%d`\n⚡ Side: %s\n💰 Amount: %s SOL\n❌ Error: %s\n🕐 Time: %s",
		ev.UserID, ev.Side, formatAmount(ev.Amount), escapeMarkdown(ev.Error), ev.Timestamp.Format(timestampLayout))
}
