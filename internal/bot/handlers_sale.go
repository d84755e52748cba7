// internal/bot/handlers_sale.go
package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
)

func (e *Engine) registerSaleRoutes() {
	e.commands.Register("start", "Welcome and private-sale overview", e.handleStart)
	e.commands.Register("help", "Show this list", e.handleHelp)
	e.commands.Register("auth", "Enter your access code", e.handleAuth)
	e.commands.Register("wallet", "Submit your wallet address", e.handleWallet)
	e.commands.Register("amount", "Enter your contribution amount", e.handleAmount)
	e.commands.Register("payment", "Show the deposit address", e.handlePayment)
	e.commands.Register("verify", "Submit your transaction proof", e.handleVerify)

	e.callbacks.Register(CallbackBeginAuth, "", e.handleAuth)
	e.callbacks.Register(CallbackShowVerification, "", e.handleVerify)
	e.callbacks.RegisterPrefix(CallbackAmountPrefix, e.handleAmountSelected)
}

func (e *Engine) handleStart(ctx context.Context, req *Request) error {
	e.publish(UserStartedEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Timestamp: e.now(),
	})

	return e.reply(ctx, req, messaging.Message{
		Text:           welcomeText,
		Keyboard:       [][]messaging.Button{{{Text: "🔐 Begin Authentication", Data: CallbackBeginAuth}}},
		DisablePreview: true,
	})
}

func (e *Engine) handleHelp(ctx context.Context, req *Request) error {
	return e.replyText(ctx, req, helpText(e.commands.Commands()))
}

func (e *Engine) handleAuth(ctx context.Context, req *Request) error {
	return e.prompt(ctx, req, authPromptText, session.AwaitingAuth)
}

func (e *Engine) handleWallet(ctx context.Context, req *Request) error {
	return e.prompt(ctx, req, walletPromptText, session.AwaitingWallet)
}

func (e *Engine) handleAmount(ctx context.Context, req *Request) error {
	return e.prompt(ctx, req, amountPromptText, session.AwaitingAmount)
}

func (e *Engine) handlePayment(ctx context.Context, req *Request) error {
	return e.replyText(ctx, req, paymentText(e.depositAddress))
}

func (e *Engine) handleVerify(ctx context.Context, req *Request) error {
	return e.prompt(ctx, req, verifyPromptText, session.AwaitingVerify)
}

// handleAmountSelected handles sol_<amount> taps. A suffix that is not a
// positive finite number is ignored.
func (e *Engine) handleAmountSelected(ctx context.Context, req *Request) error {
	amount, problem := parsePositive(req.Suffix)
	if problem != inputOK {
		e.logger.Debug("Malformed amount callback ignored",
			zap.Int64("user_id", req.UserID),
			zap.String("data", req.CallbackData))
		return nil
	}

	e.publish(SaleStepEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Step:      "amount_selected",
		Detail:    formatAmount(amount) + " SOL",
		Timestamp: e.now(),
	})

	return e.reply(ctx, req, messaging.Message{
		Text:     selectedAmountText(formatAmount(amount), e.contractAddress),
		Keyboard: [][]messaging.Button{{{Text: "Transaction Verification", Data: CallbackShowVerification}}},
	})
}
