// internal/bot/handlers_trading.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/trading"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/wallet"
)

func (e *Engine) registerTradingRoutes() {
	e.commands.Register("connectwallet", "Connect a wallet with its base58 secret key", e.handleConnectWallet)
	e.commands.Register("setpair", "Select the trading pair", e.handleSetPair)
	e.commands.Register("price", "Current price of the selected pair", e.handlePrice)
	e.commands.Register("balance", "SOL balance of the connected wallet", e.handleBalance)
	e.commands.Register("positions", "Positions and PnL on the selected pair", e.handlePositions)
	e.commands.Register("alert", "Notify when the pair price exceeds a value", e.handleAlert)
	e.commands.Register("portfolio", "Balance, total PnL and position count", e.handlePortfolio)
	e.commands.Register("buy", "Buy with an amount of SOL", e.handleBuy)
	e.commands.Register("sell", "Sell an amount of SOL", e.handleSell)
}

func (e *Engine) handleConnectWallet(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, connectPromptText, session.AwaitingConnectWallet)
	}
	return e.connectWallet(ctx, req, req.Arg(0))
}

// connectWallet never logs or echoes the secret key.
func (e *Engine) connectWallet(ctx context.Context, req *Request, secret string) error {
	w, err := wallet.New(secret)
	if err != nil {
		reason := walletErrorReason(err)
		e.publish(WalletConnectFailedEvent{
			UserID:    req.UserID,
			Username:  req.Username,
			Reason:    reason,
			Timestamp: e.now(),
		})
		return e.replyText(ctx, req, "❌ Error connecting wallet: "+reason)
	}

	e.store.Update(req.UserID, func(s *session.Session) {
		s.Wallet = w
	})

	e.logger.Info("✅ Wallet connected",
		zap.Int64("user_id", req.UserID),
		zap.String("wallet", w.Masked()))
	e.publish(WalletConnectedEvent{
		UserID:       req.UserID,
		Username:     req.Username,
		MaskedWallet: w.Masked(),
		Timestamp:    e.now(),
	})
	return e.replyText(ctx, req, fmt.Sprintf("✅ Wallet connected!\nWallet: 🟢 %s", w.Masked()))
}

func walletErrorReason(err error) string {
	switch {
	case errors.Is(err, wallet.ErrInvalidEncoding):
		return "the key is not valid base58"
	case errors.Is(err, wallet.ErrInvalidKeyLength):
		return fmt.Sprintf("the key must decode to %d bytes", wallet.SecretKeyLength)
	case errors.Is(err, wallet.ErrKeyMismatch):
		return "the key is corrupted"
	default:
		return "the key could not be read"
	}
}

func (e *Engine) handleSetPair(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, pairPromptText, session.AwaitingPair)
	}
	return e.setPair(ctx, req, req.Arg(0))
}

func (e *Engine) setPair(ctx context.Context, req *Request, text string) error {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return e.replyText(ctx, req, "Usage: /setpair <pairAddress>")
	}
	pair := codeSafe(fields[0])

	e.store.Update(req.UserID, func(s *session.Session) {
		s.SelectedPair = pair
	})
	return e.replyText(ctx, req, fmt.Sprintf("✅ Pair set to: `%s`", pair))
}

func (e *Engine) handlePrice(ctx context.Context, req *Request) error {
	sess := e.store.Get(req.UserID)
	if sess.SelectedPair == "" {
		return e.replyText(ctx, req, noPairText)
	}

	info, err := e.market.PairInfo(ctx, e.chainID, sess.SelectedPair)
	if err != nil || !info.HasPrice {
		return e.replyText(ctx, req, priceMissingText)
	}

	text := fmt.Sprintf("*Current price for %s:*\n💲 `%.6f USD`", escapeMarkdown(sess.SelectedPair), info.PriceUSD)
	if err := e.replyText(ctx, req, text); err != nil {
		return err
	}

	if info.IconURL != "" {
		if err := e.reply(ctx, req, messaging.Message{PhotoURL: info.IconURL}); err != nil {
			e.logger.Warn("Failed to send token icon",
				zap.String("pair", sess.SelectedPair),
				zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) handleBalance(ctx context.Context, req *Request) error {
	sess := e.store.Get(req.UserID)
	if !sess.HasWallet() {
		return e.replyText(ctx, req, noWalletText)
	}

	balance := e.trading.ComputeBalance(ctx, sess.Wallet.PublicKey)
	usd := balance * e.market.SpotPriceUSD(ctx)
	return e.replyText(ctx, req, fmt.Sprintf("*Your Wallet Balance:*\n💰 `%s`:\n`%s SOL` (≈ $%.2f)",
		sess.Wallet.PublicKey, formatAmount(balance), usd))
}

func (e *Engine) handlePositions(ctx context.Context, req *Request) error {
	sess := e.store.Get(req.UserID)
	if len(sess.Positions) == 0 {
		return e.replyText(ctx, req, "You have no open positions.")
	}
	if sess.SelectedPair == "" {
		return e.replyText(ctx, req, "No pair set for PnL calculation.")
	}

	positions := trading.PairPositions(sess.Positions, sess.SelectedPair)
	if len(positions) == 0 {
		return e.replyText(ctx, req, "No open positions for the current pair.")
	}

	price, hasPrice := e.trading.CurrentPrice(ctx, sess.SelectedPair)

	var b strings.Builder
	fmt.Fprintf(&b, "*📊 Positions for %s:*\n\n", escapeMarkdown(sess.SelectedPair))
	if !hasPrice {
		b.WriteString("⚠️ _Price unavailable, PnL not computed._\n\n")
	}
	for _, pos := range positions {
		fmt.Fprintf(&b, "• *Purchase:* `%s SOL` at 💲`%.6f USD`\n", formatAmount(pos.Amount), pos.PurchasePrice)
		fmt.Fprintf(&b, "  🕒 %s\n", pos.Timestamp.Local().Format(timestampLayout))
		fmt.Fprintf(&b, "  *Signature:* `%s`\n", pos.Signature)
		if hasPrice {
			fmt.Fprintf(&b, "  *PnL:* `%.2f USD`\n", trading.PositionPnL(pos, price))
		}
		b.WriteString("\n")
	}
	if hasPrice {
		fmt.Fprintf(&b, "👉 *Total PnL:* `%.2f USD`", trading.TotalPnL(positions, price))
	}
	return e.replyText(ctx, req, strings.TrimRight(b.String(), "\n"))
}

func (e *Engine) handleAlert(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, alertPromptText, session.AwaitingAlertPrice)
	}
	return e.setAlert(ctx, req, req.Arg(0))
}

func (e *Engine) setAlert(ctx context.Context, req *Request, text string) error {
	threshold, problem := parsePositive(text)
	if problem != inputOK {
		return e.replyText(ctx, req, alertInvalidText)
	}

	e.store.RegisterAlert(req.UserID, threshold)
	msg := fmt.Sprintf("🚨 Alert set: I'll notify you when the price exceeds 💲%s USD.", formatAmount(threshold))
	if e.store.Get(req.UserID).SelectedPair == "" {
		msg += "\n\nSet a pair with /setpair so the alert can be checked."
	}
	return e.replyText(ctx, req, msg)
}

func (e *Engine) handlePortfolio(ctx context.Context, req *Request) error {
	sess := e.store.Get(req.UserID)
	if !sess.HasWallet() {
		return e.replyText(ctx, req, "Connect wallet first using /connectwallet")
	}

	balance := e.trading.ComputeBalance(ctx, sess.Wallet.PublicKey)
	pnl := e.trading.ComputeTotalPnL(ctx, req.UserID)
	return e.replyText(ctx, req, fmt.Sprintf(
		"*📊 Portfolio Summary*\nSOL Balance: `%.4f`\nTotal PnL: `%.2f USD`\nActive Positions: `%d`",
		balance, pnl, len(sess.Positions)))
}

func (e *Engine) handleBuy(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, buyUsageText, session.AwaitingBuyAmount)
	}
	return e.executeTrade(ctx, req, trading.Buy, req.Arg(0))
}

func (e *Engine) handleSell(ctx context.Context, req *Request) error {
	if len(req.Args) == 0 {
		return e.prompt(ctx, req, sellUsageText, session.AwaitingSellAmount)
	}
	return e.executeTrade(ctx, req, trading.Sell, req.Arg(0))
}

func (e *Engine) answerBuy(ctx context.Context, req *Request, text string) error {
	return e.executeTrade(ctx, req, trading.Buy, text)
}

func (e *Engine) answerSell(ctx context.Context, req *Request, text string) error {
	return e.executeTrade(ctx, req, trading.Sell, text)
}

func (e *Engine) executeTrade(ctx context.Context, req *Request, side trading.Side, text string) error {
	amount, problem := parsePositive(text)
	switch problem {
	case badFormat:
		return e.replyText(ctx, req, amountFormatText)
	case badValue:
		return e.replyText(ctx, req, amountInvalidText)
	}

	var (
		res trading.Result
		err error
	)
	if side == trading.Buy {
		res, err = e.trading.Buy(ctx, req.UserID, amount)
	} else {
		res, err = e.trading.Sell(ctx, req.UserID, amount)
	}

	switch {
	case err == nil:
		e.publish(TradeExecutedEvent{
			UserID:    req.UserID,
			Username:  req.Username,
			Side:      side.String(),
			Amount:    amount,
			Pair:      res.Pair,
			PriceUSD:  res.PriceUSD,
			Signature: res.Signature.String(),
			Timestamp: e.now(),
		})
		return e.replyText(ctx, req, tradeSuccessText(res))
	case errors.Is(err, trading.ErrInvalidAmount):
		return e.replyText(ctx, req, amountInvalidText)
	case errors.Is(err, trading.ErrNoWallet):
		return e.replyText(ctx, req, noWalletText)
	case errors.Is(err, trading.ErrNoPair):
		return e.replyText(ctx, req, noPairText)
	case errors.Is(err, trading.ErrPriceUnavailable):
		return e.replyText(ctx, req, "Could not retrieve the pair price, the order was not sent. Please try again later.")
	}

	insufficient := errors.Is(err, blockchain.ErrInsufficientFunds)
	e.publish(TradeFailedEvent{
		UserID:            req.UserID,
		Username:          req.Username,
		Side:              side.String(),
		Amount:            amount,
		Error:             err.Error(),
		InsufficientFunds: insufficient,
		Timestamp:         e.now(),
	})
	return e.replyText(ctx, req, trading.FailureMessage(side, err))
}

func tradeSuccessText(res trading.Result) string {
	if res.Side == trading.Buy {
		return fmt.Sprintf("✅ *Purchase executed!*\n\nAmount: `%s SOL`\nPrice: 💲`%.6f USD`\nSignature: `%s`",
			formatAmount(res.Amount), res.PriceUSD, res.Signature)
	}
	return fmt.Sprintf("✅ *Sale executed!*\n\nAmount: `%s SOL`\nSignature: `%s`",
		formatAmount(res.Amount), res.Signature)
}

