// internal/bot/conversation.go
package bot

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
)

// textHandler consumes the free text that answers a pending prompt. The
// awaiting flag is already cleared when it runs; it may arm a new one.
type textHandler func(ctx context.Context, req *Request, text string) error

func (e *Engine) registerConversation() {
	e.text = map[session.Awaiting]textHandler{
		session.AwaitingAuth:            e.answerAuth,
		session.AwaitingWallet:          e.answerWallet,
		session.AwaitingAmount:          e.answerAmount,
		session.AwaitingVerify:          e.answerVerify,
		session.AwaitingSniperV1Address: e.answerSniperV1,
		session.AwaitingConnectWallet:   e.connectWallet,
		session.AwaitingPair:            e.setPair,
		session.AwaitingAlertPrice:      e.setAlert,
		session.AwaitingBuyAmount:       e.answerBuy,
		session.AwaitingSellAmount:      e.answerSell,
		session.AwaitingDCASettings:     e.answerDCASettings,
		session.AwaitingToolName:        e.answerTool,
	}
}

// handleText runs one free-text turn: the pending flag is taken (and so
// cleared) first, then the input is interpreted against it.
func (e *Engine) handleText(ctx context.Context, ev messaging.Event) {
	req := &Request{Event: ev}
	text := strings.TrimSpace(ev.Text)

	awaiting := e.store.TakeAwaiting(ev.UserID)
	handler, ok := e.text[awaiting]
	if !ok {
		if err := e.replyText(ctx, req, nothingPending); err != nil {
			e.logger.Warn("Failed to send hint", zap.Int64("user_id", ev.UserID), zap.Error(err))
		}
		return
	}

	e.logger.Debug("Text turn",
		zap.Int64("user_id", ev.UserID),
		zap.String("awaiting", awaiting.String()))

	if err := handler(ctx, req, text); err != nil {
		e.logger.Error("Text handler failed",
			zap.Int64("user_id", ev.UserID),
			zap.String("awaiting", awaiting.String()),
			zap.Error(err))
	}
}

func (e *Engine) answerAuth(ctx context.Context, req *Request, text string) error {
	if !strings.EqualFold(text, e.passcode) {
		return e.replyText(ctx, req, authFailedText)
	}

	e.publish(SaleStepEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Step:      "authenticated",
		Timestamp: e.now(),
	})
	return e.prompt(ctx, req, authSuccessText, session.AwaitingWallet)
}

func (e *Engine) answerWallet(ctx context.Context, req *Request, text string) error {
	if utf8.RuneCountInString(text) < MinWalletLength {
		return e.replyText(ctx, req, walletFailedText)
	}

	e.publish(SaleStepEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Step:      "wallet_submitted",
		Detail:    text,
		Timestamp: e.now(),
	})

	if err := e.replyText(ctx, req, walletVerifiedText(codeSafe(text))); err != nil {
		return err
	}

	if e.graphicPath != "" {
		if err := e.reply(ctx, req, messaging.Message{PhotoPath: e.graphicPath}); err != nil {
			e.logger.Warn("Graphic not sent, using fallback text",
				zap.String("path", e.graphicPath),
				zap.Error(err))
			if err := e.replyText(ctx, req, graphicFallback); err != nil {
				return err
			}
		}
	} else if err := e.replyText(ctx, req, graphicFallback); err != nil {
		return err
	}

	return e.reply(ctx, req, messaging.Message{
		Text:     selectAmountText,
		Keyboard: amountKeyboard(),
	})
}

func (e *Engine) answerAmount(ctx context.Context, req *Request, text string) error {
	amount, problem := parsePositive(text)
	switch problem {
	case badFormat:
		return e.replyText(ctx, req, amountFormatText)
	case badValue:
		return e.replyText(ctx, req, amountInvalidText)
	}

	e.publish(SaleStepEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Step:      "amount_confirmed",
		Detail:    formatAmount(amount) + " SOL",
		Timestamp: e.now(),
	})
	return e.replyText(ctx, req, amountConfirmedText(amount))
}

func (e *Engine) answerVerify(ctx context.Context, req *Request, text string) error {
	if utf8.RuneCountInString(text) < MinSignatureLength {
		return e.replyText(ctx, req, verifyFailedText)
	}

	processedAt := e.now().Format(timestampLayout)
	e.publish(SaleStepEvent{
		UserID:    req.UserID,
		Username:  req.Username,
		Step:      "payment_submitted",
		Detail:    text,
		Timestamp: e.now(),
	})
	return e.replyText(ctx, req, submissionText(processedAt))
}

type inputProblem int

const (
	inputOK inputProblem = iota
	badFormat
	badValue
)

// parsePositive parses a positive finite number. Out-of-range literals are a
// bad value, not a bad format.
func parsePositive(text string) (float64, inputProblem) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, badFormat
	}
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, badValue
	}
	return v, inputOK
}
