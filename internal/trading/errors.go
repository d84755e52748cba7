package trading

import (
	"errors"
	"fmt"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
)

var (
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrNoWallet         = errors.New("no wallet connected")
	ErrNoPair           = errors.New("no trading pair selected")
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInsufficientFunds is the chain classification, re-exported for callers
	// that only import this package.
	ErrInsufficientFunds = blockchain.ErrInsufficientFunds
)

// FailureMessage renders a failed trade for the user. Insufficient funds never
// exposes the underlying error text.
func FailureMessage(side Side, err error) string {
	if errors.Is(err, blockchain.ErrInsufficientFunds) {
		return fmt.Sprintf("💸 Insufficient funds for %s.", side.Noun())
	}
	return fmt.Sprintf("❌ Error during %s: %v", side.Noun(), err)
}
