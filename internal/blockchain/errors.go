package blockchain

import "errors"

var (
	// ErrInsufficientFunds is returned when the payer cannot cover the transfer and fee.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTransactionFailed covers every other submission failure.
	ErrTransactionFailed = errors.New("transaction failed")
)
