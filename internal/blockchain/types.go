// internal/blockchain/types.go
package blockchain

import (
	"context"
	"math"

	"github.com/gagliardetto/solana-go"
)

// Client is the subset of chain access the trading core relies on.
type Client interface {
	// GetLatestBlockhash returns a finalized blockhash for new transactions.
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	// SubmitTransfer moves lamports from the signer to the destination.
	SubmitTransfer(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error)
	// GetBalance returns the account balance in lamports.
	GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error)
}

// SolToLamports converts a SOL amount to lamports, rounding down.
// Negative, NaN, infinite and out-of-range inputs yield zero.
func SolToLamports(amount float64) uint64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0
	}
	lamports := math.Floor(amount * float64(solana.LAMPORTS_PER_SOL))
	if lamports >= float64(math.MaxUint64) {
		return 0
	}
	return uint64(lamports)
}

// LamportsToSol converts lamports to SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
