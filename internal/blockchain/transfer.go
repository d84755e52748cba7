// internal/blockchain/transfer.go
package blockchain

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
)

// BaseFeeLamports is the network fee for a single-signature transaction.
const BaseFeeLamports uint64 = 5000

// TransferUnits is the compute-unit limit requested when a priority fee is set.
const TransferUnits uint32 = 1_000

// TransferBuilder assembles a signed system transfer.
type TransferBuilder struct {
	from          solana.PrivateKey
	to            solana.PublicKey
	lamports      uint64
	blockhash     solana.Hash
	microLamports uint64
}

// NewTransferBuilder starts a transfer of lamports from the signer to the destination.
func NewTransferBuilder(from solana.PrivateKey, to solana.PublicKey, lamports uint64) *TransferBuilder {
	return &TransferBuilder{from: from, to: to, lamports: lamports}
}

// WithBlockhash sets the recent blockhash.
func (b *TransferBuilder) WithBlockhash(hash solana.Hash) *TransferBuilder {
	b.blockhash = hash
	return b
}

// WithPriorityFee sets the compute-unit price in micro-lamports; zero disables it.
func (b *TransferBuilder) WithPriorityFee(microLamports uint64) *TransferBuilder {
	b.microLamports = microLamports
	return b
}

// FeeReserve is the lamports the payer needs on top of the transfer amount.
func (b *TransferBuilder) FeeReserve() uint64 {
	return BaseFeeLamports + b.microLamports*uint64(TransferUnits)/1_000_000
}

// Build creates and signs the transaction.
func (b *TransferBuilder) Build() (*solana.Transaction, error) {
	if len(b.from) == 0 {
		return nil, errors.New("no signer provided")
	}
	if b.lamports == 0 {
		return nil, errors.New("transfer amount must be positive")
	}
	if b.blockhash.IsZero() {
		return nil, errors.New("recent blockhash is required")
	}

	payer := b.from.PublicKey()
	instructions := make([]solana.Instruction, 0, 3)
	if b.microLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(TransferUnits).Build(),
			computebudget.NewSetComputeUnitPriceInstruction(b.microLamports).Build(),
		)
	}
	instructions = append(instructions,
		system.NewTransferInstruction(b.lamports, payer, b.to).Build())

	tx, err := solana.NewTransaction(instructions, b.blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			signer := b.from
			return &signer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}
