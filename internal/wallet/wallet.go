// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// SecretKeyLength is the size of a Solana keypair secret (seed + public key).
const SecretKeyLength = ed25519.PrivateKeySize

const maskedPrefixLen = 7

var (
	ErrInvalidEncoding  = errors.New("secret key is not valid base58")
	ErrInvalidKeyLength = errors.New("invalid secret key length")
	ErrKeyMismatch      = errors.New("secret key does not match its public half")
)

// Wallet is a user-owned keypair. String never exposes the secret half.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// New builds a wallet from a base58-encoded 64-byte secret key.
func New(secretBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(secretBase58))
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidEncoding
	}
	if len(raw) != SecretKeyLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyLength, SecretKeyLength, len(raw))
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, ErrKeyMismatch
	}

	privateKey := solana.PrivateKey(raw)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// Masked returns the first characters of the public key followed by "...".
func (w *Wallet) Masked() string {
	return Mask(w.PublicKey.String())
}

// String returns the public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// Mask shortens an address for display and logs.
func Mask(address string) string {
	if len(address) <= maskedPrefixLen {
		return address
	}
	return address[:maskedPrefixLen] + "..."
}
