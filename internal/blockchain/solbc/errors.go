// internal/blockchain/solbc/errors.go
package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
)

var (
	// ErrNoEndpoints is returned when no RPC endpoint is configured.
	ErrNoEndpoints = errors.New("no RPC endpoints configured")

	// ErrEmptyResult is returned when a node answers without a value.
	ErrEmptyResult = errors.New("empty RPC result")
)

// Transaction errors reported by the runtime that mean the payer is short of lamports.
var insufficientFundsErrors = []string{
	"InsufficientFundsForFee",
	"InsufficientFundsForRent",
	"AccountNotFound",
}

// System program custom error 1: ResultWithNegativeLamports.
const systemInsufficientLamports = 1

// RPCError records where an RPC call failed.
type RPCError struct {
	Err     error
	NodeURL string
	Method  string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

// Classify maps a submission error onto blockchain.ErrInsufficientFunds or
// blockchain.ErrTransactionFailed, keeping the original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, blockchain.ErrInsufficientFunds) || errors.Is(err, blockchain.ErrTransactionFailed) {
		return err
	}
	if isInsufficientFunds(err) {
		return fmt.Errorf("%w: %w", blockchain.ErrInsufficientFunds, err)
	}
	return fmt.Errorf("%w: %w", blockchain.ErrTransactionFailed, err)
}

// isInsufficientFunds inspects the structured payload of a JSON-RPC error.
func isInsufficientFunds(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return false
	}

	if txErr, exists := data["err"]; exists && matchesInsufficientFunds(txErr) {
		return true
	}

	if logs, ok := data["logs"].([]interface{}); ok {
		for _, entry := range logs {
			if line, ok := entry.(string); ok && strings.Contains(line, "insufficient lamports") {
				return true
			}
		}
	}
	return false
}

// matchesInsufficientFunds walks a transaction error value, which is either a
// bare name ("InsufficientFundsForFee") or {"InstructionError": [idx, {"Custom": n}]}.
func matchesInsufficientFunds(v interface{}) bool {
	switch val := v.(type) {
	case string:
		for _, name := range insufficientFundsErrors {
			if val == name {
				return true
			}
		}
	case map[string]interface{}:
		for key, inner := range val {
			if key == "Custom" {
				if customCode(inner) == systemInsufficientLamports {
					return true
				}
				continue
			}
			if matchesInsufficientFunds(key) || matchesInsufficientFunds(inner) {
				return true
			}
		}
	case []interface{}:
		for _, inner := range val {
			if matchesInsufficientFunds(inner) {
				return true
			}
		}
	}
	return false
}

// customCode reads a numeric error code decoded either as float64 or json.Number.
func customCode(v interface{}) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return -1
}
