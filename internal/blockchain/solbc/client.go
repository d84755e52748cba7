// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
)

const (
	DefaultTimeout = 10 * time.Second
	retryDelay     = 250 * time.Millisecond
)

// LatencyRecorder receives per-call RPC timings.
type LatencyRecorder interface {
	RecordRPCLatency(method, endpoint string, duration time.Duration)
}

// Config describes the RPC nodes and submission options.
type Config struct {
	Endpoints   []string
	Timeout     time.Duration
	PriorityFee uint64 // micro-lamports per compute unit, zero disables
	Logger      *zap.Logger
	Metrics     LatencyRecorder
}

type node struct {
	url   string
	label string
	rpc   *rpc.Client
}

// Client is a thin solana-go adapter that rotates across RPC nodes.
type Client struct {
	nodes       []node
	next        atomic.Uint32
	timeout     time.Duration
	priorityFee uint64
	logger      *zap.Logger
	metrics     LatencyRecorder
}

// NewClient creates a client for the given endpoints.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	nodes := make([]node, 0, len(cfg.Endpoints))
	for _, endpoint := range cfg.Endpoints {
		nodes = append(nodes, node{
			url:   endpoint,
			label: endpointLabel(endpoint),
			rpc:   rpc.New(endpoint),
		})
	}

	return &Client{
		nodes:       nodes,
		timeout:     cfg.Timeout,
		priorityFee: cfg.PriorityFee,
		logger:      cfg.Logger.Named("solbc-client"),
		metrics:     cfg.Metrics,
	}, nil
}

// GetLatestBlockhash returns a finalized blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.execute(ctx, "getLatestBlockhash", func(ctx context.Context, cl *rpc.Client) error {
		result, err := cl.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		if result == nil || result.Value == nil {
			return ErrEmptyResult
		}
		hash = result.Value.Blockhash
		return nil
	})
	return hash, err
}

// GetBalance returns the confirmed balance in lamports.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var balance uint64
	err := c.execute(ctx, "getBalance", func(ctx context.Context, cl *rpc.Client) error {
		result, err := cl.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		if result == nil {
			return ErrEmptyResult
		}
		balance = result.Value
		return nil
	})
	return balance, err
}

// SubmitTransfer signs and sends a system transfer. Failures are classified
// into blockchain.ErrInsufficientFunds or blockchain.ErrTransactionFailed.
func (c *Client) SubmitTransfer(ctx context.Context, from solana.PrivateKey, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	payer := from.PublicKey()
	builder := blockchain.NewTransferBuilder(from, to, lamports).WithPriorityFee(c.priorityFee)

	balance, err := c.GetBalance(ctx, payer)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: balance check: %w", blockchain.ErrTransactionFailed, err)
	}
	if required := lamports + builder.FeeReserve(); balance < required {
		c.logger.Info("Transfer rejected before submission",
			zap.String("payer", payer.String()),
			zap.Uint64("balance", balance),
			zap.Uint64("required", required))
		return solana.Signature{}, fmt.Errorf("%w: balance %d lamports, required %d",
			blockchain.ErrInsufficientFunds, balance, required)
	}

	hash, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: blockhash: %w", blockchain.ErrTransactionFailed, err)
	}

	tx, err := builder.WithBlockhash(hash).Build()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %w", blockchain.ErrTransactionFailed, err)
	}

	var sig solana.Signature
	err = c.execute(ctx, "sendTransaction", func(ctx context.Context, cl *rpc.Client) error {
		var sendErr error
		sig, sendErr = cl.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentFinalized,
		})
		if sendErr != nil && isInsufficientFunds(sendErr) {
			return backoff.Permanent(sendErr)
		}
		return sendErr
	})
	if err != nil {
		classified := Classify(err)
		c.logger.Error("SendTransaction error",
			zap.String("payer", payer.String()),
			zap.Uint64("lamports", lamports),
			zap.Error(classified))
		return solana.Signature{}, classified
	}

	c.logger.Info("Transfer submitted",
		zap.String("signature", sig.String()),
		zap.String("payer", payer.String()),
		zap.String("to", to.String()),
		zap.Uint64("lamports", lamports))
	return sig, nil
}

// execute runs op against the next node, moving to another node on failure.
// Each attempt has its own timeout.
func (c *Client) execute(ctx context.Context, method string, op func(context.Context, *rpc.Client) error) error {
	attempt := func() (struct{}, error) {
		n := c.nodes[int(c.next.Add(1)-1)%len(c.nodes)]

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		err := op(callCtx, n.rpc)
		if c.metrics != nil {
			c.metrics.RecordRPCLatency(method, n.label, time.Since(start))
		}
		if err != nil {
			c.logger.Debug("RPC request failed",
				zap.String("method", method),
				zap.String("endpoint", n.label),
				zap.Error(err))
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				return struct{}{}, backoff.Permanent(&RPCError{Err: permanent.Unwrap(), NodeURL: n.label, Method: method})
			}
			return struct{}{}, &RPCError{Err: err, NodeURL: n.label, Method: method}
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewConstantBackOff(retryDelay)),
		backoff.WithMaxTries(uint(min(len(c.nodes), 2)+1)),
		backoff.WithMaxElapsedTime(0))
	return err
}

// endpointLabel keeps only the host so API keys in paths or queries stay out of logs.
func endpointLabel(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return "***"
	}
	return parsed.Host
}

var _ blockchain.Client = (*Client)(nil)
