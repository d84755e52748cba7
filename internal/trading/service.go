// internal/trading/service.go
package trading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/blockchain"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/market"
	"github.com/ibechinedu/Scaling-Solana-Monk/internal/session"
)

// Side is the direction of a trade.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Noun is the word used in user-facing messages.
func (s Side) Noun() string {
	if s == Sell {
		return "sale"
	}
	return "purchase"
}

// PriceSource looks up pair prices.
type PriceSource interface {
	PairInfo(ctx context.Context, chainID, pairID string) (market.PairInfo, error)
}

// Recorder receives trade metrics.
type Recorder interface {
	RecordTransaction(txType, status string, duration time.Duration)
}

// Config wires a Service.
type Config struct {
	Chain        blockchain.Client
	Prices       PriceSource
	Store        *session.Store
	ChainID      string
	Counterparty solana.PublicKey
	Logger       *zap.Logger
	Metrics      Recorder
}

// Result describes a submitted trade.
type Result struct {
	Side      Side
	Signature solana.Signature
	Amount    float64
	Lamports  uint64
	Pair      string
	PriceUSD  float64
}

// Service executes trades for users and derives balance and PnL figures.
type Service struct {
	chain        blockchain.Client
	prices       PriceSource
	store        *session.Store
	chainID      string
	counterparty solana.PublicKey
	logger       *zap.Logger
	metrics      Recorder
	now          func() time.Time
}

// NewService creates a trading service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ChainID == "" {
		cfg.ChainID = "solana"
	}
	return &Service{
		chain:        cfg.Chain,
		prices:       cfg.Prices,
		store:        cfg.Store,
		chainID:      cfg.ChainID,
		counterparty: cfg.Counterparty,
		logger:       cfg.Logger.Named("trading"),
		metrics:      cfg.Metrics,
		now:          time.Now,
	}
}

// ParseAmount validates a SOL amount and converts it to lamports.
func ParseAmount(amount float64) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	lamports := blockchain.SolToLamports(amount)
	if lamports == 0 {
		return 0, ErrInvalidAmount
	}
	return lamports, nil
}

// Buy transfers amount SOL to the counterparty and records a Position priced
// at the pair's current USD price.
func (s *Service) Buy(ctx context.Context, userID int64, amount float64) (Result, error) {
	lamports, err := ParseAmount(amount)
	if err != nil {
		return Result{}, err
	}

	sess := s.store.Get(userID)
	if !sess.HasWallet() {
		return Result{}, ErrNoWallet
	}
	if sess.SelectedPair == "" {
		return Result{}, ErrNoPair
	}

	price, ok := s.CurrentPrice(ctx, sess.SelectedPair)
	if !ok {
		return Result{}, fmt.Errorf("%w for pair %s", ErrPriceUnavailable, sess.SelectedPair)
	}

	sig, err := s.submit(ctx, Buy, sess.Wallet.PrivateKey, lamports)
	if err != nil {
		return Result{}, err
	}

	s.store.AddPosition(userID, session.Position{
		Pair:          sess.SelectedPair,
		Amount:        amount,
		PurchasePrice: price,
		Timestamp:     s.now(),
		Signature:     sig.String(),
	})

	s.logger.Info("✅ Buy executed",
		zap.Int64("user_id", userID),
		zap.String("pair", sess.SelectedPair),
		zap.Float64("amount_sol", amount),
		zap.Float64("price_usd", price),
		zap.String("signature", sig.String()))

	return Result{
		Side:      Buy,
		Signature: sig,
		Amount:    amount,
		Lamports:  lamports,
		Pair:      sess.SelectedPair,
		PriceUSD:  price,
	}, nil
}

// Sell transfers amount SOL to the counterparty. Positions are left untouched.
func (s *Service) Sell(ctx context.Context, userID int64, amount float64) (Result, error) {
	lamports, err := ParseAmount(amount)
	if err != nil {
		return Result{}, err
	}

	sess := s.store.Get(userID)
	if !sess.HasWallet() {
		return Result{}, ErrNoWallet
	}

	sig, err := s.submit(ctx, Sell, sess.Wallet.PrivateKey, lamports)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("✅ Sell executed",
		zap.Int64("user_id", userID),
		zap.Float64("amount_sol", amount),
		zap.String("signature", sig.String()))

	return Result{
		Side:      Sell,
		Signature: sig,
		Amount:    amount,
		Lamports:  lamports,
		Pair:      sess.SelectedPair,
	}, nil
}

func (s *Service) submit(ctx context.Context, side Side, from solana.PrivateKey, lamports uint64) (solana.Signature, error) {
	start := time.Now()
	sig, err := s.chain.SubmitTransfer(ctx, from, s.counterparty, lamports)

	status := "success"
	if err != nil {
		status = "failed"
		s.logger.Error("Transfer failed",
			zap.String("side", side.String()),
			zap.Uint64("lamports", lamports),
			zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordTransaction(side.String(), status, time.Since(start))
	}
	return sig, err
}

// ComputeBalance returns the SOL balance of pubkey, or zero if it cannot be read.
func (s *Service) ComputeBalance(ctx context.Context, pubkey solana.PublicKey) float64 {
	lamports, err := s.chain.GetBalance(ctx, pubkey)
	if err != nil {
		s.logger.Warn("Balance unavailable, reporting zero",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return 0
	}
	return blockchain.LamportsToSol(lamports)
}

// CurrentPrice returns the USD price of pair, if the feed has one.
func (s *Service) CurrentPrice(ctx context.Context, pair string) (float64, bool) {
	if pair == "" {
		return 0, false
	}
	info, err := s.prices.PairInfo(ctx, s.chainID, pair)
	if err != nil || !info.HasPrice {
		return 0, false
	}
	return info.PriceUSD, true
}

// PositionPnL is the profit of one position at price.
func PositionPnL(pos session.Position, price float64) float64 {
	return (price - pos.PurchasePrice) * pos.Amount
}

// PairPositions returns the positions opened on pair, in insertion order.
func PairPositions(positions []session.Position, pair string) []session.Position {
	return lo.Filter(positions, func(p session.Position, _ int) bool {
		return p.Pair == pair
	})
}

// TotalPnL sums PositionPnL over positions.
func TotalPnL(positions []session.Position, price float64) float64 {
	return lo.SumBy(positions, func(p session.Position) float64 {
		return PositionPnL(p, price)
	})
}

// ComputeTotalPnL sums the PnL of the user's positions on the selected pair.
// The price is fetched once; a missing price yields zero.
func (s *Service) ComputeTotalPnL(ctx context.Context, userID int64) float64 {
	sess := s.store.Get(userID)
	positions := PairPositions(sess.Positions, sess.SelectedPair)
	if len(positions) == 0 {
		return 0
	}

	price, ok := s.CurrentPrice(ctx, sess.SelectedPair)
	if !ok {
		s.logger.Debug("No price for PnL, reporting zero",
			zap.Int64("user_id", userID),
			zap.String("pair", sess.SelectedPair))
		return 0
	}
	return TotalPnL(positions, price)
}
