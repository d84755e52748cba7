package session

import (
	"time"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/wallet"
)

// Position is an executed buy. It is never mutated after creation.
type Position struct {
	Pair          string
	Amount        float64 // SOL
	PurchasePrice float64 // USD per unit at execution time
	Timestamp     time.Time
	Signature     string
}

// PriceAlert is a one-shot threshold. Seq identifies the registration so a
// sweep can only consume the exact alert it observed.
type PriceAlert struct {
	Threshold float64
	Seq       uint64
	CreatedAt time.Time
}

// DCAConfig holds dollar-cost-averaging preferences.
type DCAConfig struct {
	Amount   float64
	Interval time.Duration
	Pair     string
	Active   bool
}

// SniperConfig holds the selected sniper mode and its V1 targets.
type SniperConfig struct {
	Version   string
	V1Targets []string
}

// ToolConfig holds the selected trading tool.
type ToolConfig struct {
	Name     string
	Settings map[string]string
}

// Session is the per-user conversational and trading state.
type Session struct {
	UserID       int64
	Awaiting     Awaiting
	Wallet       *wallet.Wallet
	SelectedPair string
	Alert        *PriceAlert
	Positions    []Position
	DCA          *DCAConfig
	Sniper       *SniperConfig
	Tool         *ToolConfig
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasWallet reports whether a wallet is connected.
func (s Session) HasWallet() bool {
	return s.Wallet != nil
}

// clone returns a copy that shares no mutable memory with s.
// The wallet is immutable and shared by pointer.
func (s *Session) clone() Session {
	out := *s
	if s.Positions != nil {
		out.Positions = make([]Position, len(s.Positions))
		copy(out.Positions, s.Positions)
	}
	if s.Alert != nil {
		alert := *s.Alert
		out.Alert = &alert
	}
	if s.DCA != nil {
		dca := *s.DCA
		out.DCA = &dca
	}
	if s.Sniper != nil {
		sniper := *s.Sniper
		sniper.V1Targets = append([]string(nil), s.Sniper.V1Targets...)
		out.Sniper = &sniper
	}
	if s.Tool != nil {
		tool := *s.Tool
		if s.Tool.Settings != nil {
			tool.Settings = make(map[string]string, len(s.Tool.Settings))
			for k, v := range s.Tool.Settings {
				tool.Settings[k] = v
			}
		}
		out.Tool = &tool
	}
	return out
}
