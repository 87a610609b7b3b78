package backtest

import (
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/trading"
)

// Config holds one run's parameters.
type Config struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	InitialCash float64   `json:"initial_cash"`

	// Universe is the symbol set scored each day. Empty means every symbol
	// known to the instrument registry.
	Universe []string `json:"universe,omitempty"`
}

// RejectedOrder is a rule violation: expected, frequent, logged for audit,
// never an error.
type RejectedOrder struct {
	Order  trading.Order        `json:"order"`
	Reason trading.RejectReason `json:"reason"`
	Detail string               `json:"detail"`
}

// Execution failure reasons, distinct from rule-rejection reasons.
const (
	ExecInsufficientCash = "insufficient-cash"
	ExecInsufficientLots = "insufficient-lots"
)

// ExecutionFailure is a commit-time failure of a validator-accepted order.
// It does not abort the day's remaining orders.
type ExecutionFailure struct {
	Order  trading.Order `json:"order"`
	Reason string        `json:"reason"`
	Detail string        `json:"detail"`
}

// Result is the complete outcome of a run: the full equity series and trade
// log (always produced, even under rejections and data gaps), plus the score
// history for reporting collaborators. Only a causal-safety violation yields
// a partial result, explicitly marked invalid.
type Result struct {
	Config    Config `json:"config"`
	RulesHash string `json:"rules_hash,omitempty"`

	Invalid bool   `json:"invalid"`
	Fault   string `json:"fault,omitempty"` // set when Invalid

	TradingDays int `json:"trading_days"`

	EquityCurve  []ledger.EquityPoint `json:"equity_curve"`
	Trades       []ledger.Trade       `json:"trades"`
	Rejections   []RejectedOrder      `json:"rejections"`
	Failures     []ExecutionFailure   `json:"failures"`
	ScoreHistory []consensus.Score    `json:"score_history"`

	Summary Summary `json:"summary"`
}
