// Package trading defines orders and the market microstructure rule
// validator: suspension, price bands, lot sizing and T+1 settlement.
package trading

import (
	"time"

	"github.com/tianji-quant/tianji/internal/cost"
)

// Order is a proposed trade from the decision policy. It is consumed once by
// the validator/engine and survives only in the trade log.
type Order struct {
	Symbol string    `json:"symbol"`
	Side   cost.Side `json:"side"`
	Qty    int64     `json:"qty"`
	Date   time.Time `json:"date"`
}

// RejectReason is the machine-distinguishable cause of a rule rejection.
// Callers must match on the code, never on free text.
type RejectReason string

const (
	ReasonSuspended  RejectReason = "suspended"
	ReasonLimitBand  RejectReason = "limit-band"
	ReasonLotSize    RejectReason = "lot-size"
	ReasonSettlement RejectReason = "settlement"
)

// Decision is the validator verdict for one order. Rejections are expected,
// frequent outcomes, not errors.
type Decision struct {
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	Detail   string       `json:"detail,omitempty"`
}

func accepted() Decision {
	return Decision{Accepted: true}
}

func rejected(reason RejectReason, detail string) Decision {
	return Decision{Accepted: false, Reason: reason, Detail: detail}
}
