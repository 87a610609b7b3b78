package backtest

import (
	"context"
	"math"
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/trading"
)

// PriceFunc resolves the day's reference price for a symbol. It is supplied
// by the engine from already-loaded bars, so a policy can size orders without
// touching the stores itself.
type PriceFunc func(symbol string) (float64, bool)

// Policy turns the day's scores and the portfolio snapshot into proposed
// orders. Implementations are pure decision logic: they never touch stores,
// never mutate the ledger, and rule enforcement stays in the validator.
type Policy interface {
	ProposeOrders(ctx context.Context, date time.Time, snap ledger.Snapshot, scores []consensus.Score, priceOf PriceFunc) ([]trading.Order, error)
}

// ConsensusPolicy is the reference policy: hold up to MaxPositions symbols
// whose score clears the entry bar, exit positions whose score decays below
// the exit bar, and size entries as equal cash slices floored to whole lots.
type ConsensusPolicy struct {
	MinScore        int
	MinCompleteness float64
	ExitScore       int
	MaxPositions    int
	LotSize         int64

	// CashReserve is the fraction of the entry slice held back to cover
	// slippage and fees, so a sized buy does not fail at commit time.
	CashReserve float64
}

// NewConsensusPolicy returns the policy with production defaults.
func NewConsensusPolicy() *ConsensusPolicy {
	return &ConsensusPolicy{
		MinScore:        60,
		MinCompleteness: 0.5,
		ExitScore:       40,
		MaxPositions:    5,
		LotSize:         100,
		CashReserve:     0.01,
	}
}

// ProposeOrders emits sells before buys so freed cash is available within the
// same day. Scores arrive pre-sorted (total desc, symbol asc), which makes
// entry selection deterministic; positions are walked in snapshot order,
// which is lexical.
func (p *ConsensusPolicy) ProposeOrders(_ context.Context, date time.Time, snap ledger.Snapshot, scores []consensus.Score, priceOf PriceFunc) ([]trading.Order, error) {
	bySymbol := make(map[string]consensus.Score, len(scores))
	for _, sc := range scores {
		bySymbol[sc.Symbol] = sc
	}

	var orders []trading.Order
	held := make(map[string]bool, len(snap.Positions))
	positions := 0

	// Exits first: a held symbol whose score dropped below the exit bar (or
	// vanished from the universe) is sold down to zero. Only eligible shares
	// are proposed; same-day lots stay for tomorrow's pass.
	for _, pos := range snap.Positions {
		held[pos.Symbol] = true
		positions++
		sc, ok := bySymbol[pos.Symbol]
		if ok && sc.Total >= p.ExitScore {
			continue
		}
		if pos.EligibleQty <= 0 {
			continue
		}
		orders = append(orders, trading.Order{
			Symbol: pos.Symbol,
			Side:   cost.Sell,
			Qty:    pos.EligibleQty,
			Date:   date,
		})
		if pos.EligibleQty == pos.Quantity {
			positions--
		}
	}

	slots := p.MaxPositions - positions
	if slots <= 0 {
		return orders, nil
	}

	// Entries: equal cash slices across the open slots, floored to whole
	// lots. Cash freed by today's exits is not counted; it funds tomorrow.
	slice := snap.Cash * (1.0 - p.CashReserve) / float64(slots)
	for _, sc := range scores {
		if slots == 0 {
			break
		}
		if sc.Total < p.MinScore || sc.Completeness < p.MinCompleteness {
			continue
		}
		if held[sc.Symbol] {
			continue
		}
		price, ok := priceOf(sc.Symbol)
		if !ok || price <= 0 {
			continue
		}
		lots := int64(math.Floor(slice / (price * float64(p.LotSize))))
		if lots < 1 {
			continue
		}
		orders = append(orders, trading.Order{
			Symbol: sc.Symbol,
			Side:   cost.Buy,
			Qty:    lots * p.LotSize,
			Date:   date,
		})
		slots--
	}

	return orders, nil
}
