package trading

import (
	"fmt"
	"time"

	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
)

// Validator checks proposed orders against the injected rule table. It is a
// pure function of its inputs; funds checks happen later at execution time
// because they require pricing.
type Validator struct {
	rules market.RuleSet
}

// NewValidator creates a validator for one market rule set.
func NewValidator(rules market.RuleSet) *Validator {
	return &Validator{rules: rules}
}

// Validate applies the rule checks in a fixed order, short-circuiting on the
// first failure so rejection reasons are deterministic:
//
//  1. suspension (no trade of any kind on a halted bar)
//  2. price band (limit-up blocks buys, limit-down blocks sells)
//  3. lot size (buys only)
//  4. T+1 settlement (sells only, counting eligible lots)
func (v *Validator) Validate(order Order, inst market.Instrument, bar market.PriceBar, lots []ledger.Lot, currentDate time.Time) Decision {
	if bar.Halted() {
		reason := bar.SuspendReason
		if reason == "" {
			reason = string(bar.Status)
		}
		return rejected(ReasonSuspended,
			fmt.Sprintf("%s is not tradable on %s: %s", order.Symbol, dateStr(currentDate), reason))
	}

	status := bar.Status
	if status == market.StatusNormal {
		// Resolve against the band in case the feed left the limit state
		// implicit. Touching the exact limit price counts as limited.
		status = market.ResolveStatus(bar, v.rules.LimitsFor(inst, bar.PrevClose))
	}
	if order.Side == cost.Buy && status == market.StatusLimitUp {
		return rejected(ReasonLimitBand,
			fmt.Sprintf("%s is limit-up at %.2f, buying is blocked", order.Symbol, bar.Close))
	}
	if order.Side == cost.Sell && status == market.StatusLimitDown {
		return rejected(ReasonLimitBand,
			fmt.Sprintf("%s is limit-down at %.2f, selling is blocked", order.Symbol, bar.Close))
	}

	if order.Side == cost.Buy {
		if order.Qty <= 0 || order.Qty%v.rules.Trading.MinLotSize != 0 {
			return rejected(ReasonLotSize,
				fmt.Sprintf("buy quantity %d must be a positive multiple of %d", order.Qty, v.rules.Trading.MinLotSize))
		}
	}

	if order.Side == cost.Sell {
		eligible := eligibleQuantity(lots, currentDate, v.rules.Trading.SettlementDays)
		if order.Qty <= 0 || eligible < order.Qty {
			return rejected(ReasonSettlement,
				fmt.Sprintf("T+%d: %d of %s sellable on %s, order wants %d",
					v.rules.Trading.SettlementDays, eligible, order.Symbol, dateStr(currentDate), order.Qty))
		}
	}

	return accepted()
}

// eligibleQuantity sums lots whose acquisition date plus the settlement delay
// has passed. For T+1 that is every lot acquired strictly before currentDate.
func eligibleQuantity(lots []ledger.Lot, currentDate time.Time, settlementDays int) int64 {
	var total int64
	for _, lot := range lots {
		settled := lot.AcquiredAt.AddDate(0, 0, settlementDays)
		if !settled.After(currentDate) {
			total += lot.Quantity
		}
	}
	return total
}

func dateStr(t time.Time) string {
	return t.Format("2006-01-02")
}
