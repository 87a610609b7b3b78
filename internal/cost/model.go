// Package cost models A-share transaction costs: commission with a floor,
// stamp duty on sells, the SSE transfer fee, and slippage applied against
// the trader.
package cost

import (
	"github.com/shopspring/decimal"

	"github.com/tianji-quant/tianji/internal/market"
)

// Side is the direction of an order for pricing purposes.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Fill is the priced outcome of executing an order at a raw reference price.
// Every cost component is rounded to the minimum price increment before
// aggregation so rounding drift cannot compound across many trades.
type Fill struct {
	RawPrice  float64 `json:"raw_price"`  // reference price before slippage
	FillPrice float64 `json:"fill_price"` // effective price after slippage
	Quantity  int64   `json:"quantity"`
	Notional  float64 `json:"notional"` // fill price x quantity

	Commission  float64 `json:"commission"`
	StampDuty   float64 `json:"stamp_duty"`
	TransferFee float64 `json:"transfer_fee"`
	Slippage    float64 `json:"slippage"` // notional lost to the slipped price

	TotalCost float64 `json:"total_cost"` // commission + stamp + transfer + slippage
	NetCash   float64 `json:"net_cash"`   // signed cash delta for the ledger
}

// Model prices orders under a rule set's cost table.
type Model struct {
	costs market.CostRule
}

// New creates a cost model from the market rule table.
func New(rules market.RuleSet) *Model {
	return &Model{costs: rules.Costs}
}

// PriceOrder prices an order of qty shares at rawPrice for the given venue.
// Buys slip up, sells slip down; commission is charged on the slipped
// notional with a fixed floor; stamp duty applies to sells only; the
// transfer fee applies to the Shanghai venue only.
func (m *Model) PriceOrder(side Side, qty int64, rawPrice float64, venue market.Venue) Fill {
	raw := decimal.NewFromFloat(rawPrice)

	slip := decimal.NewFromFloat(m.costs.SlippageRate)
	var fillPrice decimal.Decimal
	if side == Buy {
		fillPrice = raw.Mul(decimal.NewFromInt(1).Add(slip)).Round(2)
	} else {
		fillPrice = raw.Mul(decimal.NewFromInt(1).Sub(slip)).Round(2)
	}

	q := decimal.NewFromInt(qty)
	notional := fillPrice.Mul(q)

	commission := notional.Mul(decimal.NewFromFloat(m.costs.CommissionRate)).Round(2)
	if min := decimal.NewFromFloat(m.costs.CommissionMin); commission.LessThan(min) {
		commission = min
	}

	stamp := decimal.Zero
	if side == Sell {
		stamp = notional.Mul(decimal.NewFromFloat(m.costs.StampDutyRate)).Round(2)
	}

	transfer := decimal.Zero
	if venue == market.VenueShanghai {
		transfer = notional.Mul(decimal.NewFromFloat(m.costs.TransferFeeRate)).Round(2)
	}

	slippage := fillPrice.Sub(raw).Abs().Mul(q).Round(2)

	total := commission.Add(stamp).Add(transfer).Add(slippage)

	// Slippage is already embedded in the fill price, so the cash delta
	// charges the slipped notional plus the explicit fees only.
	var netCash decimal.Decimal
	if side == Buy {
		netCash = notional.Add(commission).Add(transfer).Neg()
	} else {
		netCash = notional.Sub(commission).Sub(stamp).Sub(transfer)
	}

	f := Fill{Quantity: qty, RawPrice: rawPrice}
	f.FillPrice, _ = fillPrice.Float64()
	f.Notional, _ = notional.Round(2).Float64()
	f.Commission, _ = commission.Float64()
	f.StampDuty, _ = stamp.Float64()
	f.TransferFee, _ = transfer.Float64()
	f.Slippage, _ = slippage.Float64()
	f.TotalCost, _ = total.Float64()
	f.NetCash, _ = netCash.Round(2).Float64()
	return f
}
