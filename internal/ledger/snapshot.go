package ledger

import "time"

// Snapshot is the read-only portfolio view handed to the decision policy.
// It deliberately exposes no lot internals: the policy sees quantities and
// eligibility, never the queue it could otherwise mutate.
type Snapshot struct {
	Date      time.Time  `json:"date"`
	Cash      float64    `json:"cash"`
	Positions []Position `json:"positions"`
}

// Position is one held symbol inside a snapshot.
type Position struct {
	Symbol      string  `json:"symbol"`
	Quantity    int64   `json:"quantity"`
	EligibleQty int64   `json:"eligible_qty"` // sellable today under T+1
	AvgCost     float64 `json:"avg_cost"`
	LastPrice   float64 `json:"last_price"`
	MarketValue float64 `json:"market_value"`
}

// Snapshot builds the policy-facing view for currentDate, valuing positions
// with the supplied pricer (last observed or carried-forward price).
func (l *Ledger) Snapshot(currentDate time.Time, priceOf func(symbol string) float64) Snapshot {
	snap := Snapshot{Date: currentDate, Cash: l.cash}
	for _, sym := range l.Symbols() {
		qty := l.Quantity(sym)
		if qty == 0 {
			continue
		}
		var costSum float64
		for _, lot := range l.lots[sym] {
			costSum += lot.UnitCost * float64(lot.Quantity)
		}
		price := priceOf(sym)
		snap.Positions = append(snap.Positions, Position{
			Symbol:      sym,
			Quantity:    qty,
			EligibleQty: l.EligibleQuantity(sym, currentDate),
			AvgCost:     round2(costSum / float64(qty)),
			LastPrice:   price,
			MarketValue: round2(price * float64(qty)),
		})
	}
	return snap
}

// Position finds a snapshot position by symbol.
func (s Snapshot) Position(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
