// Package ledger owns the mutable portfolio state of a simulation run: cash,
// per-symbol lot queues with acquisition dates, and the append-only trade
// log. The backtest engine is the only writer.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tianji-quant/tianji/internal/cost"
)

// Lot is a parcel of shares with its acquisition date. Under T+1 a lot is
// sellable only once its acquisition date is strictly earlier than the
// simulated current date; other lots of the same symbol never substitute.
type Lot struct {
	Symbol     string    `json:"symbol"`
	Quantity   int64     `json:"quantity"`
	AcquiredAt time.Time `json:"acquired_at"`
	UnitCost   float64   `json:"unit_cost"` // fill price incl. slippage
}

// Trade is one executed order, append-only.
type Trade struct {
	Symbol  string    `json:"symbol"`
	Side    cost.Side `json:"side"`
	Date    time.Time `json:"date"`
	Qty     int64     `json:"qty"`
	Fill    cost.Fill `json:"fill"`
	NetCash float64   `json:"net_cash"`

	// Sell-side only: FIFO cost basis of consumed lots and realized P&L.
	CostBasis float64 `json:"cost_basis,omitempty"`
	PnL       float64 `json:"pnl,omitempty"`
}

// EquityPoint is one mark-to-market observation, one per simulated day.
type EquityPoint struct {
	Date        time.Time `json:"date"`
	Cash        float64   `json:"cash"`
	MarketValue float64   `json:"market_value"` // holdings only
	Total       float64   `json:"total"`
	DailyReturn float64   `json:"daily_return"`
}

// Ledger is the single mutable resource inside a run.
type Ledger struct {
	initialCash float64
	cash        float64
	lots        map[string][]Lot // FIFO by acquisition order
	trades      []Trade
	equity      []EquityPoint
}

// New creates a ledger with the given starting cash.
func New(initialCash float64) *Ledger {
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		lots:        make(map[string][]Lot),
	}
}

// Reset restores the ledger to a fresh state with the same initial cash.
func (l *Ledger) Reset() {
	l.cash = l.initialCash
	l.lots = make(map[string][]Lot)
	l.trades = nil
	l.equity = nil
}

// Cash returns available cash.
func (l *Ledger) Cash() float64 { return l.cash }

// InitialCash returns the starting capital.
func (l *Ledger) InitialCash() float64 { return l.initialCash }

// Quantity returns total held shares of a symbol, eligible or not.
func (l *Ledger) Quantity(symbol string) int64 {
	var total int64
	for _, lot := range l.lots[symbol] {
		total += lot.Quantity
	}
	return total
}

// EligibleQuantity returns the shares of a symbol sellable on currentDate:
// the aggregate of lots acquired strictly before it. Same-day lots never
// count, even when total holdings would otherwise suffice.
func (l *Ledger) EligibleQuantity(symbol string, currentDate time.Time) int64 {
	var total int64
	for _, lot := range l.lots[symbol] {
		if lot.AcquiredAt.Before(currentDate) {
			total += lot.Quantity
		}
	}
	return total
}

// Lots returns a copy of the lot queue for a symbol.
func (l *Ledger) Lots(symbol string) []Lot {
	src := l.lots[symbol]
	out := make([]Lot, len(src))
	copy(out, src)
	return out
}

// Symbols returns held symbols in lexical order.
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.lots))
	for sym, lots := range l.lots {
		if len(lots) > 0 {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// ApplyBuy commits a priced buy atomically: cash is debited and a new lot is
// appended. The caller must have verified available cash beforehand; a
// shortfall here is a programming error surfaced as an error.
func (l *Ledger) ApplyBuy(symbol string, date time.Time, fill cost.Fill) (Trade, error) {
	need := -fill.NetCash
	if need > l.cash {
		return Trade{}, fmt.Errorf("ledger: buy %s needs %.2f, cash %.2f", symbol, need, l.cash)
	}

	l.cash = round2(l.cash + fill.NetCash)
	l.lots[symbol] = append(l.lots[symbol], Lot{
		Symbol:     symbol,
		Quantity:   fill.Quantity,
		AcquiredAt: date,
		UnitCost:   fill.FillPrice,
	})

	trade := Trade{
		Symbol:  symbol,
		Side:    cost.Buy,
		Date:    date,
		Qty:     fill.Quantity,
		Fill:    fill,
		NetCash: fill.NetCash,
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// ApplySell commits a priced sell atomically, consuming eligible lots FIFO by
// acquisition date. FIFO is a documented design choice; the settlement rule
// only requires that same-day lots are untouchable.
func (l *Ledger) ApplySell(symbol string, date time.Time, fill cost.Fill) (Trade, error) {
	if l.EligibleQuantity(symbol, date) < fill.Quantity {
		return Trade{}, fmt.Errorf("ledger: sell %s wants %d eligible shares, have %d",
			symbol, fill.Quantity, l.EligibleQuantity(symbol, date))
	}

	remaining := fill.Quantity
	basis := decimal.Zero
	queue := l.lots[symbol]
	next := queue[:0]
	for _, lot := range queue {
		if remaining == 0 || !lot.AcquiredAt.Before(date) {
			next = append(next, lot)
			continue
		}
		take := lot.Quantity
		if take > remaining {
			take = remaining
		}
		basis = basis.Add(decimal.NewFromFloat(lot.UnitCost).Mul(decimal.NewFromInt(take)))
		lot.Quantity -= take
		remaining -= take
		if lot.Quantity > 0 {
			next = append(next, lot)
		}
	}
	if len(next) == 0 {
		delete(l.lots, symbol)
	} else {
		l.lots[symbol] = next
	}

	l.cash = round2(l.cash + fill.NetCash)

	costBasis, _ := basis.Round(2).Float64()
	trade := Trade{
		Symbol:    symbol,
		Side:      cost.Sell,
		Date:      date,
		Qty:       fill.Quantity,
		Fill:      fill,
		NetCash:   fill.NetCash,
		CostBasis: costBasis,
		PnL:       round2(fill.NetCash - costBasis),
	}
	l.trades = append(l.trades, trade)
	return trade, nil
}

// AppendEquity records the day's mark-to-market observation.
func (l *Ledger) AppendEquity(p EquityPoint) {
	l.equity = append(l.equity, p)
}

// Trades returns the append-only trade log.
func (l *Ledger) Trades() []Trade { return l.trades }

// EquityCurve returns the recorded equity series.
func (l *Ledger) EquityCurve() []EquityPoint { return l.equity }

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
