package store

import (
	"time"

	"github.com/tianji-quant/tianji/internal/market"
)

// Prices is the read-only per-(symbol, date) bar store. All data is loaded
// before a run starts; nothing suspends on I/O inside the day loop.
type Prices struct {
	clock *Clock
	bars  map[string]map[string]market.PriceBar // symbol -> date key -> bar
}

// NewPrices creates an empty price store guarded by the run's clock.
func NewPrices(clock *Clock) *Prices {
	return &Prices{
		clock: clock,
		bars:  make(map[string]map[string]market.PriceBar),
	}
}

// Put loads one bar. Loading happens before the clock starts; bars are
// immutable once the run begins.
func (p *Prices) Put(bar market.PriceBar) {
	byDate, ok := p.bars[bar.Symbol]
	if !ok {
		byDate = make(map[string]market.PriceBar)
		p.bars[bar.Symbol] = byDate
	}
	byDate[dateKey(bar.Date)] = bar
}

// Bar returns the bar for (symbol, date). The clock check is a hard
// precondition: a future date fails with *FutureAccessError regardless of
// whether data exists. A missing bar is reported through the boolean, never
// as an error.
func (p *Prices) Bar(symbol string, date time.Time) (market.PriceBar, bool, error) {
	if err := p.clock.Check(date); err != nil {
		return market.PriceBar{}, false, err
	}
	bar, ok := p.bars[symbol][dateKey(date)]
	return bar, ok, nil
}

// LastClose returns the most recent close at or before date, scanning back up
// to lookback calendar days. Used for carried-forward valuation when a day
// has no bar at all.
func (p *Prices) LastClose(symbol string, date time.Time, lookback int) (float64, bool, error) {
	if err := p.clock.Check(date); err != nil {
		return 0, false, err
	}
	byDate := p.bars[symbol]
	for i := 0; i <= lookback; i++ {
		if bar, ok := byDate[dateKey(date.AddDate(0, 0, -i))]; ok {
			return bar.Close, true, nil
		}
	}
	return 0, false, nil
}

// Symbols returns every symbol with at least one bar loaded.
func (p *Prices) Symbols() []string {
	out := make([]string, 0, len(p.bars))
	for sym := range p.bars {
		out = append(out, sym)
	}
	return out
}

// Count returns the number of loaded bars.
func (p *Prices) Count() int {
	n := 0
	for _, byDate := range p.bars {
		n += len(byDate)
	}
	return n
}
