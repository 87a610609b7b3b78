package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/tianji-quant/tianji/internal/feed"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/internal/store"
)

// Stores is the pre-loaded, clock-guarded data of one run.
type Stores struct {
	Registry *market.Registry
	Clock    *store.Clock
	Prices   *store.Prices
	Signals  *store.Signals
}

// LoadStores pulls everything a run needs from the feed up front. The window
// is padded backwards so carried-forward valuation has history to scan, and
// the shared clock starts unset: until the engine's first Advance, every
// dated read is a violation.
func LoadStores(ctx context.Context, f feed.Feed, symbols []string, from, to time.Time) (*Stores, error) {
	instruments, err := f.Instruments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruments: %w", err)
	}

	clock := store.NewClock()
	s := &Stores{
		Registry: market.NewRegistry(instruments),
		Clock:    clock,
		Prices:   store.NewPrices(clock),
		Signals:  store.NewSignals(clock),
	}

	loadFrom := from.AddDate(0, 0, -60)
	bars, err := f.Bars(ctx, symbols, loadFrom, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load price bars: %w", err)
	}
	for _, bar := range bars {
		s.Prices.Put(bar)
	}

	signals, err := f.Signals(ctx, symbols, loadFrom, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals: %w", err)
	}
	for _, sig := range signals {
		s.Signals.Put(sig)
	}

	return s, nil
}
