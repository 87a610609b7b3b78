package feed

import (
	"context"
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/market"
)

// MemoryFeed is a Feed over in-process slices. The JSONL loader fills one;
// tests build them directly.
type MemoryFeed struct {
	instruments []market.Instrument
	bars        []market.PriceBar
	signals     []consensus.Signal
}

// NewMemoryFeed creates an empty in-memory feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{}
}

// AddInstrument registers an instrument.
func (f *MemoryFeed) AddInstrument(inst market.Instrument) {
	f.instruments = append(f.instruments, inst)
}

// AddBar appends a price bar.
func (f *MemoryFeed) AddBar(bar market.PriceBar) {
	f.bars = append(f.bars, bar)
}

// AddSignal appends a signal record.
func (f *MemoryFeed) AddSignal(sig consensus.Signal) {
	f.signals = append(f.signals, sig)
}

// Instruments returns the registered instruments.
func (f *MemoryFeed) Instruments(_ context.Context) ([]market.Instrument, error) {
	out := make([]market.Instrument, len(f.instruments))
	copy(out, f.instruments)
	return out, nil
}

// Bars returns bars matching the symbol set and window.
func (f *MemoryFeed) Bars(_ context.Context, symbols []string, from, to time.Time) ([]market.PriceBar, error) {
	want := symbolSet(symbols)
	var out []market.PriceBar
	for _, bar := range f.bars {
		if !inWindow(bar.Date, from, to) {
			continue
		}
		if want != nil && !want[bar.Symbol] {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

// Signals returns signals matching the symbol set and window.
func (f *MemoryFeed) Signals(_ context.Context, symbols []string, from, to time.Time) ([]consensus.Signal, error) {
	want := symbolSet(symbols)
	var out []consensus.Signal
	for _, sig := range f.signals {
		if !inWindow(sig.Date, from, to) {
			continue
		}
		if want != nil && !want[sig.Symbol] {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

// symbolSet returns nil for an empty filter, meaning "all symbols".
func symbolSet(symbols []string) map[string]bool {
	if len(symbols) == 0 {
		return nil
	}
	set := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		set[s] = true
	}
	return set
}

func inWindow(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}
