package market

import (
	"fmt"
	"sort"
)

// Registry is the per-run instrument lookup. It is populated once from the
// instrument feed before a replay starts and is read-only afterwards, so a
// symbol can never be retroactively reclassified within a run.
type Registry struct {
	instruments map[string]Instrument
}

// NewRegistry builds a registry from a snapshot of instruments.
func NewRegistry(instruments []Instrument) *Registry {
	m := make(map[string]Instrument, len(instruments))
	for _, inst := range instruments {
		m[inst.Symbol] = inst
	}
	return &Registry{instruments: m}
}

// Get returns the instrument for a symbol.
func (r *Registry) Get(symbol string) (Instrument, error) {
	inst, ok := r.instruments[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("unknown instrument: %s", symbol)
	}
	return inst, nil
}

// GetOrDerive returns the registered instrument, or derives a minimal one
// from the symbol itself when the feed had no record. Board and venue are
// encoded in A-share symbols, so classification still works for bare data.
func (r *Registry) GetOrDerive(symbol string) Instrument {
	if inst, ok := r.instruments[symbol]; ok {
		return inst
	}
	return Instrument{
		Symbol:  symbol,
		Board:   BoardFromSymbol(symbol),
		Listing: ListingActive,
	}
}

// Symbols returns all registered symbols in lexical order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.instruments))
	for sym := range r.instruments {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered instruments.
func (r *Registry) Len() int {
	return len(r.instruments)
}
