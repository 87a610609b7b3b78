package store

import (
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
)

// Signals is the read-only per-(symbol, date) consensus signal store,
// guarded by the same clock as the price store.
type Signals struct {
	clock   *Clock
	signals map[string]map[string]consensus.Signal
}

// NewSignals creates an empty signal store guarded by the run's clock.
func NewSignals(clock *Clock) *Signals {
	return &Signals{
		clock:   clock,
		signals: make(map[string]map[string]consensus.Signal),
	}
}

// Put loads one signal record.
func (s *Signals) Put(sig consensus.Signal) {
	byDate, ok := s.signals[sig.Symbol]
	if !ok {
		byDate = make(map[string]consensus.Signal)
		s.signals[sig.Symbol] = byDate
	}
	byDate[dateKey(sig.Date)] = sig
}

// Get returns the signal for (symbol, date). Missing data is absence, not an
// error; the only error returned is a causal-safety violation.
func (s *Signals) Get(symbol string, date time.Time) (consensus.Signal, bool, error) {
	if err := s.clock.Check(date); err != nil {
		return consensus.Signal{}, false, err
	}
	sig, ok := s.signals[symbol][dateKey(date)]
	return sig, ok, nil
}

// Source adapts the store to the scorer's lookup contract.
func (s *Signals) Source() consensus.SignalSource {
	return s.Get
}

// Count returns the number of loaded signal records.
func (s *Signals) Count() int {
	n := 0
	for _, byDate := range s.signals {
		n += len(byDate)
	}
	return n
}
