// Package feed supplies the data a run is loaded from: instruments, price
// bars and raw consensus signals. Implementations cover in-memory fixtures,
// JSONL exports and PostgreSQL.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/market"
)

// ErrNotFound marks an absent record where the caller asked for exactly one.
var ErrNotFound = errors.New("feed: not found")

// InstrumentFeed lists the tradable universe with classifications.
type InstrumentFeed interface {
	Instruments(ctx context.Context) ([]market.Instrument, error)
}

// PriceFeed loads daily bars for a symbol set over a date window.
type PriceFeed interface {
	Bars(ctx context.Context, symbols []string, from, to time.Time) ([]market.PriceBar, error)
}

// SignalFeed loads raw consensus signals for a symbol set over a date window.
type SignalFeed interface {
	Signals(ctx context.Context, symbols []string, from, to time.Time) ([]consensus.Signal, error)
}

// Feed bundles the three sources a backtest run loads from.
type Feed interface {
	InstrumentFeed
	PriceFeed
	SignalFeed
}
