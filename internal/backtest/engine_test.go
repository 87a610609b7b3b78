package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/internal/store"
	"github.com/tianji-quant/tianji/internal/trading"
	"github.com/tianji-quant/tianji/pkg/logger"
)

const testSymbol = "600519.SH" // Shanghai main board, so the transfer fee applies

func flt(v float64) *float64 { return &v }
func itp(v int) *int         { return &v }

// strongSignal scores 80 with completeness 0.75 (sentiment missing).
func strongSignal(date market.PriceBar) consensus.Signal {
	return consensus.Signal{
		Symbol:      date.Symbol,
		Date:        date.Date,
		Technical:   &consensus.TechnicalSignal{Close: date.Close, High52W: date.Close, MAShort: 101, MALong: 99},
		CapitalFlow: &consensus.CapitalFlowSignal{NorthboundNet: flt(20_000_000), MarginNet: flt(10_000_000)},
		Logic:       &consensus.LogicSignal{AnalystBuyCount: itp(6), SectorHeatRank: itp(3)},
	}
}

func flatBar(day int, close float64) market.PriceBar {
	return market.PriceBar{
		Symbol:    testSymbol,
		Date:      market.Day(2024, 1, day),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1_000_000,
		PrevClose: close,
		Status:    market.StatusNormal,
	}
}

func newTestStores() *Stores {
	clock := store.NewClock()
	return &Stores{
		Registry: market.NewRegistry([]market.Instrument{
			{Symbol: testSymbol, Board: market.BoardMain, Listing: market.ListingActive},
		}),
		Clock:   clock,
		Prices:  store.NewPrices(clock),
		Signals: store.NewSignals(clock),
	}
}

func newTestEngine(s *Stores) *Engine {
	return New(market.DefaultRuleSet(), s.Registry, s.Clock, s.Prices, s.Signals,
		NewConsensusPolicy(), logger.NewNop())
}

// Entry on day one, exit on day three when the signal disappears. The cash
// math is checked to the cent against the published cost constants.
func TestEngine_EntryHoldExit(t *testing.T) {
	s := newTestStores()
	for _, day := range []int{8, 9, 10} {
		s.Prices.Put(flatBar(day, 100.00))
	}
	// Signal present Mon and Tue, gone Wed: the position exits Wed.
	s.Signals.Put(strongSignal(flatBar(8, 100)))
	s.Signals.Put(strongSignal(flatBar(9, 100)))

	engine := newTestEngine(s)
	result, err := engine.Run(context.Background(), Config{
		Start:       market.Day(2024, 1, 8),
		End:         market.Day(2024, 1, 10),
		InitialCash: 1_000_000,
	})
	require.NoError(t, err)
	assert.False(t, result.Invalid)
	assert.Equal(t, 3, result.TradingDays)
	require.Len(t, result.Trades, 2)
	assert.Empty(t, result.Rejections)
	assert.Empty(t, result.Failures)

	// Day 1 buy: one slot of five on 1M cash with a 1% reserve sizes to
	// floor(198000 / (100 * 100)) = 19 lots = 1900 shares.
	buy := result.Trades[0]
	assert.Equal(t, cost.Buy, buy.Side)
	assert.Equal(t, int64(1900), buy.Qty)
	assert.Equal(t, 100.10, buy.Fill.FillPrice) // 0.1% slippage
	assert.Equal(t, 190190.00, buy.Fill.Notional)
	assert.Equal(t, 57.06, buy.Fill.Commission)
	assert.Equal(t, 1.90, buy.Fill.TransferFee)
	assert.Equal(t, -190248.96, buy.NetCash)

	// Day 3 sell: full exit of the settled lot.
	sell := result.Trades[1]
	assert.Equal(t, cost.Sell, sell.Side)
	assert.Equal(t, int64(1900), sell.Qty)
	assert.Equal(t, 99.90, sell.Fill.FillPrice)
	assert.Equal(t, 56.94, sell.Fill.Commission)
	assert.Equal(t, 189.81, sell.Fill.StampDuty)
	assert.Equal(t, 189561.35, sell.NetCash)
	assert.Equal(t, 190190.00, sell.CostBasis)
	assert.Equal(t, -628.65, sell.PnL)

	require.Len(t, result.EquityCurve, 3)
	assert.Equal(t, 999751.04, result.EquityCurve[0].Total) // 809751.04 cash + 190000 MV
	assert.Equal(t, 999751.04, result.EquityCurve[1].Total) // hold
	assert.Equal(t, 999312.39, result.EquityCurve[2].Total) // all cash after exit
	assert.Equal(t, 0.0, result.EquityCurve[2].MarketValue)

	assert.Equal(t, 999312.39, result.Summary.FinalValue)
	assert.Equal(t, 1, result.Summary.SellTrades)
	assert.Equal(t, 0, result.Summary.WinningTrades)
}

// Two runs over identical inputs produce byte-identical outcomes.
func TestEngine_Deterministic(t *testing.T) {
	run := func() *Result {
		s := newTestStores()
		for _, day := range []int{8, 9, 10} {
			s.Prices.Put(flatBar(day, 100.00))
		}
		s.Signals.Put(strongSignal(flatBar(8, 100)))
		s.Signals.Put(strongSignal(flatBar(9, 100)))

		result, err := newTestEngine(s).Run(context.Background(), Config{
			Start:       market.Day(2024, 1, 8),
			End:         market.Day(2024, 1, 10),
			InitialCash: 1_000_000,
		})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.EquityCurve, second.EquityCurve)
	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.Summary, second.Summary)
}

// A missing bar on exit day rejects the sell as suspended and the position
// is carried at its last observed price.
func TestEngine_MissingBarBlocksExit(t *testing.T) {
	s := newTestStores()
	s.Prices.Put(flatBar(8, 100.00))
	s.Prices.Put(flatBar(9, 100.00))
	// No bar on the 10th: trading halt with no upstream data.
	s.Signals.Put(strongSignal(flatBar(8, 100)))
	s.Signals.Put(strongSignal(flatBar(9, 100)))

	result, err := newTestEngine(s).Run(context.Background(), Config{
		Start:       market.Day(2024, 1, 8),
		End:         market.Day(2024, 1, 10),
		InitialCash: 1_000_000,
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1) // only the entry
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, trading.ReasonSuspended, result.Rejections[0].Reason)
	assert.Equal(t, cost.Sell, result.Rejections[0].Order.Side)

	// Carried-forward valuation: day 3 equals day 2.
	require.Len(t, result.EquityCurve, 3)
	assert.Equal(t, result.EquityCurve[1].Total, result.EquityCurve[2].Total)
}

// A limit-up close blocks the entry; the rejection is recorded, never an error.
func TestEngine_LimitUpBlocksEntry(t *testing.T) {
	s := newTestStores()
	bar := flatBar(8, 110.00)
	bar.PrevClose = 100.00 // +10% on the main board touches the band
	s.Prices.Put(bar)
	s.Signals.Put(strongSignal(bar))

	result, err := newTestEngine(s).Run(context.Background(), Config{
		Start:       market.Day(2024, 1, 8),
		End:         market.Day(2024, 1, 8),
		InitialCash: 1_000_000,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, trading.ReasonLimitBand, result.Rejections[0].Reason)
	assert.Equal(t, 1_000_000.0, result.Summary.FinalValue)
}

// Weekends are skipped without consuming trading days.
func TestEngine_SkipsWeekends(t *testing.T) {
	s := newTestStores()
	s.Prices.Put(flatBar(5, 100.00))  // Friday
	s.Prices.Put(flatBar(8, 100.00))  // Monday

	result, err := newTestEngine(s).Run(context.Background(), Config{
		Start:       market.Day(2024, 1, 5),
		End:         market.Day(2024, 1, 8),
		InitialCash: 1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TradingDays)
	assert.Len(t, result.EquityCurve, 2)
}
