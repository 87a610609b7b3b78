package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
)

func curveOf(totals ...float64) []ledger.EquityPoint {
	out := make([]ledger.EquityPoint, len(totals))
	for i, v := range totals {
		out[i] = ledger.EquityPoint{Date: market.Day(2024, 1, 8).AddDate(0, 0, i), Total: v}
	}
	return out
}

func TestSummarize_EmptyCurve(t *testing.T) {
	s := Summarize(nil, nil, 1_000_000, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 1_000_000.0, s.FinalValue)
	assert.Equal(t, 0.0, s.TotalReturn)
	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.Equal(t, 0.0, s.MaxDrawdown)
}

func TestSummarize_ZeroVarianceYieldsZeroSharpe(t *testing.T) {
	// A flat equity curve has zero return variance: Sharpe and volatility
	// must come back 0, never NaN.
	s := Summarize(curveOf(100, 100, 100, 100), nil, 100, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 0.0, s.Volatility)
	assert.Equal(t, 0.0, s.SharpeRatio)
	assert.Equal(t, 0.0, s.TotalReturn)
	assert.Equal(t, 0.0, s.MaxDrawdown)
}

func TestSummarize_MaxDrawdown(t *testing.T) {
	s := Summarize(curveOf(100, 120, 90, 110), nil, 100, market.DefaultRuleSet().Metrics)
	assert.InDelta(t, -0.25, s.MaxDrawdown, 1e-12) // 90 against the 120 peak

	rising := Summarize(curveOf(100, 110, 120), nil, 100, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 0.0, rising.MaxDrawdown)
}

func TestSummarize_WinRateOverSellsOnly(t *testing.T) {
	trades := []ledger.Trade{
		{Side: cost.Buy},
		{Side: cost.Sell, PnL: 500},
		{Side: cost.Sell, PnL: -200},
		{Side: cost.Sell, PnL: 100},
	}
	s := Summarize(curveOf(100, 101), trades, 100, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 3, s.SellTrades)
	assert.Equal(t, 2, s.WinningTrades)
	assert.InDelta(t, 2.0/3.0, s.WinRate, 1e-12)
}

func TestSummarize_NoTradesYieldsZeroWinRate(t *testing.T) {
	s := Summarize(curveOf(100, 101), nil, 100, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 0.0, s.WinRate)
}

func TestSummarize_CostTotals(t *testing.T) {
	trades := []ledger.Trade{
		{Side: cost.Buy, Fill: cost.Fill{Commission: 5, TransferFee: 0.5, Slippage: 10}},
		{Side: cost.Sell, Fill: cost.Fill{Commission: 5, StampDuty: 9.99, TransferFee: 0.5, Slippage: 10}},
	}
	s := Summarize(curveOf(100, 101), trades, 100, market.DefaultRuleSet().Metrics)
	assert.Equal(t, 10.0, s.TotalCommission)
	assert.Equal(t, 9.99, s.TotalStampDuty)
	assert.Equal(t, 1.0, s.TotalTransferFee)
	assert.Equal(t, 20.0, s.TotalSlippage)
}

func TestSummarize_AnnualizedReturn(t *testing.T) {
	// 252 trading days at +10% total annualizes to exactly +10%.
	curve := make([]ledger.EquityPoint, 252)
	for i := range curve {
		curve[i] = ledger.EquityPoint{Total: 100}
	}
	curve[251].Total = 110
	s := Summarize(curve, nil, 100, market.DefaultRuleSet().Metrics)
	assert.InDelta(t, 0.10, s.TotalReturn, 1e-12)
	assert.InDelta(t, 0.10, s.AnnualizedReturn, 1e-9)
}
