package backtest

import (
	"math"

	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
)

// Summary is the performance report computed from a finished run. Degenerate
// inputs produce the documented sentinels, never NaN or Inf: zero return
// variance or no trades yields 0 for the affected ratio.
type Summary struct {
	InitialCash float64 `json:"initial_cash"`
	FinalValue  float64 `json:"final_value"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"` // annualized std of daily returns
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"` // <= 0

	TradingDays   int     `json:"trading_days"`
	TotalTrades   int     `json:"total_trades"`
	SellTrades    int     `json:"sell_trades"`
	WinningTrades int     `json:"winning_trades"`
	WinRate       float64 `json:"win_rate"` // over closed (sell) trades

	TotalCommission  float64 `json:"total_commission"`
	TotalStampDuty   float64 `json:"total_stamp_duty"`
	TotalTransferFee float64 `json:"total_transfer_fee"`
	TotalSlippage    float64 `json:"total_slippage"`
}

// Summarize computes the report from the equity curve and trade log under the
// rule set's metric conventions (risk-free rate, trading days per year).
func Summarize(curve []ledger.EquityPoint, trades []ledger.Trade, initialCash float64, conv market.MetricsRule) Summary {
	s := Summary{
		InitialCash: initialCash,
		TradingDays: len(curve),
		TotalTrades: len(trades),
	}

	for _, t := range trades {
		s.TotalCommission += t.Fill.Commission
		s.TotalStampDuty += t.Fill.StampDuty
		s.TotalTransferFee += t.Fill.TransferFee
		s.TotalSlippage += t.Fill.Slippage
		if t.Side == cost.Sell {
			s.SellTrades++
			if t.PnL > 0 {
				s.WinningTrades++
			}
		}
	}
	if s.SellTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.SellTrades)
	}

	if len(curve) == 0 {
		s.FinalValue = initialCash
		return s
	}

	s.FinalValue = curve[len(curve)-1].Total
	if initialCash > 0 {
		s.TotalReturn = s.FinalValue/initialCash - 1
	}

	perYear := float64(conv.TradingDaysPerYear)
	if perYear <= 0 {
		perYear = 252
	}
	if base := 1 + s.TotalReturn; base > 0 {
		s.AnnualizedReturn = math.Pow(base, perYear/float64(len(curve))) - 1
	} else {
		s.AnnualizedReturn = -1
	}

	s.MaxDrawdown = maxDrawdown(curve)

	std := dailyReturnStd(curve)
	if std > 0 {
		s.Volatility = std * math.Sqrt(perYear)
		s.SharpeRatio = (s.AnnualizedReturn - conv.RiskFreeRate) / s.Volatility
	}

	return s
}

// maxDrawdown is the most negative peak-to-trough decline over the curve.
// A monotonically rising curve yields 0.
func maxDrawdown(curve []ledger.EquityPoint) float64 {
	peak := curve[0].Total
	worst := 0.0
	for _, p := range curve {
		if p.Total > peak {
			peak = p.Total
		}
		if peak > 0 {
			if dd := p.Total/peak - 1; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// dailyReturnStd is the sample standard deviation of day-over-day returns.
// Fewer than two observations (or identical ones) returns 0.
func dailyReturnStd(curve []ledger.EquityPoint) float64 {
	var rets []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Total
		if prev == 0 {
			continue
		}
		rets = append(rets, curve[i].Total/prev-1)
	}
	if len(rets) < 2 {
		return 0
	}

	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	var sq float64
	for _, r := range rets {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(rets)-1))
}
