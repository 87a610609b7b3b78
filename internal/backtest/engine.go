// Package backtest runs the day-by-day replay: advance the clock, score the
// universe, let the policy propose orders, validate and execute them, then
// mark the portfolio to market. Time moves forward one trading day at a time
// and nothing reads past the clock.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/internal/store"
	"github.com/tianji-quant/tianji/internal/trading"
	"github.com/tianji-quant/tianji/pkg/logger"
	"github.com/tianji-quant/tianji/pkg/metrics"
)

// ProgressSink receives the equity point of each completed simulated day.
// The API layer streams these over websockets; nil means no streaming.
type ProgressSink interface {
	Progress(point ledger.EquityPoint)
}

// Engine wires the run's collaborators together. It owns the clock and the
// ledger for the duration of a run; everything else is read-only.
type Engine struct {
	rules     market.RuleSet
	rulesHash string
	registry  *market.Registry
	clock     *store.Clock
	prices    *store.Prices
	signals   *store.Signals
	validator *trading.Validator
	costs     *cost.Model
	scorer    *consensus.Scorer
	policy    Policy
	log       *logger.Logger

	progress      ProgressSink
	emitMetrics   bool
	priceLookback int
}

// New creates an engine over pre-loaded stores. The prices and signals stores
// must share the engine's clock.
func New(rules market.RuleSet, registry *market.Registry, clock *store.Clock,
	prices *store.Prices, signals *store.Signals, policy Policy, log *logger.Logger) *Engine {
	return &Engine{
		rules:         rules,
		registry:      registry,
		clock:         clock,
		prices:        prices,
		signals:       signals,
		validator:     trading.NewValidator(rules),
		costs:         cost.New(rules),
		scorer:        consensus.NewScorer(consensus.DefaultScoreConfig()),
		policy:        policy,
		log:           log,
		priceLookback: 30,
	}
}

// SetScorer overrides the default scoring thresholds.
func (e *Engine) SetScorer(s *consensus.Scorer) { e.scorer = s }

// SetRulesHash attaches the rule-set content hash to results for audit.
func (e *Engine) SetRulesHash(h string) { e.rulesHash = h }

// SetProgressSink enables per-day progress streaming.
func (e *Engine) SetProgressSink(sink ProgressSink) { e.progress = sink }

// EnableMetrics turns on Prometheus instrumentation for this engine.
func (e *Engine) EnableMetrics() { e.emitMetrics = true }

// Run replays [cfg.Start, cfg.End] and returns the full result. Rule
// rejections, execution failures and data gaps are recorded outcomes; the
// only error that aborts a run is a causal-safety violation or a policy
// failure, and then the partial result comes back explicitly marked invalid.
func (e *Engine) Run(ctx context.Context, cfg Config) (*Result, error) {
	universe := cfg.Universe
	if len(universe) == 0 {
		universe = e.registry.Symbols()
	}

	result := &Result{Config: cfg, RulesHash: e.rulesHash}
	led := ledger.New(cfg.InitialCash)
	lastPrice := make(map[string]float64)
	prevTotal := cfg.InitialCash

	e.log.WithFields(map[string]interface{}{
		"start":    cfg.Start.Format("2006-01-02"),
		"end":      cfg.End.Format("2006-01-02"),
		"capital":  cfg.InitialCash,
		"universe": len(universe),
	}).Info("Backtest run starting")

	for d := market.DayOf(cfg.Start); !d.After(cfg.End); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.fail(result, err)
		}

		e.clock.Advance(d)

		if err := e.runDay(ctx, d, universe, led, lastPrice, result, &prevTotal); err != nil {
			return e.fail(result, err)
		}
		result.TradingDays++
	}

	result.Trades = led.Trades()
	result.EquityCurve = led.EquityCurve()
	result.Summary = Summarize(result.EquityCurve, result.Trades, cfg.InitialCash, e.rules.Metrics)

	if e.emitMetrics {
		metrics.RecordRun("ok")
	}
	e.log.WithFields(map[string]interface{}{
		"trading_days": result.TradingDays,
		"trades":       len(result.Trades),
		"rejections":   len(result.Rejections),
		"final_value":  result.Summary.FinalValue,
	}).Info("Backtest run finished")

	return result, nil
}

// runDay executes one simulated trading day.
func (e *Engine) runDay(ctx context.Context, d time.Time, universe []string,
	led *ledger.Ledger, lastPrice map[string]float64, result *Result, prevTotal *float64) error {

	// Load today's bars for the whole universe. Halted bars carry the
	// previous close, so every present bar has a usable Close.
	bars := make(map[string]market.PriceBar, len(universe))
	for _, sym := range universe {
		bar, ok, err := e.prices.Bar(sym, d)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		bars[sym] = bar
		lastPrice[sym] = bar.Close
	}

	scores, err := e.scorer.ScoreUniverse(universe, d, e.signals.Source())
	if err != nil {
		return err
	}
	result.ScoreHistory = append(result.ScoreHistory, scores...)

	priceOf := func(sym string) float64 { return lastPrice[sym] }
	snap := led.Snapshot(d, priceOf)

	orders, err := e.policy.ProposeOrders(ctx, d, snap, scores, func(sym string) (float64, bool) {
		bar, ok := bars[sym]
		if !ok || bar.Halted() {
			return 0, false
		}
		return bar.Close, true
	})
	if err != nil {
		return fmt.Errorf("policy failed on %s: %w", d.Format("2006-01-02"), err)
	}

	for _, order := range orders {
		e.processOrder(order, d, bars, led, result)
	}

	point := e.markToMarket(d, led, lastPrice, *prevTotal)
	led.AppendEquity(point)
	*prevTotal = point.Total

	if e.progress != nil {
		e.progress.Progress(point)
	}
	if e.emitMetrics {
		metrics.SetEquity(point.Total)
	}
	return nil
}

// processOrder validates and, if accepted, prices and commits one order.
// A day with a missing bar rejects as suspended; a validated order can still
// fail at commit time on cash or eligible lots, which is recorded separately.
func (e *Engine) processOrder(order trading.Order, d time.Time, bars map[string]market.PriceBar,
	led *ledger.Ledger, result *Result) {

	inst := e.registry.GetOrDerive(order.Symbol)

	bar, ok := bars[order.Symbol]
	if !ok {
		e.reject(result, order, trading.Decision{
			Accepted: false,
			Reason:   trading.ReasonSuspended,
			Detail:   fmt.Sprintf("no price bar for %s on %s", order.Symbol, d.Format("2006-01-02")),
		})
		return
	}

	decision := e.validator.Validate(order, inst, bar, led.Lots(order.Symbol), d)
	if !decision.Accepted {
		e.reject(result, order, decision)
		return
	}
	if e.emitMetrics {
		metrics.RecordValidation(string(order.Side), true, "")
	}

	fill := e.costs.PriceOrder(order.Side, order.Qty, bar.Close, inst.Venue())

	var trade ledger.Trade
	var err error
	switch order.Side {
	case cost.Buy:
		if need := -fill.NetCash; need > led.Cash() {
			e.execFail(result, order, ExecInsufficientCash,
				fmt.Sprintf("buy needs %.2f, cash %.2f", need, led.Cash()))
			return
		}
		trade, err = led.ApplyBuy(order.Symbol, d, fill)
	case cost.Sell:
		// Re-checked against the live ledger: an earlier order in the same
		// batch may have consumed the lots the validator saw.
		if eligible := led.EligibleQuantity(order.Symbol, d); eligible < order.Qty {
			e.execFail(result, order, ExecInsufficientLots,
				fmt.Sprintf("sell wants %d eligible shares, have %d", order.Qty, eligible))
			return
		}
		trade, err = led.ApplySell(order.Symbol, d, fill)
	default:
		e.execFail(result, order, "unknown-side", string(order.Side))
		return
	}
	if err != nil {
		e.execFail(result, order, "commit-failed", err.Error())
		return
	}

	if e.emitMetrics {
		metrics.RecordTrade(string(order.Side))
	}
	e.log.WithFields(map[string]interface{}{
		"symbol":   trade.Symbol,
		"side":     trade.Side,
		"qty":      trade.Qty,
		"fill":     trade.Fill.FillPrice,
		"net_cash": trade.NetCash,
	}).Debug("Trade executed")
}

// markToMarket values every held symbol in lexical order: today's close when
// a bar exists, the carried-forward last observed price otherwise.
func (e *Engine) markToMarket(d time.Time, led *ledger.Ledger, lastPrice map[string]float64, prevTotal float64) ledger.EquityPoint {
	var marketValue float64
	for _, sym := range led.Symbols() {
		price, ok := lastPrice[sym]
		if !ok {
			// Never observed in this run's window; scan the store backwards.
			if c, found, err := e.prices.LastClose(sym, d, e.priceLookback); err == nil && found {
				price = c
				lastPrice[sym] = c
			}
		}
		marketValue += price * float64(led.Quantity(sym))
	}

	point := ledger.EquityPoint{
		Date:        d,
		Cash:        led.Cash(),
		MarketValue: round2(marketValue),
	}
	point.Total = round2(point.Cash + point.MarketValue)
	if prevTotal != 0 {
		point.DailyReturn = point.Total/prevTotal - 1
	}
	return point
}

func (e *Engine) reject(result *Result, order trading.Order, decision trading.Decision) {
	result.Rejections = append(result.Rejections, RejectedOrder{
		Order:  order,
		Reason: decision.Reason,
		Detail: decision.Detail,
	})
	if e.emitMetrics {
		metrics.RecordValidation(string(order.Side), false, string(decision.Reason))
	}
	e.log.WithFields(map[string]interface{}{
		"symbol": order.Symbol,
		"side":   order.Side,
		"qty":    order.Qty,
		"reason": decision.Reason,
		"detail": decision.Detail,
	}).Debug("Order rejected")
}

func (e *Engine) execFail(result *Result, order trading.Order, reason, detail string) {
	result.Failures = append(result.Failures, ExecutionFailure{
		Order:  order,
		Reason: reason,
		Detail: detail,
	})
	if e.emitMetrics {
		metrics.RecordExecFailure(reason)
	}
	e.log.WithFields(map[string]interface{}{
		"symbol": order.Symbol,
		"side":   order.Side,
		"reason": reason,
		"detail": detail,
	}).Warn("Execution failed")
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// fail marks the run invalid and returns the partial result alongside the
// error. Causal violations and policy failures land here; nothing else does.
func (e *Engine) fail(result *Result, err error) (*Result, error) {
	result.Invalid = true
	result.Fault = err.Error()
	if e.emitMetrics {
		metrics.RecordRun("invalid")
	}
	e.log.WithError(err).Error("Backtest run aborted")
	return result, err
}
