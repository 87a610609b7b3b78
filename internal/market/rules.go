package market

import "fmt"

// RuleSet is the market microstructure rule table injected into the
// validator, cost model and engine. One validator, parameterized rules: an
// A-share rule set and e.g. a T+0 market differ only in this value object.
type RuleSet struct {
	Meta    RuleMeta    `yaml:"meta" json:"meta"`
	Trading TradingRule `yaml:"trading" json:"trading"`
	Bands   BandRule    `yaml:"bands" json:"bands"`
	Costs   CostRule    `yaml:"costs" json:"costs"`
	Metrics MetricsRule `yaml:"metrics" json:"metrics"`
}

// RuleMeta identifies a rule set for audit trails.
type RuleMeta struct {
	RuleSetID string `yaml:"rule_set_id" json:"rule_set_id"`
	Version   string `yaml:"version" json:"version"`
}

// TradingRule holds order-level constraints.
type TradingRule struct {
	MinLotSize     int64   `yaml:"min_lot_size" json:"min_lot_size"`         // buys must be multiples of this
	SettlementDays int     `yaml:"settlement_days" json:"settlement_days"`   // T+N; 1 for A-shares
	PriceTick      float64 `yaml:"price_tick" json:"price_tick"`             // minimum price increment
}

// BandRule holds daily price band ratios per classification.
type BandRule struct {
	Main float64 `yaml:"main" json:"main"`
	Star float64 `yaml:"star" json:"star"`
	GEM  float64 `yaml:"gem" json:"gem"`
	ST   float64 `yaml:"st" json:"st"`
}

// CostRule holds transaction cost parameters.
type CostRule struct {
	CommissionRate  float64 `yaml:"commission_rate" json:"commission_rate"`
	CommissionMin   float64 `yaml:"commission_min" json:"commission_min"`
	StampDutyRate   float64 `yaml:"stamp_duty_rate" json:"stamp_duty_rate"`     // sells only
	TransferFeeRate float64 `yaml:"transfer_fee_rate" json:"transfer_fee_rate"` // Shanghai venue only
	SlippageRate    float64 `yaml:"slippage_rate" json:"slippage_rate"`
}

// MetricsRule holds performance-metric conventions.
type MetricsRule struct {
	RiskFreeRate       float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	TradingDaysPerYear int     `yaml:"trading_days_per_year" json:"trading_days_per_year"`
}

// DefaultRuleSet returns the A-share rule table with the conventional
// constants: 100-share lots, T+1, ±10%/±20%/±5% bands, 0.03% commission with
// a 5 CNY floor, 0.1% stamp duty on sells, 0.001% SSE transfer fee.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Meta: RuleMeta{RuleSetID: "ashare_v1", Version: "1.0"},
		Trading: TradingRule{
			MinLotSize:     100,
			SettlementDays: 1,
			PriceTick:      0.01,
		},
		Bands: BandRule{
			Main: 0.10,
			Star: 0.20,
			GEM:  0.20,
			ST:   0.05,
		},
		Costs: CostRule{
			CommissionRate:  0.0003,
			CommissionMin:   5.0,
			StampDutyRate:   0.001,
			TransferFeeRate: 0.00001,
			SlippageRate:    0.001,
		},
		Metrics: MetricsRule{
			RiskFreeRate:       0.03,
			TradingDaysPerYear: 252,
		},
	}
}

// Validate checks all required rule constraints. Failure aborts startup.
func (r RuleSet) Validate() error {
	if r.Meta.RuleSetID == "" {
		return ruleErr("meta.rule_set_id", "required")
	}
	if r.Trading.MinLotSize <= 0 {
		return ruleErr("trading.min_lot_size", "must be positive")
	}
	if r.Trading.SettlementDays < 0 {
		return ruleErr("trading.settlement_days", "must be >= 0")
	}
	if r.Trading.PriceTick <= 0 {
		return ruleErr("trading.price_tick", "must be positive")
	}
	for _, band := range []struct {
		name  string
		ratio float64
	}{
		{"bands.main", r.Bands.Main},
		{"bands.star", r.Bands.Star},
		{"bands.gem", r.Bands.GEM},
		{"bands.st", r.Bands.ST},
	} {
		if band.ratio <= 0 || band.ratio >= 1 {
			return ruleErr(band.name, "must be in (0, 1)")
		}
	}
	if r.Costs.CommissionRate < 0 || r.Costs.StampDutyRate < 0 ||
		r.Costs.TransferFeeRate < 0 || r.Costs.SlippageRate < 0 {
		return ruleErr("costs", "rates must be >= 0")
	}
	if r.Costs.CommissionMin < 0 {
		return ruleErr("costs.commission_min", "must be >= 0")
	}
	if r.Metrics.TradingDaysPerYear <= 0 {
		return ruleErr("metrics.trading_days_per_year", "must be positive")
	}
	return nil
}

// RuleError is a rule-set validation failure (program abort).
type RuleError struct {
	Field   string
	Message string
}

func (e RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ruleErr(field, msg string) error {
	return RuleError{Field: field, Message: msg}
}
