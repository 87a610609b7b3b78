package market

import "github.com/shopspring/decimal"

// PriceLimits is the daily price band of an instrument. It is derived, never
// stored: both bounds are exact 2-decimal roundings of the previous close
// scaled by the band ratio.
type PriceLimits struct {
	Up   float64
	Down float64
}

// BandRatio selects the daily band ratio by classification precedence:
// STAR/ChiNext boards take 20% regardless of ST status, then ST takes 5%,
// everything else 10%.
func (r RuleSet) BandRatio(board Board, isST bool) float64 {
	switch {
	case board == BoardStar:
		return r.Bands.Star
	case board == BoardGEM:
		return r.Bands.GEM
	case isST:
		return r.Bands.ST
	default:
		return r.Bands.Main
	}
}

// LimitsFor derives the price band for an instrument from its previous close.
func (r RuleSet) LimitsFor(inst Instrument, prevClose float64) PriceLimits {
	ratio := r.BandRatio(inst.Board, inst.IsST)
	return Limits(prevClose, ratio)
}

// Limits computes round(prevClose*(1+ratio), 2) and round(prevClose*(1-ratio), 2).
// Rounding is half away from zero on exact decimals, so e.g. 9.99 at 10%
// yields 10.99 / 8.99 with no float drift.
func Limits(prevClose, ratio float64) PriceLimits {
	pc := decimal.NewFromFloat(prevClose)
	up := pc.Mul(decimal.NewFromFloat(1 + ratio)).Round(2)
	down := pc.Mul(decimal.NewFromFloat(1 - ratio)).Round(2)
	u, _ := up.Float64()
	d, _ := down.Float64()
	return PriceLimits{Up: u, Down: d}
}

// RoundPrice rounds a value to the minimum price increment (2 decimals).
func RoundPrice(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
