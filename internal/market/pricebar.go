package market

import "time"

// DayStatus is the pre-resolved trading state of a (symbol, date) bar.
type DayStatus string

const (
	StatusNormal      DayStatus = "normal"
	StatusLimitUp     DayStatus = "limit-up"
	StatusLimitDown   DayStatus = "limit-down"
	StatusSuspended   DayStatus = "suspended"
	StatusDataMissing DayStatus = "data-missing"
)

// PriceBar is one immutable daily OHLCV record.
// Invariant: when Status is suspended or data-missing, all prices equal
// PrevClose and Volume is zero (carried-forward valuation, never zero price).
type PriceBar struct {
	Symbol        string    `json:"symbol"`
	Date          time.Time `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        int64     `json:"volume"`
	Amount        float64   `json:"amount"`
	PrevClose     float64   `json:"prev_close"`
	Status        DayStatus `json:"status"`
	SuspendReason string    `json:"suspend_reason,omitempty"`
}

// Halted reports whether no trade of any kind is possible on this bar.
func (b PriceBar) Halted() bool {
	return b.Status == StatusSuspended || b.Status == StatusDataMissing
}

// CarriedForward returns a suspended bar for a date where the upstream feed
// has no trading data, valued at the previous close.
func CarriedForward(symbol string, date time.Time, prevClose float64, status DayStatus, reason string) PriceBar {
	return PriceBar{
		Symbol:        symbol,
		Date:          date,
		Open:          prevClose,
		High:          prevClose,
		Low:           prevClose,
		Close:         prevClose,
		Volume:        0,
		Amount:        0,
		PrevClose:     prevClose,
		Status:        status,
		SuspendReason: reason,
	}
}

// ResolveStatus computes the limit state of a bar from its price band.
// Touching the exact limit price counts as the limit state (inclusive
// boundary, matching the upstream data convention).
func ResolveStatus(bar PriceBar, limits PriceLimits) DayStatus {
	if bar.Halted() {
		return bar.Status
	}
	switch {
	case bar.Close >= limits.Up:
		return StatusLimitUp
	case bar.Close <= limits.Down:
		return StatusLimitDown
	default:
		return StatusNormal
	}
}

// Day returns a normalized UTC-midnight date, the canonical form used as a
// simulation timestamp throughout the engine.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates an arbitrary timestamp to its UTC-midnight date.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
