// Package store holds the pre-loaded, read-only price and signal data of a
// simulation run behind a shared clock. Every lookup is checked against the
// clock's current date: an access for a future date is a look-ahead bug and
// fails loudly every time, aborting the run.
package store

import (
	"errors"
	"fmt"
	"time"
)

// Clock is the single shared notion of "current simulated time". Only the
// backtest engine advances it.
type Clock struct {
	current time.Time
	started bool
}

// NewClock creates a clock that has not started yet. Before the first
// Advance, every dated access is a violation.
func NewClock() *Clock {
	return &Clock{}
}

// Advance moves the clock to date. Dates must be non-decreasing.
func (c *Clock) Advance(date time.Time) {
	c.current = date
	c.started = true
}

// Now returns the current simulated date.
func (c *Clock) Now() time.Time { return c.current }

// Check enforces the causal-safety invariant: requesting data for a date
// after the current simulated date returns a *FutureAccessError.
func (c *Clock) Check(date time.Time) error {
	if !c.started || date.After(c.current) {
		return &FutureAccessError{Requested: date, Current: c.current}
	}
	return nil
}

// FutureAccessError marks a look-ahead data access. It is a programming
// error: fatal to the whole run, never recovered silently.
type FutureAccessError struct {
	Requested time.Time
	Current   time.Time
}

func (e *FutureAccessError) Error() string {
	return fmt.Sprintf("causal-safety violation: requested data for %s while simulated date is %s",
		e.Requested.Format("2006-01-02"), e.Current.Format("2006-01-02"))
}

// IsFutureAccess reports whether err is a causal-safety violation.
func IsFutureAccess(err error) bool {
	var fa *FutureAccessError
	return errors.As(err, &fa)
}

func dateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
