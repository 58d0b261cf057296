package utils

import "time"

// Clock abstracts wall-clock reads so expiry and lifecycle logic is testable
// without real waits.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// FixedClock is a settable clock for tests.
type FixedClock struct {
	Current time.Time
}

func (c *FixedClock) Now() time.Time { return c.Current }

// Advance moves the fixed clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }
