package util

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Lets tests pin order
// timestamps and exercise the sequence tie-break.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
