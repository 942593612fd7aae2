package clock

import "time"

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by time.Now
type Real struct{}

// Now returns the current time
func (Real) Now() time.Time {
	return time.Now()
}
