// Package clock provides the time source used for TTL and circuit-breaker math.
package clock

import "time"

// Clock is the time source abstraction. Injected so that cache expiry and
// breaker cooldowns can be tested without sleeping.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}
