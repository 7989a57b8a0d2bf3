// Package breaker provides a consecutive-failure circuit breaker.
package breaker

import (
	"sync"
	"time"

	"github.com/nanao/jubox/internal/infra/clock"
)

// Breaker tracks consecutive upstream failures. Reaching the trip threshold
// opens the breaker for a cooldown window; once the window elapses the next
// call is allowed through as a probe. A single success fully resets it.
type Breaker struct {
	mu           sync.Mutex
	failureCount int
	blockedUntil time.Time

	threshold int
	cooldown  time.Duration
	clk       clock.Clock
}

// New creates a breaker that opens after threshold consecutive failures
// and stays open for cooldown.
func New(threshold int, cooldown time.Duration, clk clock.Clock) *Breaker {
	if clk == nil {
		clk = clock.System{}
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		clk:       clk,
	}
}

// Allow reports whether a call to the protected collaborator may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.blockedUntil.IsZero() {
		return true
	}
	return !b.clk.Now().Before(b.blockedUntil)
}

// RecordFailure counts one failure; at the threshold the breaker opens
// for the cooldown window (re-opens when a half-open probe fails).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	if b.failureCount >= b.threshold {
		b.blockedUntil = b.clk.Now().Add(b.cooldown)
	}
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.blockedUntil = time.Time{}
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Open reports whether the breaker is currently blocking calls.
func (b *Breaker) Open() bool {
	return !b.Allow()
}
