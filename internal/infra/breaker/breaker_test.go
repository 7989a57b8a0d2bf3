package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	clk := newFakeClock()
	b := New(3, 10*time.Minute, clk)

	assert.True(t, b.Allow())

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow(), "below threshold stays closed")

	b.RecordFailure()
	assert.False(t, b.Allow(), "third consecutive failure opens the breaker")
	assert.True(t, b.Open())
	assert.Equal(t, 3, b.FailureCount())
}

func TestBreaker_CooldownElapsesIntoProbe(t *testing.T) {
	clk := newFakeClock()
	b := New(3, 10*time.Minute, clk)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	clk.advance(9 * time.Minute)
	assert.False(t, b.Allow(), "still inside the cooldown window")

	clk.advance(time.Minute)
	assert.True(t, b.Allow(), "cooldown elapsed, probe call allowed")
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	clk := newFakeClock()
	b := New(3, 10*time.Minute, clk)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	clk.advance(10 * time.Minute)
	assert.True(t, b.Allow())

	// The probe fails; the count is already past the threshold so the
	// window restarts from now.
	b.RecordFailure()
	assert.False(t, b.Allow())

	clk.advance(9 * time.Minute)
	assert.False(t, b.Allow())
	clk.advance(time.Minute)
	assert.True(t, b.Allow())
}

func TestBreaker_SuccessFullyResets(t *testing.T) {
	clk := newFakeClock()
	b := New(3, 10*time.Minute, clk)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	b.RecordSuccess()

	assert.True(t, b.Allow())
	assert.Equal(t, 0, b.FailureCount())

	// A fresh failure streak is needed to open it again.
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())
}
