package ttlcache

import (
	"fmt"
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

func TestCache_GetMiss(t *testing.T) {
	c := New[string](time.Minute, 10, newFakeClock())

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_SetAndGet(t *testing.T) {
	clk := newFakeClock()
	c := New[string](time.Minute, 10, clk)

	c.Set("key", "value")

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestCache_GetHidesExpiredEntries(t *testing.T) {
	clk := newFakeClock()
	c := New[string](time.Minute, 10, clk)

	c.Set("key", "value")
	clk.advance(time.Minute + time.Second)

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "expired entries linger until eviction")
}

func TestCache_GetStale(t *testing.T) {
	clk := newFakeClock()
	c := New[string](time.Minute, 10, clk)
	c.Set("key", "value")

	got, ok, expired := c.GetStale("key")
	assert.True(t, ok)
	assert.False(t, expired)
	assert.Equal(t, "value", got)

	clk.advance(2 * time.Minute)

	got, ok, expired = c.GetStale("key")
	assert.True(t, ok)
	assert.True(t, expired)
	assert.Equal(t, "value", got)

	_, ok, _ = c.GetStale("missing")
	assert.False(t, ok)
}

func TestCache_SetOverwritesAndRefreshesTTL(t *testing.T) {
	clk := newFakeClock()
	c := New[string](time.Minute, 10, clk)

	c.Set("key", "old")
	clk.advance(50 * time.Second)
	c.Set("key", "new")
	clk.advance(30 * time.Second)

	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestCache_EvictsExpiredBeforeLRU(t *testing.T) {
	clk := newFakeClock()
	c := New[int](time.Minute, 2, clk)

	c.Set("stale", 1)
	clk.advance(2 * time.Minute)
	c.Set("fresh", 2)
	c.Set("extra", 3)

	_, ok, _ := c.GetStale("stale")
	assert.False(t, ok, "the expired entry makes room first")

	got, ok := c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestCache_EvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	clk := newFakeClock()
	c := New[int](time.Hour, 3, clk)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
		clk.advance(time.Second)
	}

	// Touch key-0 and key-2 so key-1 is the coldest.
	c.Get("key-0")
	clk.advance(time.Second)
	c.Get("key-2")
	clk.advance(time.Second)

	c.Set("key-3", 3)

	_, ok := c.Get("key-1")
	assert.False(t, ok)
	for _, key := range []string{"key-0", "key-2", "key-3"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "expected %s to survive eviction", key)
	}
}

func TestCache_Delete(t *testing.T) {
	c := New[string](time.Minute, 10, newFakeClock())

	c.Set("key", "value")
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
