package filter

import (
	"context"
	"strings"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/nanao/jubox/internal/domain/track"
)

// AudioTransformer applies a composed filter chain to a stream reference.
// A nil result with a nil error means "apply failed, use the original".
type AudioTransformer interface {
	Apply(ctx context.Context, ref track.StreamRef, chain string) (*track.StreamRef, error)
}

// Chain holds a session's enabled filters in enable order.
type Chain struct {
	mu          sync.RWMutex
	enabled     []Key
	transformer AudioTransformer
}

// NewChain creates an empty chain delegating to transformer.
func NewChain(transformer AudioTransformer) *Chain {
	return &Chain{
		enabled:     make([]Key, 0),
		transformer: transformer,
	}
}

// Enable adds key to the chain. Returns false for unknown keys; enabling an
// already enabled filter is a no-op that keeps its original position.
func (c *Chain) Enable(key Key) bool {
	if !IsSupported(key) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range c.enabled {
		if k == key {
			return true
		}
	}
	c.enabled = append(c.enabled, key)
	return true
}

// Disable removes key from the chain. Returns false for unknown keys.
func (c *Chain) Disable(key Key) bool {
	if !IsSupported(key) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, k := range c.enabled {
		if k == key {
			c.enabled = append(c.enabled[:i], c.enabled[i+1:]...)
			break
		}
	}
	return true
}

// Enabled returns the enabled filter keys in enable order.
func (c *Chain) Enabled() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Key, len(c.enabled))
	copy(result, c.enabled)
	return result
}

// Reset disables all filters.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = c.enabled[:0]
}

// Compose returns the enabled filters' descriptors joined in enable order.
// An empty chain composes to the empty string (pass-through).
func (c *Chain) Compose() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	descriptors := make([]string, 0, len(c.enabled))
	for _, k := range c.enabled {
		if d, ok := catalog[k]; ok {
			descriptors = append(descriptors, d)
		}
	}
	return strings.Join(descriptors, ",")
}

// Apply runs the composed chain through the audio transformer. Filters are
// best-effort: a failed or refused transform returns the original reference.
func (c *Chain) Apply(ctx context.Context, ref track.StreamRef) track.StreamRef {
	chain := c.Compose()
	if chain == "" || c.transformer == nil {
		return ref
	}

	transformed, err := c.transformer.Apply(ctx, ref, chain)
	if err != nil {
		zlog.Warn().Msgf("filter: transform failed, using original stream: chain=%s error=%v", chain, err)
		return ref
	}
	if transformed == nil {
		zlog.Debug().Msgf("filter: transformer declined, using original stream: chain=%s", chain)
		return ref
	}
	return *transformed
}
