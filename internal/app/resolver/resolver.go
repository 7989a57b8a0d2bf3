// Package resolver provides resilient search and stream resolution on top
// of a content provider, degrading through a circuit breaker, a TTL cache
// and a chain of fallback query strategies.
package resolver

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	zlog "github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/nanao/jubox/internal/domain/track"
	"github.com/nanao/jubox/internal/infra/breaker"
	"github.com/nanao/jubox/internal/infra/clock"
	"github.com/nanao/jubox/internal/infra/ttlcache"
)

// ContentProvider is the upstream search/stream collaborator. It is a
// black box to the resolver: failures and timeouts are absorbed here.
type ContentProvider interface {
	// Search returns up to limit tracks matching query on platform.
	// An empty result with a nil error means no match.
	Search(ctx context.Context, query string, platform track.Platform, limit int) ([]track.Track, error)
	// ResolveStream turns a canonical track URL into a playable stream reference.
	ResolveStream(ctx context.Context, url string) (*track.StreamRef, error)
}

// maxKeyLen bounds normalized cache keys.
const maxKeyLen = 200

// Config holds resolver tunables.
type Config struct {
	CacheTTL         time.Duration // TTL for cached search/stream results
	CacheSize        int           // Max entries per cache
	BreakerThreshold int           // Consecutive failures before the breaker opens
	BreakerCooldown  time.Duration // How long the breaker stays open
	SearchTimeout    time.Duration // Playback-grade deadline for the primary call
	FallbackTimeout  time.Duration // Short deadline for fallback and autocomplete calls
	RateLimit        rate.Limit    // Provider calls per second
	RateBurst        int           // Provider call burst
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:         30 * time.Minute,
		CacheSize:        512,
		BreakerThreshold: 3,
		BreakerCooldown:  10 * time.Minute,
		SearchTimeout:    10 * time.Second,
		FallbackTimeout:  3 * time.Second,
		RateLimit:        rate.Limit(5),
		RateBurst:        10,
	}
}

// Resolver wraps a primary content provider with resilience machinery.
type Resolver struct {
	provider    ContentProvider
	breaker     *breaker.Breaker
	searchCache *ttlcache.Cache[[]track.Track]
	streamCache *ttlcache.Cache[track.StreamRef]
	strategies  []Strategy
	limiter     *rate.Limiter
	cfg         Config
}

// New creates a resolver around provider. A nil clock uses the system clock.
func New(provider ContentProvider, cfg Config, clk clock.Clock) *Resolver {
	if clk == nil {
		clk = clock.System{}
	}
	return &Resolver{
		provider:    provider,
		breaker:     breaker.New(cfg.BreakerThreshold, cfg.BreakerCooldown, clk),
		searchCache: ttlcache.New[[]track.Track](cfg.CacheTTL, cfg.CacheSize, clk),
		streamCache: ttlcache.New[track.StreamRef](cfg.CacheTTL, cfg.CacheSize, clk),
		strategies:  DefaultStrategies(),
		limiter:     rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		cfg:         cfg,
	}
}

// NormalizeKey turns a query or URL into its cache key: lowercased,
// punctuation-stripped, whitespace-collapsed and truncated, so queries
// differing only in case, spacing or punctuation share an entry.
func NormalizeKey(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, strings.ToLower(s))

	key := strings.Join(strings.Fields(stripped), " ")
	if len(key) > maxKeyLen {
		cut := maxKeyLen
		for cut > 0 && !utf8.RuneStart(key[cut]) {
			cut--
		}
		key = key[:cut]
	}
	return key
}

// Search resolves query to tracks, degrading through the breaker, the
// fallback chain and finally stale cache entries. It never returns an
// error: total failure yields an empty slice.
func (r *Resolver) Search(ctx context.Context, query string, platform track.Platform, limit int) []track.Track {
	if limit <= 0 {
		limit = 5
	}
	key := NormalizeKey(query)

	if hit, ok := r.searchCache.Get(key); ok {
		return hit
	}

	// Primary call, gated by the circuit breaker.
	if r.breaker.Allow() {
		results, err := r.callSearch(ctx, query, platform, limit, r.cfg.SearchTimeout)
		if err == nil && len(results) > 0 {
			r.searchCache.Set(key, results)
			return results
		}
	} else {
		zlog.Debug().Msgf("resolver: breaker open, skipping primary search: query=%s", query)
	}

	// Fallback chain: each strategy issues its own lightweight call.
	for _, s := range r.strategies {
		rewritten, err := s.Rewrite(query)
		if err != nil {
			zlog.Debug().Msgf("resolver: strategy skipped: strategy=%s reason=%v", s.Name(), err)
			continue
		}

		results, err := r.callSearch(ctx, rewritten, platform, limit, r.cfg.FallbackTimeout)
		if err == nil && len(results) > 0 {
			zlog.Info().Msgf("resolver: fallback search succeeded: strategy=%s query=%s rewritten=%s", s.Name(), query, rewritten)
			// Cache under the original query key so the degraded rewrite
			// is not needed next time.
			r.searchCache.Set(key, results)
			return results
		}
	}

	// Total failure: serve a stale entry if one exists.
	if stale, ok, expired := r.searchCache.GetStale(key); ok {
		zlog.Warn().Msgf("resolver: serving stale search result: query=%s expired=%t", query, expired)
		return stale
	}

	return []track.Track{}
}

// ResolveStream resolves url to a playable stream reference. Stream URLs
// cannot be rewritten, so the only fallbacks are the breaker-gated primary
// call and a stale cache entry. Returns nil on total failure.
func (r *Resolver) ResolveStream(ctx context.Context, url string) *track.StreamRef {
	key := NormalizeKey(url)

	if hit, ok := r.streamCache.Get(key); ok {
		ref := hit
		return &ref
	}

	if r.breaker.Allow() {
		ref, err := r.callResolveStream(ctx, url, r.cfg.SearchTimeout)
		if err == nil && ref != nil {
			r.streamCache.Set(key, *ref)
			return ref
		}
	} else {
		zlog.Debug().Msgf("resolver: breaker open, skipping stream resolution: url=%s", url)
	}

	if stale, ok, expired := r.streamCache.GetStale(key); ok {
		zlog.Warn().Msgf("resolver: serving stale stream reference: url=%s expired=%t", url, expired)
		ref := stale
		return &ref
	}

	return nil
}

// BreakerOpen reports whether the provider is currently being skipped.
func (r *Resolver) BreakerOpen() bool {
	return r.breaker.Open()
}

// callSearch performs one rate-limited, deadline-bound provider search and
// feeds the outcome to the circuit breaker. Timeouts count as failures.
func (r *Resolver) callSearch(ctx context.Context, query string, platform track.Platform, limit int, timeout time.Duration) ([]track.Track, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := r.provider.Search(cctx, query, platform, limit)
	if err != nil {
		r.breaker.RecordFailure()
		zlog.Warn().Msgf("resolver: provider search failed: query=%s failures=%d error=%v", query, r.breaker.FailureCount(), err)
		return nil, err
	}

	r.breaker.RecordSuccess()
	return results, nil
}

// callResolveStream performs one rate-limited, deadline-bound stream
// resolution and feeds the outcome to the circuit breaker.
func (r *Resolver) callResolveStream(ctx context.Context, url string, timeout time.Duration) (*track.StreamRef, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ref, err := r.provider.ResolveStream(cctx, url)
	if err != nil {
		r.breaker.RecordFailure()
		zlog.Warn().Msgf("resolver: stream resolution failed: url=%s failures=%d error=%v", url, r.breaker.FailureCount(), err)
		return nil, err
	}

	r.breaker.RecordSuccess()
	return ref, nil
}
