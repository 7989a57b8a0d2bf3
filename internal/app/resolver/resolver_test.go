package resolver

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/nanao/jubox/internal/domain/track"
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

// spyProvider records every provider call and delegates to the test's
// behavior functions.
type spyProvider struct {
	searchQueries []string
	searchFn      func(query string) ([]track.Track, error)

	resolveURLs []string
	resolveFn   func(url string) (*track.StreamRef, error)
}

func (p *spyProvider) Search(_ context.Context, query string, _ track.Platform, _ int) ([]track.Track, error) {
	p.searchQueries = append(p.searchQueries, query)
	return p.searchFn(query)
}

func (p *spyProvider) ResolveStream(_ context.Context, url string) (*track.StreamRef, error) {
	p.resolveURLs = append(p.resolveURLs, url)
	return p.resolveFn(url)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit = rate.Inf
	return cfg
}

func sampleTracks() []track.Track {
	return []track.Track{
		{ID: "track-1", Title: "Believer", Artist: "Imagine Dragons"},
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercases", input: "Foo Bar", expected: "foo bar"},
		{name: "collapses whitespace", input: "  Foo \t Bar  ", expected: "foo bar"},
		{name: "strips punctuation", input: "Foo  Bar!", expected: "foo bar"},
		{name: "equivalent queries share a key", input: "Foo  BAR", expected: "foo bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeKey(tt.input))
		})
	}
}

func TestNormalizeKey_TruncatesLongInput(t *testing.T) {
	long := strings.Repeat("a", 300)
	assert.Len(t, NormalizeKey(long), maxKeyLen)
}

func TestNormalizeKey_TruncatesOnRuneBoundary(t *testing.T) {
	// 100 three-byte runes: 300 bytes, and 200 does not fall on a rune
	// boundary.
	long := strings.Repeat("あ", 100)

	key := NormalizeKey(long)

	assert.True(t, utf8.ValidString(key))
	assert.LessOrEqual(t, len(key), maxKeyLen)
	assert.Equal(t, 198, len(key))
}

func TestResolver_SearchHitsCacheOnRepeat(t *testing.T) {
	provider := &spyProvider{
		searchFn: func(string) ([]track.Track, error) { return sampleTracks(), nil },
	}
	r := New(provider, testConfig(), newFakeClock())

	first := r.Search(context.Background(), "Believer", track.PlatformSpotify, 5)
	second := r.Search(context.Background(), "believer", track.PlatformSpotify, 5)

	assert.Equal(t, first, second)
	assert.Len(t, provider.searchQueries, 1, "the second lookup is served from cache")
}

func TestResolver_EquivalentQueriesShareCacheEntry(t *testing.T) {
	provider := &spyProvider{
		searchFn: func(string) ([]track.Track, error) { return sampleTracks(), nil },
	}
	r := New(provider, testConfig(), newFakeClock())

	first := r.Search(context.Background(), "Foo  Bar!", track.PlatformSpotify, 5)
	second := r.Search(context.Background(), "foo bar", track.PlatformSpotify, 5)

	assert.Equal(t, first, second)
	assert.Len(t, provider.searchQueries, 1)
}

func TestResolver_SearchFallsBackThroughStrategies(t *testing.T) {
	raw := "Imagine Dragons - Believer (Official Video)"
	provider := &spyProvider{
		searchFn: func(query string) ([]track.Track, error) {
			if query == raw {
				return nil, errors.New("provider rejected raw query")
			}
			return sampleTracks(), nil
		},
	}
	r := New(provider, testConfig(), newFakeClock())

	results := r.Search(context.Background(), raw, track.PlatformSpotify, 5)

	require.Len(t, results, 1)
	assert.Equal(t, "track-1", results[0].ID)
	require.Len(t, provider.searchQueries, 2)
	assert.Equal(t, raw, provider.searchQueries[0])
	assert.Equal(t, "Imagine Dragons Believer", provider.searchQueries[1])

	// The fallback result is cached under the original query key.
	again := r.Search(context.Background(), raw, track.PlatformSpotify, 5)
	assert.Equal(t, results, again)
	assert.Len(t, provider.searchQueries, 2)
}

func TestResolver_BreakerSkipsPrimaryAfterConsecutiveFailures(t *testing.T) {
	raw := "Imagine Dragons - Believer (Official Video)"
	provider := &spyProvider{
		searchFn: func(string) ([]track.Track, error) {
			return nil, errors.New("provider down")
		},
	}
	r := New(provider, testConfig(), newFakeClock())

	// Primary plus three fallback rewrites, all failing: four provider
	// calls, and the third failure already opened the breaker.
	results := r.Search(context.Background(), raw, track.PlatformSpotify, 5)
	assert.Empty(t, results)
	assert.Len(t, provider.searchQueries, 4)
	assert.True(t, r.BreakerOpen())

	// With the breaker open the primary call is skipped; only the
	// fallbacks reach the provider.
	r.Search(context.Background(), raw, track.PlatformSpotify, 5)
	assert.Len(t, provider.searchQueries, 7)
	assert.Equal(t, raw, provider.searchQueries[0])
	assert.NotContains(t, provider.searchQueries[4:], raw)
}

func TestResolver_SearchServesStaleOnTotalFailure(t *testing.T) {
	healthy := true
	provider := &spyProvider{
		searchFn: func(string) ([]track.Track, error) {
			if healthy {
				return sampleTracks(), nil
			}
			return nil, errors.New("provider down")
		},
	}
	clk := newFakeClock()
	cfg := testConfig()
	r := New(provider, cfg, clk)

	fresh := r.Search(context.Background(), "Believer", track.PlatformSpotify, 5)
	require.Len(t, fresh, 1)

	healthy = false
	clk.advance(cfg.CacheTTL + time.Minute)

	stale := r.Search(context.Background(), "Believer", track.PlatformSpotify, 5)
	assert.Equal(t, fresh, stale)
}

func TestResolver_SearchReturnsEmptyWhenNothingWorks(t *testing.T) {
	provider := &spyProvider{
		searchFn: func(string) ([]track.Track, error) {
			return nil, errors.New("provider down")
		},
	}
	r := New(provider, testConfig(), newFakeClock())

	results := r.Search(context.Background(), "Believer", track.PlatformSpotify, 5)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestResolver_ResolveStreamCachesResult(t *testing.T) {
	provider := &spyProvider{
		resolveFn: func(string) (*track.StreamRef, error) {
			return &track.StreamRef{URL: "https://cdn.example/stream", Codec: "mp3"}, nil
		},
	}
	r := New(provider, testConfig(), newFakeClock())

	first := r.ResolveStream(context.Background(), "https://open.spotify.com/track/abc")
	second := r.ResolveStream(context.Background(), "https://open.spotify.com/track/abc")

	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Len(t, provider.resolveURLs, 1)
}

func TestResolver_ResolveStreamServesStaleOnFailure(t *testing.T) {
	healthy := true
	provider := &spyProvider{
		resolveFn: func(string) (*track.StreamRef, error) {
			if healthy {
				return &track.StreamRef{URL: "https://cdn.example/stream"}, nil
			}
			return nil, errors.New("provider down")
		},
	}
	clk := newFakeClock()
	cfg := testConfig()
	r := New(provider, cfg, clk)

	fresh := r.ResolveStream(context.Background(), "https://open.spotify.com/track/abc")
	require.NotNil(t, fresh)

	healthy = false
	clk.advance(cfg.CacheTTL + time.Minute)

	stale := r.ResolveStream(context.Background(), "https://open.spotify.com/track/abc")
	require.NotNil(t, stale)
	assert.Equal(t, fresh.URL, stale.URL)
}

func TestResolver_ResolveStreamNilOnTotalFailure(t *testing.T) {
	provider := &spyProvider{
		resolveFn: func(string) (*track.StreamRef, error) {
			return nil, errors.New("provider down")
		},
	}
	r := New(provider, testConfig(), newFakeClock())

	assert.Nil(t, r.ResolveStream(context.Background(), "https://open.spotify.com/track/abc"))
}
