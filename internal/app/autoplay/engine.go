// Package autoplay provides the recommendation engine that keeps a session
// queue above its configured minimum size.
package autoplay

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/nanao/jubox/internal/domain/track"
)

// Candidate duration bounds in seconds. Tracks outside the window (and
// tracks with unknown duration) are skipped.
const (
	minCandidateDuration = 30
	maxCandidateDuration = 600
)

// searchLimit is the per-source result cap.
const searchLimit = 5

// Searcher is the resolver-shaped search collaborator. Failures are
// already absorbed by the resolver, so a source that fails simply yields
// an empty result.
type Searcher interface {
	Search(ctx context.Context, query string, platform track.Platform, limit int) []track.Track
}

// Stats reports autoplay activity for one engine.
type Stats struct {
	CyclesRun   int
	TracksAdded int
	LastRun     time.Time
}

// Engine derives recommendation queries from a seed track, resolves them
// and returns ranked candidates. It holds no session state; the caller
// owns the busy guard and the recently-played list.
type Engine struct {
	search Searcher

	mu    sync.Mutex
	stats Stats
}

// NewEngine creates an engine backed by search.
func NewEngine(search Searcher) *Engine {
	return &Engine{search: search}
}

// scoredCandidate pairs a candidate with its accumulated source weight.
type scoredCandidate struct {
	track track.Track
	score float64
}

// Run executes one recommendation cycle: derive sources from the seed,
// search each one, filter and rank the candidates, and return the top
// picks (at most set.MaxSongsToAdd). exclude holds track IDs that must not
// be recommended (the seed and the recently-played list).
func (e *Engine) Run(ctx context.Context, seed track.Track, set Settings, exclude map[string]bool) []track.Track {
	sources := DeriveSources(seed)
	if len(sources) == 0 {
		zlog.Debug().Msgf("autoplay: no sources derived from seed: track_id=%s", seed.ID)
		return nil
	}

	// Gather candidates, one search per source. A failed or empty source
	// is logged and skipped; the cycle continues with what succeeded.
	var candidates []track.Track
	seen := make(map[string]bool)
	for _, src := range sources {
		results := e.search.Search(ctx, src.Value, set.TrackPlatform(), searchLimit)
		if len(results) == 0 {
			zlog.Debug().Msgf("autoplay: source yielded no candidates: kind=%s query=%s", src.Kind, src.Value)
			continue
		}

		for _, t := range results {
			if t.ID == seed.ID || exclude[t.ID] || seen[t.ID] {
				continue
			}
			if t.DurationSeconds < minCandidateDuration || t.DurationSeconds > maxCandidateDuration {
				continue
			}
			seen[t.ID] = true
			candidates = append(candidates, t)
		}
	}

	if len(candidates) == 0 {
		zlog.Debug().Msgf("autoplay: recommendation exhausted: seed=%s", seed.ID)
		e.recordCycle(0)
		return nil
	}

	// Score: sum of the weights of every source whose text appears in the
	// candidate's title+artist, case-insensitively.
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		text := strings.ToLower(c.Title + " " + c.Artist)
		var score float64
		for _, src := range sources {
			if strings.Contains(text, strings.ToLower(src.Value)) {
				score += src.Weight
			}
		}
		if score < set.SimilarityThreshold {
			continue
		}
		scored = append(scored, scoredCandidate{track: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	picks := make([]track.Track, 0, set.MaxSongsToAdd)
	for i := 0; i < len(scored) && i < set.MaxSongsToAdd; i++ {
		picks = append(picks, scored[i].track)
	}

	zlog.Info().Msgf("autoplay: cycle completed: seed=%s sources=%d candidates=%d picked=%d",
		seed.ID, len(sources), len(candidates), len(picks))
	e.recordCycle(len(picks))
	return picks
}

// Stats returns a copy of the engine statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Engine) recordCycle(added int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.CyclesRun++
	e.stats.TracksAdded += added
	e.stats.LastRun = time.Now()
}
