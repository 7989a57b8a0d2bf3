package resolver

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Strategy rewrites a failed search query into a degraded variant. A
// strategy that cannot produce a usable query returns an error and is
// skipped, not retried.
type Strategy interface {
	// Name returns the strategy name (used in logs).
	Name() string
	// Rewrite returns the degraded query derived from the original.
	Rewrite(query string) (string, error)
}

// DefaultStrategies returns the fallback chain in trial order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&GenericCleanupStrategy{},
		&ArtistOnlyStrategy{},
		&SimplifiedStrategy{},
	}
}

// marketingWords are dropped by the generic cleanup strategy.
var marketingWords = map[string]bool{
	"official":   true,
	"video":      true,
	"audio":      true,
	"lyric":      true,
	"lyrics":     true,
	"hd":         true,
	"hq":         true,
	"4k":         true,
	"mv":         true,
	"remaster":   true,
	"remastered": true,
	"visualizer": true,
	"full":       true,
	"version":    true,
	"live":       true,
}

// stopWords are excluded by the simplified strategy.
var stopWords = map[string]bool{
	"the":       true,
	"and":       true,
	"for":       true,
	"with":      true,
	"feat":      true,
	"featuring": true,
	"from":      true,
	"this":      true,
	"that":      true,
	"you":       true,
	"your":      true,
	"are":       true,
	"was":       true,
	"not":       true,
}

// GenericCleanupStrategy strips marketing words and punctuation.
type GenericCleanupStrategy struct{}

// Name returns the strategy name.
func (s *GenericCleanupStrategy) Name() string { return "generic_cleanup" }

// Rewrite removes punctuation and marketing words from the query.
func (s *GenericCleanupStrategy) Rewrite(query string) (string, error) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, query)

	var kept []string
	for _, word := range strings.Fields(stripped) {
		if marketingWords[strings.ToLower(word)] {
			continue
		}
		kept = append(kept, word)
	}

	cleaned := strings.Join(kept, " ")
	if cleaned == "" {
		return "", errors.New("cleanup produced an empty query")
	}
	if cleaned == strings.TrimSpace(query) {
		return "", errors.New("cleanup left the query unchanged")
	}
	return cleaned, nil
}

// ArtistOnlyStrategy keeps the substring before the first dash separator,
// which for "Artist - Title" style queries is the artist.
type ArtistOnlyStrategy struct{}

// Name returns the strategy name.
func (s *ArtistOnlyStrategy) Name() string { return "artist_only" }

// Rewrite truncates the query at the first dash, en dash or em dash.
func (s *ArtistOnlyStrategy) Rewrite(query string) (string, error) {
	idx := strings.IndexAny(query, "-–—")
	if idx <= 0 {
		return "", errors.New("no separator in query")
	}
	artist := strings.TrimSpace(query[:idx])
	if artist == "" {
		return "", errors.New("empty artist segment")
	}
	return artist, nil
}

// SimplifiedStrategy keeps at most three significant words.
type SimplifiedStrategy struct{}

// Name returns the strategy name.
func (s *SimplifiedStrategy) Name() string { return "simplified" }

// Rewrite keeps words longer than two characters that are not stop words,
// capped at three.
func (s *SimplifiedStrategy) Rewrite(query string) (string, error) {
	var kept []string
	for _, word := range strings.Fields(query) {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if len([]rune(trimmed)) <= 2 {
			continue
		}
		if stopWords[strings.ToLower(trimmed)] {
			continue
		}
		kept = append(kept, trimmed)
		if len(kept) == 3 {
			break
		}
	}

	if len(kept) == 0 {
		return "", errors.New("no significant words in query")
	}
	simplified := strings.Join(kept, " ")
	if simplified == strings.TrimSpace(query) {
		return "", errors.New("simplification left the query unchanged")
	}
	return simplified, nil
}
