package autoplay

import (
	"fmt"
	"strings"

	"github.com/nanao/jubox/internal/domain/track"
)

// SourceKind classifies how a recommendation query was derived.
type SourceKind string

const (
	SourceArtist  SourceKind = "artist"
	SourceGenre   SourceKind = "genre"
	SourceMood    SourceKind = "mood"
	SourceSimilar SourceKind = "similar"
)

// Source is an ephemeral recommendation query derived from the seed track.
type Source struct {
	Kind   SourceKind
	Value  string
	Weight float64
}

// maxSources caps how many queries one autoplay cycle issues.
const maxSources = 5

// genreKeywords are recognized in title/artist text and spawn genre sources.
var genreKeywords = []string{
	"rock", "pop", "jazz", "metal", "hip hop", "rap", "edm", "electronic",
	"classical", "country", "blues", "folk", "punk", "indie", "soul",
	"funk", "reggae", "techno", "house", "lofi",
}

// moodKeywords are recognized in title text and spawn mood sources.
var moodKeywords = []string{
	"chill", "sad", "happy", "love", "dance", "party", "relax", "sleep",
	"epic", "dark", "summer", "night", "acoustic",
}

// DeriveSources derives up to five recommendation sources from the seed:
// same-artist (0.8), similar-artist lookup (0.6), genre keywords (0.5 each),
// mood keywords (0.4 each) and a catch-all similarity query (0.7).
func DeriveSources(seed track.Track) []Source {
	var sources []Source

	if seed.Artist != "" {
		sources = append(sources, Source{
			Kind:   SourceArtist,
			Value:  seed.Artist,
			Weight: 0.8,
		})
		sources = append(sources, Source{
			Kind:   SourceSimilar,
			Value:  fmt.Sprintf("artists like %s", seed.Artist),
			Weight: 0.6,
		})
	}

	titleArtist := strings.ToLower(seed.Title + " " + seed.Artist)
	for _, genre := range genreKeywords {
		if strings.Contains(titleArtist, genre) {
			sources = append(sources, Source{
				Kind:   SourceGenre,
				Value:  genre,
				Weight: 0.5,
			})
		}
	}

	title := strings.ToLower(seed.Title)
	for _, mood := range moodKeywords {
		if strings.Contains(title, mood) {
			sources = append(sources, Source{
				Kind:   SourceMood,
				Value:  mood,
				Weight: 0.4,
			})
		}
	}

	if seed.Artist != "" || seed.Title != "" {
		sources = append(sources, Source{
			Kind:   SourceSimilar,
			Value:  "similar to " + strings.TrimSpace(seed.Artist+" "+seed.Title),
			Weight: 0.7,
		})
	}

	if len(sources) > maxSources {
		sources = sources[:maxSources]
	}
	return sources
}
