// Package track provides the Track domain entity.
package track

import "time"

// Platform identifies the content platform a track was resolved from.
type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
	PlatformSoundCloud Platform = "soundcloud"
)

// RequestedByAutoplay marks tracks appended by the autoplay engine.
const RequestedByAutoplay = "autoplay"

// Track represents a playable track entity.
// Immutable once constructed; queue operations move it, never mutate it.
type Track struct {
	ID              string    // Provider track ID
	Title           string    // Track title
	URL             string    // Canonical provider URL
	DurationSeconds int       // Duration in seconds (0 if unknown)
	Platform        Platform  // Source platform
	Artist          string    // Primary artist (optional)
	Album           string    // Album name (optional)
	RequestedBy     string    // Requester identity ("autoplay" for engine-added tracks)
	AddedAt         time.Time // Time when added to a queue
}

// StreamRef is an opaque reference to a playable stream, handed to the
// voice transport after the filter chain has been applied.
type StreamRef struct {
	URL   string // Direct stream URL
	Codec string // Container/codec hint (optional)
}

// Duration returns the track duration as a time.Duration.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// IsAutoplay reports whether the track was added by the autoplay engine.
func (t *Track) IsAutoplay() bool {
	return t.RequestedBy == RequestedByAutoplay
}

// SameTrack reports whether two tracks reference the same content.
func (t *Track) SameTrack(other *Track) bool {
	if other == nil {
		return false
	}
	return t.ID == other.ID
}
