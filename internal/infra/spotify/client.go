// Package spotify adapts the Spotify Web API to the resolver's content
// provider contract.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nanao/jubox/internal/domain/track"
)

// Client is a Spotify API client using the client-credentials flow. Only
// catalog reads are needed, so no user authorization is involved.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to obtain spotify token")
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	client := spotify.New(httpClient)

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Search searches the Spotify catalog for tracks. The platform argument is
// part of the provider contract; anything other than Spotify yields no
// results rather than an error.
func (c *Client) Search(ctx context.Context, query string, platform track.Platform, limit int) ([]track.Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if platform != track.PlatformSpotify {
		return nil, nil
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack,
			spotify.Limit(limit),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	if result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, c.convertTrack(&t))
	}
	return tracks, nil
}

// ResolveStream resolves a track URL to a playable stream reference. A nil
// reference with a nil error means the catalog has no stream for the track.
func (c *Client) ResolveStream(ctx context.Context, url string) (*track.StreamRef, error) {
	id := extractTrackID(url)
	if id == "" {
		return nil, errors.Newf("invalid track reference: %s", url)
	}

	var result *spotify.FullTrack
	err := c.retry(func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get track")
	}

	if result.PreviewURL == "" {
		return nil, nil
	}
	return &track.StreamRef{
		URL:   result.PreviewURL,
		Codec: "mp3",
	}, nil
}

// convertTrack converts a Spotify FullTrack to a domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) track.Track {
	var artist string
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}

	return track.Track{
		ID:              string(t.ID),
		Title:           t.Name,
		URL:             trackURL(string(t.ID)),
		DurationSeconds: int(time.Duration(t.Duration) * time.Millisecond / time.Second),
		Platform:        track.PlatformSpotify,
		Artist:          artist,
		Album:           t.Album.Name,
	}
}

// trackURL returns the open.spotify.com URL for a track ID.
func trackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
