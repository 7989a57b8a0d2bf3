// Package session provides the per-channel playback session and its registry.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/nanao/jubox/internal/app/autoplay"
	"github.com/nanao/jubox/internal/app/filter"
	"github.com/nanao/jubox/internal/app/queue"
	"github.com/nanao/jubox/internal/domain/track"
)

var (
	ErrNoCurrentTrack    = errors.New("no current track")
	ErrStreamUnavailable = errors.New("stream unavailable")
	ErrPlaybackHalted    = errors.New("playback halted after repeated failures")
	ErrInvalidVolume     = errors.New("volume must be between 0 and 1")
)

// autoplayCycleTimeout bounds one recommendation cycle, which spans
// several sequential provider calls.
const autoplayCycleTimeout = 30 * time.Second

// recentCap bounds the recently-played ID list used to keep autoplay from
// recommending what just played.
const recentCap = 50

// StreamResolver resolves a track URL to a playable stream reference.
// A nil result means total resolution failure (already logged upstream).
type StreamResolver interface {
	ResolveStream(ctx context.Context, url string) *track.StreamRef
}

// VoiceTransport owns the voice-channel mechanics. The session only holds
// the connection handle it is given.
type VoiceTransport interface {
	Connect(ctx context.Context, channelRef string) (Connection, error)
}

// Connection is an active voice connection.
type Connection interface {
	Play(ctx context.Context, ref track.StreamRef) error
	Close() error
}

// Config holds per-session lifecycle tunables.
type Config struct {
	IdleTimeout      time.Duration // Voice teardown delay once playback stops with an empty queue
	MaxTrackFailures int           // Consecutive track failures before playback halts
	AlwaysOn         bool          // Suppresses idle teardown entirely
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:      5 * time.Minute,
		MaxTrackFailures: 3,
	}
}

// Session is the full mutable playback state for one voice channel/guild:
// queue, history, repeat mode, filters, autoplay settings and the idle
// lifecycle timer. Created lazily by the Registry, removed explicitly.
type Session struct {
	ID  string // Channel/guild identifier
	uid string // Internal instance ID for logs

	queue   *queue.Queue
	chain   *filter.Chain
	engine  *autoplay.Engine
	streams StreamResolver

	transport VoiceTransport
	cfg       Config

	mu           sync.Mutex
	conn         Connection
	volume       float64
	autoplaySet  *autoplay.Settings
	autoplayBusy bool
	recentIDs    []string // newest first, capped at recentCap
	idleTimer    *time.Timer
	failures     int
	halted       bool
}

func newSession(id string, deps Deps) *Session {
	return &Session{
		ID:        id,
		uid:       uuid.New().String(),
		queue:     queue.New(),
		chain:     filter.NewChain(deps.Transformer),
		engine:    autoplay.NewEngine(deps.Search),
		streams:   deps.Streams,
		transport: deps.Transport,
		cfg:       deps.SessionConfig,
		volume:    1.0,
	}
}

// UID returns the unique instance identity of this session object. Channel
// IDs are reused when a session is removed and later recreated; the UID
// distinguishes the instances in logs and diagnostics.
func (s *Session) UID() string {
	return s.uid
}

// Add appends a track to the queue, disarms the idle timer and
// opportunistically triggers an autoplay cycle.
func (s *Session) Add(t track.Track) track.Track {
	stored := s.queue.Add(t)
	s.CancelIdleTimer()
	s.maybeAutoplay()
	return stored
}

// Remove removes the track at index; nil when out of range.
func (s *Session) Remove(index int) *track.Track {
	return s.queue.Remove(index)
}

// Move reorders the queue; false when either index is out of range.
func (s *Session) Move(from, to int) bool {
	return s.queue.Move(from, to)
}

// Shuffle permutes the queue in place.
func (s *Session) Shuffle() {
	s.queue.Shuffle()
}

// Peek returns the head of the queue without removing it.
func (s *Session) Peek() *track.Track {
	return s.queue.Peek()
}

// Next advances the queue per the repeat mode, triggers autoplay, and arms
// the idle timer when nothing is left to play.
func (s *Session) Next() *track.Track {
	next := s.queue.Next()
	s.maybeAutoplay()
	if next == nil {
		s.StartIdleTimer()
	}
	return next
}

// ClearQueue empties the queue only; current track and history are kept.
func (s *Session) ClearQueue() {
	s.queue.Clear()
}

// GetQueue returns a copy of the queued tracks.
func (s *Session) GetQueue() []track.Track {
	return s.queue.Tracks()
}

// GetCurrent returns the current track, or nil.
func (s *Session) GetCurrent() *track.Track {
	return s.queue.Current()
}

// GetHistory returns the play history, newest first.
func (s *Session) GetHistory() []track.Track {
	return s.queue.History()
}

// SetRepeatMode sets the repeat mode.
func (s *Session) SetRepeatMode(mode queue.RepeatMode) {
	s.queue.SetRepeat(mode)
}

// GetRepeatMode returns the repeat mode.
func (s *Session) GetRepeatMode() queue.RepeatMode {
	return s.queue.Repeat()
}

// SetVolume sets the playback volume. Out-of-range values are rejected at
// this boundary.
func (s *Session) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return errors.Wrapf(ErrInvalidVolume, "got %v", v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

// GetVolume returns the playback volume.
func (s *Session) GetVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// EnableFilter enables an audio filter; false for unknown keys.
func (s *Session) EnableFilter(key filter.Key) bool {
	return s.chain.Enable(key)
}

// DisableFilter disables an audio filter; false for unknown keys.
func (s *Session) DisableFilter(key filter.Key) bool {
	return s.chain.Disable(key)
}

// GetEnabledFilters returns the enabled filter keys in enable order.
func (s *Session) GetEnabledFilters() []filter.Key {
	return s.chain.Enabled()
}

// EnableAutoplay validates and applies autoplay settings, then triggers a
// cycle if the queue is already below the minimum.
func (s *Session) EnableAutoplay(settings map[string]any) error {
	parsed, err := autoplay.ParseSettings(settings)
	if err != nil {
		return err
	}
	parsed.Enabled = true

	s.mu.Lock()
	s.autoplaySet = parsed
	s.mu.Unlock()

	zlog.Info().Msgf("session: autoplay enabled: session=%s min_queue=%d max_add=%d",
		s.ID, parsed.MinQueueSize, parsed.MaxSongsToAdd)
	s.maybeAutoplay()
	return nil
}

// DisableAutoplay turns the autoplay loop off; settings and stats persist.
func (s *Session) DisableAutoplay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.autoplaySet != nil {
		s.autoplaySet.Enabled = false
	}
}

// AutoplayEnabled reports whether the autoplay loop is active.
func (s *Session) AutoplayEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoplaySet != nil && s.autoplaySet.Enabled
}

// AutoplayStats returns the engine statistics for this session.
func (s *Session) AutoplayStats() autoplay.Stats {
	return s.engine.Stats()
}

// AutoplayBusy reports whether a recommendation cycle is in flight.
func (s *Session) AutoplayBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoplayBusy
}

// Play resolves the current track's stream, runs it through the filter
// chain and hands it to the voice transport, connecting first if needed.
func (s *Session) Play(ctx context.Context, channelRef string) error {
	cur := s.queue.Current()
	if cur == nil {
		return ErrNoCurrentTrack
	}

	ref := s.streams.ResolveStream(ctx, cur.URL)
	if ref == nil {
		return errors.Wrapf(ErrStreamUnavailable, "track %s", cur.ID)
	}
	out := s.chain.Apply(ctx, *ref)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		if s.transport == nil {
			return errors.New("no voice transport configured")
		}
		c, err := s.transport.Connect(ctx, channelRef)
		if err != nil {
			return errors.Wrap(err, "voice connect failed")
		}
		s.mu.Lock()
		s.conn = c
		s.mu.Unlock()
		conn = c
	}

	if err := conn.Play(ctx, out); err != nil {
		return errors.Wrap(err, "playback start failed")
	}

	s.mu.Lock()
	s.failures = 0
	s.halted = false
	s.mu.Unlock()
	s.CancelIdleTimer()

	zlog.Info().Msgf("session: playing: session=%s track=%s title=%s", s.ID, cur.ID, cur.Title)
	return nil
}

// ReportPlaybackEnded is called by the voice layer when a track finishes
// normally. It resets the failure counter, advances the queue and returns
// the new current track (nil means queue empty).
func (s *Session) ReportPlaybackEnded() *track.Track {
	s.mu.Lock()
	s.failures = 0
	s.mu.Unlock()
	return s.Next()
}

// ReportPlaybackFailed is called when a track fails to play. It advances
// to the next track until MaxTrackFailures consecutive failures, at which
// point playback halts (second return true) instead of retrying forever.
func (s *Session) ReportPlaybackFailed() (*track.Track, bool) {
	s.mu.Lock()
	s.failures++
	failures := s.failures
	if failures >= s.cfg.MaxTrackFailures {
		s.halted = true
		s.mu.Unlock()
		zlog.Error().Msgf("session: playback halted: session=%s consecutive_failures=%d", s.ID, failures)
		s.StartIdleTimer()
		return nil, true
	}
	s.mu.Unlock()

	zlog.Warn().Msgf("session: track failed, advancing: session=%s failures=%d", s.ID, failures)
	return s.Next(), false
}

// Halted reports whether playback is in the terminal halted state.
func (s *Session) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// StartIdleTimer (re)arms the idle teardown timer, cancelling any previous
// one first so only a single timer is ever live. Always-on sessions never
// arm it.
func (s *Session) StartIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.AlwaysOn {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.cfg.IdleTimeout, s.onIdleExpired)
}

// CancelIdleTimer disarms the idle teardown timer.
func (s *Session) CancelIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// onIdleExpired tears down the voice connection only; queue, history and
// settings persist on the session object.
func (s *Session) onIdleExpired() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.idleTimer = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		zlog.Warn().Msgf("session: idle teardown close failed: session=%s error=%v", s.ID, err)
		return
	}
	zlog.Info().Msgf("session: idle, voice connection closed: session=%s", s.ID)
}

// Connected reports whether a voice connection is held.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Clear tears down the whole session state: queue, current, history,
// filters, failure state and the voice connection.
func (s *Session) Clear() {
	s.CancelIdleTimer()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.failures = 0
	s.halted = false
	s.recentIDs = nil
	s.mu.Unlock()

	s.queue.Reset()
	s.chain.Reset()

	if conn != nil {
		if err := conn.Close(); err != nil {
			zlog.Warn().Msgf("session: teardown close failed: session=%s error=%v", s.ID, err)
		}
	}
	zlog.Info().Msgf("session: cleared: session=%s uid=%s", s.ID, s.uid)
}

// maybeAutoplay starts a recommendation cycle when autoplay is enabled,
// the queue is below the minimum and a seed track exists. The busy flag is
// a non-reentrant guard: concurrent triggers are dropped, not queued.
func (s *Session) maybeAutoplay() {
	s.mu.Lock()
	set := s.autoplaySet
	if set == nil || !set.Enabled || s.autoplayBusy || s.halted {
		s.mu.Unlock()
		return
	}
	if s.queue.Len() >= set.MinQueueSize {
		s.mu.Unlock()
		return
	}
	cur := s.queue.Current()
	if cur == nil {
		s.mu.Unlock()
		return
	}

	s.autoplayBusy = true
	settings := *set
	exclude := make(map[string]bool, len(s.recentIDs)+1)
	for _, id := range s.recentIDs {
		exclude[id] = true
	}
	exclude[cur.ID] = true
	s.mu.Unlock()

	go s.runAutoplay(*cur, settings, exclude)
}

// runAutoplay performs one cycle. The busy guard is cleared on every exit
// path, panics included.
func (s *Session) runAutoplay(seed track.Track, set autoplay.Settings, exclude map[string]bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("session: autoplay cycle panicked: session=%s panic=%v", s.ID, r)
		}
		s.mu.Lock()
		s.autoplayBusy = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), autoplayCycleTimeout)
	defer cancel()

	picks := s.engine.Run(ctx, seed, set, exclude)
	if len(picks) == 0 {
		return
	}

	for _, t := range picks {
		t.RequestedBy = track.RequestedByAutoplay
		s.queue.Add(t)
		s.recordRecent(t.ID)
	}
	s.CancelIdleTimer()
}

// recordRecent prepends id to the recently-played list, evicting past the cap.
func (s *Session) recordRecent(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentIDs = append([]string{id}, s.recentIDs...)
	if len(s.recentIDs) > recentCap {
		s.recentIDs = s.recentIDs[:recentCap]
	}
}
