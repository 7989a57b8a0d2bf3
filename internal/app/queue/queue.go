// Package queue provides the ordered track queue with repeat and history semantics.
package queue

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/nanao/jubox/internal/domain/track"
)

// DefaultHistoryCap is the maximum number of history entries kept, newest first.
const DefaultHistoryCap = 50

// Queue holds the ordered track list, the current-track slot and a bounded
// play history. All operations are mutually exclusive; none of them block
// on external collaborators.
type Queue struct {
	mu         sync.RWMutex
	tracks     []track.Track
	current    *track.Track
	history    []track.Track // newest first
	repeat     RepeatMode
	historyCap int
	rng        *rand.Rand
}

// New creates an empty queue with the default history cap.
func New() *Queue {
	return &Queue{
		tracks:     make([]track.Track, 0),
		history:    make([]track.Track, 0),
		historyCap: DefaultHistoryCap,
		rng:        newRNG(),
	}
}

// newRNG seeds a math/rand generator from crypto/rand, falling back to the clock.
func newRNG() *rand.Rand {
	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Add appends a track to the tail and returns the stored copy with AddedAt
// stamped. Always succeeds.
func (q *Queue) Add(t track.Track) track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	t.AddedAt = time.Now()
	q.tracks = append(q.tracks, t)
	return t
}

// Remove removes and returns the track at index, or nil when the index is
// out of range. An out-of-range index is not an error.
func (q *Queue) Remove(index int) *track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.tracks) {
		return nil
	}
	removed := q.tracks[index]
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return &removed
}

// Move removes the track at from and reinserts it at to. Returns false when
// either index is out of range; from == to is a successful no-op.
func (q *Queue) Move(from, to int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.tracks)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}

	item := q.tracks[from]
	q.tracks = append(q.tracks[:from], q.tracks[from+1:]...)
	q.tracks = append(q.tracks[:to], append([]track.Track{item}, q.tracks[to:]...)...)
	return true
}

// Shuffle permutes the queue in place (Fisher-Yates). The current track and
// the history are untouched.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := len(q.tracks) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	}
}

// Peek returns the head of the queue without removing it.
func (q *Queue) Peek() *track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.tracks) == 0 {
		return nil
	}
	head := q.tracks[0]
	return &head
}

// Next advances the queue according to the repeat mode and returns the new
// current track, or nil when there is nothing left to play.
//
// Every call pushes the previous current track into history exactly once,
// repeat mode included, so repeated plays still accumulate history entries.
func (q *Queue) Next() *track.Track {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current != nil {
		q.pushHistoryLocked(*q.current)
	}

	// RepeatTrack returns the same current again without advancing. A nil
	// current falls through to a normal pop.
	if q.repeat == RepeatTrack && q.current != nil {
		cur := *q.current
		return &cur
	}

	if len(q.tracks) == 0 && q.repeat == RepeatQueue && len(q.history) > 0 {
		// Refill by draining history oldest-first (reverse of stored order).
		for i := len(q.history) - 1; i >= 0; i-- {
			q.tracks = append(q.tracks, q.history[i])
		}
		q.history = q.history[:0]
	}

	if len(q.tracks) == 0 {
		q.current = nil
		return nil
	}

	head := q.tracks[0]
	q.tracks = q.tracks[1:]
	q.current = &head

	cur := head
	return &cur
}

// Clear empties the queue only; the current track and history are kept.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = q.tracks[:0]
}

// Reset empties the queue, the current slot and the history. Used on full
// session teardown.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = q.tracks[:0]
	q.history = q.history[:0]
	q.current = nil
}

// Len returns the number of queued tracks (current excluded).
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tracks)
}

// Current returns a copy of the current track, or nil.
func (q *Queue) Current() *track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.current == nil {
		return nil
	}
	cur := *q.current
	return &cur
}

// Tracks returns a copy of the queued tracks.
func (q *Queue) Tracks() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]track.Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// History returns a copy of the play history, newest first.
func (q *Queue) History() []track.Track {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]track.Track, len(q.history))
	copy(result, q.history)
	return result
}

// SetRepeat sets the repeat mode.
func (q *Queue) SetRepeat(mode RepeatMode) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeat = mode
}

// Repeat returns the repeat mode.
func (q *Queue) Repeat() RepeatMode {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.repeat
}

// pushHistoryLocked prepends t to the history, evicting the oldest entry
// past the cap. Must be called with the lock held.
func (q *Queue) pushHistoryLocked(t track.Track) {
	q.history = append([]track.Track{t}, q.history...)
	if len(q.history) > q.historyCap {
		q.history = q.history[:q.historyCap]
	}
}
