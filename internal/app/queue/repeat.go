package queue

// RepeatMode governs what Next returns once the current track finishes.
type RepeatMode int

const (
	RepeatOff   RepeatMode = iota // Advance through the queue, stop when empty
	RepeatTrack                   // Keep returning the current track
	RepeatQueue                   // Replay history once the queue is exhausted
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatTrack:
		return "track"
	case RepeatQueue:
		return "queue"
	default:
		return "unknown"
	}
}
