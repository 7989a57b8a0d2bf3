package session

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/nanao/jubox/internal/app/autoplay"
	"github.com/nanao/jubox/internal/app/filter"
)

// Deps are the shared collaborators injected into every session the
// registry creates.
type Deps struct {
	Streams       StreamResolver
	Search        autoplay.Searcher
	Transformer   filter.AudioTransformer
	Transport     VoiceTransport
	SessionConfig Config
}

// Registry owns all live sessions, one per channel/guild ID. Sessions are
// created lazily on first access and removed explicitly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	deps     Deps
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		deps:     deps,
	}
}

// GetOrCreate returns the session for id, creating it on first access.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check, another caller may have won the race.
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s = newSession(id, r.deps)
	r.sessions[id] = s
	zlog.Info().Msgf("registry: session created: session=%s uid=%s", id, s.uid)
	return s
}

// Get returns the session for id without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove tears the session down and drops it from the registry. Returns
// false when no session exists for id.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Clear()
	zlog.Info().Msgf("registry: session removed: session=%s uid=%s", id, s.uid)
	return true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the IDs of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
