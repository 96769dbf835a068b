package editor

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry holds the open editor sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Open registers a new session around draft.
func (r *Registry) Open(draft *Draft) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := newSession(uuid.NewString(), draft, r.now())
	r.sessions[s.id] = s
	return s
}

// Get returns the session and records activity on it.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Close drops the session. Unsaved changes are lost.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Reap closes sessions idle for longer than idle and returns their ids.
func (r *Registry) Reap(idle time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	var reaped []string
	for id, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			delete(r.sessions, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
