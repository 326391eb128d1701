package session

import (
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-invoice-export/document"
)

// DefaultID names the session used when a caller supplies none.
const DefaultID = "default"

// Registry hands out one session per id, created on first use.
//
// Sessions untouched for IdleTTL are evicted, and creating a session beyond
// MaxSessions evicts the least recently used one. A busy session is never
// evicted. Zero values disable either bound.
type Registry struct {
	New         func(id string) *Session
	IdleTTL     time.Duration
	MaxSessions int
	Now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*registryEntry
}

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// NewRegistry creates a registry that builds sessions with factory.
func NewRegistry(factory func(id string) *Session) *Registry {
	return &Registry{New: factory, sessions: make(map[string]*registryEntry)}
}

// Get returns the session for id, creating it when missing.
func (r *Registry) Get(id string) *Session {
	// ids may alias a reused request buffer
	id = strings.Clone(strings.TrimSpace(id))
	if id == "" {
		id = DefaultID
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions == nil {
		r.sessions = make(map[string]*registryEntry)
	}
	if entry, ok := r.sessions[id]; ok {
		entry.lastUsed = now
		return entry.session
	}

	r.evictIdleLocked(now)
	if r.MaxSessions > 0 && len(r.sessions) >= r.MaxSessions {
		r.evictOldestLocked()
	}

	var s *Session
	if r.New != nil {
		s = r.New(id)
	}
	if s == nil {
		s = New(document.Document{}, nil, nil)
	}
	s.ID = id
	r.sessions[id] = &registryEntry{session: s, lastUsed: now}
	return s
}

// Sweep evicts idle sessions and reports how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictIdleLocked(r.now())
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) evictIdleLocked(now time.Time) int {
	if r.IdleTTL <= 0 {
		return 0
	}
	removed := 0
	for id, entry := range r.sessions {
		if now.Sub(entry.lastUsed) > r.IdleTTL && !entry.session.Busy() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, entry := range r.sessions {
		if entry.session.Busy() {
			continue
		}
		if oldestID == "" || entry.lastUsed.Before(oldest) {
			oldestID, oldest = id, entry.lastUsed
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
	}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
