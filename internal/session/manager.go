package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/metrics"
	"github.com/google/uuid"
)

// Manager is the in-memory registry of live sessions. Nothing is persisted.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new session for an authenticated profile.
func (m *Manager) Create(profile domain.Profile, topic int) *Session {
	s := New(uuid.NewString(), profile, topic)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	slog.Info("Session created",
		"session_id", s.ID,
		"user_id", profile.Identity.UserID,
		"role", profile.Identity.Role.String(),
		"topic_id", topic,
	)
	return s
}

// Get returns a live session or nil.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Delete closes and forgets a session. It reports whether one existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	slog.Info("Session deleted", "session_id", id)
	return true
}

// Expired returns sessions idle for longer than ttl.
func (m *Manager) Expired(ttl time.Duration) []*Session {
	cutoff := time.Now().Add(-ttl)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
