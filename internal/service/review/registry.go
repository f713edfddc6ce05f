package review

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session may stay untouched before the
// sweep evicts it.
const DefaultIdleTimeout = 10 * time.Minute

// Registry owns the live sessions, at most one per learner.
//
// GetOrCreate is the only way a session enters the registry. Holders of a
// session must check that it is still registered after acquiring its lock,
// because it may have been replaced or swept in the meantime.
type Registry interface {
	// GetOrCreate returns the learner's session, calling create to make one
	// when there is none. The boolean reports whether create was used.
	GetOrCreate(userID int64, create func() *Session) (*Session, bool)

	// Get returns the learner's session if one is registered.
	Get(userID int64) (*Session, bool)

	// Remove deletes the learner's session only if it is still s.
	Remove(userID int64, s *Session) bool

	// Sweep evicts sessions idle at now and returns how many were evicted.
	Sweep(now time.Time) int
}

// Verify interface compliance at compile time
var _ Registry = (*MemoryRegistry)(nil)

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu          sync.Mutex
	sessions    map[int64]*Session
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewMemoryRegistry creates a registry that evicts sessions idle for at
// least idleTimeout. A non-positive timeout uses DefaultIdleTimeout.
func NewMemoryRegistry(idleTimeout time.Duration, logger *slog.Logger) *MemoryRegistry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MemoryRegistry{
		sessions:    make(map[int64]*Session),
		idleTimeout: idleTimeout,
		logger:      logger.With(slog.String("component", "session_registry")),
	}
}

// GetOrCreate implements Registry.
func (r *MemoryRegistry) GetOrCreate(userID int64, create func() *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[userID]; ok {
		return s, false
	}
	s := create()
	r.sessions[userID] = s
	return s, true
}

// Get implements Registry.
func (r *MemoryRegistry) Get(userID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[userID]
	return s, ok
}

// Remove implements Registry.
func (r *MemoryRegistry) Remove(userID int64, s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[userID]; ok && cur == s {
		delete(r.sessions, userID)
		return true
	}
	return false
}

// Sweep implements Registry.
func (r *MemoryRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, s := range r.sessions {
		if now.Sub(s.LastActivity()) >= r.idleTimeout {
			delete(r.sessions, userID)
			evicted++
		}
	}

	if evicted > 0 {
		r.logger.Debug("evicted idle review sessions",
			slog.Int("evicted", evicted),
			slog.Int("remaining", len(r.sessions)))
	}
	return evicted
}

// Len returns the number of registered sessions.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
