package prompt

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the editable template and the most recent prompt of one user.
// The zero value is ready to use and starts with DefaultTemplate.
type Session struct {
	mu       sync.Mutex
	template *string
	last     string
}

// Template returns the current template.
func (s *Session) Template() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.template == nil {
		return DefaultTemplate
	}
	return *s.template
}

// SetTemplate replaces the template. An empty template is kept as is.
func (s *Session) SetTemplate(t string) {
	s.mu.Lock()
	s.template = &t
	s.mu.Unlock()
}

// Reset restores DefaultTemplate.
func (s *Session) Reset() {
	s.mu.Lock()
	s.template = nil
	s.mu.Unlock()
}

// LastPrompt returns the most recently recorded prompt.
func (s *Session) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Record stores p as the most recent prompt.
func (s *Session) Record(p string) {
	s.mu.Lock()
	s.last = p
	s.mu.Unlock()
}

// Session registry defaults.
const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultMaxSessions = 1024
)

// Sessions is a registry of sessions keyed by ids it issued itself. Sessions
// idle for longer than the TTL expire, and when the registry is full the
// least recently used session is evicted. State lives in memory only and is
// lost on restart.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	max      int
	now      func() time.Time
}

type sessionEntry struct {
	sess     *Session
	lastSeen time.Time
}

// SessionsOption configures a Sessions registry.
type SessionsOption func(*Sessions)

// WithSessionTTL sets the idle time after which a session expires.
func WithSessionTTL(d time.Duration) SessionsOption {
	return func(s *Sessions) { s.ttl = d }
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(n int) SessionsOption {
	return func(s *Sessions) { s.max = n }
}

// WithSessionClock overrides the time source used for expiry.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

// NewSessions returns an empty registry.
func NewSessions(opts ...SessionsOption) *Sessions {
	s := &Sessions{
		sessions: make(map[string]*sessionEntry),
		ttl:      DefaultSessionTTL,
		max:      DefaultMaxSessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.max < 1 {
		s.max = 1
	}
	return s
}

// Get returns the live session for id. An empty, unknown or expired id
// gets a fresh session under a newly issued id; the id in use is returned.
func (s *Sessions) Get(id string) (string, *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	if e, ok := s.sessions[id]; ok {
		if now.Sub(e.lastSeen) < s.ttl {
			e.lastSeen = now
			return id, e.sess
		}
		delete(s.sessions, id)
	}

	if len(s.sessions) >= s.max {
		s.evict(now)
	}
	id = uuid.NewString()
	sess := &Session{}
	s.sessions[id] = &sessionEntry{sess: sess, lastSeen: now}
	return id, sess
}

// evict drops expired sessions and, if the registry is still full, the
// least recently used one. Callers hold s.mu.
func (s *Sessions) evict(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) >= s.ttl {
			delete(s.sessions, id)
			continue
		}
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID, oldest = id, e.lastSeen
		}
	}
	if len(s.sessions) >= s.max && oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
