package session

import (
	"sync"
	"time"

	"github.com/moyoez/batchshare/metrics"
	"github.com/moyoez/batchshare/tool"
)

const (
	// TTL is the absolute lifetime of a session, counted from its creation.
	TTL = 1800 * time.Second

	maxIDAttempts = 64
)

// Store is the registry of live sessions, at most one per operator. Every lookup and
// mutation goes through one mutex, so check-then-insert in Start is atomic.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*BatchSession
	issued   map[string]struct{} // every id handed out or already persisted, never reused
	ttl      time.Duration
	now      func() time.Time
	newId    func() string
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newId = gen }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[int64]*BatchSession),
		issued:   make(map[string]struct{}),
		ttl:      TTL,
		now:      time.Now,
		newId:    tool.GenerateBatchID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Reserve marks ids as taken, e.g. the ids of batches already in the repository.
func (s *Store) Reserve(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.issued[id] = struct{}{}
	}
}

// Start registers a new empty session for owner, or fails with ErrSessionConflict.
func (s *Store) Start(owner int64) (*BatchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[owner]; exists {
		return nil, ErrSessionConflict
	}
	id, err := s.uniqueIdLocked()
	if err != nil {
		return nil, err
	}
	sess := newBatchSession(id, owner, s.now(), s.ttl)
	s.sessions[owner] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return sess, nil
}

func (s *Store) uniqueIdLocked() (string, error) {
	for range maxIDAttempts {
		id := s.newId()
		if _, taken := s.issued[id]; taken {
			continue
		}
		s.issued[id] = struct{}{}
		return id, nil
	}
	return "", ErrIDExhausted
}

// Get returns the live session of owner.
func (s *Store) Get(owner int64) (*BatchSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[owner]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

// End removes whatever session owner has. Calling it with no session is a no-op.
func (s *Store) End(owner int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[owner]; ok {
		sess.close()
		delete(s.sessions, owner)
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Discard removes sess only if it is still the owner's current session, so a newer session
// of the same owner is never touched by a finish, cancel or expiry of an older one.
func (s *Store) Discard(sess *BatchSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.close()
	current, ok := s.sessions[sess.owner]
	if !ok || current != sess {
		return false
	}
	delete(s.sessions, sess.owner)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return true
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
