package dialog

import (
	"context"
	"sync"
	"time"
)

// Store persists live sessions keyed by account. Implementations must hand
// out copies: callers mutate what Get returns and write it back with Put.
//
// Writes are compare-and-set on Session.Version so that two processes
// sharing a store cannot overwrite each other's progress or bring back a
// session that was already completed.
type Store interface {
	// Get returns the account's session, or nil when there is none.
	Get(ctx context.Context, accountID string) (*Session, error)
	// Put stores s if the stored session still has s.Version, or if there
	// is none and s.Version is 0. On success s.Version is bumped. A lost
	// race returns ErrStale.
	Put(ctx context.Context, s *Session) error
	// Take removes the account's session only if it is still sessionID at
	// version and reports whether it did. It is the single point where a
	// session is consumed for completion.
	Take(ctx context.Context, accountID, sessionID string, version int64) (bool, error)
	Delete(ctx context.Context, accountID string) error
}

// MemoryStore keeps sessions in process. Sessions idle for longer than the
// timeout are dropped lazily on access and by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a MemoryStore. idle <= 0 disables expiry.
func NewMemoryStore(idle time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// WithClock replaces the store's clock. Intended for tests.
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.idle > 0 && m.now().Sub(s.UpdatedAt) > m.idle
}

// live returns the stored session, dropping it first if it expired.
func (m *MemoryStore) live(accountID string) *Session {
	s, ok := m.sessions[accountID]
	if !ok {
		return nil
	}
	if m.expired(s) {
		delete(m.sessions, accountID)
		return nil
	}
	return s
}

func (m *MemoryStore) Get(_ context.Context, accountID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(accountID)
	if s == nil {
		return nil, nil
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.live(s.AccountID)
	switch {
	case cur == nil && s.Version != 0:
		return ErrStale
	case cur != nil && cur.Version != s.Version:
		return ErrStale
	}
	s.Version++
	m.sessions[s.AccountID] = s.Clone()
	return nil
}

func (m *MemoryStore) Take(_ context.Context, accountID, sessionID string, version int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.live(accountID)
	if s == nil || s.ID != sessionID || s.Version != version {
		return false, nil
	}
	delete(m.sessions, accountID)
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accountID)
	return nil
}

// Sweep drops every expired session and returns how many it removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
