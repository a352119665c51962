package session

import "sync"

// MemoryStore keeps the session in process memory only.
type MemoryStore struct {
	mu  sync.RWMutex
	cur Session
}

// NewMemoryStore creates a MemoryStore seeded with initial.
func NewMemoryStore(initial Session) *MemoryStore {
	return &MemoryStore{cur: initial}
}

func (m *MemoryStore) Get() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cur
}

func (m *MemoryStore) Set(access, refresh string) error {
	m.mu.Lock()
	m.cur = merge(m.cur, access, refresh)
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.cur = Session{}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) HasRefreshCapability() bool {
	return m.Get().HasRefresh()
}

func (m *MemoryStore) Close() error { return nil }
