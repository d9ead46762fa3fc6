package session

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	nowFunc func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nowFunc: time.Now, sessions: make(map[string]Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.Expired(m.nowFunc()) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, nil
	}
	s.Flash = cloneFlash(s.Flash)
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Flash = cloneFlash(s.Flash)
	cp.dirty, cp.destroyed, cp.previousID = false, false, ""
	m.sessions[s.ID] = cp
	return nil
}

func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func cloneFlash(src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}
