package replica

import "sync"

// Manager owns the per-session replicas living inside this process, keyed by
// user id once the session is authenticated.
type Manager struct {
	mu       sync.Mutex
	replicas map[int64]*Replica
}

func NewManager() *Manager {
	return &Manager{replicas: make(map[int64]*Replica)}
}

// Get returns the session's replica, creating an empty one on first touch.
func (m *Manager) Get(userID int64) *Replica {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.replicas[userID]
	if !ok {
		rep = New()
		m.replicas[userID] = rep
	}
	return rep
}

// Drop forgets the session's replica entirely (session end).
func (m *Manager) Drop(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.replicas, userID)
}
