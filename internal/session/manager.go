package session

import "sync"

// Manager tracks the live session of every active match. Sessions are
// created and discarded by the orchestrator; the manager only provides a
// concurrency-safe map keyed by match id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (that *Manager) Get(matchID string) (*Session, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()
	session, ok := that.sessions[matchID]
	return session, ok
}

func (that *Manager) Put(session *Session) {
	that.mu.Lock()
	defer that.mu.Unlock()
	that.sessions[session.MatchID] = session
}

// Remove stops and forgets a session. Removing an unknown match is a no-op.
func (that *Manager) Remove(matchID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if session, ok := that.sessions[matchID]; ok {
		session.Stop()
		delete(that.sessions, matchID)
	}
}
