// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
)

// Session is the server-side identity of one connected peer. It wraps the
// raw connection and tracks authentication and room membership.
type Session struct {
	ID            string
	Conn          network.Connection
	DisplayName   string
	CreatedAt     time.Time
	LastActive    time.Time
	authenticated bool
	rooms         map[string]bool // room IDs this session is player or observer in
	mutex         sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
		rooms:      make(map[string]bool),
	}
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.LastActive = time.Now()
	return s.Conn.Send(msgID, data)
}

// SendPacket sends a JSON payload. Send failures are logged, not fatal:
// a peer that is gone will be reaped by its read loop.
func (s *Session) SendPacket(msgID uint16, v interface{}) error {
	s.LastActive = time.Now()
	if err := s.Conn.SendPacket(msgID, v); err != nil {
		logger.Log.Warnf("Send to session %s failed: %v", s.ID, err)
		return err
	}
	return nil
}

// Authenticate marks the session as administrator if the password matches.
func (s *Session) Authenticate(password, expected string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if expected != "" && password == expected {
		s.authenticated = true
	}
	return s.authenticated
}

func (s *Session) IsAdministrator() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.authenticated
}

func (s *Session) EnterRoom(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rooms[roomID] = true
}

func (s *Session) LeaveRoom(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.rooms, roomID)
}

// Rooms returns the IDs of all rooms this session belongs to.
func (s *Session) Rooms() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// Administrators returns every authenticated session.
func (m *Manager) Administrators() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.IsAdministrator() {
			result = append(result, session)
		}
	}
	return result
}
