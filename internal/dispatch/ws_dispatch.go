package dispatch

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// StatusUpdate is pushed to connected clients when a freight or service
// request changes status.
type StatusUpdate struct {
	Entity          string `json:"entity"`
	ID              string `json:"id"`
	Status          string `json:"status"`
	EffectiveStatus string `json:"effective_status,omitempty"`
}

// WSSession is one connected client.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(u StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(u)
}

// WSRegistry holds connected sessions keyed by profile id.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(profileID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[profileID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(profileID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, profileID)
}

// Push sends a status update to one profile's session, if connected.
func (r *WSRegistry) Push(profileID string, u StatusUpdate) error {
	r.mu.RLock()
	s, ok := r.sessions[profileID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(u); err != nil {
		log.Printf("ws send error: %v", err)
		return err
	}
	return nil
}

var ErrNoSession = &NoSessionError{}

type NoSessionError struct{}

func (n *NoSessionError) Error() string { return "no ws session" }
