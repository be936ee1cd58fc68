package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks live presence connections per identity thread-safely.
// One identity may hold several connections (one per device).
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]map[*websocket.Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]map[*websocket.Conn]struct{})}
}

// Add registers a connection for an identity.
func (r *Registry) Add(identityID int64, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[identityID] == nil {
		r.conns[identityID] = make(map[*websocket.Conn]struct{})
	}
	r.conns[identityID][conn] = struct{}{}
}

// Remove drops a connection; the identity entry disappears with its
// last connection.
func (r *Registry) Remove(identityID int64, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.conns[identityID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(r.conns, identityID)
		}
	}
}

// Count returns the number of live connections for an identity.
func (r *Registry) Count(identityID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[identityID])
}

// DisconnectIdentity force-closes every connection the identity holds.
// Called on sign-out, mirroring the cache slot that is shared by all of
// the identity's devices.
func (r *Registry) DisconnectIdentity(identityID int64, reason string) {
	r.mu.Lock()
	set := r.conns[identityID]
	delete(r.conns, identityID)
	r.mu.Unlock()

	for conn := range set {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			closeDeadline())
		conn.Close()
	}
}
