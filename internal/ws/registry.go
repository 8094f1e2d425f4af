package ws

import (
	"log"
	"sync"
)

// Conn is one live websocket attachment for a user. Enqueue must not block;
// it reports whether the frame was accepted for writing.
type Conn interface {
	Enqueue(data []byte) bool
}

// Registry indexes which users currently have at least one live,
// authenticated connection. It is constructed by the server bootstrap and
// injected wherever pushes originate; there is no package-level instance, so
// tests can run several independent registries in one process.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uint]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[uint]map[Conn]struct{})}
}

// Add appends a connection to the user's set. A device reconnecting produces
// a fresh entry each time its handshake succeeds; there is no dedup.
func (r *Registry) Add(userID uint, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[Conn]struct{})
	}
	r.byUser[userID][c] = struct{}{}
}

// Remove drops one connection by identity. The user's set is deleted once
// empty, so an absent key means "no live connections".
func (r *Registry) Remove(userID uint, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.byUser[userID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(r.byUser, userID)
		}
	}
}

func (r *Registry) IsConnected(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// ConnectedUserIDs snapshots all users with a live connection, for
// system-wide broadcast.
func (r *Registry) ConnectedUserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// SendToUser fans one frame out to every live connection of the user.
// Returns false when the user has no connections at all. Per-connection
// enqueue failures are logged and do not affect siblings.
func (r *Registry) SendToUser(userID uint, data []byte) bool {
	r.mu.RLock()
	m := r.byUser[userID]
	conns := make([]Conn, 0, len(m))
	for c := range m {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	if len(conns) == 0 {
		return false
	}
	for _, c := range conns {
		if !c.Enqueue(data) {
			log.Printf("[WS] dropped frame for user %d: connection not writable", userID)
		}
	}
	return true
}

func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, m := range r.byUser {
		n += len(m)
	}
	return n
}
