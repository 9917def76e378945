package relay

import (
	"sync"

	"github.com/HMasataka/relay/pkg/domain"
	"github.com/samber/lo"
)

// Registry tracks open connections and the usernames they joined with.
// Open connections are kept in accept order and usernames in first-join
// order; a rejoin overwrites the name but keeps the position.
type Registry struct {
	mu sync.RWMutex

	conns map[string]domain.Connection
	open  []string

	users  map[string]string
	joined []string
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]domain.Connection),
		users: make(map[string]string),
	}
}

// Add puts conn in the open set. Adding a connection twice is a no-op.
func (r *Registry) Add(conn domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(conn)
}

func (r *Registry) add(conn domain.Connection) {
	id := conn.ID()
	if _, ok := r.conns[id]; ok {
		return
	}
	r.conns[id] = conn
	r.open = append(r.open, id)
}

// Register records username for conn, overwriting any earlier join.
func (r *Registry) Register(conn domain.Connection, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(conn)

	id := conn.ID()
	if _, ok := r.users[id]; !ok {
		r.joined = append(r.joined, id)
	}
	r.users[id] = username
}

// Unregister forgets the username of conn, if any.
func (r *Registry) Unregister(conn domain.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unregister(conn.ID())
}

func (r *Registry) unregister(id string) {
	if _, ok := r.users[id]; !ok {
		return
	}
	delete(r.users, id)
	r.joined = lo.Without(r.joined, id)
}

// Remove drops conn from the open set together with its username.
// It reports whether conn was present.
func (r *Registry) Remove(conn domain.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	r.unregister(id)

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	r.open = lo.Without(r.open, id)
	return true
}

// ListUsernames returns a snapshot of joined usernames in first-join order.
// Duplicates are preserved.
func (r *Registry) ListUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.joined, func(id string, _ int) string {
		return r.users[id]
	})
}

// Connections returns a snapshot of the open set in accept order.
func (r *Registry) Connections() []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.open, func(id string, _ int) domain.Connection {
		return r.conns[id]
	})
}

// Username returns the name conn joined with.
func (r *Registry) Username(conn domain.Connection) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.users[conn.ID()]
	return name, ok
}

// Contains reports whether conn is in the open set.
func (r *Registry) Contains(conn domain.Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[conn.ID()]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.open)
}

func (r *Registry) JoinedLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.joined)
}
