package server

import (
	"sync"

	"parley/internal/protocol"
)

// Channel is the outbound delivery handle bound to one live connection.
// Implementations must be comparable; the registry keys its reverse index
// on the handle itself.
type Channel interface {
	// Deliver queues env for transmission. It reports false when the
	// connection is closing or its outbound buffer is full; a dropped
	// envelope is never retried.
	Deliver(env *protocol.Envelope) bool

	// Close tears the connection down after flushing queued envelopes.
	Close()
}

type session struct {
	id        int64
	name      string
	publicKey []byte
	online    bool
	ch        Channel
}

// Registry is the in-memory session table: one entry per known identity,
// online or not, plus the reserved everyone identity. All methods are safe
// for concurrent use from independent connection handlers, and every
// mutation is atomic with respect to readers: no caller ever observes a
// session that is online without a channel or vice versa.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[int64]*session
	byChannel map[Channel]int64
}

// NewRegistry returns a registry holding only the reserved everyone
// identity, which is never online and never appears in snapshots.
func NewRegistry() *Registry {
	r := &Registry{
		sessions:  make(map[int64]*session),
		byChannel: make(map[Channel]int64),
	}
	r.sessions[protocol.EveryoneID] = &session{
		id:   protocol.EveryoneID,
		name: "#Everyone",
	}
	return r
}

// Seed populates the registry with known identities in the offline state.
// Called once at startup with the credential store's full listing.
func (r *Registry) Seed(users []protocol.UserRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		r.sessions[u.ID] = &session{
			id:        u.ID,
			name:      u.Name,
			publicKey: append([]byte(nil), u.PublicKey...),
		}
	}
}

// Known reports whether id has a session entry, online or not.
func (r *Registry) Known(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Lookup returns the stored name and public key for id.
func (r *Registry) Lookup(id int64) (name string, publicKey []byte, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return "", nil, false
	}
	return s.name, append([]byte(nil), s.publicKey...), true
}

// Bind sets or overwrites the session for id, marks it online, and binds
// ch as its delivery handle. Any previously bound channel is atomically
// superseded: its reverse-index entry is removed, so a later disconnect of
// the stale connection no longer resolves to this identity.
func (r *Registry) Bind(id int64, name string, publicKey []byte, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = &session{id: id}
		r.sessions[id] = s
	}
	if s.ch != nil {
		delete(r.byChannel, s.ch)
	}
	s.name = name
	s.publicKey = append([]byte(nil), publicKey...)
	s.online = true
	s.ch = ch
	r.byChannel[ch] = id
}

// Unbind marks id offline and clears its channel. Name and public key are
// kept so a later login is recognized as a return, not a registration.
func (r *Registry) Unbind(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	if s.ch != nil {
		delete(r.byChannel, s.ch)
	}
	s.online = false
	s.ch = nil
}

// IsOnline reports whether id currently has a bound connection.
func (r *Registry) IsOnline(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return ok && s.online
}

// ChannelOf returns the delivery handle for id, if it is online.
func (r *Registry) ChannelOf(id int64) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || !s.online {
		return nil, false
	}
	return s.ch, true
}

// FindByChannel resolves a delivery handle back to its identity, used to
// attribute an abrupt disconnect without an explicit logout.
func (r *Registry) FindByChannel(ch Channel) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byChannel[ch]
	return id, ok
}

// OnlineSnapshot returns a point-in-time copy of all online sessions,
// excluding the reserved everyone identity. Callers may iterate it while
// the registry keeps changing underneath.
func (r *Registry) OnlineSnapshot() []protocol.UserRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.UserRecord, 0, len(r.byChannel))
	for _, s := range r.sessions {
		if !s.online || s.id == protocol.EveryoneID {
			continue
		}
		out = append(out, protocol.UserRecord{
			ID:        s.id,
			Name:      s.name,
			PublicKey: append([]byte(nil), s.publicKey...),
		})
	}
	return out
}
