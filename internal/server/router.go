package server

import (
	"fmt"

	"parley/internal/logging"
	"parley/internal/protocol"
)

type connState int

const (
	stateUnauthenticated connState = iota
	stateAuthenticated
	stateClosed
)

// router is the per-connection protocol state machine. It classifies each
// inbound envelope by act, mutates the registry and credential store, and
// produces the direct response plus any fan-out. A router is driven by a
// single read loop and needs no locking of its own.
type router struct {
	srv   *Server
	ch    Channel
	log   *logging.Logger
	state connState

	// id is set once the connection authenticates.
	id int64
}

func newRouter(srv *Server, ch Channel, log *logging.Logger) *router {
	return &router{
		srv:   srv,
		ch:    ch,
		log:   log,
		state: stateUnauthenticated,
	}
}

// closed reports whether the state machine has reached its terminal state.
func (rt *router) closed() bool { return rt.state == stateClosed }

// handle dispatches one inbound envelope.
func (rt *router) handle(env *protocol.Envelope) {
	switch env.Act {
	case protocol.ActLogin:
		rt.onLogin(env)
	case protocol.ActLogout:
		rt.onLogout()
	case protocol.ActPost:
		rt.onPost(env)
	case protocol.ActBroadcast:
		rt.onBroadcast(env)
	default:
		// Forward compatibility: never fatal, no state change.
		rt.log.Debugf("unknown act %q from connection", env.Act)
		rt.ch.Deliver(protocol.Notice(env.Sender, fmt.Sprintf("Unknown act %q", env.Act)))
	}
}

func (rt *router) onLogin(env *protocol.Envelope) {
	if rt.state != stateUnauthenticated {
		rt.ch.Deliver(protocol.Notice(rt.id, "Already logged in"))
		return
	}
	if len(env.Users) != 1 {
		rt.fail(env.Sender, "Login Failed: malformed login")
		return
	}
	rec := env.Users[0]

	var (
		id     int64
		name   string
		pub    []byte
		status string
	)
	if rt.srv.registry.Known(rec.ID) {
		// Returning identity: verify the salted credential.
		storedName, err := rt.srv.store.Authenticate(rec.ID, rec.CredentialDigest)
		if err != nil {
			// Unknown id and digest mismatch are reported identically.
			rt.fail(rec.ID, "Login Failed: authentication rejected")
			return
		}
		id = rec.ID
		name = storedName
		_, pub, _ = rt.srv.registry.Lookup(id)
		status = fmt.Sprintf("Welcome back, %s", name)
	} else {
		// First contact: register a fresh identity.
		newID, err := rt.srv.store.Register(rec.Name, rec.PublicKey, rec.CredentialDigest)
		if err != nil {
			rt.log.Errorf("registration failed for %q: %v", rec.Name, err)
			rt.fail(rec.ID, "Login Failed: registration error")
			return
		}
		id = newID
		name = rec.Name
		pub = rec.PublicKey
		status = fmt.Sprintf("Registered as id=%d", id)
	}

	rt.srv.registry.Bind(id, name, pub, rt.ch)
	rt.id = id
	rt.state = stateAuthenticated
	rt.log.Noticef("user %q (id=%d) login", name, id)

	rt.fanoutUserNotice(protocol.ActLoginNotice, protocol.UserRecord{ID: id, Name: name, PublicKey: pub}, id)

	rt.ch.Deliver(&protocol.Envelope{
		Act:      protocol.ActRoster,
		Sender:   protocol.ServerID,
		Receiver: id,
		Payload:  []byte(status),
		Users:    rt.srv.registry.OnlineSnapshot(),
	})
}

func (rt *router) onLogout() {
	if rt.state != stateAuthenticated {
		rt.ch.Deliver(protocol.Notice(protocol.ServerID, "Not logged in"))
		return
	}
	if id, ok := rt.srv.registry.FindByChannel(rt.ch); ok {
		rt.dropSession(id)
	}
	rt.ch.Deliver(protocol.Notice(rt.id, "Logout Successful"))
	rt.state = stateClosed
	rt.ch.Close()
}

func (rt *router) onPost(env *protocol.Envelope) {
	if rt.state != stateAuthenticated {
		rt.ch.Deliver(protocol.Notice(env.Sender, "Not logged in"))
		return
	}
	ch, ok := rt.srv.registry.ChannelOf(env.Receiver)
	if !ok {
		rt.ch.Deliver(protocol.Notice(rt.id, fmt.Sprintf("Send Failed: user %d is offline", env.Receiver)))
		return
	}
	// The payload is end-to-end ciphertext; forward it untouched.
	ch.Deliver(&protocol.Envelope{
		Act:      protocol.ActForward,
		Sender:   rt.id,
		Receiver: env.Receiver,
		Payload:  env.Payload,
	})
	rt.log.Infof("private chat: %d -> %d", rt.id, env.Receiver)
	rt.ch.Deliver(protocol.Notice(rt.id, "Send Successful"))
}

func (rt *router) onBroadcast(env *protocol.Envelope) {
	if rt.state != stateAuthenticated {
		rt.ch.Deliver(protocol.Notice(env.Sender, "Not logged in"))
		return
	}
	for _, u := range rt.srv.registry.OnlineSnapshot() {
		if u.ID == rt.id {
			continue
		}
		ch, ok := rt.srv.registry.ChannelOf(u.ID)
		if !ok {
			continue
		}
		ch.Deliver(&protocol.Envelope{
			Act:      protocol.ActBroadcastMsg,
			Sender:   rt.id,
			Receiver: u.ID,
			Payload:  env.Payload,
		})
	}
	rt.log.Infof("broadcast from %d", rt.id)
	rt.ch.Deliver(protocol.Notice(rt.id, "Broadcast Successful"))
}

// onDisconnect handles an abrupt transport-level close: the session is
// unbound and a logout notice fans out exactly as for an explicit #logout,
// but no response is produced since the channel is already gone.
func (rt *router) onDisconnect() {
	if rt.state == stateClosed {
		return
	}
	rt.state = stateClosed
	id, ok := rt.srv.registry.FindByChannel(rt.ch)
	if !ok {
		return
	}
	rt.log.Noticef("user id=%d disconnected", id)
	rt.dropSession(id)
}

// dropSession unbinds id and fans the logout notice out to everyone else.
func (rt *router) dropSession(id int64) {
	name, pub, _ := rt.srv.registry.Lookup(id)
	rt.srv.registry.Unbind(id)
	rt.log.Noticef("user %q (id=%d) logout", name, id)
	rt.fanoutUserNotice(protocol.ActLogoutNotice, protocol.UserRecord{ID: id, Name: name, PublicKey: pub}, id)
}

// fail responds with a terminal error notice and completes the stream.
func (rt *router) fail(receiver int64, message string) {
	rt.ch.Deliver(protocol.Notice(receiver, message))
	rt.state = stateClosed
	rt.ch.Close()
}

// fanoutUserNotice delivers a roster-delta notice carrying rec to every
// online session except the one identified by exclude.
func (rt *router) fanoutUserNotice(act protocol.Act, rec protocol.UserRecord, exclude int64) {
	for _, u := range rt.srv.registry.OnlineSnapshot() {
		if u.ID == exclude {
			continue
		}
		ch, ok := rt.srv.registry.ChannelOf(u.ID)
		if !ok {
			continue
		}
		ch.Deliver(&protocol.Envelope{
			Act:      act,
			Sender:   protocol.ServerID,
			Receiver: u.ID,
			Payload:  []byte(rec.Name),
			Users:    []protocol.UserRecord{rec},
		})
	}
}
