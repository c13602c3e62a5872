package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"parley/internal/crypto"
	"parley/internal/logging"
	"parley/internal/protocol"
)

// ErrTimeout is returned when the server's acknowledgment does not arrive
// within the configured bound. The operation is indeterminate, not failed.
var ErrTimeout = errors.New("client: timed out waiting for server response")

// ErrClosed is returned for operations on a controller whose connection
// has ended.
var ErrClosed = errors.New("client: connection closed")

// DefaultTimeout bounds the wait for a server acknowledgment.
const DefaultTimeout = time.Minute

// Config describes a client session.
type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://127.0.0.1:50000/ws.
	ServerURL string

	// Name is the display name presented at login.
	Name string

	// ID is the server-assigned identity id from a previous registration,
	// or zero when registering for the first time.
	ID int64

	// Key is the long-term private key. Its public half and credential
	// digest are derived from it.
	Key crypto.PrivateKey

	// Timeout bounds each wait for a server acknowledgment. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// Notify receives every user-visible event. Nil means printing to
	// stdout in the interactive format.
	Notify func(Event)

	// LogBackend provides the session's logger. Nil discards logs.
	LogBackend *logging.Backend
}

// Controller is the client-side session state machine.
type Controller struct {
	cfg  Config
	log  *logging.Logger
	ws   *websocket.Conn
	priv crypto.PrivateKey
	pub  crypto.PublicKey

	// writeMu serializes writes; the websocket allows one writer.
	writeMu sync.Mutex

	mu       sync.Mutex
	id       int64
	roster   map[int64]protocol.UserRecord
	receiver int64
	await    chan *protocol.Envelope

	done    chan struct{}
	readErr error
}

// Dial connects to the relay and starts the receive loop. The returned
// controller is not yet logged in.
func Dial(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Notify == nil {
		cfg.Notify = printEvent
	}
	if cfg.LogBackend == nil {
		cfg.LogBackend = logging.NewDiscard()
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cfg.ServerURL, err)
	}

	c := &Controller{
		cfg:      cfg,
		log:      cfg.LogBackend.GetLogger("client"),
		ws:       ws,
		priv:     cfg.Key,
		pub:      crypto.PublicKeyFromPrivate(cfg.Key),
		id:       cfg.ID,
		roster:   make(map[int64]protocol.UserRecord),
		receiver: protocol.EveryoneID,
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Login authenticates (or registers) with the relay and returns the
// server's status line. On success the roster has been replaced wholesale
// and the server-confirmed id recorded.
func (c *Controller) Login(ctx context.Context) (string, error) {
	rec := protocol.UserRecord{
		ID:               c.cfg.ID,
		Name:             c.cfg.Name,
		PublicKey:        c.pub.Slice(),
		CredentialDigest: crypto.CredentialDigest(c.priv),
	}
	ack, err := c.send(&protocol.Envelope{
		Act:      protocol.ActLogin,
		Sender:   c.cfg.ID,
		Receiver: protocol.ServerID,
		Users:    []protocol.UserRecord{rec},
	})
	if err != nil {
		return "", err
	}
	resp, err := ack.wait(ctx)
	if err != nil {
		return "", err
	}
	if resp.Act != protocol.ActRoster {
		return "", fmt.Errorf("client: login failed: %s", resp.Payload)
	}
	return string(resp.Payload), nil
}

// Post sends plaintext to the currently selected receiver: encrypted to
// that peer's public key for a specific receiver, or in the clear as a
// broadcast when the receiver is everyone. The returned Ack can be waited
// on for the server's acknowledgment.
func (c *Controller) Post(plaintext string) (*Ack, error) {
	c.mu.Lock()
	receiver := c.receiver
	id := c.id
	rec, known := c.roster[receiver]
	c.mu.Unlock()

	if receiver == protocol.EveryoneID {
		return c.send(&protocol.Envelope{
			Act:      protocol.ActBroadcast,
			Sender:   id,
			Receiver: protocol.EveryoneID,
			Payload:  []byte(plaintext),
		})
	}

	if !known {
		return nil, fmt.Errorf("client: receiver %d is not in the roster", receiver)
	}
	pub, err := crypto.ParsePublicKey(rec.PublicKey)
	if err != nil {
		return nil, err
	}
	ciphertext, err := crypto.Encrypt([]byte(plaintext), pub)
	if err != nil {
		return nil, err
	}
	return c.send(&protocol.Envelope{
		Act:      protocol.ActPost,
		Sender:   id,
		Receiver: receiver,
		Payload:  ciphertext,
	})
}

// Logout announces the logout and waits for the acknowledgment and stream
// completion.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	id := c.id
	c.mu.Unlock()

	ack, err := c.send(&protocol.Envelope{
		Act:      protocol.ActLogout,
		Sender:   id,
		Receiver: protocol.ServerID,
	})
	if err != nil {
		return err
	}
	if _, err := ack.wait(ctx); err != nil {
		return err
	}

	// The server completes the stream after acknowledging.
	select {
	case <-c.done:
	case <-time.After(c.cfg.Timeout):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Close tears the connection down without a protocol logout.
func (c *Controller) Close() error {
	return c.ws.Close()
}

// Done is closed when the receive loop ends, for any reason.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Err returns the error that ended the receive loop. Only meaningful
// after Done is closed.
func (c *Controller) Err() error { return c.readErr }

// ID returns the server-confirmed identity id (zero before login).
func (c *Controller) ID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// SetReceiver selects where subsequent posts go. The id must be
// EveryoneID or a roster entry other than this client.
func (c *Controller) SetReceiver(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != protocol.EveryoneID {
		if id == c.id {
			return fmt.Errorf("client: cannot select yourself as receiver")
		}
		if _, ok := c.roster[id]; !ok {
			return fmt.Errorf("client: no online user with id %d", id)
		}
	}
	c.receiver = id
	return nil
}

// Receiver returns the currently selected receiver id.
func (c *Controller) Receiver() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiver
}

// ReceiverName returns the display form of the current receiver.
func (c *Controller) ReceiverName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.receiver == protocol.EveryoneID {
		return "#Everyone"
	}
	if rec, ok := c.roster[c.receiver]; ok {
		return fmt.Sprintf("%s (id=%d)", rec.Name, rec.ID)
	}
	return fmt.Sprintf("id=%d", c.receiver)
}

// Roster returns the online peers this client can currently address,
// sorted by id and excluding itself. Purely local; no round trip.
func (c *Controller) Roster() []protocol.UserRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.UserRecord, 0, len(c.roster))
	for _, rec := range c.roster {
		if rec.ID == c.id {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ack is the completion handle for one outbound request. The controller
// issues requests serially, so at most one Ack is outstanding at a time.
type Ack struct {
	c  *Controller
	ch chan *protocol.Envelope
}

// Wait blocks for the server's acknowledgment, bounded by the session
// timeout, and returns the acknowledgment text.
func (a *Ack) Wait(ctx context.Context) (string, error) {
	resp, err := a.wait(ctx)
	if err != nil {
		return "", err
	}
	return string(resp.Payload), nil
}

func (a *Ack) wait(ctx context.Context) (*protocol.Envelope, error) {
	select {
	case resp := <-a.ch:
		return resp, nil
	case <-time.After(a.c.cfg.Timeout):
		return nil, ErrTimeout
	case <-a.c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// send transmits env and registers a fresh completion handle for it.
func (c *Controller) send(env *protocol.Envelope) (*Ack, error) {
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	ack := &Ack{c: c, ch: make(chan *protocol.Envelope, 1)}
	c.mu.Lock()
	c.await = ack.ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.ws.WriteJSON(env)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("client: send %s: %w", env.Act, err)
	}
	return ack, nil
}

// readLoop is the receive side of the stream. It runs until the
// connection ends and processes every inbound envelope in delivery order.
func (c *Controller) readLoop() {
	defer close(c.done)
	for {
		var env protocol.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			c.readErr = err
			return
		}
		c.handleInbound(&env)
	}
}

// handleInbound classifies one server envelope: deliveries and notices are
// surfaced through Notify, roster messages patch the local map, and
// response-class acts additionally complete the pending request.
func (c *Controller) handleInbound(env *protocol.Envelope) {
	switch env.Act {
	case protocol.ActForward:
		plaintext, err := crypto.Decrypt(env.Payload, c.priv)
		if err != nil {
			c.log.Warningf("undecryptable private message from id=%d: %v", env.Sender, err)
			c.notify(Event{Kind: EventNotice, Text: fmt.Sprintf("undecryptable message from id=%d", env.Sender)})
			return
		}
		c.notify(Event{
			Kind:       EventMessage,
			SenderID:   env.Sender,
			SenderName: c.nameOf(env.Sender),
			Text:       string(plaintext),
		})

	case protocol.ActBroadcastMsg:
		c.notify(Event{
			Kind:       EventBroadcast,
			SenderID:   env.Sender,
			SenderName: c.nameOf(env.Sender),
			Text:       string(env.Payload),
		})

	case protocol.ActRoster:
		c.mu.Lock()
		c.roster = make(map[int64]protocol.UserRecord, len(env.Users))
		for _, rec := range env.Users {
			c.roster[rec.ID] = rec
		}
		// The roster response is addressed to our server-confirmed id.
		c.id = env.Receiver
		c.mu.Unlock()
		c.settle(env)

	case protocol.ActLoginNotice:
		if len(env.Users) != 1 {
			return
		}
		rec := env.Users[0]
		c.mu.Lock()
		c.roster[rec.ID] = rec
		c.mu.Unlock()
		c.notify(Event{Kind: EventJoined, SenderID: rec.ID, SenderName: rec.Name})

	case protocol.ActLogoutNotice:
		if len(env.Users) != 1 {
			return
		}
		rec := env.Users[0]
		c.mu.Lock()
		delete(c.roster, rec.ID)
		if c.receiver == rec.ID {
			c.receiver = protocol.EveryoneID
		}
		c.mu.Unlock()
		c.notify(Event{Kind: EventLeft, SenderID: rec.ID, SenderName: rec.Name})

	case protocol.ActNotice:
		c.notify(Event{Kind: EventNotice, Text: string(env.Payload)})
		c.settle(env)

	default:
		// Forward compatibility: display and ignore.
		c.notify(Event{Kind: EventUnknown, Text: string(env.Payload)})
	}
}

// settle completes the pending request, if any, with the response.
func (c *Controller) settle(env *protocol.Envelope) {
	c.mu.Lock()
	ch := c.await
	c.await = nil
	c.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- env:
	default:
	}
}

func (c *Controller) nameOf(id int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.roster[id]; ok {
		return rec.Name
	}
	return fmt.Sprintf("id=%d", id)
}

func (c *Controller) notify(ev Event) {
	c.cfg.Notify(ev)
}
