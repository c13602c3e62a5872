package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"parley/internal/config"
	"parley/internal/logging"
	"parley/internal/protocol"
	"parley/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 65536
	sendBufSize    = 256
)

// Server is the relay. It owns the credential store, the session registry,
// and the websocket listener; each accepted connection runs its own router.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	registry   *Registry
	logBackend *logging.Backend
	log        *logging.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New builds a Server and seeds the registry with every identity known to
// the store, all in the offline state.
func New(cfg *config.Config, st *store.Store, logBackend *logging.Backend) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		store:      st,
		registry:   NewRegistry(),
		logBackend: logBackend,
		log:        logBackend.GetLogger("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Connections are unauthenticated at the transport layer;
			// all authentication is protocol-level.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	users, err := st.ListAll()
	if err != nil {
		return nil, err
	}
	s.registry.Seed(users)
	s.log.Noticef("seeded registry with %d known identities", len(users))
	return s, nil
}

// Registry exposes the session registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }

// Handler returns the HTTP handler serving the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe runs the relay until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Server.Address,
		Handler: s.Handler(),
	}
	s.log.Noticef("listening on %s", s.cfg.Server.Address)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade: %v", err)
		return
	}

	c := &wsConn{
		id:   uuid.New().String(),
		ws:   ws,
		send: make(chan *protocol.Envelope, sendBufSize),
		done: make(chan struct{}),
	}
	s.log.Infof("connection %s accepted from %s", c.id, r.RemoteAddr)

	go c.writePump()
	s.readPump(c)
}

// readPump drives the router with inbound envelopes until the connection
// ends, then attributes the close: a router already in the closed state
// finished gracefully, anything else is an abrupt disconnect.
func (s *Server) readPump(c *wsConn) {
	rt := newRouter(s, c, s.logBackend.GetLogger("router"))
	defer func() {
		rt.onDisconnect()
		c.Close()
		s.log.Infof("connection %s closed", c.id)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env protocol.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return
		}
		rt.handle(&env)
		if rt.closed() {
			return
		}
	}
}

// wsConn adapts a websocket connection to the Channel interface: Deliver
// queues onto the send channel, and the write pump owns all writes.
type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan *protocol.Envelope

	once sync.Once
	done chan struct{}
}

func (c *wsConn) Deliver(env *protocol.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	default:
		// Outbound buffer full; drop rather than block the router.
		return false
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() { close(c.done) })
}

// writePump serializes all writes to the websocket: queued envelopes,
// keepalive pings, and the final close handshake. On Close it drains what
// is already queued so terminal responses still reach the client.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case env := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteJSON(env); err != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
