package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/puppyavatar/internal/avatar3d"
	"github.com/normanking/puppyavatar/internal/bus"
	"github.com/normanking/puppyavatar/internal/compositor"
)

const (
	writeWait       = 5 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 4096
	shutdownTimeout = 5 * time.Second

	DefaultSendBuffer = 32
)

type client struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Server streams frames to every connected client. A client that cannot
// keep up loses frames; Broadcast never blocks the render loop.
type Server struct {
	addr       string
	events     *bus.EventBus
	log        zerolog.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu      sync.RWMutex
	clients map[string]*client
	dropped atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithSendBuffer sets the per-client frame queue length.
func WithSendBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.sendBuffer = n
		}
	}
}

// NewServer creates a server for addr. Signals from clients are published
// on events, which may be nil.
func NewServer(addr string, events *bus.EventBus, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		events: events,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Renderers run on localhost under arbitrary dev-server origins
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: DefaultSendBuffer,
		clients:    make(map[string]*client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the /ws and /healthz routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Run serves until ctx is cancelled, then closes every client.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("Stream server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("stream server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeAll()
	s.log.Info().Msg("Stream server stopped")
	if err != nil {
		return fmt.Errorf("shutdown stream server: %w", err)
	}
	return nil
}

// Broadcast sends the snapshot to every client.
func (s *Server) Broadcast(snap avatar3d.Snapshot) error {
	data, err := json.Marshal(NewFrameMessage(snap))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		s.enqueue(c, data)
	}
	return nil
}

func (s *Server) enqueue(c *client, data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped counts frames not delivered to slow clients.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Info().Str("client", c.id).Int("clients", n).Msg("Client connected")
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	n := len(s.clients)
	s.mu.Unlock()
	c.close()
	s.log.Info().Str("client", c.id).Int("clients", n).Msg("Client disconnected")
}

func (s *Server) closeAll() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*client)
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, s.sendBuffer),
		done: make(chan struct{}),
	}

	parts := make([]string, 0, compositor.PartCount)
	for p := compositor.Part(0); p < compositor.PartCount; p++ {
		parts = append(parts, p.String())
	}
	hello, _ := json.Marshal(HelloMessage{Type: TypeHello, ClientID: c.id, Parts: parts})
	c.send <- hello

	s.register(c)
	go s.writePump(c)
	s.readPump(c)
	s.unregister(c)
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug().Err(err).Str("client", c.id).Msg("Write failed")
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (s *Server) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg SignalMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				s.log.Debug().Err(err).Str("client", c.id).Msg("Ignoring malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("client", c.id).Msg("Read failed")
			}
			return
		}
		if msg.Type != TypeSignal {
			s.log.Debug().Str("client", c.id).Str("type", string(msg.Type)).Msg("Ignoring message")
			continue
		}
		if s.events == nil {
			continue
		}
		// Signals from one client must land in the order they were sent.
		for _, e := range msg.Events() {
			s.events.PublishSync(e)
		}
	}
}
