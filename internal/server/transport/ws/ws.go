// Package ws serves the game protocol over websockets.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/OCharnyshevich/voxel-server/internal/server/transport"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 8) / 10

	// Maximum message size allowed from peer. Clients only send small control messages.
	maxMessageSize = 4096

	// Outgoing messages buffered per client before it is considered unresponsive.
	sendBufferSize = 1024

	// Events buffered for the tick loop.
	eventBufferSize = 4096
)

// Server accepts websocket clients and turns their traffic into transport events.
type Server struct {
	log        *slog.Logger
	compressor *protocol.Compressor
	upgrader   websocket.Upgrader
	events     chan transport.Event
	nextID     atomic.Uint32

	// done is closed by Close; event sends give up once it is.
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	clients map[player.ID]*client
}

var _ transport.Transport = (*Server)(nil)

func NewServer(compressor *protocol.Compressor, log *slog.Logger) *Server {
	return &Server{
		log:        log.With("component", "ws"),
		compressor: compressor,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   maxMessageSize,
			WriteBufferSize:  64 * 1024,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
		events:  make(chan transport.Event, eventBufferSize),
		done:    make(chan struct{}),
		clients: make(map[player.ID]*client),
	}
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(rw, "server is shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Warn("upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:   player.ID(s.nextID.Inc()),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	c.log = s.log.With("client", c.id, "session", uuid.NewString(), "remote", r.RemoteAddr)

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	c.log.Info("client connected")
	s.emit(transport.Event{Kind: transport.ClientConnected, Client: c.id})

	go s.writePump(c)
	s.readPump(c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()

	c.log.Info("client disconnected")
	s.emit(transport.Event{Kind: transport.ClientDisconnected, Client: c.id})
}

// emit queues ev for Poll. It blocks while the buffer is full, until Close.
func (s *Server) emit(ev transport.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Poll returns the next buffered event without blocking.
func (s *Server) Poll() transport.Event {
	select {
	case ev := <-s.events:
		return ev
	default:
		return transport.Event{Kind: transport.NoEvent}
	}
}

// Send queues p for id. A client whose buffer is full is disconnected.
func (s *Server) Send(id player.ID, p protocol.Packet) {
	s.mu.Lock()
	c, ok := s.clients[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	frame, err := protocol.EncodePacket(p)
	if err != nil {
		c.log.Error("encode packet", "packet", p.PacketID(), "error", err)
		return
	}
	msg := s.compressor.Seal(frame)

	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.log.Warn("client is not responsive, dropping")
		c.close()
	}
}

// Close disconnects every client and refuses new ones. Events not yet polled
// may be lost.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.close()
	}
}

type client struct {
	id   player.ID
	log  *slog.Logger
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("read", "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage {
			c.log.Warn("unexpected message type", "type", kind)
			return
		}

		p, err := s.decode(msg)
		if err != nil {
			c.log.Warn("malformed message", "error", err)
			return
		}
		if !s.emit(transport.Event{Kind: transport.ClientMessage, Client: c.id, Message: p}) {
			return
		}
	}
}

func (s *Server) decode(msg []byte) (protocol.Packet, error) {
	frame, err := s.compressor.Open(msg)
	if err != nil {
		return nil, err
	}
	id, data, err := protocol.DecodePacket(frame)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeServerbound(id, data)
}

func (s *Server) writePump(c *client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				c.log.Debug("write", "error", err)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
