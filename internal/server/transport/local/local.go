// Package local is an in-memory transport. Every packet still goes through the
// wire encoding so both ends see exactly what a network peer would.
package local

import (
	"fmt"
	"sync"

	"github.com/OCharnyshevich/voxel-server/internal/server/transport"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
)

// Hub is the server side of the in-memory transport.
type Hub struct {
	mu      sync.Mutex
	events  []transport.Event
	clients map[player.ID]*Conn
	nextID  player.ID
}

var _ transport.Transport = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[player.ID]*Conn)}
}

// Connect opens a new client connection.
func (h *Hub) Connect() *Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	c := &Conn{hub: h, id: h.nextID}
	h.clients[c.id] = c
	h.events = append(h.events, transport.Event{Kind: transport.ClientConnected, Client: c.id})
	return c
}

func (h *Hub) Poll() transport.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.events) == 0 {
		return transport.Event{Kind: transport.NoEvent}
	}
	ev := h.events[0]
	h.events[0] = transport.Event{}
	h.events = h.events[1:]
	return ev
}

func (h *Hub) Send(id player.ID, p protocol.Packet) {
	h.mu.Lock()
	c, ok := h.clients[id]
	h.mu.Unlock()
	if !ok {
		return
	}

	decoded, err := roundTrip(p, protocol.DecodeClientbound)
	if err != nil {
		panic(fmt.Sprintf("local: clientbound packet 0x%02X does not survive encoding: %v", p.PacketID(), err))
	}
	c.mu.Lock()
	c.inbox = append(c.inbox, decoded)
	c.mu.Unlock()
}

// Conn is the client side of the in-memory transport.
type Conn struct {
	hub *Hub
	id  player.ID

	mu    sync.Mutex
	inbox []protocol.Packet
}

func (c *Conn) ID() player.ID { return c.id }

// Send delivers a serverbound packet, applying the same shape checks as the network transport.
func (c *Conn) Send(p protocol.Packet) error {
	decoded, err := roundTrip(p, protocol.DecodeServerbound)
	if err != nil {
		return err
	}

	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return fmt.Errorf("connection %d closed", c.id)
	}
	c.hub.events = append(c.hub.events, transport.Event{Kind: transport.ClientMessage, Client: c.id, Message: decoded})
	return nil
}

// Poll returns the next clientbound packet without blocking.
func (c *Conn) Poll() (protocol.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil, false
	}
	p := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	return p, true
}

// Drain returns every clientbound packet received so far.
func (c *Conn) Drain() []protocol.Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.inbox
	c.inbox = nil
	return out
}

// Close disconnects the client. It is safe to call more than once.
func (c *Conn) Close() error {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return nil
	}
	delete(c.hub.clients, c.id)
	c.hub.events = append(c.hub.events, transport.Event{Kind: transport.ClientDisconnected, Client: c.id})
	return nil
}

func roundTrip(p protocol.Packet, decode func(int32, []byte) (protocol.Packet, error)) (protocol.Packet, error) {
	frame, err := protocol.EncodePacket(p)
	if err != nil {
		return nil, err
	}
	id, data, err := protocol.DecodePacket(frame)
	if err != nil {
		return nil, err
	}
	return decode(id, data)
}
