// Package transport defines the event pump between the network and the tick loop.
package transport

import (
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
)

type EventKind int

const (
	NoEvent EventKind = iota
	ClientConnected
	ClientDisconnected
	ClientMessage
)

func (k EventKind) String() string {
	switch k {
	case NoEvent:
		return "none"
	case ClientConnected:
		return "connected"
	case ClientDisconnected:
		return "disconnected"
	case ClientMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is one network occurrence. Message is set only for ClientMessage.
// A client's events are delivered in order, and ClientDisconnected is its last.
type Event struct {
	Kind    EventKind
	Client  player.ID
	Message protocol.Packet
}

// Transport is polled by the tick loop. Poll must not block and returns an
// event of kind NoEvent when nothing is buffered. Send must not block either;
// packets for clients that already left are dropped.
type Transport interface {
	Poll() Event
	Send(id player.ID, p protocol.Packet)
}
