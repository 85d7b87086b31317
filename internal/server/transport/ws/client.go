package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
)

// Conn is the client side of a websocket connection to a Server.
type Conn struct {
	conn       *websocket.Conn
	compressor *protocol.Compressor
	writeMu    sync.Mutex
}

// Dial connects to the server at url, for example ws://localhost:7878/ws.
func Dial(ctx context.Context, url string, compressor *protocol.Compressor) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(2 * protocol.MaxPacketSize)
	return &Conn{conn: conn, compressor: compressor}, nil
}

// Send writes one serverbound packet.
func (c *Conn) Send(p protocol.Packet) error {
	frame, err := protocol.EncodePacket(p)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, c.compressor.Seal(frame))
}

// Recv blocks for the next clientbound packet.
func (c *Conn) Recv() (protocol.Packet, error) {
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}

		frame, err := c.compressor.Open(msg)
		if err != nil {
			return nil, err
		}
		id, data, err := protocol.DecodePacket(frame)
		if err != nil {
			return nil, err
		}
		return protocol.DecodeClientbound(id, data)
	}
}

func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}
