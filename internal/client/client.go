// Package client is a headless game client. It mirrors the server's chunks into
// a local world and meshes them on background workers.
package client

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCharnyshevich/voxel-server/pkg/gamedata"
	"github.com/OCharnyshevich/voxel-server/pkg/mesh"
	"github.com/OCharnyshevich/voxel-server/pkg/physics"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// ErrNoGameData is returned for world messages that arrive before the game data.
var ErrNoGameData = errors.New("game data not received")

// faceNeighbours are the offsets of the chunks whose meshes depend on a chunk.
var faceNeighbours = [6][3]int64{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Client holds everything the player has been told by the server.
type Client struct {
	log    *slog.Logger
	mesher *mesh.Worker

	gameData *gamedata.GameData
	world    *world.World
	id       player.ID
	hasID    bool
	state    physics.State
	// rd is the render distance last requested from the server.
	rd       player.RenderDistance

	meshes map[chunk.Pos]*mesh.Mesh
	// stale holds chunks that changed while their mesh was being built.
	stale chunk.Set

	received int
}

// New creates a client that meshes on mesher. The caller starts and closes the worker.
func New(mesher *mesh.Worker, log *slog.Logger) *Client {
	return &Client{
		log:    log.With("component", "client"),
		mesher: mesher,
		meshes: make(map[chunk.Pos]*mesh.Mesh),
		stale:  make(chunk.Set),
		rd:     player.DefaultRenderDistance,
	}
}

// SetRenderDistance records the render distance sent to the server. Chunks
// outside it are unloaded on the next physics update.
func (c *Client) SetRenderDistance(rd player.RenderDistance) {
	c.rd = rd
}

// Handle applies one clientbound packet.
func (c *Client) Handle(p protocol.Packet) error {
	switch m := p.(type) {
	case *protocol.GameData:
		gd, err := gamedata.Decode(m.Data)
		if err != nil {
			return fmt.Errorf("decode game data: %w", err)
		}
		c.gameData = gd
		c.world = world.NewWorld(gd)
		clear(c.meshes)
		c.log.Info("game data received", "blocks", gd.Blocks.Len())
	case *protocol.CurrentID:
		c.id, c.hasID = player.ID(m.ID), true
		c.log.Info("assigned player", "player", c.id)
	case *protocol.UpdatePhysics:
		state, err := physics.DecodeState(m.State)
		if err != nil {
			return fmt.Errorf("decode physics state: %w", err)
		}
		c.state = state
		c.unload()
	case *protocol.ChunkData:
		return c.handleChunk(m)
	default:
		return fmt.Errorf("clientbound 0x%02X: %w", p.PacketID(), protocol.ErrUnknownPacket)
	}
	return nil
}

func (c *Client) handleChunk(m *protocol.ChunkData) error {
	if c.world == nil {
		return ErrNoGameData
	}
	ch, err := chunk.Decode(m.Compressed())
	if err != nil {
		return err
	}
	c.world.Set(ch)
	c.received++

	c.remesh(ch.Pos)
	for _, n := range faceNeighbours {
		if pos := ch.Pos.Offset(n[0], n[1], n[2]); c.world.HasChunk(pos) {
			c.remesh(pos)
		}
	}
	return nil
}

// unload drops every chunk the player can no longer see, along with its mesh
// and any mesh job still waiting for it.
func (c *Client) unload() {
	self, ok := c.Self()
	if !ok || c.world == nil {
		return
	}
	center := self.ChunkPos()
	removed := c.world.Retain(func(pos chunk.Pos) bool {
		return c.rd.Visible(center, pos)
	})
	for _, pos := range removed {
		delete(c.meshes, pos)
		c.stale.Remove(pos)
		c.mesher.Dequeue(pos)
	}
	if len(removed) > 0 {
		c.log.Debug("chunks unloaded", "count", len(removed), "center", center)
	}
}

// remesh schedules a mesh build from the current contents of the world.
func (c *Client) remesh(pos chunk.Pos) {
	in, ok := mesh.Capture(c.world, pos, c.gameData)
	if !ok {
		return
	}
	c.mesher.Dequeue(pos)
	if !c.mesher.Enqueue(pos, c.priority(pos), in) {
		// Running now with old data; build again once it lands.
		c.stale.Add(pos)
	}
}

func (c *Client) priority(pos chunk.Pos) int64 {
	if ps, ok := c.Self(); ok {
		return pos.SquaredDistance(ps.ChunkPos())
	}
	return 0
}

// Update installs finished meshes and returns how many were installed.
func (c *Client) Update() int {
	n := 0
	for _, r := range c.mesher.PollCompleted() {
		if r.Err != nil {
			c.log.Warn("mesh failed", "pos", r.Key, "error", r.Err)
			continue
		}
		if c.world == nil || !c.world.HasChunk(r.Key) {
			continue
		}
		c.meshes[r.Key] = r.Value
		n++
	}

	for pos := range c.stale {
		if c.mesher.Queued(pos) {
			delete(c.stale, pos)
			continue
		}
		in, ok := mesh.Capture(c.world, pos, c.gameData)
		if !ok {
			delete(c.stale, pos)
			continue
		}
		if c.mesher.Enqueue(pos, c.priority(pos), in) {
			delete(c.stale, pos)
		}
	}
	return n
}

// ID returns the player the client controls, once the server has assigned one.
func (c *Client) ID() (player.ID, bool) { return c.id, c.hasID }

// Self returns the client's own physics state from the latest update.
func (c *Client) Self() (physics.PlayerState, bool) {
	if !c.hasID {
		return physics.PlayerState{}, false
	}
	ps, ok := c.state.Players[c.id]
	return ps, ok
}

func (c *Client) World() *world.World { return c.world }

func (c *Client) Mesh(pos chunk.Pos) (*mesh.Mesh, bool) {
	m, ok := c.meshes[pos]
	return m, ok
}

// Meshes returns the number of chunks with an installed mesh.
func (c *Client) Meshes() int { return len(c.meshes) }

// Received returns the number of chunks received.
func (c *Client) Received() int { return c.received }
