// Package stream decides, once per tick, which chunks each player receives,
// which chunks get generated and which are dropped from the world.
package stream

import (
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"

	splayer "github.com/OCharnyshevich/voxel-server/internal/server/player"
	"github.com/OCharnyshevich/voxel-server/internal/server/worldgen"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
	"github.com/OCharnyshevich/voxel-server/pkg/world/gen"
)

// Sender delivers a packet to a connected player.
type Sender interface {
	Send(id player.ID, p protocol.Packet)
}

// Jobs is the part of the generation worker the streaming pass drives.
type Jobs interface {
	Enqueue(pos chunk.Pos, priority int64, job worldgen.Job) bool
	Dequeue(pos chunk.Pos) bool
	SetPriority(pos chunk.Pos, priority int64) bool
}

// Viewer is a player together with the chunk its camera is in this tick.
type Viewer struct {
	Player *splayer.Player
	Center chunk.Pos
}

func (v Viewer) sees(pos chunk.Pos) bool {
	return v.Player.RenderDistance.Visible(v.Center, pos)
}

// Stats summarises one pass.
type Stats struct {
	Sent      int
	Requested int
	Evicted   int
	Cancelled int
}

// Manager runs the streaming and eviction pass. Encoded chunks are cached so a
// chunk wanted by several players is run-length encoded once.
type Manager struct {
	log    *slog.Logger
	params gen.Params
	cache  *lru.Cache // chunk.Pos -> *chunk.Compressed
}

func New(cacheSize int, params gen.Params, log *slog.Logger) (*Manager, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create chunk cache: %w", err)
	}
	return &Manager{
		log:    log.With("component", "stream"),
		params: params,
		cache:  cache,
	}, nil
}

// Invalidate drops the cached encoding of pos. Call it whenever the stored chunk changes.
func (m *Manager) Invalidate(pos chunk.Pos) {
	m.cache.Remove(pos)
}

func (m *Manager) encoded(c *chunk.Chunk) *chunk.Compressed {
	if v, ok := m.cache.Get(c.Pos); ok {
		return v.(*chunk.Compressed)
	}
	cc := chunk.Encode(c)
	m.cache.Add(c.Pos, cc)
	return cc
}

// Run performs one pass over all viewers. generating is the set of positions
// with an outstanding generation job; Run adds to it and removes from it.
func (m *Manager) Run(now time.Time, w *world.World, viewers []Viewer, generating chunk.Set, jobs Jobs, send Sender) Stats {
	var st Stats

	for _, v := range viewers {
		p := v.Player
		p.Forget(v.Center)

		throttled := false
		for _, pos := range p.RenderDistance.Iterate(v.Center) {
			if p.Delivered.Has(pos) {
				continue
			}
			if c, ok := w.Chunk(pos); ok {
				if throttled || !p.AllowChunk(now) {
					throttled = true
					continue
				}
				send.Send(p.ID, protocol.NewChunkData(m.encoded(c)))
				p.Delivered.Add(pos)
				st.Sent++
				continue
			}
			if generating.Add(pos) {
				jobs.Enqueue(pos, pos.SquaredDistance(v.Center), worldgen.Job{Pos: pos, Params: m.params})
				st.Requested++
			}
		}
	}

	visible := func(pos chunk.Pos) bool {
		for _, v := range viewers {
			if v.sees(pos) {
				return true
			}
		}
		return false
	}
	for _, pos := range w.Retain(visible) {
		m.cache.Remove(pos)
		st.Evicted++
	}

	for pos := range generating {
		best, wanted := int64(0), false
		for _, v := range viewers {
			if !v.sees(pos) {
				continue
			}
			if d := pos.SquaredDistance(v.Center); !wanted || d < best {
				best, wanted = d, true
			}
		}
		if !wanted {
			jobs.Dequeue(pos)
			delete(generating, pos)
			st.Cancelled++
			continue
		}
		jobs.SetPriority(pos, best)
	}

	if st != (Stats{}) {
		m.log.Debug("stream pass", "sent", st.Sent, "requested", st.Requested, "evicted", st.Evicted, "cancelled", st.Cancelled)
	}
	return st
}
