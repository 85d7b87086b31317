// Package lighting schedules incremental light recomputation, one chunk per tick.
package lighting

import (
	"log/slog"
	"math"
	"time"

	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// Engine is a deduplicating FIFO of chunks awaiting relight.
type Engine struct {
	log     *slog.Logger
	pending chunk.Set
	queue   []chunk.Pos
}

func New(log *slog.Logger) *Engine {
	return &Engine{
		log:     log.With("component", "lighting"),
		pending: make(chunk.Set),
	}
}

// Enqueue schedules pos unless it is already pending.
func (e *Engine) Enqueue(pos chunk.Pos) bool {
	if !e.pending.Add(pos) {
		return false
	}
	e.queue = append(e.queue, pos)
	return true
}

// OnInsert schedules the chunks affected by a chunk stored at pos.
//
// When the insert changed a column height, every stored chunk in the 3x3 chunk
// columns around pos at or below pos.Y is scheduled. Otherwise only the stored
// chunks of the 3x3x3 neighbourhood are.
func (e *Engine) OnInsert(w *world.World, pos chunk.Pos, heightChanged bool) {
	if w.HasChunk(pos) {
		e.Enqueue(pos)
	}

	lo, hi := pos.Y-1, pos.Y+1
	if heightChanged {
		lo, hi = math.MinInt64, pos.Y
	}
	for dx := int64(-1); dx <= 1; dx++ {
		for dz := int64(-1); dz <= 1; dz++ {
			key := chunk.ColumnPos{X: pos.X + dx, Z: pos.Z + dz}
			for _, y := range w.ColumnChunks(key) {
				if y > hi {
					continue
				}
				if y < lo {
					break
				}
				e.Enqueue(chunk.Pos{X: key.X, Y: y, Z: key.Z})
			}
		}
	}
}

// Step recomputes the light of at most one pending chunk. It returns the
// processed position, or false when nothing was pending.
func (e *Engine) Step(w *world.World) (chunk.Pos, bool) {
	if len(e.queue) == 0 {
		return chunk.Pos{}, false
	}
	pos := e.queue[0]
	e.queue[0] = chunk.Pos{}
	e.queue = e.queue[1:]
	e.pending.Remove(pos)

	if !w.HasChunk(pos) {
		return pos, true
	}
	start := time.Now()
	complete := w.UpdateLight(pos)
	e.log.Debug("light recomputed", "pos", pos, "complete", complete, "took", time.Since(start))
	return pos, true
}

// Pending reports whether pos is waiting for a relight.
func (e *Engine) Pending(pos chunk.Pos) bool {
	return e.pending.Has(pos)
}

func (e *Engine) Len() int { return len(e.queue) }
