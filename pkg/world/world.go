package world

import (
	"math"
	"sort"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// NoHeight marks a block column that contains no opaque block in any stored chunk.
const NoHeight = math.MinInt64

// Opacity reports whether a block id stops light.
type Opacity interface {
	IsOpaque(id chunk.BlockID) bool
}

// OpacityFunc adapts a function to the Opacity interface.
type OpacityFunc func(id chunk.BlockID) bool

func (f OpacityFunc) IsOpaque(id chunk.BlockID) bool { return f(id) }

// NonAirOpaque treats every block except air as opaque.
var NonAirOpaque = OpacityFunc(func(id chunk.BlockID) bool { return id != 0 })

// column tracks which chunks of a chunk column are stored and the derived highest opaque
// block (in world coordinates) of each of its Size×Size block columns.
type column struct {
	ys      map[int64]struct{}
	heights [chunk.Size * chunk.Size]int64
}

func newColumn() *column {
	col := &column{ys: make(map[int64]struct{})}
	for i := range col.heights {
		col.heights[i] = NoHeight
	}
	return col
}

// World is a sparse store of chunks plus per-column height state.
// It is not safe for concurrent use: a single goroutine owns it and hands
// immutable chunk copies to anything running elsewhere.
type World struct {
	opacity Opacity
	chunks  map[chunk.Pos]*chunk.Chunk
	light   map[chunk.Pos][]uint8
	columns map[chunk.ColumnPos]*column
}

// NewWorld creates an empty World using opacity to classify blocks.
func NewWorld(opacity Opacity) *World {
	if opacity == nil {
		opacity = NonAirOpaque
	}
	return &World{
		opacity: opacity,
		chunks:  make(map[chunk.Pos]*chunk.Chunk),
		light:   make(map[chunk.Pos][]uint8),
		columns: make(map[chunk.ColumnPos]*column),
	}
}

// Chunk returns the chunk stored at pos.
func (w *World) Chunk(pos chunk.Pos) (*chunk.Chunk, bool) {
	c, ok := w.chunks[pos]
	return c, ok
}

// HasChunk reports whether a chunk is stored at pos.
func (w *World) HasChunk(pos chunk.Pos) bool {
	_, ok := w.chunks[pos]
	return ok
}

// Len returns the number of stored chunks.
func (w *World) Len() int {
	return len(w.chunks)
}

// Positions returns the stored chunk positions in a stable order.
func (w *World) Positions() []chunk.Pos {
	out := make([]chunk.Pos, 0, len(w.chunks))
	for pos := range w.chunks {
		out = append(out, pos)
	}
	sortPositions(out)
	return out
}

// ColumnChunks returns the y coordinates of the stored chunks of a chunk column, highest first.
func (w *World) ColumnChunks(key chunk.ColumnPos) []int64 {
	col, ok := w.columns[key]
	if !ok {
		return nil
	}
	ys := make([]int64, 0, len(col.ys))
	for y := range col.ys {
		ys = append(ys, y)
	}
	sort.Slice(ys, func(i, j int) bool { return ys[i] > ys[j] })
	return ys
}

// Set inserts or replaces c and reports whether the highest opaque block of any
// block column in c's chunk column changed. Stored light for c is discarded.
func (w *World) Set(c *chunk.Chunk) bool {
	w.chunks[c.Pos] = c
	delete(w.light, c.Pos)

	key := c.Pos.Column()
	col, ok := w.columns[key]
	if !ok {
		col = newColumn()
		w.columns[key] = col
	}
	col.ys[c.Pos.Y] = struct{}{}
	return w.recomputeColumn(key, col)
}

// Remove deletes the chunk at pos and reports whether one was stored.
func (w *World) Remove(pos chunk.Pos) bool {
	if _, ok := w.chunks[pos]; !ok {
		return false
	}
	delete(w.chunks, pos)
	delete(w.light, pos)

	key := pos.Column()
	col := w.columns[key]
	delete(col.ys, pos.Y)
	if len(col.ys) == 0 {
		delete(w.columns, key)
		return true
	}
	w.recomputeColumn(key, col)
	return true
}

// Retain removes every chunk for which keep returns false and returns the removed positions.
func (w *World) Retain(keep func(pos chunk.Pos) bool) []chunk.Pos {
	var removed []chunk.Pos
	touched := make(map[chunk.ColumnPos]struct{})
	for pos := range w.chunks {
		if keep(pos) {
			continue
		}
		delete(w.chunks, pos)
		delete(w.light, pos)
		key := pos.Column()
		delete(w.columns[key].ys, pos.Y)
		touched[key] = struct{}{}
		removed = append(removed, pos)
	}
	for key := range touched {
		col := w.columns[key]
		if len(col.ys) == 0 {
			delete(w.columns, key)
			continue
		}
		w.recomputeColumn(key, col)
	}
	sortPositions(removed)
	return removed
}

// HighestOpaque returns the world y of the highest opaque block in the block column
// at world coordinates (bx, bz), or NoHeight.
func (w *World) HighestOpaque(bx, bz int64) int64 {
	key := chunk.ColumnPos{X: floorDiv(bx, chunk.Size), Z: floorDiv(bz, chunk.Size)}
	col, ok := w.columns[key]
	if !ok {
		return NoHeight
	}
	lx, lz := mod(bx, chunk.Size), mod(bz, chunk.Size)
	return col.heights[lx*chunk.Size+lz]
}

// Block returns the block at world coordinates. ok is false when the chunk is not loaded.
func (w *World) Block(bx, by, bz int64) (id chunk.BlockID, ok bool) {
	c, ok := w.chunks[chunk.PosOf(bx, by, bz)]
	if !ok {
		return 0, false
	}
	return c.Block(int(mod(bx, chunk.Size)), int(mod(by, chunk.Size)), int(mod(bz, chunk.Size))), true
}

// IsOpaque reports whether id stops light.
func (w *World) IsOpaque(id chunk.BlockID) bool {
	return w.opacity.IsOpaque(id)
}

// recomputeColumn rescans every stored chunk of the column top to bottom and
// reports whether any block column height changed.
func (w *World) recomputeColumn(key chunk.ColumnPos, col *column) bool {
	ys := w.ColumnChunks(key)

	changed := false
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			h := w.columnHeight(key, ys, x, z)
			i := x*chunk.Size + z
			if col.heights[i] != h {
				col.heights[i] = h
				changed = true
			}
		}
	}
	return changed
}

func (w *World) columnHeight(key chunk.ColumnPos, ys []int64, x, z int) int64 {
	for _, cy := range ys {
		c := w.chunks[chunk.Pos{X: key.X, Y: cy, Z: key.Z}]
		for y := chunk.Size - 1; y >= 0; y-- {
			if w.opacity.IsOpaque(c.Block(x, y, z)) {
				return cy*chunk.Size + int64(y)
			}
		}
	}
	return NoHeight
}

func sortPositions(ps []chunk.Pos) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
