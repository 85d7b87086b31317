// Package player holds the per-player values shared by server and client.
package player

import (
	"cmp"
	"slices"
	"sync"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// ID identifies a connected player for the lifetime of its session.
type ID uint32

// Input is a player's control state. Axis values are -1, 0 or 1; angles are radians.
type Input struct {
	Forward int8
	Right   int8
	Up      int8
	Yaw     float32
	Pitch   float32
}

// RenderDistance is a box of chunks around the player, Horizontal chunks in x and z
// and Vertical chunks in y.
type RenderDistance struct {
	Horizontal int64
	Vertical   int64
}

// DefaultRenderDistance is used until a client asks for something else.
var DefaultRenderDistance = RenderDistance{Horizontal: 4, Vertical: 2}

// Len returns the number of chunks inside the shape.
func (rd RenderDistance) Len() int {
	return int((2*rd.Horizontal + 1) * (2*rd.Horizontal + 1) * (2*rd.Vertical + 1))
}

// Visible reports whether pos lies inside the shape centred on center.
func (rd RenderDistance) Visible(center, pos chunk.Pos) bool {
	return abs(pos.X-center.X) <= rd.Horizontal &&
		abs(pos.Y-center.Y) <= rd.Vertical &&
		abs(pos.Z-center.Z) <= rd.Horizontal
}

// Iterate returns every visible position around center, nearest first by squared
// distance. Ties are ordered by offset x, then y, then z.
func (rd RenderDistance) Iterate(center chunk.Pos) []chunk.Pos {
	offsets := rd.offsets()
	out := make([]chunk.Pos, len(offsets))
	for i, o := range offsets {
		out[i] = center.Offset(o.X, o.Y, o.Z)
	}
	return out
}

var offsetCache sync.Map // RenderDistance -> []chunk.Pos

func (rd RenderDistance) offsets() []chunk.Pos {
	if v, ok := offsetCache.Load(rd); ok {
		return v.([]chunk.Pos)
	}

	offsets := make([]chunk.Pos, 0, rd.Len())
	for x := -rd.Horizontal; x <= rd.Horizontal; x++ {
		for y := -rd.Vertical; y <= rd.Vertical; y++ {
			for z := -rd.Horizontal; z <= rd.Horizontal; z++ {
				offsets = append(offsets, chunk.Pos{X: x, Y: y, Z: z})
			}
		}
	}
	var origin chunk.Pos
	slices.SortFunc(offsets, func(a, b chunk.Pos) int {
		return cmp.Or(
			cmp.Compare(a.SquaredDistance(origin), b.SquaredDistance(origin)),
			cmp.Compare(a.X, b.X),
			cmp.Compare(a.Y, b.Y),
			cmp.Compare(a.Z, b.Z),
		)
	})

	v, _ := offsetCache.LoadOrStore(rd, offsets)
	return v.([]chunk.Pos)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
