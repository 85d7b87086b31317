// Package mesh turns chunks into face-culled vertex buffers on background workers.
package mesh

import (
	"context"
	"log/slog"

	"github.com/OCharnyshevich/voxel-server/pkg/worker"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// Face indexes the six block faces.
type Face int

const (
	West Face = iota // -x
	East             // +x
	Down             // -y
	Up               // +y
	North            // -z
	South            // +z
)

var normals = [6][3]int{
	West:  {-1, 0, 0},
	East:  {1, 0, 0},
	Down:  {0, -1, 0},
	Up:    {0, 1, 0},
	North: {0, 0, -1},
	South: {0, 0, 1},
}

// corners lists the quad of each face in counter-clockwise order seen from outside.
var corners = [6][4][3]float32{
	West:  {{0, 0, 0}, {0, 0, 1}, {0, 1, 1}, {0, 1, 0}},
	East:  {{1, 0, 1}, {1, 0, 0}, {1, 1, 0}, {1, 1, 1}},
	Down:  {{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
	Up:    {{0, 1, 1}, {1, 1, 1}, {1, 1, 0}, {0, 1, 0}},
	North: {{1, 0, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
	South: {{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
}

// Mask marks which cells of a neighbour's touching layer are opaque, indexed by
// the two in-plane local coordinates in x, y, z order (u*Size + v).
type Mask [chunk.Size * chunk.Size]bool

// Input is everything a mesh job reads. It shares nothing with the live world.
type Input struct {
	Chunk     *chunk.Chunk
	Occlusion [6]*Mask // nil when the neighbour is not loaded
	Opacity   world.Opacity
}

type Vertex struct {
	Position [3]float32
	Normal   [3]int8
	Block    chunk.BlockID
}

type Mesh struct {
	Pos      chunk.Pos
	Vertices []Vertex
	Indices  []uint32
}

// Faces returns the number of quads in the mesh.
func (m *Mesh) Faces() int { return len(m.Indices) / 6 }

// Worker is the meshing job pool keyed by chunk position.
type Worker = worker.Pool[chunk.Pos, Input, *Mesh]

func NewWorker(log *slog.Logger) *Worker {
	return worker.New[chunk.Pos, Input, *Mesh](func(_ context.Context, in Input) (*Mesh, error) {
		return Build(in), nil
	}, log.With("component", "mesh"))
}

// Capture snapshots the chunk at pos and the touching layers of its loaded neighbours.
func Capture(w *world.World, pos chunk.Pos, opacity world.Opacity) (Input, bool) {
	c, ok := w.Chunk(pos)
	if !ok {
		return Input{}, false
	}
	in := Input{Chunk: c.Clone(), Opacity: opacity}
	for f := range normals {
		n := normals[f]
		nc, ok := w.Chunk(pos.Offset(int64(n[0]), int64(n[1]), int64(n[2])))
		if !ok {
			continue
		}
		in.Occlusion[f] = touchingLayer(nc, Face(f), opacity)
	}
	return in, true
}

// touchingLayer reads the layer of neighbour nc that faces back across face f.
func touchingLayer(nc *chunk.Chunk, f Face, opacity world.Opacity) *Mask {
	var m Mask
	for u := 0; u < chunk.Size; u++ {
		for v := 0; v < chunk.Size; v++ {
			var id chunk.BlockID
			switch f {
			case West:
				id = nc.Block(chunk.Size-1, u, v)
			case East:
				id = nc.Block(0, u, v)
			case Down:
				id = nc.Block(u, chunk.Size-1, v)
			case Up:
				id = nc.Block(u, 0, v)
			case North:
				id = nc.Block(u, v, chunk.Size-1)
			case South:
				id = nc.Block(u, v, 0)
			}
			m[u*chunk.Size+v] = opacity.IsOpaque(id)
		}
	}
	return &m
}

// Build emits one quad per visible block face. A face is hidden when the block
// behind it is opaque or of the same type.
func Build(in Input) *Mesh {
	c := in.Chunk
	m := &Mesh{Pos: c.Pos}
	for x := 0; x < chunk.Size; x++ {
		for y := 0; y < chunk.Size; y++ {
			for z := 0; z < chunk.Size; z++ {
				id := c.Block(x, y, z)
				if id == 0 {
					continue
				}
				for f := range normals {
					if hidden(in, id, x, y, z, Face(f)) {
						continue
					}
					m.addFace(x, y, z, Face(f), id)
				}
			}
		}
	}
	return m
}

func hidden(in Input, id chunk.BlockID, x, y, z int, f Face) bool {
	n := normals[f]
	nx, ny, nz := x+n[0], y+n[1], z+n[2]
	if nx >= 0 && nx < chunk.Size && ny >= 0 && ny < chunk.Size && nz >= 0 && nz < chunk.Size {
		other := in.Chunk.Block(nx, ny, nz)
		return other == id || in.Opacity.IsOpaque(other)
	}

	mask := in.Occlusion[f]
	if mask == nil {
		return false
	}
	var u, v int
	switch f {
	case West, East:
		u, v = y, z
	case Down, Up:
		u, v = x, z
	default:
		u, v = x, y
	}
	return mask[u*chunk.Size+v]
}

func (m *Mesh) addFace(x, y, z int, f Face, id chunk.BlockID) {
	base := uint32(len(m.Vertices))
	n := normals[f]
	normal := [3]int8{int8(n[0]), int8(n[1]), int8(n[2])}
	for _, c := range corners[f] {
		m.Vertices = append(m.Vertices, Vertex{
			Position: [3]float32{float32(x) + c[0], float32(y) + c[1], float32(z) + c[2]},
			Normal:   normal,
			Block:    id,
		})
	}
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}
