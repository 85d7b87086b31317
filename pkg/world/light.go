package world

import "github.com/OCharnyshevich/voxel-server/pkg/world/chunk"

const (
	// MaxLight is the light level of a block exposed to the sky.
	MaxLight = 15
	// LightAttenuation is subtracted from light for every block it travels.
	LightAttenuation = 1
)

var faces = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// Light returns the light level of the block at local coordinates in the chunk at pos.
// Chunks that were never lit report 0.
func (w *World) Light(pos chunk.Pos, x, y, z int) uint8 {
	l, ok := w.light[pos]
	if !ok {
		return 0
	}
	return l[chunk.Index(x, y, z)]
}

// HasLight reports whether light has been computed for the chunk at pos.
func (w *World) HasLight(pos chunk.Pos) bool {
	_, ok := w.light[pos]
	return ok
}

// UpdateLight recomputes the light of the chunk at pos with a breadth-first flood fill.
// Light starts at MaxLight in cells above the column's highest opaque block, enters from
// lit face neighbors, and spreads through transparent blocks losing LightAttenuation per step.
// Missing face neighbors are skipped; complete is false when any was missing, so the
// chunk should be relit once they arrive. Unknown positions are ignored.
func (w *World) UpdateLight(pos chunk.Pos) (complete bool) {
	c, ok := w.chunks[pos]
	if !ok {
		return true
	}

	light := make([]uint8, chunk.Volume)
	queue := make([]int, 0, chunk.Size*chunk.Size)
	col := w.columns[pos.Column()]
	baseY := pos.Y * chunk.Size

	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			h := col.heights[x*chunk.Size+z]
			for y := chunk.Size - 1; y >= 0; y-- {
				if baseY+int64(y) <= h {
					break
				}
				i := chunk.Index(x, y, z)
				light[i] = MaxLight
				queue = append(queue, i)
			}
		}
	}

	complete = true
	for _, f := range faces {
		npos := pos.Offset(int64(f[0]), int64(f[1]), int64(f[2]))
		if _, ok := w.chunks[npos]; !ok {
			complete = false
			continue
		}
		nlight, ok := w.light[npos]
		if !ok {
			continue
		}
		queue = w.seedFromNeighbor(c, light, nlight, f, queue)
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		level := light[i]
		if level <= LightAttenuation {
			continue
		}
		next := level - LightAttenuation
		x, y, z := i/(chunk.Size*chunk.Size), (i/chunk.Size)%chunk.Size, i%chunk.Size
		for _, f := range faces {
			nx, ny, nz := x+f[0], y+f[1], z+f[2]
			if nx < 0 || ny < 0 || nz < 0 || nx >= chunk.Size || ny >= chunk.Size || nz >= chunk.Size {
				continue
			}
			j := chunk.Index(nx, ny, nz)
			if light[j] >= next || w.opacity.IsOpaque(c.At(j)) {
				continue
			}
			light[j] = next
			queue = append(queue, j)
		}
	}

	w.light[pos] = light
	return complete
}

// seedFromNeighbor copies attenuated light across the face shared with a lit neighbor.
func (w *World) seedFromNeighbor(c *chunk.Chunk, light, nlight []uint8, f [3]int, queue []int) []int {
	const last = chunk.Size - 1
	for a := 0; a < chunk.Size; a++ {
		for b := 0; b < chunk.Size; b++ {
			var x, y, z, nx, ny, nz int
			switch {
			case f[0] != 0:
				y, z = a, b
				x, nx = last, 0
				if f[0] < 0 {
					x, nx = 0, last
				}
				ny, nz = y, z
			case f[1] != 0:
				x, z = a, b
				y, ny = last, 0
				if f[1] < 0 {
					y, ny = 0, last
				}
				nx, nz = x, z
			default:
				x, y = a, b
				z, nz = last, 0
				if f[2] < 0 {
					z, nz = 0, last
				}
				nx, ny = x, y
			}
			level := nlight[chunk.Index(nx, ny, nz)]
			if level <= LightAttenuation {
				continue
			}
			i := chunk.Index(x, y, z)
			if light[i] >= level-LightAttenuation || w.opacity.IsOpaque(c.At(i)) {
				continue
			}
			light[i] = level - LightAttenuation
			queue = append(queue, i)
		}
	}
	return queue
}
