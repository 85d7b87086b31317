package gen

import "github.com/OCharnyshevich/voxel-server/pkg/world/chunk"

// flatHeight is the world y of the grass layer in a flat world.
const flatHeight = -1

// FlatGenerator generates a superflat world: stone below y=-4, three layers of dirt,
// grass at y=-1 and air above.
type FlatGenerator struct {
	palette Palette
}

// NewFlatGenerator creates a FlatGenerator.
func NewFlatGenerator(palette Palette) *FlatGenerator {
	return &FlatGenerator{palette: palette}
}

func (g *FlatGenerator) Generate(pos chunk.Pos, _ Params) *chunk.Chunk {
	c := chunk.New(pos)
	if pos.Y*chunk.Size > flatHeight {
		return c
	}
	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			// Sea level two below the surface: no water and no beach sand.
			fillColumn(c, g.palette, x, z, flatHeight, flatHeight-2)
		}
	}
	return c
}

var _ Heightmap = (*FlatGenerator)(nil)

func (g *FlatGenerator) HeightAt(_, _ int64, _ Params) int64 {
	return flatHeight
}
