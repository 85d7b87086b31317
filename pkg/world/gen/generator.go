package gen

import (
	"fmt"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// Params are the generation parameters captured when a generation job is submitted.
type Params struct {
	Seed     int64
	SeaLevel int64
}

// Generator produces chunk data deterministically from a position and parameters.
// Implementations must be safe for concurrent use by multiple workers.
type Generator interface {
	Generate(pos chunk.Pos, params Params) *chunk.Chunk
}

// Heightmap is implemented by generators that can report the surface height of a
// block column without generating it. The height is the y of the topmost solid block.
type Heightmap interface {
	HeightAt(blockX, blockZ int64, params Params) int64
}

// BlockLookup resolves block names from the game data.
type BlockLookup interface {
	BlockID(name string) (chunk.BlockID, bool)
}

// Palette holds the block ids the built-in generators place.
type Palette struct {
	Air   chunk.BlockID
	Stone chunk.BlockID
	Dirt  chunk.BlockID
	Grass chunk.BlockID
	Sand  chunk.BlockID
	Water chunk.BlockID
}

// NewPalette resolves the generator palette by block name.
func NewPalette(blocks BlockLookup) (Palette, error) {
	var p Palette
	for _, e := range []struct {
		name string
		dst  *chunk.BlockID
	}{
		{"air", &p.Air},
		{"stone", &p.Stone},
		{"dirt", &p.Dirt},
		{"grass", &p.Grass},
		{"sand", &p.Sand},
		{"water", &p.Water},
	} {
		id, ok := blocks.BlockID(e.name)
		if !ok {
			return Palette{}, fmt.Errorf("palette: block %q is not registered", e.name)
		}
		*e.dst = id
	}
	return p, nil
}

// New returns the generator registered under name ("flat" or "default").
func New(name string, palette Palette) (Generator, error) {
	switch name {
	case "flat":
		return NewFlatGenerator(palette), nil
	case "", "default":
		return NewNoiseGenerator(palette), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", name)
	}
}

// fillColumn writes one block column of c given the terrain height at that column.
func fillColumn(c *chunk.Chunk, p Palette, x, z int, height, seaLevel int64) {
	baseY := c.Pos.Y * chunk.Size
	for y := 0; y < chunk.Size; y++ {
		wy := baseY + int64(y)
		var id chunk.BlockID
		switch {
		case wy > height && wy <= seaLevel:
			id = p.Water
		case wy > height:
			continue
		case wy == height && height <= seaLevel+1:
			id = p.Sand
		case wy == height:
			id = p.Grass
		case wy > height-4:
			id = p.Dirt
		default:
			id = p.Stone
		}
		c.SetBlock(x, y, z, id)
	}
}
