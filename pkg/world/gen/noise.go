package gen

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

const (
	// terrainAmplitude is the maximum distance of the surface from y=0, in blocks.
	terrainAmplitude = 48
	terrainScale     = 1.0 / 256
	detailScale      = 1.0 / 32
	octaves          = 4
	persistence      = 0.5
)

// NoiseGenerator produces rolling terrain from OpenSimplex height noise.
type NoiseGenerator struct {
	palette Palette
}

// NewNoiseGenerator creates a NoiseGenerator.
func NewNoiseGenerator(palette Palette) *NoiseGenerator {
	return &NoiseGenerator{palette: palette}
}

func (g *NoiseGenerator) Generate(pos chunk.Pos, params Params) *chunk.Chunk {
	c := chunk.New(pos)
	noise := opensimplex.New(params.Seed)

	// Entire chunk above every possible surface and above the sea.
	if pos.Y*chunk.Size > terrainAmplitude+4 && pos.Y*chunk.Size > params.SeaLevel {
		return c
	}

	for x := 0; x < chunk.Size; x++ {
		for z := 0; z < chunk.Size; z++ {
			h := height(noise, pos.X*chunk.Size+int64(x), pos.Z*chunk.Size+int64(z))
			fillColumn(c, g.palette, x, z, h, params.SeaLevel)
		}
	}
	return c
}

var _ Heightmap = (*NoiseGenerator)(nil)

func (g *NoiseGenerator) HeightAt(blockX, blockZ int64, params Params) int64 {
	return height(opensimplex.New(params.Seed), blockX, blockZ)
}

func height(noise opensimplex.Noise, bx, bz int64) int64 {
	base := octaveNoise(noise, float64(bx)*terrainScale, float64(bz)*terrainScale)
	detail := noise.Eval2(float64(bx)*detailScale+1000, float64(bz)*detailScale+1000)
	return int64(math.Floor(base*terrainAmplitude + detail*4))
}

// octaveNoise sums octaves of 2D noise, normalized back to [-1, 1].
func octaveNoise(noise opensimplex.Noise, x, z float64) float64 {
	var total, norm float64
	freq, amp := 1.0, 1.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*freq, z*freq) * amp
		norm += amp
		freq *= 2
		amp *= persistence
	}
	return total / norm
}
