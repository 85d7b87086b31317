package chunk

import "fmt"

const (
	// Size is the number of blocks along each axis of a chunk.
	Size = 32
	// Volume is the number of blocks in a chunk.
	Volume = Size * Size * Size
)

// BlockID identifies a block type in the game data registry. ID 0 is air.
type BlockID = uint16

// Chunk holds a dense Size³ grid of block ids.
// Index = x*Size² + y*Size + z.
type Chunk struct {
	Pos    Pos
	blocks []BlockID
}

// New creates an all-air chunk at pos.
func New(pos Pos) *Chunk {
	return &Chunk{Pos: pos, blocks: make([]BlockID, Volume)}
}

// FromBlocks creates a chunk that takes ownership of blocks, which must hold exactly Volume ids.
func FromBlocks(pos Pos, blocks []BlockID) (*Chunk, error) {
	if len(blocks) != Volume {
		return nil, fmt.Errorf("chunk %v: got %d blocks, want %d", pos, len(blocks), Volume)
	}
	return &Chunk{Pos: pos, blocks: blocks}, nil
}

// Index returns the linear index of local coordinates. x, y, z must be in [0, Size).
func Index(x, y, z int) int {
	return x*Size*Size + y*Size + z
}

// Block returns the block at local coordinates.
func (c *Chunk) Block(x, y, z int) BlockID {
	return c.blocks[Index(x, y, z)]
}

// SetBlock sets the block at local coordinates.
func (c *Chunk) SetBlock(x, y, z int, id BlockID) {
	c.blocks[Index(x, y, z)] = id
}

// At returns the block at linear index i.
func (c *Chunk) At(i int) BlockID {
	return c.blocks[i]
}

// Clone returns an independent copy of the chunk.
func (c *Chunk) Clone() *Chunk {
	blocks := make([]BlockID, Volume)
	copy(blocks, c.blocks)
	return &Chunk{Pos: c.Pos, blocks: blocks}
}

// Equal reports whether both chunks have the same position and contents.
func (c *Chunk) Equal(o *Chunk) bool {
	if c.Pos != o.Pos {
		return false
	}
	for i := range c.blocks {
		if c.blocks[i] != o.blocks[i] {
			return false
		}
	}
	return true
}

// Fill sets every block in the chunk to id.
func (c *Chunk) Fill(id BlockID) {
	for i := range c.blocks {
		c.blocks[i] = id
	}
}
