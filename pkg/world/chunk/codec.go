package chunk

import (
	"errors"
	"fmt"
)

// ErrCorruptChunkData is returned when a compressed chunk does not expand to exactly Volume blocks.
var ErrCorruptChunkData = errors.New("corrupt chunk data")

// Run is a sequence of Length consecutive cells holding Block.
type Run struct {
	Length uint16
	Block  BlockID
}

// Compressed is the run-length encoded form of a chunk sent over the wire.
type Compressed struct {
	Pos  Pos
	Runs []Run
}

// Encode compresses c into maximal runs in linear index order.
func Encode(c *Chunk) *Compressed {
	runs := make([]Run, 0, 16)
	current := c.blocks[0]
	length := 0
	for _, id := range c.blocks {
		if id != current {
			runs = append(runs, Run{Length: uint16(length), Block: current})
			current = id
			length = 0
		}
		length++
	}
	runs = append(runs, Run{Length: uint16(length), Block: current})

	return &Compressed{Pos: c.Pos, Runs: runs}
}

// Decode expands cc back into a chunk.
// It fails with ErrCorruptChunkData unless the run lengths sum to exactly Volume.
func Decode(cc *Compressed) (*Chunk, error) {
	blocks := make([]BlockID, Volume)
	i := 0
	for n, r := range cc.Runs {
		end := i + int(r.Length)
		if end > Volume {
			return nil, fmt.Errorf("%w: run %d overflows chunk %v (%d > %d)", ErrCorruptChunkData, n, cc.Pos, end, Volume)
		}
		for j := i; j < end; j++ {
			blocks[j] = r.Block
		}
		i = end
	}
	if i != Volume {
		return nil, fmt.Errorf("%w: chunk %v has %d blocks, want %d", ErrCorruptChunkData, cc.Pos, i, Volume)
	}
	return &Chunk{Pos: cc.Pos, blocks: blocks}, nil
}

// Len returns the number of blocks the runs expand to.
func (cc *Compressed) Len() int {
	n := 0
	for _, r := range cc.Runs {
		n += int(r.Length)
	}
	return n
}
