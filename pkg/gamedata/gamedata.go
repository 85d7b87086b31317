// Package gamedata holds the static game definitions shared by server and client.
package gamedata

import (
	"fmt"

	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// AirName is the block every data pack registers at id 0.
const AirName = "air"

type Block struct {
	Name        string `json:"name" yaml:"name"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name"`
	Opaque      bool   `json:"opaque" yaml:"opaque"`
}

// GameData is the snapshot sent to every client on connect.
type GameData struct {
	Blocks *Registry[Block]
}

// New builds game data from blocks, placing air at id 0 whether or not blocks lists it.
func New(blocks []Block) (*GameData, error) {
	reg := NewRegistry[Block]()
	if _, err := reg.Register(AirName, Block{Name: AirName, DisplayName: "Air"}); err != nil {
		return nil, err
	}
	for _, b := range blocks {
		if b.Name == AirName {
			if b.Opaque {
				return nil, fmt.Errorf("block %q cannot be opaque", AirName)
			}
			continue
		}
		if _, err := reg.Register(b.Name, b); err != nil {
			return nil, err
		}
	}
	if reg.Len() > int(^chunk.BlockID(0))+1 {
		return nil, fmt.Errorf("too many blocks: %d", reg.Len())
	}
	return &GameData{Blocks: reg}, nil
}

// Default returns the built-in block set used when no data pack is configured.
func Default() *GameData {
	gd, err := New([]Block{
		{Name: "stone", DisplayName: "Stone", Opaque: true},
		{Name: "dirt", DisplayName: "Dirt", Opaque: true},
		{Name: "grass", DisplayName: "Grass Block", Opaque: true},
		{Name: "sand", DisplayName: "Sand", Opaque: true},
		{Name: "water", DisplayName: "Water"},
		{Name: "glass", DisplayName: "Glass"},
	})
	if err != nil {
		panic(err)
	}
	return gd
}

// BlockID resolves a block name to its chunk block id.
func (g *GameData) BlockID(name string) (chunk.BlockID, bool) {
	id, ok := g.Blocks.IDByName(name)
	return chunk.BlockID(id), ok
}

// IsOpaque reports whether id blocks light. Unknown ids are treated as opaque.
func (g *GameData) IsOpaque(id chunk.BlockID) bool {
	b, ok := g.Blocks.ByID(int(id))
	if !ok {
		return true
	}
	return b.Opaque
}
