package gamedata

import "fmt"

type snapshot struct {
	Blocks []Block `json:"blocks"`
}

// Encode serializes the game data for the GameData message.
func Encode(g *GameData) ([]byte, error) {
	b, err := json.Marshal(snapshot{Blocks: g.Blocks.All()})
	if err != nil {
		return nil, fmt.Errorf("encode game data: %w", err)
	}
	return b, nil
}

// Decode rebuilds game data from an Encode payload. Ids are preserved.
func Decode(data []byte) (*GameData, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode game data: %w", err)
	}
	if len(s.Blocks) == 0 || s.Blocks[0].Name != AirName {
		return nil, fmt.Errorf("decode game data: first block must be %q", AirName)
	}
	return New(s.Blocks[1:])
}
