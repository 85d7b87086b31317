package player

import (
	"fmt"
	"slices"

	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// Options configure new players.
type Options struct {
	RenderDistance    player.RenderDistance
	MaxRenderDistance int64
	ChunkSendRate     float64 // chunks per second
	ChunkSendBurst    int
}

// Manager tracks all connected players.
type Manager struct {
	opts    Options
	players map[player.ID]*Player
}

// NewManager creates an empty player manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:    opts,
		players: make(map[player.ID]*Player),
	}
}

// Add registers a newly connected player. Adding an id twice is a programming error.
func (m *Manager) Add(id player.ID) *Player {
	if _, ok := m.players[id]; ok {
		panic(fmt.Sprintf("player %d connected twice", id))
	}
	p := &Player{
		ID:             id,
		RenderDistance: m.clamp(m.opts.RenderDistance),
		Delivered:      make(chunk.Set),
		sendLimiter:    rate.NewLimiter(rate.Limit(m.opts.ChunkSendRate), m.opts.ChunkSendBurst),
	}
	m.players[id] = p
	return p
}

// Remove deletes the player and reports whether it was connected.
func (m *Manager) Remove(id player.ID) bool {
	if _, ok := m.players[id]; !ok {
		return false
	}
	delete(m.players, id)
	return true
}

// MustGet returns the player or panics. An unknown id means the transport and
// the tick loop disagree about who is connected.
func (m *Manager) MustGet(id player.ID) *Player {
	p, ok := m.players[id]
	if !ok {
		panic(fmt.Sprintf("unknown player %d", id))
	}
	return p
}

// SetRenderDistance updates the player's render distance, clamped to the server maximum.
func (m *Manager) SetRenderDistance(id player.ID, rd player.RenderDistance) player.RenderDistance {
	p := m.MustGet(id)
	p.RenderDistance = m.clamp(rd)
	return p.RenderDistance
}

func (m *Manager) clamp(rd player.RenderDistance) player.RenderDistance {
	rd.Horizontal = min(max(rd.Horizontal, 0), m.opts.MaxRenderDistance)
	rd.Vertical = min(max(rd.Vertical, 0), m.opts.MaxRenderDistance)
	return rd
}

func (m *Manager) Len() int { return len(m.players) }

// IDs returns the connected player ids in ascending order.
func (m *Manager) IDs() []player.ID {
	ids := make([]player.ID, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ForEach calls fn for every player in ascending id order.
func (m *Manager) ForEach(fn func(p *Player)) {
	for _, id := range m.IDs() {
		fn(m.players[id])
	}
}
