package player

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

// Player is the server-side state of one connected player. It is owned by the
// tick loop and never shared with other goroutines.
type Player struct {
	ID             player.ID
	RenderDistance player.RenderDistance
	Input          player.Input

	// Delivered holds the chunks already sent in this session.
	Delivered chunk.Set

	sendLimiter *rate.Limiter
}

// AllowChunk reports whether another chunk may be sent to the player at now.
func (p *Player) AllowChunk(now time.Time) bool {
	return p.sendLimiter.AllowN(now, 1)
}

// Forget drops delivered chunks that are no longer visible from center.
func (p *Player) Forget(center chunk.Pos) int {
	n := 0
	for pos := range p.Delivered {
		if !p.RenderDistance.Visible(center, pos) {
			delete(p.Delivered, pos)
			n++
		}
	}
	return n
}
