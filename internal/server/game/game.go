// Package game owns the authoritative world and runs the per-tick orchestration:
// network events, generation results, lighting, physics and chunk streaming.
package game

import (
	"fmt"
	"log/slog"
	"time"

	splayer "github.com/OCharnyshevich/voxel-server/internal/server/player"
	"github.com/OCharnyshevich/voxel-server/internal/server/lighting"
	"github.com/OCharnyshevich/voxel-server/internal/server/stream"
	"github.com/OCharnyshevich/voxel-server/internal/server/transport"
	"github.com/OCharnyshevich/voxel-server/internal/server/worldgen"
	"github.com/OCharnyshevich/voxel-server/pkg/gamedata"
	"github.com/OCharnyshevich/voxel-server/pkg/physics"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
	"github.com/OCharnyshevich/voxel-server/pkg/worker"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
	"github.com/OCharnyshevich/voxel-server/pkg/world/gen"
)

// Jobs is the generation worker as seen by the tick loop.
type Jobs interface {
	stream.Jobs
	PollCompleted() []worker.Result[chunk.Pos, *chunk.Chunk]
	Stats() worker.Stats
}

var _ Jobs = (*worldgen.Worker)(nil)

// Options configure a Game.
type Options struct {
	GameData       *gamedata.GameData
	Params         gen.Params
	Players        splayer.Options
	ChunkCacheSize int
}

// Game is the orchestrator state. Every field is owned by the goroutine calling Tick.
type Game struct {
	log *slog.Logger

	world      *world.World
	players    *splayer.Manager
	physics    physics.Simulation
	jobs       Jobs
	generating chunk.Set
	lighting   *lighting.Engine
	stream     *stream.Manager
	transport  transport.Transport

	gameData []byte
	tick     uint64
}

// TickStats summarises one tick.
type TickStats struct {
	Events    int
	Installed int
	Discarded int
	Failed    int
	Lit       bool
	Stream    stream.Stats
}

func New(opts Options, sim physics.Simulation, jobs Jobs, tr transport.Transport, log *slog.Logger) (*Game, error) {
	if opts.GameData == nil {
		return nil, fmt.Errorf("game data is required")
	}
	data, err := gamedata.Encode(opts.GameData)
	if err != nil {
		return nil, fmt.Errorf("encode game data: %w", err)
	}

	sm, err := stream.New(opts.ChunkCacheSize, opts.Params, log)
	if err != nil {
		return nil, err
	}

	return &Game{
		log:        log.With("component", "game"),
		world:      world.NewWorld(opts.GameData),
		players:    splayer.NewManager(opts.Players),
		physics:    sim,
		jobs:       jobs,
		generating: make(chunk.Set),
		lighting:   lighting.New(log),
		stream:     sm,
		transport:  tr,
		gameData:   data,
	}, nil
}

func (g *Game) World() *world.World { return g.world }

func (g *Game) Players() *splayer.Manager { return g.players }

// Generating reports whether pos has an outstanding generation job.
func (g *Game) Generating(pos chunk.Pos) bool { return g.generating.Has(pos) }

// Tick advances the game by one step at wall-clock time now.
func (g *Game) Tick(now time.Time) TickStats {
	var st TickStats
	g.tick++

	st.Events = g.handleEvents()
	st.Installed, st.Discarded, st.Failed = g.installResults()

	_, st.Lit = g.lighting.Step(g.world)

	g.physics.Step(now, g.world)
	state := g.physics.State()
	g.broadcastState(state)

	st.Stream = g.stream.Run(now, g.world, g.viewers(state), g.generating, g.jobs, g.transport)

	if g.tick%100 == 0 {
		js := g.jobs.Stats()
		g.log.Debug("tick",
			"tick", g.tick,
			"players", g.players.Len(),
			"chunks", g.world.Len(),
			"generating", len(g.generating),
			"lightQueue", g.lighting.Len(),
			"jobsQueued", js.Queued,
			"jobsInFlight", js.InFlight,
			"jobsFailed", js.Failed,
		)
	}
	return st
}

func (g *Game) handleEvents() int {
	n := 0
	for {
		ev := g.transport.Poll()
		if ev.Kind == transport.NoEvent {
			return n
		}
		n++
		switch ev.Kind {
		case transport.ClientConnected:
			g.connect(ev.Client)
		case transport.ClientDisconnected:
			g.disconnect(ev.Client)
		case transport.ClientMessage:
			g.handleMessage(ev.Client, ev.Message)
		}
	}
}

func (g *Game) connect(id player.ID) {
	p := g.players.Add(id)
	g.physics.SetPlayerInput(id, p.Input)

	g.transport.Send(id, &protocol.GameData{Data: g.gameData})
	g.transport.Send(id, &protocol.CurrentID{ID: uint32(id)})

	g.log.Info("player joined", "player", id, "renderDistance", p.RenderDistance, "online", g.players.Len())
}

func (g *Game) disconnect(id player.ID) {
	if !g.players.Remove(id) {
		panic(fmt.Sprintf("disconnect of unknown player %d", id))
	}
	g.physics.Remove(id)
	g.log.Info("player left", "player", id, "online", g.players.Len())
}

// handleMessage applies a client message. A message from a player the game does
// not know means the transport and the game disagree, which is unrecoverable.
func (g *Game) handleMessage(id player.ID, msg protocol.Packet) {
	p := g.players.MustGet(id)

	switch m := msg.(type) {
	case *protocol.UpdateInput:
		p.Input = m.Input()
		g.physics.SetPlayerInput(id, p.Input)
	case *protocol.SetRenderDistance:
		rd := g.players.SetRenderDistance(id, m.RenderDistance())
		g.log.Debug("render distance changed", "player", id, "renderDistance", rd)
	default:
		g.log.Warn("unhandled message", "player", id, "packet", msg.PacketID())
	}
}

func (g *Game) installResults() (installed, discarded, failed int) {
	for _, r := range g.jobs.PollCompleted() {
		if !g.generating.Remove(r.Key) {
			discarded++
			continue
		}
		if r.Err != nil {
			// The position is requested again by the next stream pass if still wanted.
			g.log.Warn("chunk generation failed", "pos", r.Key, "error", r.Err)
			failed++
			continue
		}

		heightChanged := g.world.Set(r.Value)
		g.stream.Invalidate(r.Key)
		g.lighting.OnInsert(g.world, r.Key, heightChanged)
		installed++
	}
	return installed, discarded, failed
}

func (g *Game) broadcastState(state physics.State) {
	if g.players.Len() == 0 {
		return
	}
	data, err := physics.EncodeState(state)
	if err != nil {
		g.log.Error("encode physics state", "error", err)
		return
	}
	msg := &protocol.UpdatePhysics{State: data}
	for _, id := range g.players.IDs() {
		g.transport.Send(id, msg)
	}
}

func (g *Game) viewers(state physics.State) []stream.Viewer {
	viewers := make([]stream.Viewer, 0, g.players.Len())
	g.players.ForEach(func(p *splayer.Player) {
		if ps, ok := state.Players[p.ID]; ok {
			viewers = append(viewers, stream.Viewer{Player: p, Center: ps.ChunkPos()})
		}
	})
	return viewers
}
