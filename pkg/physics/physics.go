// Package physics simulates player movement against the world store.
package physics

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	jsoniter "github.com/json-iterator/go"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

const (
	// FlySpeed is the movement speed in blocks per second.
	FlySpeed = 10.0
	// EyeHeight is the camera height above a player's feet.
	EyeHeight = 1.6
	// maxStep caps the simulated time of a single Step after a stall.
	maxStep = 250 * time.Millisecond
)

// Spawn is where new players appear, feet position.
var Spawn = mgl64.Vec3{0.5, 16, 0.5}

// Simulation is the physics capability driven by the tick loop.
type Simulation interface {
	Step(now time.Time, w *world.World)
	State() State
	SetPlayerInput(id player.ID, in player.Input)
	Remove(id player.ID)
}

type PlayerState struct {
	Position mgl64.Vec3 `json:"position"`
	Velocity mgl64.Vec3 `json:"velocity"`
	Yaw      float64    `json:"yaw"`
	Pitch    float64    `json:"pitch"`
}

// Camera returns the eye position.
func (s PlayerState) Camera() mgl64.Vec3 {
	return s.Position.Add(mgl64.Vec3{0, EyeHeight, 0})
}

// ChunkPos returns the chunk containing the camera.
func (s PlayerState) ChunkPos() chunk.Pos {
	c := s.Camera()
	return chunk.PosOf(int64(math.Floor(c.X())), int64(math.Floor(c.Y())), int64(math.Floor(c.Z())))
}

// State is the authoritative physics snapshot broadcast to clients.
type State struct {
	Tick    uint64                    `json:"tick"`
	Players map[player.ID]PlayerState `json:"players"`
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func EncodeState(s State) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode physics state: %w", err)
	}
	return b, nil
}

func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode physics state: %w", err)
	}
	return s, nil
}

type body struct {
	state PlayerState
	input player.Input
}

// ServerSimulation integrates free flight for every player and stops movement
// along any axis that would enter an opaque block. Unloaded chunks are passable.
type ServerSimulation struct {
	bodies map[player.ID]*body
	spawn  mgl64.Vec3
	last   time.Time
	tick   uint64
}

// NewServerSimulation creates a simulation that spawns players at Spawn.
func NewServerSimulation() *ServerSimulation {
	return &ServerSimulation{bodies: make(map[player.ID]*body), spawn: Spawn}
}

// SetSpawn changes where players that join from now on appear.
func (s *ServerSimulation) SetSpawn(feet mgl64.Vec3) {
	s.spawn = feet
}

// SetPlayerInput stores the latest input of id, spawning the player if needed.
func (s *ServerSimulation) SetPlayerInput(id player.ID, in player.Input) {
	b, ok := s.bodies[id]
	if !ok {
		b = &body{state: PlayerState{Position: s.spawn}}
		s.bodies[id] = b
	}
	b.input = in
	b.state.Yaw = float64(in.Yaw)
	b.state.Pitch = float64(in.Pitch)
}

func (s *ServerSimulation) Remove(id player.ID) {
	delete(s.bodies, id)
}

func (s *ServerSimulation) Step(now time.Time, w *world.World) {
	s.tick++
	if s.last.IsZero() {
		s.last = now
		return
	}
	dt := now.Sub(s.last)
	s.last = now
	if dt <= 0 {
		return
	}
	if dt > maxStep {
		dt = maxStep
	}

	secs := dt.Seconds()
	for _, b := range s.bodies {
		b.state.Velocity = velocity(b.input)
		b.state.Position = move(w, b.state.Position, b.state.Velocity.Mul(secs))
	}
}

func (s *ServerSimulation) State() State {
	st := State{Tick: s.tick, Players: make(map[player.ID]PlayerState, len(s.bodies))}
	for id, b := range s.bodies {
		st.Players[id] = b.state
	}
	return st
}

// velocity converts control input into a world-space velocity. Yaw 0 faces -z.
func velocity(in player.Input) mgl64.Vec3 {
	yaw := float64(in.Yaw)
	forward := mgl64.Vec3{math.Sin(yaw), 0, -math.Cos(yaw)}
	right := mgl64.Vec3{math.Cos(yaw), 0, math.Sin(yaw)}

	dir := forward.Mul(float64(in.Forward)).
		Add(right.Mul(float64(in.Right))).
		Add(mgl64.Vec3{0, float64(in.Up), 0})
	if dir.Len() == 0 {
		return mgl64.Vec3{}
	}
	return dir.Normalize().Mul(FlySpeed)
}

// move applies delta one axis at a time, skipping any axis that ends inside a solid block.
func move(w *world.World, pos, delta mgl64.Vec3) mgl64.Vec3 {
	for axis := 0; axis < 3; axis++ {
		if delta[axis] == 0 {
			continue
		}
		next := pos
		next[axis] += delta[axis]
		if !solid(w, next) && !solid(w, next.Add(mgl64.Vec3{0, EyeHeight, 0})) {
			pos = next
		}
	}
	return pos
}

func solid(w *world.World, p mgl64.Vec3) bool {
	id, ok := w.Block(int64(math.Floor(p.X())), int64(math.Floor(p.Y())), int64(math.Floor(p.Z())))
	return ok && w.IsOpaque(id)
}
