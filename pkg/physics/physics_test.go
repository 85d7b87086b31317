package physics

import (
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

func step(s *ServerSimulation, w *world.World, start time.Time, d time.Duration) {
	s.Step(start, w)
	s.Step(start.Add(d), w)
}

func TestSpawnInOriginChunk(t *testing.T) {
	s := NewServerSimulation()
	s.SetPlayerInput(1, player.Input{})

	st := s.State()
	p, ok := st.Players[1]
	if !ok {
		t.Fatal("player not spawned")
	}
	if p.Position != Spawn {
		t.Errorf("position = %v, want %v", p.Position, Spawn)
	}
	if got := p.ChunkPos(); got != (chunk.Pos{}) {
		t.Errorf("spawn chunk = %v, want origin", got)
	}
}

func TestSetSpawn(t *testing.T) {
	s := NewServerSimulation()
	s.SetPlayerInput(1, player.Input{})
	feet := mgl64.Vec3{0.5, 40, 0.5}
	s.SetSpawn(feet)
	s.SetPlayerInput(2, player.Input{})

	st := s.State()
	if got := st.Players[1].Position; got != Spawn {
		t.Errorf("existing player moved to %v", got)
	}
	if got := st.Players[2].Position; got != feet {
		t.Errorf("new player at %v, want %v", got, feet)
	}
	if got := st.Players[2].ChunkPos(); got != (chunk.Pos{Y: 1}) {
		t.Errorf("spawn chunk = %v, want (0,1,0)", got)
	}
}

func TestFlyForward(t *testing.T) {
	s := NewServerSimulation()
	w := world.NewWorld(nil)
	s.SetPlayerInput(1, player.Input{Forward: 1})

	step(s, w, time.Unix(100, 0), 100*time.Millisecond)

	got := s.State().Players[1].Position
	want := Spawn.Add(mgl64.Vec3{0, 0, -1})
	if !got.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("position = %v, want %v", got, want)
	}
}

func TestStepClamped(t *testing.T) {
	s := NewServerSimulation()
	w := world.NewWorld(nil)
	s.SetPlayerInput(1, player.Input{Up: 1})

	step(s, w, time.Unix(100, 0), 10*time.Second)

	got := s.State().Players[1].Position.Y() - Spawn.Y()
	want := FlySpeed * maxStep.Seconds()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("climbed %v blocks, want %v", got, want)
	}
}

func TestBlockedByOpaque(t *testing.T) {
	s := NewServerSimulation()
	w := world.NewWorld(nil)
	// Wall filling the plane z=-1 just in front of the spawn point.
	wall := chunk.New(chunk.Pos{Z: -1})
	for x := 0; x < chunk.Size; x++ {
		for y := 0; y < chunk.Size; y++ {
			wall.SetBlock(x, y, chunk.Size-1, 1)
		}
	}
	w.Set(wall)

	s.SetPlayerInput(1, player.Input{Forward: 1, Right: 1})
	step(s, w, time.Unix(100, 0), 100*time.Millisecond)

	got := s.State().Players[1].Position
	if got.Z() != Spawn.Z() {
		t.Errorf("moved through wall: z = %v", got.Z())
	}
	if got.X() <= Spawn.X() {
		t.Errorf("should slide along the wall: x = %v", got.X())
	}
}

func TestRemove(t *testing.T) {
	s := NewServerSimulation()
	s.SetPlayerInput(1, player.Input{})
	s.SetPlayerInput(2, player.Input{})
	s.Remove(1)

	st := s.State()
	if _, ok := st.Players[1]; ok {
		t.Error("player 1 should be removed")
	}
	if _, ok := st.Players[2]; !ok {
		t.Error("player 2 should remain")
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := NewServerSimulation()
	s.SetPlayerInput(3, player.Input{Yaw: 0.5})
	s.SetPlayerInput(9, player.Input{Pitch: -1})
	s.Step(time.Unix(1, 0), world.NewWorld(nil))

	want := s.State()
	data, err := EncodeState(want)
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}
