package player

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

func newTestManager() *Manager {
	return NewManager(Options{
		RenderDistance:    player.RenderDistance{Horizontal: 2, Vertical: 1},
		MaxRenderDistance: 4,
		ChunkSendRate:     10,
		ChunkSendBurst:    3,
	})
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestAddRemove(t *testing.T) {
	m := newTestManager()
	p := m.Add(3)
	m.Add(1)

	if p.RenderDistance != (player.RenderDistance{Horizontal: 2, Vertical: 1}) {
		t.Errorf("render distance = %+v", p.RenderDistance)
	}
	if diff := cmp.Diff([]player.ID{1, 3}, m.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if got := m.MustGet(3); got != p {
		t.Error("MustGet should return the added player")
	}
	if !m.Remove(3) || m.Remove(3) {
		t.Error("Remove should succeed exactly once")
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}

func TestContractViolationsPanic(t *testing.T) {
	m := newTestManager()
	m.Add(1)
	mustPanic(t, "duplicate add", func() { m.Add(1) })
	mustPanic(t, "unknown MustGet", func() { m.MustGet(2) })
	mustPanic(t, "unknown SetRenderDistance", func() { m.SetRenderDistance(2, player.RenderDistance{}) })
}

func TestSetRenderDistanceClamps(t *testing.T) {
	m := newTestManager()
	m.Add(1)
	got := m.SetRenderDistance(1, player.RenderDistance{Horizontal: 9, Vertical: -2})
	if want := (player.RenderDistance{Horizontal: 4, Vertical: 0}); got != want {
		t.Errorf("SetRenderDistance = %+v, want %+v", got, want)
	}
	if m.MustGet(1).RenderDistance != got {
		t.Error("render distance not stored")
	}
}

func TestAllowChunk(t *testing.T) {
	m := newTestManager()
	p := m.Add(1)
	now := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		if !p.AllowChunk(now) {
			t.Fatalf("burst chunk %d refused", i)
		}
	}
	if p.AllowChunk(now) {
		t.Fatal("chunk beyond burst allowed")
	}
	if !p.AllowChunk(now.Add(100 * time.Millisecond)) {
		t.Error("limiter did not refill at 10 chunks per second")
	}
}

func TestForget(t *testing.T) {
	m := newTestManager()
	p := m.Add(1)
	p.Delivered.Add(chunk.Pos{})
	p.Delivered.Add(chunk.Pos{X: 2})
	p.Delivered.Add(chunk.Pos{X: 3})

	if n := p.Forget(chunk.Pos{X: 1}); n != 0 {
		t.Fatalf("forgot %d chunks, want 0", n)
	}
	if n := p.Forget(chunk.Pos{X: 4}); n != 1 {
		t.Fatalf("forgot %d chunks, want 1", n)
	}
	if p.Delivered.Has(chunk.Pos{}) || !p.Delivered.Has(chunk.Pos{X: 2}) {
		t.Errorf("delivered = %v", p.Delivered)
	}
}

func TestForEachOrder(t *testing.T) {
	m := newTestManager()
	for _, id := range []player.ID{5, 2, 9} {
		m.Add(id)
	}
	var got []player.ID
	m.ForEach(func(p *Player) { got = append(got, p.ID) })
	if diff := cmp.Diff([]player.ID{2, 5, 9}, got); diff != "" {
		t.Errorf("ForEach order (-want +got):\n%s", diff)
	}
}
