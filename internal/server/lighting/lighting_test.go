package lighting

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
)

var discard = slog.New(slog.DiscardHandler)

func drain(e *Engine, w *world.World) []chunk.Pos {
	var out []chunk.Pos
	for {
		pos, ok := e.Step(w)
		if !ok {
			return out
		}
		out = append(out, pos)
	}
}

func TestEnqueueDedup(t *testing.T) {
	w := world.NewWorld(nil)
	x := chunk.Pos{X: 1}
	w.Set(chunk.New(x))

	e := New(discard)
	if !e.Enqueue(x) {
		t.Fatal("first Enqueue should schedule")
	}
	if e.Enqueue(x) {
		t.Fatal("second Enqueue should be a no-op")
	}
	if got := drain(e, w); len(got) != 1 || got[0] != x {
		t.Fatalf("processed %v, want exactly one pass for %v", got, x)
	}
	if !w.HasLight(x) {
		t.Error("light was not computed")
	}
	if e.Pending(x) {
		t.Error("position still pending after processing")
	}
	if !e.Enqueue(x) {
		t.Error("position should be schedulable again after processing")
	}
}

func TestStepOnePerCall(t *testing.T) {
	w := world.NewWorld(nil)
	e := New(discard)
	for i := int64(0); i < 3; i++ {
		pos := chunk.Pos{X: i}
		w.Set(chunk.New(pos))
		e.Enqueue(pos)
	}
	pos, ok := e.Step(w)
	if !ok || pos != (chunk.Pos{}) {
		t.Fatalf("Step = %v, %v", pos, ok)
	}
	if e.Len() != 2 {
		t.Errorf("Len = %d after one step, want 2", e.Len())
	}
}

func TestStepSkipsEvicted(t *testing.T) {
	w := world.NewWorld(nil)
	e := New(discard)
	pos := chunk.Pos{Y: 5}
	e.Enqueue(pos)
	if got, ok := e.Step(w); !ok || got != pos {
		t.Fatalf("Step = %v, %v", got, ok)
	}
	if w.HasLight(pos) {
		t.Error("missing chunk must not get light")
	}
}

// populate stores an empty chunk at every position of the 3x3 columns around
// the origin for y in [-2, 2].
func populate(w *world.World) {
	for x := int64(-1); x <= 1; x++ {
		for y := int64(-2); y <= 2; y++ {
			for z := int64(-1); z <= 1; z++ {
				w.Set(chunk.New(chunk.Pos{X: x, Y: y, Z: z}))
			}
		}
	}
	// Far away chunks are never scheduled.
	w.Set(chunk.New(chunk.Pos{X: 5}))
}

func TestOnInsertHeightChanged(t *testing.T) {
	w := world.NewWorld(nil)
	populate(w)
	e := New(discard)

	e.OnInsert(w, chunk.Pos{}, true)

	got := drain(e, w)
	if got[0] != (chunk.Pos{}) {
		t.Errorf("inserted chunk should be relit first, got %v", got[0])
	}
	// 9 columns with y in {-2, -1, 0}.
	if len(got) != 27 {
		t.Fatalf("scheduled %d chunks, want 27: %v", len(got), got)
	}
	for _, pos := range got {
		if pos.Y > 0 {
			t.Errorf("scheduled %v above the changed chunk", pos)
		}
		if pos.X < -1 || pos.X > 1 || pos.Z < -1 || pos.Z > 1 {
			t.Errorf("scheduled %v outside the 3x3 columns", pos)
		}
	}
}

func TestOnInsertHeightUnchanged(t *testing.T) {
	w := world.NewWorld(nil)
	populate(w)
	e := New(discard)

	e.OnInsert(w, chunk.Pos{}, false)

	got := drain(e, w)
	if len(got) != 27 {
		t.Fatalf("scheduled %d chunks, want 27", len(got))
	}
	seen := chunk.Set{}
	for _, pos := range got {
		seen.Add(pos)
	}
	for _, want := range []chunk.Pos{{Y: 1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: -1}} {
		if !seen.Has(want) {
			t.Errorf("%v missing from the 3x3x3 neighbourhood", want)
		}
	}
	if seen.Has(chunk.Pos{Y: -2}) || seen.Has(chunk.Pos{Y: 2}) {
		t.Error("chunks two away vertically must not be scheduled")
	}
}

func TestOnInsertSkipsMissingAndPending(t *testing.T) {
	w := world.NewWorld(nil)
	w.Set(chunk.New(chunk.Pos{}))
	w.Set(chunk.New(chunk.Pos{X: 1}))
	e := New(discard)
	e.Enqueue(chunk.Pos{X: 1})

	e.OnInsert(w, chunk.Pos{}, false)

	want := []chunk.Pos{{X: 1}, {}}
	if diff := cmp.Diff(want, drain(e, w)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}
