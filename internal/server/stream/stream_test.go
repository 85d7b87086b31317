package stream

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	splayer "github.com/OCharnyshevich/voxel-server/internal/server/player"
	"github.com/OCharnyshevich/voxel-server/internal/server/worldgen"
	"github.com/OCharnyshevich/voxel-server/pkg/player"
	"github.com/OCharnyshevich/voxel-server/pkg/protocol"
	"github.com/OCharnyshevich/voxel-server/pkg/world"
	"github.com/OCharnyshevich/voxel-server/pkg/world/chunk"
	"github.com/OCharnyshevich/voxel-server/pkg/world/gen"
)

type fakeJobs struct {
	order    []chunk.Pos
	priority map[chunk.Pos]int64
	dequeued []chunk.Pos
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{priority: make(map[chunk.Pos]int64)}
}

func (j *fakeJobs) Enqueue(pos chunk.Pos, priority int64, job worldgen.Job) bool {
	if _, ok := j.priority[pos]; ok {
		return false
	}
	j.order = append(j.order, job.Pos)
	j.priority[pos] = priority
	return true
}

func (j *fakeJobs) Dequeue(pos chunk.Pos) bool {
	if _, ok := j.priority[pos]; !ok {
		return false
	}
	delete(j.priority, pos)
	j.dequeued = append(j.dequeued, pos)
	return true
}

func (j *fakeJobs) SetPriority(pos chunk.Pos, priority int64) bool {
	if _, ok := j.priority[pos]; !ok {
		return false
	}
	j.priority[pos] = priority
	return true
}

type sent struct {
	to  player.ID
	pos chunk.Pos
	cc  *chunk.Compressed
}

type fakeSender struct{ sent []sent }

func (s *fakeSender) Send(id player.ID, p protocol.Packet) {
	cd := p.(*protocol.ChunkData)
	s.sent = append(s.sent, sent{to: id, pos: cd.Compressed().Pos, cc: cd.Compressed()})
}

type fixture struct {
	mgr        *Manager
	players    *splayer.Manager
	world      *world.World
	generating chunk.Set
	jobs       *fakeJobs
	sender     *fakeSender
	now        time.Time
}

func newFixture(t *testing.T, burst int) *fixture {
	t.Helper()
	mgr, err := New(64, gen.Params{Seed: 1}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		mgr: mgr,
		players: splayer.NewManager(splayer.Options{
			RenderDistance:    player.RenderDistance{Horizontal: 1, Vertical: 1},
			MaxRenderDistance: 8,
			ChunkSendRate:     1000,
			ChunkSendBurst:    burst,
		}),
		world:      world.NewWorld(nil),
		generating: make(chunk.Set),
		jobs:       newFakeJobs(),
		sender:     &fakeSender{},
		now:        time.Unix(1000, 0),
	}
}

func (f *fixture) run(viewers ...Viewer) Stats {
	return f.mgr.Run(f.now, f.world, viewers, f.generating, f.jobs, f.sender)
}

func TestRequestsNearestFirst(t *testing.T) {
	f := newFixture(t, 100)
	p := f.players.Add(1)

	st := f.run(Viewer{Player: p, Center: chunk.Pos{}})

	if st.Requested != 27 || len(f.jobs.order) != 27 || len(f.generating) != 27 {
		t.Fatalf("requested %d, enqueued %d, generating %d; want 27", st.Requested, len(f.jobs.order), len(f.generating))
	}
	if f.jobs.order[0] != (chunk.Pos{}) {
		t.Errorf("first job = %v, want center", f.jobs.order[0])
	}
	for pos, prio := range f.jobs.priority {
		if want := pos.SquaredDistance(chunk.Pos{}); prio != want {
			t.Errorf("priority of %v = %d, want %d", pos, prio, want)
		}
	}

	// A second pass does not request again.
	if st := f.run(Viewer{Player: p, Center: chunk.Pos{}}); st.Requested != 0 {
		t.Errorf("second pass requested %d", st.Requested)
	}
}

func TestSendsStoredChunksOnce(t *testing.T) {
	f := newFixture(t, 100)
	p := f.players.Add(1)
	rd := player.RenderDistance{Horizontal: 1, Vertical: 1}
	for _, pos := range rd.Iterate(chunk.Pos{}) {
		f.world.Set(chunk.New(pos))
	}

	st := f.run(Viewer{Player: p, Center: chunk.Pos{}})
	if st.Sent != 27 || len(f.sender.sent) != 27 {
		t.Fatalf("sent %d chunks, want 27", len(f.sender.sent))
	}
	if f.sender.sent[0].pos != (chunk.Pos{}) {
		t.Errorf("first chunk = %v, want center", f.sender.sent[0].pos)
	}
	if st.Requested != 0 {
		t.Errorf("requested %d chunks that were already stored", st.Requested)
	}

	if st := f.run(Viewer{Player: p, Center: chunk.Pos{}}); st.Sent != 0 {
		t.Errorf("resent %d chunks", st.Sent)
	}
}

func TestSendRateLimited(t *testing.T) {
	f := newFixture(t, 2)
	p := f.players.Add(1)
	for _, pos := range p.RenderDistance.Iterate(chunk.Pos{}) {
		f.world.Set(chunk.New(pos))
	}

	if st := f.run(Viewer{Player: p, Center: chunk.Pos{}}); st.Sent != 2 {
		t.Fatalf("sent %d, want burst of 2", st.Sent)
	}
	if f.sender.sent[0].pos != (chunk.Pos{}) {
		t.Error("nearest chunk must go first")
	}
	f.now = f.now.Add(time.Second)
	if st := f.run(Viewer{Player: p, Center: chunk.Pos{}}); st.Sent != 2 {
		t.Errorf("sent %d after refill, want 2", st.Sent)
	}
}

func TestMultiRequesterPriority(t *testing.T) {
	f := newFixture(t, 100)
	target := chunk.Pos{}

	a := f.players.Add(1)
	f.players.SetRenderDistance(1, player.RenderDistance{Horizontal: 3, Vertical: 1})
	aCenter := chunk.Pos{X: -3, Y: -1}        // (3,1,0) away: 10
	bCenter := chunk.Pos{X: -1, Y: -1, Z: -1} // (1,1,1) away: 3
	b := f.players.Add(2)

	f.run(Viewer{Player: a, Center: aCenter}, Viewer{Player: b, Center: bCenter})
	if got := f.jobs.priority[target]; got != 3 {
		t.Fatalf("priority with both players = %d, want 3", got)
	}

	f.players.Remove(2)
	f.run(Viewer{Player: a, Center: aCenter})
	if got := f.jobs.priority[target]; got != 10 {
		t.Fatalf("priority after B left = %d, want 10", got)
	}

	f.run(Viewer{Player: a, Center: chunk.Pos{X: -20}})
	if _, ok := f.jobs.priority[target]; ok {
		t.Fatal("job should be dequeued once nobody wants it")
	}
	if f.generating.Has(target) {
		t.Fatal("position should leave the generating set")
	}
	found := false
	for _, pos := range f.jobs.dequeued {
		found = found || pos == target
	}
	if !found {
		t.Error("Dequeue was not called for the target")
	}
}

func TestEviction(t *testing.T) {
	f := newFixture(t, 100)
	p := f.players.Add(1)
	near := chunk.Pos{X: 1}
	far := chunk.Pos{X: 5}
	f.world.Set(chunk.New(near))
	f.world.Set(chunk.New(far))

	st := f.run(Viewer{Player: p, Center: chunk.Pos{}})
	if st.Evicted != 1 {
		t.Errorf("evicted %d, want 1", st.Evicted)
	}
	if !f.world.HasChunk(near) {
		t.Error("visible chunk was evicted")
	}
	if f.world.HasChunk(far) {
		t.Error("invisible chunk was kept")
	}

	f.players.Remove(1)
	f.run()
	if f.world.Len() != 0 {
		t.Errorf("world keeps %d chunks with no players", f.world.Len())
	}
	if len(f.generating) != 0 {
		t.Errorf("generating keeps %d positions with no players", len(f.generating))
	}
}

func TestForgetsChunksLeftBehind(t *testing.T) {
	f := newFixture(t, 100)
	p := f.players.Add(1)
	f.world.Set(chunk.New(chunk.Pos{}))
	f.run(Viewer{Player: p, Center: chunk.Pos{}})
	if !p.Delivered.Has(chunk.Pos{}) {
		t.Fatal("chunk not marked delivered")
	}

	f.run(Viewer{Player: p, Center: chunk.Pos{X: 10}})
	if p.Delivered.Has(chunk.Pos{}) {
		t.Error("out-of-range chunk still marked delivered")
	}
}

func TestInvalidate(t *testing.T) {
	f := newFixture(t, 100)
	p1 := f.players.Add(1)
	p2 := f.players.Add(2)
	f.players.SetRenderDistance(1, player.RenderDistance{})
	f.players.SetRenderDistance(2, player.RenderDistance{})

	f.world.Set(chunk.New(chunk.Pos{}))
	f.run(Viewer{Player: p1, Center: chunk.Pos{}})

	c := chunk.New(chunk.Pos{})
	c.Fill(3)
	f.world.Set(c)
	f.mgr.Invalidate(c.Pos)
	f.run(Viewer{Player: p1, Center: chunk.Pos{}}, Viewer{Player: p2, Center: chunk.Pos{}})

	last := f.sender.sent[len(f.sender.sent)-1]
	if last.to != 2 {
		t.Fatalf("last packet went to %d", last.to)
	}
	if diff := cmp.Diff(chunk.Encode(c), last.cc); diff != "" {
		t.Errorf("stale encoding sent (-want +got):\n%s", diff)
	}
}
