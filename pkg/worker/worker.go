// Package worker runs prioritized background jobs on a pool of goroutines.
//
// A Pool is owned by a single caller that enqueues jobs, adjusts their
// priorities and drains finished results once per tick. Job functions receive
// only the input captured at enqueue time and must not touch shared state.
package worker

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"
)

// Func computes the result of one job.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// Result is a finished job. Err is set when the job returned an error or panicked.
type Result[K comparable, Out any] struct {
	Key   K
	Value Out
	Err   error
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Queued    int
	InFlight  int
	Completed int64
	Failed    int64
}

// Pool schedules jobs keyed by K. Lower priority values are served first;
// equal priorities are served in insertion order.
type Pool[K comparable, In, Out any] struct {
	fn  Func[In, Out]
	log *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    jobQueue[K, In]
	queued   map[K]*job[K, In]
	inFlight map[K]struct{}
	seq      uint64
	closed   bool
	started  bool

	doneMu sync.Mutex
	done   []Result[K, Out]

	completed atomic.Int64
	failed    atomic.Int64

	wg sync.WaitGroup
}

// New creates a pool that runs fn. No goroutines run until Start is called, so
// jobs enqueued before Start are ordered purely by priority.
func New[K comparable, In, Out any](fn Func[In, Out], log *slog.Logger) *Pool[K, In, Out] {
	p := &Pool[K, In, Out]{
		fn:       fn,
		log:      log,
		queued:   make(map[K]*job[K, In]),
		inFlight: make(map[K]struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches n worker goroutines. They exit when ctx is cancelled or Close is called.
func (p *Pool[K, In, Out]) Start(ctx context.Context, n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	if p.started || p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	go func() {
		<-ctx.Done()
		p.shutdown()
	}()
}

// Close stops the workers and waits for in-flight jobs to finish. Queued jobs are dropped.
func (p *Pool[K, In, Out]) Close() {
	p.shutdown()
	p.wg.Wait()
}

func (p *Pool[K, In, Out]) shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Enqueue adds a job at the given priority. It reports false and does nothing
// if a job with the same key is already queued or running.
func (p *Pool[K, In, Out]) Enqueue(key K, priority int64, in In) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	if _, ok := p.queued[key]; ok {
		return false
	}
	if _, ok := p.inFlight[key]; ok {
		return false
	}

	j := &job[K, In]{key: key, in: in, priority: priority, seq: p.seq}
	p.seq++
	heap.Push(&p.queue, j)
	p.queued[key] = j
	p.cond.Signal()
	return true
}

// Dequeue removes a job that has not started yet. A running job is not
// interrupted; Dequeue reports false for it and its result is still delivered.
func (p *Pool[K, In, Out]) Dequeue(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.queued[key]
	if !ok {
		return false
	}
	heap.Remove(&p.queue, j.index)
	delete(p.queued, key)
	return true
}

// SetPriority changes the priority of a queued job. The job keeps its
// original insertion order among jobs of equal priority.
func (p *Pool[K, In, Out]) SetPriority(key K, priority int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.queued[key]
	if !ok {
		return false
	}
	if j.priority != priority {
		j.priority = priority
		heap.Fix(&p.queue, j.index)
	}
	return true
}

// Priority returns the priority of a queued job.
func (p *Pool[K, In, Out]) Priority(key K) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	j, ok := p.queued[key]
	if !ok {
		return 0, false
	}
	return j.priority, true
}

// Queued reports whether key is waiting in the queue.
func (p *Pool[K, In, Out]) Queued(key K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.queued[key]
	return ok
}

// Len returns the number of queued jobs.
func (p *Pool[K, In, Out]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// PollCompleted returns every result finished since the previous call. It never blocks
// on running jobs; a nil slice means nothing finished.
func (p *Pool[K, In, Out]) PollCompleted() []Result[K, Out] {
	p.doneMu.Lock()
	defer p.doneMu.Unlock()

	if len(p.done) == 0 {
		return nil
	}
	out := p.done
	p.done = nil
	return out
}

// Stats returns current counters.
func (p *Pool[K, In, Out]) Stats() Stats {
	p.mu.Lock()
	s := Stats{Queued: len(p.queue), InFlight: len(p.inFlight)}
	p.mu.Unlock()
	s.Completed = p.completed.Load()
	s.Failed = p.failed.Load()
	return s
}

func (p *Pool[K, In, Out]) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		j, ok := p.next()
		if !ok {
			return
		}

		value, err := p.call(ctx, j)
		if err != nil {
			p.failed.Inc()
			p.log.Error("job failed", "key", j.key, "error", err)
		} else {
			p.completed.Inc()
		}

		// The key leaves in-flight and its result becomes visible atomically,
		// so a caller that has polled the result can always enqueue it again.
		p.mu.Lock()
		delete(p.inFlight, j.key)
		p.doneMu.Lock()
		p.done = append(p.done, Result[K, Out]{Key: j.key, Value: value, Err: err})
		p.doneMu.Unlock()
		p.mu.Unlock()
	}
}

// next blocks until a job is available or the pool is closed.
func (p *Pool[K, In, Out]) next() (*job[K, In], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return nil, false
	}
	j := heap.Pop(&p.queue).(*job[K, In])
	delete(p.queued, j.key)
	p.inFlight[j.key] = struct{}{}
	return j, true
}

func (p *Pool[K, In, Out]) call(ctx context.Context, j *job[K, In]) (value Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero Out
			value = zero
			err = fmt.Errorf("job %v panicked: %v", j.key, r)
		}
	}()
	return p.fn(ctx, j.in)
}
