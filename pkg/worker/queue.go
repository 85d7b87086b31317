package worker

import "container/heap"

type job[K comparable, In any] struct {
	key      K
	in       In
	priority int64
	seq      uint64
	index    int
}

// jobQueue is a min-heap ordered by priority, then by insertion sequence.
type jobQueue[K comparable, In any] []*job[K, In]

var _ heap.Interface = (*jobQueue[int, int])(nil)

func (q jobQueue[K, In]) Len() int { return len(q) }

func (q jobQueue[K, In]) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q jobQueue[K, In]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue[K, In]) Push(x any) {
	j := x.(*job[K, In])
	j.index = len(*q)
	*q = append(*q, j)
}

func (q *jobQueue[K, In]) Pop() any {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*q = old[:n-1]
	return j
}
