package lsd

import (
	"container/heap"

	"github.com/martelogan/simulated-link-state-routing/internal/topology"
)

// item is one entry of the Dijkstra frontier.
type item struct {
	node topology.NodeId
	dist int
}

// priorityQueue implements container/heap.Interface over a slice of items
// rather than hand-rolling a binary heap.
type priorityQueue []item

func (q priorityQueue) Len() int { return len(q) }

func (q priorityQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }

func (q priorityQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *priorityQueue) Push(v any) {
	*q = append(*q, v.(item))
}

func (q *priorityQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

func (q *priorityQueue) push(it item) {
	heap.Push(q, it)
}

func (q *priorityQueue) popMin() item {
	return heap.Pop(q).(item)
}
