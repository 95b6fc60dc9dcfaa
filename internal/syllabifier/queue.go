package syllabifier

import (
	"container/heap"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

type vertex struct {
	pos int
	typ spelling.Type
}

// vertexHeap pops the smallest position first, then the best type.
type vertexHeap []vertex

func (h vertexHeap) Len() int { return len(h) }

func (h vertexHeap) Less(i, j int) bool {
	if h[i].pos != h[j].pos {
		return h[i].pos < h[j].pos
	}
	return h[i].typ < h[j].typ
}

func (h vertexHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *vertexHeap) Push(x any) { *h = append(*h, x.(vertex)) }

func (h *vertexHeap) Pop() any {
	old := *h
	v := old[len(old)-1]
	*h = old[:len(old)-1]
	return v
}

type vertexQueue struct {
	h vertexHeap
}

func (q *vertexQueue) push(pos int, typ spelling.Type) {
	heap.Push(&q.h, vertex{pos: pos, typ: typ})
}

func (q *vertexQueue) pop() (vertex, bool) {
	if len(q.h) == 0 {
		return vertex{}, false
	}
	return heap.Pop(&q.h).(vertex), true
}
