package ranking

import (
	"container/heap"
	"sort"
)

// Scored is an item id with its score.
type Scored struct {
	ID    int
	Score float32
}

// TopK keeps the K highest-scoring items seen so far.
type TopK struct {
	k     int
	items minHeap
}

// NewTopK returns a TopK with capacity k. k <= 0 keeps nothing.
func NewTopK(k int) *TopK {
	if k < 0 {
		k = 0
	}
	return &TopK{k: k}
}

// Push offers an item, evicting the current minimum once more than K are held.
func (t *TopK) Push(id int, score float32) {
	if t.k == 0 {
		return
	}
	if len(t.items) == t.k && !t.items.less(t.items[0], Scored{ID: id, Score: score}) {
		return
	}
	heap.Push(&t.items, Scored{ID: id, Score: score})
	if len(t.items) > t.k {
		heap.Pop(&t.items)
	}
}

// Len returns the number of held items.
func (t *TopK) Len() int { return len(t.items) }

// Sorted returns the held items by descending score, ties by ascending id.
func (t *TopK) Sorted() []Scored {
	out := make([]Scored, len(t.items))
	copy(out, t.items)
	sort.Slice(out, func(i, j int) bool { return t.items.less(out[j], out[i]) })
	return out
}

// Top returns the k best entries of scores, best first.
func Top(scores []float32, k int) []Scored {
	t := NewTopK(k)
	t.items = make(minHeap, 0, min(t.k, len(scores))+1)
	for id, s := range scores {
		t.Push(id, s)
	}
	return t.Sorted()
}

// minHeap orders the worst item first: lower score, or equal score and higher id.
type minHeap []Scored

func (h minHeap) less(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ID > b.ID
}

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h.less(h[i], h[j]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(Scored)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
