// Package topk picks the k best rows of a score vector without sorting the
// whole vector.
package topk

import (
	"container/heap"
	"errors"
	"math"
)

var ErrInvalidK = errors.New("k must be positive")

// Select returns the indexes of the k highest scores, best first. Equal
// scores keep ascending index order and NaN ranks below every number. k is
// clamped to len(scores).
func Select(scores []float64, k int) ([]int, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if k > len(scores) {
		k = len(scores)
	}
	if k == 0 {
		return []int{}, nil
	}
	h := make(candidateHeap, 0, k)
	for i, s := range scores {
		if math.IsNaN(s) {
			s = math.Inf(-1)
		}
		c := candidate{index: i, score: s}
		if h.Len() < k {
			heap.Push(&h, c)
			continue
		}
		if worse(h[0], c) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	out := make([]int, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(candidate).index
	}
	return out, nil
}

// SelectBatch scores each query and selects its top k.
func SelectBatch(queries []string, k int, score func(string) []float64) ([][]int, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	out := make([][]int, len(queries))
	for i, q := range queries {
		idx, err := Select(score(q), k)
		if err != nil {
			return nil, err
		}
		out[i] = idx
	}
	return out, nil
}

type candidate struct {
	index int
	score float64
}

// worse reports whether a ranks below b.
func worse(a, b candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.index > b.index
}

// candidateHeap is a min-heap on rank: the root is the weakest kept row.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
