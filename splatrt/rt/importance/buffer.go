// Package importance accumulates per-Gaussian contribution statistics
// across renders and turns them into pruning decisions.
package importance

import (
	"math"
	"sync/atomic"
)

// Buffer holds one pixel count and one score per Gaussian. It is owned by
// the caller and only ever grows: the rasterizer adds to it and never clears
// it, so statistics from several views accumulate. Counts are 64-bit so that
// many full-frame views can be summed.
type Buffer struct {
	counts []atomic.Int64
	scores []atomic.Uint32
}

func NewBuffer(n int) *Buffer {
	return &Buffer{
		counts: make([]atomic.Int64, n),
		scores: make([]atomic.Uint32, n),
	}
}

func (b *Buffer) Len() int {
	return len(b.counts)
}

// Add is safe for concurrent use.
func (b *Buffer) Add(i int, count int32, score float32) {
	b.counts[i].Add(int64(count))
	s := &b.scores[i]
	for {
		old := s.Load()
		next := math.Float32bits(math.Float32frombits(old) + score)
		if s.CompareAndSwap(old, next) {
			return
		}
	}
}

func (b *Buffer) Count(i int) int64 {
	return b.counts[i].Load()
}

func (b *Buffer) Score(i int) float32 {
	return math.Float32frombits(b.scores[i].Load())
}

// Counts returns a copy of all counts.
func (b *Buffer) Counts() []int64 {
	out := make([]int64, len(b.counts))
	for i := range b.counts {
		out[i] = b.counts[i].Load()
	}
	return out
}

// Scores returns a copy of all scores.
func (b *Buffer) Scores() []float32 {
	out := make([]float32, len(b.scores))
	for i := range b.scores {
		out[i] = math.Float32frombits(b.scores[i].Load())
	}
	return out
}

func (b *Buffer) Reset() {
	for i := range b.counts {
		b.counts[i].Store(0)
		b.scores[i].Store(0)
	}
}
