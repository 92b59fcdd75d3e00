package importance

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var ErrPruneRatio = errors.New("prune ratio must be within [0, 1]")

// Rank returns Gaussian indices from least to most important: ascending
// score, then ascending count, then index.
func Rank(b *Buffer) []int {
	counts := b.Counts()
	scores := b.Scores()

	order := make([]int, len(counts))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(x, y int) int {
		if c := cmp.Compare(scores[x], scores[y]); c != 0 {
			return c
		}
		if c := cmp.Compare(counts[x], counts[y]); c != 0 {
			return c
		}
		return cmp.Compare(x, y)
	})
	return order
}

// PruneMask returns a keep mask that drops the floor(ratio*N) least
// important Gaussians.
func PruneMask(b *Buffer, ratio float64) ([]bool, error) {
	if !(ratio >= 0 && ratio <= 1) {
		return nil, fmt.Errorf("prune %v: %w", ratio, ErrPruneRatio)
	}
	keep := make([]bool, b.Len())
	for i := range keep {
		keep[i] = true
	}
	drop := int(ratio * float64(b.Len()))
	for _, idx := range Rank(b)[:drop] {
		keep[idx] = false
	}
	return keep, nil
}
