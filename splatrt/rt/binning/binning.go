// Package binning turns per-Gaussian tile footprints into per-tile,
// depth-sorted index ranges over one flat point list.
package binning

import (
	"math"
	"slices"

	"github.com/gekko3d/gsplat/splatrt/rt/parallel"
	"github.com/gekko3d/gsplat/splatrt/rt/preprocess"
	"github.com/gekko3d/gsplat/splatrt/rt/tiles"
)

// Pair is one (tile, Gaussian) instance. Key packs the tile id in the high
// 32 bits and the order-preserving depth bits in the low 32.
type Pair struct {
	Key   uint64
	Value uint32
}

// Bins is the read-only lookup consumed by the compositor: Ranges[tile]
// indexes PointList, which is ordered by (tile, depth, index).
type Bins struct {
	Ranges    []tiles.Range
	PointList []uint32
}

func (b *Bins) Tile(id int) []uint32 {
	r := b.Ranges[id]
	return b.PointList[r.Start:r.End]
}

// Build runs scan, duplication, sort and range identification. It returns
// nil if the pool has been closed.
func Build(pool *parallel.Pool, pre *preprocess.Result) *Bins {
	offsets, total := ExclusiveScan(pre.TilesTouched)

	pairs := make([]Pair, total)
	if !DuplicateWithKeys(pool, pre, offsets, pairs) {
		return nil
	}
	SortPairs(pairs)

	bins := &Bins{
		Ranges:    make([]tiles.Range, pre.Grid.NumTiles()),
		PointList: make([]uint32, len(pairs)),
	}
	for i, p := range pairs {
		bins.PointList[i] = p.Value
	}
	IdentifyTileRanges(pairs, bins.Ranges)
	return bins
}

// ExclusiveScan returns the exclusive prefix sum of counts and their total.
func ExclusiveScan(counts []uint32) ([]uint32, int) {
	out := make([]uint32, len(counts))
	var acc uint32
	for i, v := range counts {
		out[i] = acc
		acc += v
	}
	return out, int(acc)
}

// DuplicateWithKeys writes, for every visible Gaussian, one pair per touched
// tile starting at offsets[i]. Each Gaussian owns its own output span.
func DuplicateWithKeys(pool *parallel.Pool, pre *preprocess.Result, offsets []uint32, pairs []Pair) bool {
	n := pre.Len()
	return pool.For(n, pool.ChunkSize(n), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if !pre.Visible(i) {
				continue
			}
			off := offsets[i]
			depth := uint64(DepthKey(pre.Depths[i]))
			pre.Grid.ForEachTouched(pre.Rects[i], pre.MeansXY[i], int(pre.Radii[i]), func(tile int) {
				pairs[off] = Pair{Key: uint64(tile)<<32 | depth, Value: uint32(i)}
				off++
			})
		}
	})
}

// DepthKey maps a float32 to a uint32 with the same ordering, including
// negative depths that only occur for prefiltered input.
func DepthKey(depth float32) uint32 {
	bits := math.Float32bits(depth)
	if bits&0x80000000 != 0 {
		return ^bits
	}
	return bits | 0x80000000
}

// SortPairs orders pairs by key, breaking ties by Gaussian index.
func SortPairs(pairs []Pair) {
	slices.SortFunc(pairs, func(a, b Pair) int {
		if a.Key != b.Key {
			if a.Key < b.Key {
				return -1
			}
			return 1
		}
		return int(a.Value) - int(b.Value)
	})
}

// IdentifyTileRanges fills ranges from key-sorted pairs. Tiles without
// pairs keep an empty range.
func IdentifyTileRanges(pairs []Pair, ranges []tiles.Range) {
	clear(ranges)
	for i, p := range pairs {
		tile := uint32(p.Key >> 32)
		if i == 0 || uint32(pairs[i-1].Key>>32) != tile {
			ranges[tile].Start = uint32(i)
		}
		if i == len(pairs)-1 || uint32(pairs[i+1].Key>>32) != tile {
			ranges[tile].End = uint32(i + 1)
		}
	}
}
