// Package composite blends depth-sorted screen-space Gaussians into pixels,
// one tile at a time.
//
// Each tile is handled by one pool task that plays the role of a pixel
// group: per-pixel state lives in arrays indexed by the pixel's slot in the
// tile, and the tile's Gaussian list is staged in batches of
// tiles.BlockSize entries shared by all pixels. A batch is only loaded while
// at least one pixel of the tile is still accumulating.
package composite

import (
	"math"
	"sync"

	"github.com/gekko3d/gsplat/splatrt/rt/parallel"
	"github.com/gekko3d/gsplat/splatrt/rt/tiles"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// AlphaMax caps the opacity of a single Gaussian at a pixel.
	AlphaMax = 0.99
	// AlphaMin is the smallest alpha that still blends.
	AlphaMin = 1.0 / 255.0
	// TransmittanceMin ends accumulation for a pixel.
	TransmittanceMin = 0.0001
)

// Input is the read-only data of one compositing pass. Ranges and PointList
// come from the binning stage; the per-Gaussian slices are indexed by
// Gaussian id.
type Input struct {
	Grid         tiles.Grid
	Ranges       []tiles.Range
	PointList    []uint32
	MeansXY      []mgl32.Vec2
	Features     []mgl32.Vec3
	ConicOpacity []mgl32.Vec4
	Background   mgl32.Vec3
}

// Output is written once per pixel. Color is planar: channel c of pixel p is
// at Color[c*W*H + p].
type Output struct {
	Color    []float32
	FinalT   []float32
	NContrib []uint32
	// LastContributor is the 1-based position, within the tile list, of the
	// last Gaussian that blended into the pixel.
	LastContributor []uint32
}

func NewOutput(width, height int) *Output {
	n := width * height
	return &Output{
		Color:           make([]float32, 3*n),
		FinalT:          make([]float32, n),
		NContrib:        make([]uint32, n),
		LastContributor: make([]uint32, n),
	}
}

// Accumulator receives per-Gaussian contribution statistics. Add may be
// called concurrently from several tiles.
type Accumulator interface {
	Add(i int, count int32, score float32)
}

// Render composites every tile.
func Render(pool *parallel.Pool, in *Input, out *Output) bool {
	return run(pool, in, out, nil)
}

// CountGaussians composites every tile exactly like Render and additionally
// reports, for each Gaussian, the number of pixels it blended into and the
// sum of its blend weights alpha*T over those pixels.
func CountGaussians(pool *parallel.Pool, in *Input, out *Output, acc Accumulator) bool {
	return run(pool, in, out, acc)
}

func run(pool *parallel.Pool, in *Input, out *Output, acc Accumulator) bool {
	work := make([]func(), in.Grid.NumTiles())
	for tile := range work {
		work[tile] = func() { renderTile(in, out, tile, acc) }
	}
	return pool.ExecuteAll(work)
}

type tileState struct {
	ids   [tiles.BlockSize]uint32
	xy    [tiles.BlockSize]mgl32.Vec2
	conic [tiles.BlockSize]mgl32.Vec4

	px, py      [tiles.BlockSize]int
	t           [tiles.BlockSize]float32
	c           [tiles.BlockSize]mgl32.Vec3
	contributor [tiles.BlockSize]uint32
	last        [tiles.BlockSize]uint32
	contributed [tiles.BlockSize]uint32
	done        [tiles.BlockSize]bool
	numDone     int

	hits  [tiles.BlockSize]int32
	score [tiles.BlockSize]float32
}

var statePool = sync.Pool{
	New: func() any { return new(tileState) },
}

func renderTile(in *Input, out *Output, tile int, acc Accumulator) {
	s := statePool.Get().(*tileState)
	defer statePool.Put(s)

	w, h := in.Grid.Width, in.Grid.Height
	tx, ty := in.Grid.TileCoords(tile)
	minX, minY := tx*tiles.BlockX, ty*tiles.BlockY

	s.numDone = 0
	for k := range tiles.BlockSize {
		s.px[k] = minX + k%tiles.BlockX
		s.py[k] = minY + k/tiles.BlockX
		s.t[k] = 1
		s.c[k] = mgl32.Vec3{}
		s.contributor[k] = 0
		s.last[k] = 0
		s.contributed[k] = 0
		s.done[k] = s.px[k] >= w || s.py[k] >= h
		if s.done[k] {
			s.numDone++
		}
	}

	r := in.Ranges[tile]
	for start := r.Start; start < r.End; start += tiles.BlockSize {
		if s.numDone == tiles.BlockSize {
			break
		}

		batch := min(tiles.BlockSize, int(r.End-start))
		for j := 0; j < batch; j++ {
			id := in.PointList[int(start)+j]
			s.ids[j] = id
			s.xy[j] = in.MeansXY[id]
			s.conic[j] = in.ConicOpacity[id]
		}
		if acc != nil {
			clear(s.hits[:batch])
			clear(s.score[:batch])
		}

		for k := range tiles.BlockSize {
			if s.done[k] {
				continue
			}
			s.blendPixel(k, batch, in.Features, acc != nil)
		}

		if acc != nil {
			for j := 0; j < batch; j++ {
				if s.hits[j] > 0 {
					acc.Add(int(s.ids[j]), s.hits[j], s.score[j])
				}
			}
		}
	}

	plane := w * h
	for k := range tiles.BlockSize {
		if s.px[k] >= w || s.py[k] >= h {
			continue
		}
		pix := s.py[k]*w + s.px[k]
		t := s.t[k]
		out.FinalT[pix] = t
		out.NContrib[pix] = s.contributed[k]
		out.LastContributor[pix] = s.last[k]
		for ch := 0; ch < 3; ch++ {
			out.Color[ch*plane+pix] = s.c[k][ch] + t*in.Background[ch]
		}
	}
}

// blendPixel walks the staged batch front to back for pixel slot k.
func (s *tileState) blendPixel(k, batch int, features []mgl32.Vec3, track bool) {
	pixX, pixY := float32(s.px[k]), float32(s.py[k])
	t := s.t[k]
	c := s.c[k]

	for j := 0; j < batch; j++ {
		s.contributor[k]++

		d := mgl32.Vec2{s.xy[j].X() - pixX, s.xy[j].Y() - pixY}
		con := s.conic[j]
		power := -0.5*(con.X()*d.X()*d.X()+con.Z()*d.Y()*d.Y()) - con.Y()*d.X()*d.Y()
		if power > 0 {
			continue
		}

		alpha := min(AlphaMax, con.W()*exp32(power))
		if alpha < AlphaMin {
			continue
		}
		testT := t * (1 - alpha)
		if testT < TransmittanceMin {
			s.done[k] = true
			s.numDone++
			break
		}

		weight := alpha * t
		c = c.Add(features[s.ids[j]].Mul(weight))
		if track {
			s.hits[j]++
			s.score[j] += weight
		}
		t = testT
		s.last[k] = s.contributor[k]
		s.contributed[k]++
	}

	s.t[k] = t
	s.c[k] = c
}

func exp32(x float32) float32 {
	return float32(math.Exp(float64(x)))
}
