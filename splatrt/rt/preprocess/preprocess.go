// Package preprocess projects 3D Gaussians into screen space: it culls, builds
// the 2D conic, the bounding radius, the tile footprint and the view-dependent
// color of every Gaussian independently.
package preprocess

import (
	"math"

	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/parallel"
	"github.com/gekko3d/gsplat/splatrt/rt/sh"
	"github.com/gekko3d/gsplat/splatrt/rt/tiles"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// NearPlane is the smallest view-space depth that is still rendered.
	NearPlane = 0.2
	// Dilation is added to the diagonal of every 2D covariance (px^2).
	Dilation = 0.3
	// SigmaCutoff is the number of standard deviations covered by the radius.
	SigmaCutoff = 3
	// FrustumGuard bounds the Jacobian evaluation point to 1.3x the field of view.
	FrustumGuard = 1.3

	minDiscriminant = 0.1
	maxRadius       = 1 << 30
)

type Input struct {
	Gaussians     []core.Gaussian
	ScaleModifier float32
	ViewMatrix    mgl32.Mat4
	ProjMatrix    mgl32.Mat4
	CamPos        mgl32.Vec3
	Width         int
	Height        int
	FocalX        float32
	FocalY        float32
	TanFovX       float32
	TanFovY       float32
	// SHDegree is the active degree D used for evaluation.
	SHDegree    int
	Prefiltered bool
}

// Result holds one entry per Gaussian. Culled Gaussians have Radii == 0 and
// TilesTouched == 0; their other entries are unspecified.
type Result struct {
	Grid         tiles.Grid
	Radii        []int32
	MeansXY      []mgl32.Vec2
	Depths       []float32
	Cov3D        []core.Cov3D
	Colors       []mgl32.Vec3
	ConicOpacity []mgl32.Vec4
	Clamped      [][3]bool
	TilesTouched []uint32
	Rects        []tiles.Rect
}

func newResult(p int, grid tiles.Grid) *Result {
	return &Result{
		Grid:         grid,
		Radii:        make([]int32, p),
		MeansXY:      make([]mgl32.Vec2, p),
		Depths:       make([]float32, p),
		Cov3D:        make([]core.Cov3D, p),
		Colors:       make([]mgl32.Vec3, p),
		ConicOpacity: make([]mgl32.Vec4, p),
		Clamped:      make([][3]bool, p),
		TilesTouched: make([]uint32, p),
		Rects:        make([]tiles.Rect, p),
	}
}

func (r *Result) Len() int {
	return len(r.Radii)
}

func (r *Result) Visible(i int) bool {
	return r.Radii[i] > 0
}

func (r *Result) NumVisible() int {
	n := 0
	for _, rad := range r.Radii {
		if rad > 0 {
			n++
		}
	}
	return n
}

// NumRendered is the total number of (tile, Gaussian) pairs.
func (r *Result) NumRendered() int {
	n := 0
	for _, t := range r.TilesTouched {
		n += int(t)
	}
	return n
}

// Run preprocesses every Gaussian of in on the pool. It returns nil if the
// pool has been closed.
func Run(pool *parallel.Pool, in *Input) *Result {
	grid := tiles.NewGrid(in.Width, in.Height)
	p := len(in.Gaussians)
	res := newResult(p, grid)

	ok := pool.For(p, pool.ChunkSize(p), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			in.project(i, res)
		}
	})
	if !ok {
		return nil
	}
	return res
}

func (in *Input) project(i int, res *Result) {
	g := &in.Gaussians[i]

	pView := transformPoint4x3(g.Position, in.ViewMatrix)
	if !in.Prefiltered && pView.Z() <= NearPlane {
		return
	}

	pHom := in.ProjMatrix.Mul4x1(g.Position.Vec4(1))
	pW := 1 / (pHom.W() + 0.0000001)
	pProj := pHom.Vec3().Mul(pW)

	cov3D := g.Geometry.Covariance(in.ScaleModifier)
	cov := computeCov2D(pView, in.FocalX, in.FocalY, in.TanFovX, in.TanFovY, cov3D, in.ViewMatrix)

	det := cov[0]*cov[2] - cov[1]*cov[1]
	if det == 0 {
		return
	}
	detInv := 1 / det
	conic := mgl32.Vec3{cov[2] * detInv, -cov[1] * detInv, cov[0] * detInv}

	radius, ok := screenRadius(cov, det)
	if !ok {
		return
	}

	point := mgl32.Vec2{ndc2Pix(pProj.X(), in.Width), ndc2Pix(pProj.Y(), in.Height)}
	if !finite(point.X()) || !finite(point.Y()) {
		return
	}

	rect := res.Grid.BoundingRect(point, radius)
	if rect.Empty() {
		return
	}
	touched := res.Grid.ForEachTouched(rect, point, radius, nil)
	if touched == 0 {
		return
	}

	switch a := g.Appearance.(type) {
	case core.PrecomputedColor:
		res.Colors[i] = a.RGB
	case core.SHCoefficients:
		res.Colors[i], res.Clamped[i] = sh.Eval(in.SHDegree, a.Coeffs, sh.ViewDir(in.CamPos, g.Position))
	}

	res.Depths[i] = pView.Z()
	res.Radii[i] = int32(radius)
	res.MeansXY[i] = point
	res.Cov3D[i] = cov3D
	res.ConicOpacity[i] = conic.Vec4(g.Opacity)
	res.Rects[i] = rect
	res.TilesTouched[i] = uint32(touched)
}

// screenRadius returns ceil(3 sigma) of the larger eigenvalue of the 2D
// covariance (a, b, c). Non-finite or non-positive radii report false.
func screenRadius(cov [3]float32, det float32) (int, bool) {
	mid := 0.5 * float64(cov[0]+cov[2])
	disc := math.Sqrt(math.Max(minDiscriminant, mid*mid-float64(det)))
	lambda1 := mid + disc
	lambda2 := mid - disc
	r := math.Ceil(SigmaCutoff * math.Sqrt(math.Max(lambda1, lambda2)))
	if math.IsNaN(r) || r <= 0 {
		return 0, false
	}
	return int(math.Min(r, maxRadius)), true
}

func transformPoint4x3(p mgl32.Vec3, m mgl32.Mat4) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

func ndc2Pix(v float32, size int) float32 {
	return ((v+1)*float32(size) - 1) * 0.5
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// MarkVisible reports, per position, whether it lies beyond the near plane.
// With prefiltered set every position is reported visible. ok is false if
// the pool has been closed.
func MarkVisible(pool *parallel.Pool, positions []mgl32.Vec3, view mgl32.Mat4, prefiltered bool) (present []bool, ok bool) {
	present = make([]bool, len(positions))
	ok = pool.For(len(positions), pool.ChunkSize(len(positions)), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			present[i] = prefiltered || transformPoint4x3(positions[i], view).Z() > NearPlane
		}
	})
	if !ok {
		return nil, false
	}
	return present, true
}

// MarkInFrustum reports, per position, whether it lies inside all six planes
// of the frustum of the full projection fullProj.
func MarkInFrustum(pool *parallel.Pool, positions []mgl32.Vec3, fullProj mgl32.Mat4) (inside []bool, ok bool) {
	planes := core.ExtractFrustum(fullProj)
	inside = make([]bool, len(positions))
	ok = pool.For(len(positions), pool.ChunkSize(len(positions)), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			inside[i] = core.PointInFrustum(positions[i], planes)
		}
	})
	if !ok {
		return nil, false
	}
	return inside, true
}
