package preprocess

import (
	"math"
	"testing"

	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/parallel"
	"github.com/gekko3d/gsplat/splatrt/rt/sh"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInput(gaussians ...core.Gaussian) *Input {
	cam := core.NewLookAtCamera(
		mgl32.Vec3{0, 0, 0},
		mgl32.Vec3{0, 0, 1},
		mgl32.Vec3{0, -1, 0},
		mgl32.DegToRad(90),
		64, 64,
	)
	tanX, tanY := cam.TanFov()
	fx, fy := cam.Focal()
	return &Input{
		Gaussians:     gaussians,
		ScaleModifier: 1,
		ViewMatrix:    cam.GetViewMatrix(),
		ProjMatrix:    cam.GetFullProjection(),
		CamPos:        cam.Position,
		Width:         cam.Width,
		Height:        cam.Height,
		FocalX:        fx,
		FocalY:        fy,
		TanFovX:       tanX,
		TanFovY:       tanY,
	}
}

func run(t *testing.T, in *Input) *Result {
	t.Helper()
	pool := parallel.NewPool(2)
	t.Cleanup(pool.Close)
	res := Run(pool, in)
	require.NotNil(t, res)
	return res
}

func TestProjectIsotropicCenter(t *testing.T) {
	in := newTestInput(core.NewColoredGaussian(mgl32.Vec3{0, 0, 5}, 0.1, 0.8, mgl32.Vec3{1, 0, 0}))
	res := run(t, in)

	require.True(t, res.Visible(0))
	assert.InDelta(t, 31.5, res.MeansXY[0].X(), 1e-3)
	assert.InDelta(t, 31.5, res.MeansXY[0].Y(), 1e-3)
	assert.InDelta(t, 5, res.Depths[0], 1e-5)

	// (f/z * sigma)^2 + dilation with f = 32.
	variance := math.Pow(32.0/5*0.1, 2) + Dilation
	assert.InDelta(t, 1/variance, res.ConicOpacity[0].X(), 1e-3)
	assert.InDelta(t, 0, res.ConicOpacity[0].Y(), 1e-5)
	assert.InDelta(t, 1/variance, res.ConicOpacity[0].Z(), 1e-3)
	assert.InDelta(t, 0.8, res.ConicOpacity[0].W(), 1e-6)

	assert.Equal(t, int32(4), res.Radii[0])
	assert.Equal(t, [3]bool{}, res.Clamped[0])
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, res.Colors[0])

	// Centered on the corner of four tiles.
	assert.Equal(t, uint32(4), res.TilesTouched[0])
	assert.Equal(t, 4, res.NumRendered())
	assert.Equal(t, 1, res.NumVisible())
}

func TestCulling(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl32.Vec3
	}{
		{"Behind camera", mgl32.Vec3{0, 0, -5}},
		{"Inside near plane", mgl32.Vec3{0, 0, 0.1}},
		{"Outside (Left)", mgl32.Vec3{-50, 0, 5}},
		{"Outside (Right)", mgl32.Vec3{50, 0, 5}},
		{"Outside (Bottom)", mgl32.Vec3{0, 50, 5}},
	}

	for _, tc := range tests {
		res := run(t, newTestInput(core.NewColoredGaussian(tc.pos, 0.05, 1, mgl32.Vec3{1, 1, 1})))
		if res.Visible(0) || res.TilesTouched[0] != 0 {
			t.Errorf("Test %s failed: radius %d, tiles %d", tc.name, res.Radii[0], res.TilesTouched[0])
		}
	}
}

func TestPrefilteredSkipsNearPlane(t *testing.T) {
	in := newTestInput(core.NewColoredGaussian(mgl32.Vec3{0, 0, 0.1}, 0.001, 1, mgl32.Vec3{1, 1, 1}))
	assert.False(t, run(t, in).Visible(0))

	in.Prefiltered = true
	res := run(t, in)
	assert.True(t, res.Visible(0))
	assert.InDelta(t, 0.1, res.Depths[0], 1e-6)
}

func TestScaleModifierGrowsRadius(t *testing.T) {
	in := newTestInput(core.NewColoredGaussian(mgl32.Vec3{0, 0, 5}, 0.3, 1, mgl32.Vec3{1, 1, 1}))
	small := run(t, in).Radii[0]

	in.ScaleModifier = 2
	large := run(t, in).Radii[0]
	assert.Greater(t, large, small)
}

func TestPrecomputedCovarianceMatchesDerived(t *testing.T) {
	derived := core.NewGaussian(
		mgl32.Vec3{0.3, -0.2, 4},
		mgl32.Vec3{0.2, 0.05, 0.1},
		mgl32.QuatRotate(0.7, mgl32.Vec3{1, 1, 0}.Normalize()),
		0.6,
		[]mgl32.Vec3{sh.RGBToDC(mgl32.Vec3{0.1, 0.2, 0.3})},
	)
	pre := derived
	pre.Geometry = core.PrecomputedCovariance{Cov: derived.Geometry.Covariance(1)}
	pre.Appearance = core.PrecomputedColor{RGB: mgl32.Vec3{0.1, 0.2, 0.3}}

	res := run(t, newTestInput(derived, pre))
	require.True(t, res.Visible(0))
	assert.Equal(t, res.Radii[0], res.Radii[1])
	assert.True(t, res.ConicOpacity[0].ApproxEqualThreshold(res.ConicOpacity[1], 1e-4))
	assert.True(t, res.Colors[0].ApproxEqualThreshold(res.Colors[1], 1e-5))
}

func TestSHColorAndClamp(t *testing.T) {
	g := core.NewGaussian(
		mgl32.Vec3{0, 0, 5},
		mgl32.Vec3{0.1, 0.1, 0.1},
		mgl32.QuatIdent(),
		1,
		[]mgl32.Vec3{sh.RGBToDC(mgl32.Vec3{0.25, -0.5, 0.75})},
	)
	res := run(t, newTestInput(g))

	require.True(t, res.Visible(0))
	assert.Equal(t, [3]bool{false, true, false}, res.Clamped[0])
	assert.InDeltaSlice(t, []float32{0.25, 0, 0.75}, res.Colors[0][:], 1e-5)
}

func TestNaNViewIsCulled(t *testing.T) {
	in := newTestInput(core.NewColoredGaussian(mgl32.Vec3{0, 0, 5}, 0.1, 1, mgl32.Vec3{1, 1, 1}))
	nan := float32(math.NaN())
	in.ProjMatrix = mgl32.Mat4{nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan, nan}

	res := run(t, in)
	assert.False(t, res.Visible(0))
	assert.Equal(t, 0, res.NumRendered())
}

func TestFootprintSoundness(t *testing.T) {
	scene := core.CreateRandomScene(3, 500, 2, mgl32.Vec3{0, 0, 4}, 3)
	in := newTestInput(scene.Gaussians...)
	in.SHDegree = 2
	res := run(t, in)
	require.Greater(t, res.NumVisible(), 0)

	for i := 0; i < res.Len(); i++ {
		if !res.Visible(i) {
			assert.Zero(t, res.TilesTouched[i])
			continue
		}
		n := 0
		res.Grid.ForEachTouched(res.Rects[i], res.MeansXY[i], int(res.Radii[i]), func(id int) {
			tx, ty := res.Grid.TileCoords(id)
			x0, y0, x1, y1 := res.Grid.PixelBounds(tx, ty)
			assert.LessOrEqual(t, distToBox(res.MeansXY[i], x0, y0, x1-1, y1-1), float64(res.Radii[i])+1e-3)
			n++
		})
		assert.Equal(t, int(res.TilesTouched[i]), n)
	}
}

func distToBox(p mgl32.Vec2, x0, y0, x1, y1 int) float64 {
	dx := math.Max(math.Max(float64(x0)-float64(p.X()), 0), float64(p.X())-float64(x1))
	dy := math.Max(math.Max(float64(y0)-float64(p.Y()), 0), float64(p.Y())-float64(y1))
	return math.Hypot(dx, dy)
}

func TestMarkVisible(t *testing.T) {
	pool := parallel.NewPool(2)
	defer pool.Close()

	in := newTestInput()
	positions := []mgl32.Vec3{{0, 0, 5}, {0, 0, -1}, {0, 0, 0.19}, {100, 0, 1}}

	present, ok := MarkVisible(pool, positions, in.ViewMatrix, false)
	require.True(t, ok)
	assert.Equal(t, []bool{true, false, false, true}, present)

	present, ok = MarkVisible(pool, positions, in.ViewMatrix, true)
	require.True(t, ok)
	assert.Equal(t, []bool{true, true, true, true}, present)

	pool.Close()
	present, ok = MarkVisible(pool, positions, in.ViewMatrix, false)
	assert.False(t, ok)
	assert.Nil(t, present)
}

func TestMarkInFrustum(t *testing.T) {
	pool := parallel.NewPool(2)
	defer pool.Close()

	in := newTestInput()
	tests := []struct {
		name     string
		point    mgl32.Vec3
		expected bool
	}{
		{"Inside (center)", mgl32.Vec3{0, 0, 5}, true},
		{"Inside (near edge)", mgl32.Vec3{4, 4, 5}, true},
		{"Outside (Left)", mgl32.Vec3{-50, 0, 5}, false},
		{"Outside (Bottom)", mgl32.Vec3{0, 50, 5}, false},
		{"Outside (Behind)", mgl32.Vec3{0, 0, -5}, false},
		{"Outside (Far)", mgl32.Vec3{0, 0, 500}, false},
	}

	positions := make([]mgl32.Vec3, len(tests))
	for i, tc := range tests {
		positions[i] = tc.point
	}
	inside, ok := MarkInFrustum(pool, positions, in.ProjMatrix)
	require.True(t, ok)
	for i, tc := range tests {
		if inside[i] != tc.expected {
			t.Errorf("Test %s failed: expected %v, got %v", tc.name, tc.expected, inside[i])
		}
	}
}
