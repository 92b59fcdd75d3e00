package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a pinhole camera in the splatting convention: view space looks
// down +Z with +X right and +Y down.
type Camera struct {
	Position mgl32.Vec3
	// Rotation maps world directions into view space (rows are the camera axes).
	Rotation mgl32.Mat3
	FovX     float32
	FovY     float32
	Width    int
	Height   int
	ZNear    float32
	ZFar     float32
}

// NewLookAtCamera builds a camera at eye looking at target. fovY is in
// radians; FovX follows from the aspect ratio.
func NewLookAtCamera(eye, target, up mgl32.Vec3, fovY float32, width, height int) *Camera {
	z := target.Sub(eye).Normalize()
	x := up.Mul(-1).Cross(z).Normalize()
	y := z.Cross(x)

	tanY := math.Tan(float64(fovY) / 2)
	tanX := tanY * float64(width) / float64(height)

	return &Camera{
		Position: eye,
		Rotation: mgl32.Mat3FromRows(x, y, z),
		FovX:     float32(2 * math.Atan(tanX)),
		FovY:     fovY,
		Width:    width,
		Height:   height,
		ZNear:    0.01,
		ZFar:     100,
	}
}

// GetViewMatrix returns the world-to-view transform.
func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	t := c.Rotation.Mul3x1(c.Position).Mul(-1)
	r0, r1, r2 := c.Rotation.Rows()
	return mgl32.Mat4FromRows(
		r0.Vec4(t.X()),
		r1.Vec4(t.Y()),
		r2.Vec4(t.Z()),
		mgl32.Vec4{0, 0, 0, 1},
	)
}

// GetProjectionMatrix returns a symmetric perspective projection mapping
// view-space +Z into clip space with w = z.
func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	tanX, tanY := c.TanFov()
	n, f := c.ZNear, c.ZFar

	top := tanY * n
	right := tanX * n

	return mgl32.Mat4FromRows(
		mgl32.Vec4{n / right, 0, 0, 0},
		mgl32.Vec4{0, n / top, 0, 0},
		mgl32.Vec4{0, 0, f / (f - n), -(f * n) / (f - n)},
		mgl32.Vec4{0, 0, 1, 0},
	)
}

// GetFullProjection is projection * view.
func (c *Camera) GetFullProjection() mgl32.Mat4 {
	return c.GetProjectionMatrix().Mul4(c.GetViewMatrix())
}

// TanFov returns tan(fovx/2), tan(fovy/2).
func (c *Camera) TanFov() (float32, float32) {
	return float32(math.Tan(float64(c.FovX) / 2)), float32(math.Tan(float64(c.FovY) / 2))
}

// Focal returns the focal lengths in pixels.
func (c *Camera) Focal() (float32, float32) {
	tanX, tanY := c.TanFov()
	return FocalFromTan(c.Width, tanX), FocalFromTan(c.Height, tanY)
}

func FocalFromTan(size int, tanHalfFov float32) float32 {
	return float32(size) / (2 * tanHalfFov)
}

// ExtractFrustum extracts the 6 planes of the frustum from the view-projection matrix.
// Returns planes in order: Left, Right, Bottom, Top, Near, Far.
// The near plane uses the 0..1 depth range produced by GetProjectionMatrix.
func ExtractFrustum(vp mgl32.Mat4) [6]mgl32.Vec4 {
	r0, r1, r2, r3 := vp.Rows()
	planes := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2,
		r3.Sub(r2),
	}

	for i := range planes {
		length := planes[i].Vec3().Len()
		if length > 0 {
			planes[i] = planes[i].Mul(1.0 / length)
		}
	}
	return planes
}

// PointInFrustum reports whether p is on the inner side of every plane.
func PointInFrustum(p mgl32.Vec3, planes [6]mgl32.Vec4) bool {
	hp := p.Vec4(1)
	for _, plane := range planes {
		if plane.Dot(hp) < 0 {
			return false
		}
	}
	return true
}
