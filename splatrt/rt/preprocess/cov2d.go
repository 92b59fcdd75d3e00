package preprocess

import (
	"github.com/gekko3d/gsplat/splatrt/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// computeCov2D projects a world covariance with the local affine
// approximation of the perspective projection at the view-space mean t
// (EWA splatting): J W Sigma W^T J^T, dilated by Dilation on the diagonal.
// Returns the upper triangle (a, b, c) of the 2x2 result.
func computeCov2D(t mgl32.Vec3, focalX, focalY, tanFovX, tanFovY float32, cov3D core.Cov3D, view mgl32.Mat4) [3]float32 {
	limX := FrustumGuard * tanFovX
	limY := FrustumGuard * tanFovY
	tz := t.Z()
	tx := clamp(t.X()/tz, -limX, limX) * tz
	ty := clamp(t.Y()/tz, -limY, limY) * tz

	j := mgl32.Mat3FromRows(
		mgl32.Vec3{focalX / tz, 0, -(focalX * tx) / (tz * tz)},
		mgl32.Vec3{0, focalY / tz, -(focalY * ty) / (tz * tz)},
		mgl32.Vec3{},
	)
	w := view.Mat3()
	m := j.Mul3(w)

	cov := m.Mul3(cov3D.Mat3()).Mul3(m.Transpose())
	return [3]float32{
		cov.At(0, 0) + Dilation,
		cov.At(0, 1),
		cov.At(1, 1) + Dilation,
	}
}

func clamp(v, lo, hi float32) float32 {
	return min(hi, max(lo, v))
}
