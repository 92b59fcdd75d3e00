// Package sh evaluates real spherical-harmonics color up to degree 3.
package sh

import (
	"github.com/go-gl/mathgl/mgl32"
)

const (
	c0 = 0.28209479177387814
	c1 = 0.4886025119029199
)

var c2 = [5]float32{
	1.0925484305920792,
	-1.0925484305920792,
	0.31539156525252005,
	-1.0925484305920792,
	0.5462742152960396,
}

var c3 = [7]float32{
	-0.5900435899266435,
	2.890611442640554,
	-0.4570457994644658,
	0.3731763325901154,
	-0.4570457994644658,
	1.445305721320277,
	-0.5900435899266435,
}

// NumCoeffs returns (deg+1)^2.
func NumCoeffs(deg int) int {
	return (deg + 1) * (deg + 1)
}

// Eval returns the RGB color seen along the unit direction dir using the
// first NumCoeffs(deg) coefficients, offset by 0.5. Negative channels are
// clamped to zero and reported in clamped.
func Eval(deg int, coeffs []mgl32.Vec3, dir mgl32.Vec3) (rgb mgl32.Vec3, clamped [3]bool) {
	result := coeffs[0].Mul(c0)

	if deg > 0 {
		x, y, z := dir.X(), dir.Y(), dir.Z()
		result = result.
			Sub(coeffs[1].Mul(c1 * y)).
			Add(coeffs[2].Mul(c1 * z)).
			Sub(coeffs[3].Mul(c1 * x))

		if deg > 1 {
			xx, yy, zz := x*x, y*y, z*z
			xy, yz, xz := x*y, y*z, x*z
			result = result.
				Add(coeffs[4].Mul(c2[0] * xy)).
				Add(coeffs[5].Mul(c2[1] * yz)).
				Add(coeffs[6].Mul(c2[2] * (2*zz - xx - yy))).
				Add(coeffs[7].Mul(c2[3] * xz)).
				Add(coeffs[8].Mul(c2[4] * (xx - yy)))

			if deg > 2 {
				result = result.
					Add(coeffs[9].Mul(c3[0] * y * (3*xx - yy))).
					Add(coeffs[10].Mul(c3[1] * xy * z)).
					Add(coeffs[11].Mul(c3[2] * y * (4*zz - xx - yy))).
					Add(coeffs[12].Mul(c3[3] * z * (2*zz - 3*xx - 3*yy))).
					Add(coeffs[13].Mul(c3[4] * x * (4*zz - xx - yy))).
					Add(coeffs[14].Mul(c3[5] * z * (xx - yy))).
					Add(coeffs[15].Mul(c3[6] * x * (xx - 3*yy)))
			}
		}
	}

	result = result.Add(mgl32.Vec3{0.5, 0.5, 0.5})
	for ch := 0; ch < 3; ch++ {
		if result[ch] < 0 {
			clamped[ch] = true
			result[ch] = 0
		}
	}
	return result, clamped
}

// ViewDir is the normalized direction from the camera to a point.
func ViewDir(camPos, point mgl32.Vec3) mgl32.Vec3 {
	return point.Sub(camPos).Normalize()
}

// RGBToDC returns the degree-0 coefficient that evaluates to rgb.
func RGBToDC(rgb mgl32.Vec3) mgl32.Vec3 {
	return rgb.Sub(mgl32.Vec3{0.5, 0.5, 0.5}).Mul(1 / c0)
}
