package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Cov3D is a symmetric 3x3 covariance stored as (xx, xy, xz, yy, yz, zz).
type Cov3D [6]float32

func (c Cov3D) Mat3() mgl32.Mat3 {
	return mgl32.Mat3FromRows(
		mgl32.Vec3{c[0], c[1], c[2]},
		mgl32.Vec3{c[1], c[3], c[4]},
		mgl32.Vec3{c[2], c[4], c[5]},
	)
}

func Cov3DFromMat3(m mgl32.Mat3) Cov3D {
	return Cov3D{m.At(0, 0), m.At(0, 1), m.At(0, 2), m.At(1, 1), m.At(1, 2), m.At(2, 2)}
}

// Geometry is the shape of a Gaussian: either ScaleRotation or
// PrecomputedCovariance.
type Geometry interface {
	// Covariance returns the world-space covariance. The modifier scales the
	// standard deviations of derived covariances only.
	Covariance(modifier float32) Cov3D
	isGeometry()
}

type ScaleRotation struct {
	Scale    mgl32.Vec3
	Rotation mgl32.Quat
}

func (ScaleRotation) isGeometry() {}

// Covariance computes R S S^T R^T with S = diag(modifier * Scale).
func (g ScaleRotation) Covariance(modifier float32) Cov3D {
	s := g.Scale.Mul(modifier)
	r := g.Rotation.Normalize().Mat4().Mat3()
	m := r.Mul3(mgl32.Diag3(s))
	return Cov3DFromMat3(m.Mul3(m.Transpose()))
}

type PrecomputedCovariance struct {
	Cov Cov3D
}

func (PrecomputedCovariance) isGeometry() {}

func (g PrecomputedCovariance) Covariance(float32) Cov3D {
	return g.Cov
}

// Appearance is the color model of a Gaussian: either SHCoefficients or
// PrecomputedColor.
type Appearance interface {
	isAppearance()
}

// SHCoefficients holds one RGB coefficient per basis function, (D+1)^2 of them.
type SHCoefficients struct {
	Coeffs []mgl32.Vec3
}

func (SHCoefficients) isAppearance() {}

type PrecomputedColor struct {
	RGB mgl32.Vec3
}

func (PrecomputedColor) isAppearance() {}

type Gaussian struct {
	Position   mgl32.Vec3
	Opacity    float32
	Geometry   Geometry
	Appearance Appearance
}

// NewGaussian returns a Gaussian with scale/rotation geometry and SH color.
func NewGaussian(pos, scale mgl32.Vec3, rot mgl32.Quat, opacity float32, sh []mgl32.Vec3) Gaussian {
	return Gaussian{
		Position:   pos,
		Opacity:    opacity,
		Geometry:   ScaleRotation{Scale: scale, Rotation: rot},
		Appearance: SHCoefficients{Coeffs: sh},
	}
}

// NewColoredGaussian returns an isotropic Gaussian with a fixed RGB color.
func NewColoredGaussian(pos mgl32.Vec3, sigma, opacity float32, rgb mgl32.Vec3) Gaussian {
	return Gaussian{
		Position:   pos,
		Opacity:    opacity,
		Geometry:   ScaleRotation{Scale: mgl32.Vec3{sigma, sigma, sigma}, Rotation: mgl32.QuatIdent()},
		Appearance: PrecomputedColor{RGB: rgb},
	}
}
