package core

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// CreateRandomScene scatters n Gaussians uniformly in the box center +- extent,
// with random anisotropic scales, orientations, opacities and SH coefficients.
func CreateRandomScene(seed int64, n int, shDegree int, center mgl32.Vec3, extent float32) *Scene {
	rng := rand.New(rand.NewSource(seed))
	scene := &Scene{SHDegree: shDegree}
	m := scene.MaxCoeffs()

	unit := func() float32 { return rng.Float32()*2 - 1 }

	for i := 0; i < n; i++ {
		pos := center.Add(mgl32.Vec3{unit(), unit(), unit()}.Mul(extent))
		scale := mgl32.Vec3{
			0.02 + rng.Float32()*0.1,
			0.02 + rng.Float32()*0.1,
			0.02 + rng.Float32()*0.1,
		}
		rot := mgl32.Quat{W: unit(), V: mgl32.Vec3{unit(), unit(), unit()}}.Normalize()

		sh := make([]mgl32.Vec3, m)
		sh[0] = mgl32.Vec3{unit(), unit(), unit()}.Mul(1.5)
		for k := 1; k < m; k++ {
			sh[k] = mgl32.Vec3{unit(), unit(), unit()}.Mul(0.2)
		}

		scene.Add(NewGaussian(pos, scale, rot, 0.1+rng.Float32()*0.9, sh))
	}
	return scene
}

// CreateSphereShell places n colored Gaussians on a sphere of the given
// radius using a Fibonacci lattice.
func CreateSphereShell(n int, center mgl32.Vec3, radius, sigma, opacity float32, rgb mgl32.Vec3) *Scene {
	scene := &Scene{}
	golden := math.Pi * (3 - math.Sqrt(5))

	for i := 0; i < n; i++ {
		y := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)
		dir := mgl32.Vec3{float32(math.Cos(theta) * r), float32(y), float32(math.Sin(theta) * r)}
		scene.Add(NewColoredGaussian(center.Add(dir.Mul(radius)), sigma, opacity, rgb))
	}
	return scene
}
