package core

import (
	"errors"
	"fmt"
)

const MaxSHDegree = 3

var (
	ErrSHDegree        = errors.New("sh degree out of range")
	ErrInvalidGaussian = errors.New("invalid gaussian")
)

// Scene is the set of Gaussians rendered by one call. SHDegree is the degree
// the SH coefficient arrays were trained for; every SHCoefficients appearance
// must carry exactly MaxCoeffs() entries.
type Scene struct {
	Gaussians []Gaussian
	SHDegree  int
}

func NewScene(shDegree int, gaussians ...Gaussian) *Scene {
	return &Scene{Gaussians: gaussians, SHDegree: shDegree}
}

func (s *Scene) Len() int {
	return len(s.Gaussians)
}

// MaxCoeffs is M = (D+1)^2.
func (s *Scene) MaxCoeffs() int {
	return (s.SHDegree + 1) * (s.SHDegree + 1)
}

func (s *Scene) Add(g ...Gaussian) {
	s.Gaussians = append(s.Gaussians, g...)
}

// Validate checks the sizes the rasterizer relies on.
func (s *Scene) Validate() error {
	if s.SHDegree < 0 || s.SHDegree > MaxSHDegree {
		return fmt.Errorf("%w: %d", ErrSHDegree, s.SHDegree)
	}
	m := s.MaxCoeffs()
	for i, g := range s.Gaussians {
		if g.Geometry == nil || g.Appearance == nil {
			return fmt.Errorf("%w %d: missing geometry or appearance", ErrInvalidGaussian, i)
		}
		if sh, ok := g.Appearance.(SHCoefficients); ok && len(sh.Coeffs) != m {
			return fmt.Errorf("%w %d: %d sh coefficients, want %d", ErrInvalidGaussian, i, len(sh.Coeffs), m)
		}
	}
	return nil
}

// Filter returns a scene holding the Gaussians whose keep entry is true.
func (s *Scene) Filter(keep []bool) *Scene {
	out := &Scene{SHDegree: s.SHDegree}
	for i, g := range s.Gaussians {
		if i < len(keep) && keep[i] {
			out.Gaussians = append(out.Gaussians, g)
		}
	}
	return out
}
