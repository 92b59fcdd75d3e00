package gsplat

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gsplat/splatrt/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrEmptyImage      = errors.New("image has no pixels")
	ErrBufferSize      = errors.New("importance buffer size mismatch")
	ErrClosed          = errors.New("rasterizer closed")
	ErrSHDegree        = core.ErrSHDegree
	ErrInvalidGaussian = core.ErrInvalidGaussian
)

// RasterSettings describes the camera and output of one forward pass.
// ProjMatrix is the full projection (projection * view).
type RasterSettings struct {
	ImageWidth    int
	ImageHeight   int
	TanFovX       float32
	TanFovY       float32
	Background    mgl32.Vec3
	ScaleModifier float32
	ViewMatrix    mgl32.Mat4
	ProjMatrix    mgl32.Mat4
	// SHDegree is the active degree, at most the scene's degree.
	SHDegree    int
	CamPos      mgl32.Vec3
	Prefiltered bool
}

// SettingsFromCamera fills every camera-derived field from cam. The scale
// modifier defaults to 1 and the active SH degree to 0.
func SettingsFromCamera(cam *core.Camera, bg mgl32.Vec3) RasterSettings {
	tanX, tanY := cam.TanFov()
	return RasterSettings{
		ImageWidth:    cam.Width,
		ImageHeight:   cam.Height,
		TanFovX:       tanX,
		TanFovY:       tanY,
		Background:    bg,
		ScaleModifier: 1,
		ViewMatrix:    cam.GetViewMatrix(),
		ProjMatrix:    cam.GetFullProjection(),
		CamPos:        cam.Position,
	}
}

func (s *RasterSettings) Focal() (float32, float32) {
	return core.FocalFromTan(s.ImageWidth, s.TanFovX), core.FocalFromTan(s.ImageHeight, s.TanFovY)
}

func (s *RasterSettings) validate(scene *core.Scene) error {
	if s.ImageWidth <= 0 || s.ImageHeight <= 0 {
		return fmt.Errorf("%dx%d: %w", s.ImageWidth, s.ImageHeight, ErrEmptyImage)
	}
	if s.SHDegree < 0 || s.SHDegree > scene.SHDegree {
		return fmt.Errorf("active degree %d with scene degree %d: %w", s.SHDegree, scene.SHDegree, ErrSHDegree)
	}
	if err := scene.Validate(); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	return nil
}
