package gsplat

import (
	"fmt"
	"sync/atomic"

	"github.com/gekko3d/gsplat/splatrt/rt/binning"
	"github.com/gekko3d/gsplat/splatrt/rt/composite"
	"github.com/gekko3d/gsplat/splatrt/rt/core"
	"github.com/gekko3d/gsplat/splatrt/rt/importance"
	"github.com/gekko3d/gsplat/splatrt/rt/parallel"
	"github.com/gekko3d/gsplat/splatrt/rt/preprocess"

	"github.com/go-gl/mathgl/mgl32"
)

// Rasterizer runs preprocess, binning and compositing on a shared worker
// pool. Calls may run concurrently; each allocates its own buffers and
// times its own profiler spans.
type Rasterizer struct {
	logger   Logger
	profiler *Profiler
	pool     *parallel.Pool
	latest   atomic.Pointer[Frame]
}

// Forward renders scene and returns the new frame.
func (r *Rasterizer) Forward(settings RasterSettings, scene *core.Scene) (*Frame, error) {
	return r.forward(settings, scene, nil)
}

// CountGaussians renders scene like Forward and adds, for every Gaussian,
// its pixel count and blend-weight sum to buf. buf is never cleared.
func (r *Rasterizer) CountGaussians(settings RasterSettings, scene *core.Scene, buf *importance.Buffer) (*Frame, error) {
	if buf == nil || buf.Len() != scene.Len() {
		n := 0
		if buf != nil {
			n = buf.Len()
		}
		return nil, fmt.Errorf("buffer of %d for %d gaussians: %w", n, scene.Len(), ErrBufferSize)
	}
	return r.forward(settings, scene, buf)
}

func (r *Rasterizer) forward(settings RasterSettings, scene *core.Scene, buf *importance.Buffer) (*Frame, error) {
	if !r.pool.IsRunning() {
		return nil, ErrClosed
	}
	if err := settings.validate(scene); err != nil {
		return nil, err
	}

	fx, fy := settings.Focal()
	span := r.profiler.BeginScope("preprocess")
	pre := preprocess.Run(r.pool, &preprocess.Input{
		Gaussians:     scene.Gaussians,
		ScaleModifier: settings.ScaleModifier,
		ViewMatrix:    settings.ViewMatrix,
		ProjMatrix:    settings.ProjMatrix,
		CamPos:        settings.CamPos,
		Width:         settings.ImageWidth,
		Height:        settings.ImageHeight,
		FocalX:        fx,
		FocalY:        fy,
		TanFovX:       settings.TanFovX,
		TanFovY:       settings.TanFovY,
		SHDegree:      settings.SHDegree,
		Prefiltered:   settings.Prefiltered,
	})
	span.EndScope()
	if pre == nil {
		return nil, r.closedDuring("preprocess")
	}

	span = r.profiler.BeginScope("binning")
	bins := binning.Build(r.pool, pre)
	span.EndScope()
	if bins == nil {
		return nil, r.closedDuring("binning")
	}

	in := &composite.Input{
		Grid:         pre.Grid,
		Ranges:       bins.Ranges,
		PointList:    bins.PointList,
		MeansXY:      pre.MeansXY,
		Features:     pre.Colors,
		ConicOpacity: pre.ConicOpacity,
		Background:   settings.Background,
	}
	out := composite.NewOutput(settings.ImageWidth, settings.ImageHeight)

	span = r.profiler.BeginScope("render")
	var ok bool
	if buf != nil {
		ok = composite.CountGaussians(r.pool, in, out, buf)
	} else {
		ok = composite.Render(r.pool, in, out)
	}
	span.EndScope()
	if !ok {
		return nil, r.closedDuring("render")
	}

	frame := &Frame{
		Id:              makeFrameId(),
		Width:           settings.ImageWidth,
		Height:          settings.ImageHeight,
		Color:           out.Color,
		FinalT:          out.FinalT,
		NContrib:        out.NContrib,
		LastContributor: out.LastContributor,
		Radii:           pre.Radii,
		NumRendered:     len(bins.PointList),
	}

	visible := pre.NumVisible()
	r.profiler.SetCount("visible", visible)
	r.profiler.SetCount("rendered", frame.NumRendered)
	r.profiler.SetCount("tiles", pre.Grid.NumTiles())
	if visible == 0 && scene.Len() > 0 {
		r.logger.Warnf("frame %s: none of %d gaussians visible", frame.Id, scene.Len())
	}
	r.logger.Debugf("frame %s: %dx%d visible=%d rendered=%d", frame.Id, frame.Width, frame.Height, visible, frame.NumRendered)

	r.latest.Store(frame)
	return frame, nil
}

// MarkVisible reports which positions lie beyond the near plane of view.
func (r *Rasterizer) MarkVisible(positions []mgl32.Vec3, view mgl32.Mat4, prefiltered bool) ([]bool, error) {
	if !r.pool.IsRunning() {
		return nil, ErrClosed
	}
	present, ok := preprocess.MarkVisible(r.pool, positions, view, prefiltered)
	if !ok {
		return nil, r.closedDuring("mark visible")
	}
	return present, nil
}

// MarkInFrustum reports which positions lie inside the view frustum of
// settings.ProjMatrix.
func (r *Rasterizer) MarkInFrustum(settings RasterSettings, positions []mgl32.Vec3) ([]bool, error) {
	if !r.pool.IsRunning() {
		return nil, ErrClosed
	}
	inside, ok := preprocess.MarkInFrustum(r.pool, positions, settings.ProjMatrix)
	if !ok {
		return nil, r.closedDuring("frustum test")
	}
	return inside, nil
}

func (r *Rasterizer) closedDuring(stage string) error {
	r.logger.Errorf("rasterizer closed during %s", stage)
	return fmt.Errorf("%s: %w", stage, ErrClosed)
}

// LatestFrame returns the most recently completed frame, or nil.
func (r *Rasterizer) LatestFrame() *Frame {
	return r.latest.Load()
}

func (r *Rasterizer) Profiler() *Profiler {
	return r.profiler
}

// Close waits for in-flight stages and stops the pool. Calls that have not
// submitted their next stage yet return ErrClosed.
func (r *Rasterizer) Close() {
	if !r.pool.IsRunning() {
		return
	}
	r.pool.Close()
	r.logger.Infof("rasterizer closed")
}
