package gsplat

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

type FrameId string

func makeFrameId() FrameId {
	return FrameId(uuid.NewString())
}

// Frame is the result of one forward pass. Color is planar: channel c of
// pixel (x, y) is at Color[c*Width*Height + y*Width + x].
type Frame struct {
	Id     FrameId
	Width  int
	Height int

	Color           []float32
	FinalT          []float32
	NContrib        []uint32
	LastContributor []uint32
	Radii           []int32
	NumRendered     int
}

// At returns the color and final transmittance of pixel (x, y).
func (f *Frame) At(x, y int) (mgl32.Vec3, float32) {
	p := y*f.Width + x
	n := f.Width * f.Height
	return mgl32.Vec3{f.Color[p], f.Color[n+p], f.Color[2*n+p]}, f.FinalT[p]
}

// Image converts the frame to 8 bits per channel. Values are clamped to
// [0, 1]; NaN maps to 0.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c, _ := f.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: toByte(c.X()), G: toByte(c.Y()), B: toByte(c.Z()), A: 255})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

func (f *Frame) WriteTIFF(w io.Writer) error {
	return tiff.Encode(w, f.Image(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Thumbnail returns the frame scaled so that its longer side is maxDim.
func (f *Frame) Thumbnail(maxDim int) *image.NRGBA {
	src := f.Image()
	if maxDim <= 0 || (f.Width <= maxDim && f.Height <= maxDim) {
		return src
	}
	w, h := maxDim, maxDim
	if f.Width >= f.Height {
		h = max(1, f.Height*maxDim/f.Width)
	} else {
		w = max(1, f.Width*maxDim/f.Height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
