package gsplat

import (
	"bytes"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func newGradientFrame(w, h int) *Frame {
	n := w * h
	f := &Frame{
		Id:     makeFrameId(),
		Width:  w,
		Height: h,
		Color:  make([]float32, 3*n),
		FinalT: make([]float32, n),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := y*w + x
			f.Color[p] = float32(x) / float32(w-1)
			f.Color[n+p] = float32(y) / float32(h-1)
			f.Color[2*n+p] = 0.5
		}
	}
	return f
}

func TestFrame_Image(t *testing.T) {
	f := newGradientFrame(8, 4)
	f.Color[0] = -1
	f.Color[32+1] = 7
	f.Color[64+2] = float32(math.NaN())

	img := f.Image()
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.NRGBAAt(1, 0).G)
	assert.Equal(t, uint8(0), img.NRGBAAt(2, 0).B)
	assert.Equal(t, uint8(255), img.NRGBAAt(7, 3).R)
	assert.Equal(t, uint8(128), img.NRGBAAt(5, 2).B)
	assert.Equal(t, uint8(255), img.NRGBAAt(5, 2).A)
}

func TestFrame_WriteTIFF(t *testing.T) {
	f := newGradientFrame(16, 9)

	var buf bytes.Buffer
	require.NoError(t, f.WriteTIFF(&buf))

	decoded, err := tiff.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, f.Image().Bounds(), decoded.Bounds())

	want := f.Image()
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			r0, g0, b0, a0 := want.At(x, y).RGBA()
			r1, g1, b1, a1 := decoded.At(x, y).RGBA()
			require.Equal(t, []uint32{r0, g0, b0, a0}, []uint32{r1, g1, b1, a1}, "pixel %d,%d", x, y)
		}
	}
}

func TestFrame_Thumbnail(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		maxDim int
		want   image.Rectangle
	}{
		{"Landscape", 64, 32, 16, image.Rect(0, 0, 16, 8)},
		{"Portrait", 30, 60, 20, image.Rect(0, 0, 10, 20)},
		{"Already small", 8, 4, 16, image.Rect(0, 0, 8, 4)},
		{"Thin", 100, 2, 10, image.Rect(0, 0, 10, 1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, newGradientFrame(tc.w, tc.h).Thumbnail(tc.maxDim).Bounds())
		})
	}
}

func TestFrame_At(t *testing.T) {
	f := newGradientFrame(5, 3)
	f.FinalT[2*5+4] = 0.25

	c, T := f.At(4, 2)
	assert.InDelta(t, 1, c.X(), 1e-6)
	assert.InDelta(t, 1, c.Y(), 1e-6)
	assert.InDelta(t, 0.5, c.Z(), 1e-6)
	assert.Equal(t, float32(0.25), T)
}
