// Package tiles holds the screen tiling shared by preprocessing, binning and
// compositing.
package tiles

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	BlockX    = 16
	BlockY    = 16
	BlockSize = BlockX * BlockY
)

// Grid is the tile layout of a W x H image.
type Grid struct {
	Width  int
	Height int
	TilesX int
	TilesY int
}

func NewGrid(width, height int) Grid {
	return Grid{
		Width:  width,
		Height: height,
		TilesX: (width + BlockX - 1) / BlockX,
		TilesY: (height + BlockY - 1) / BlockY,
	}
}

func (g Grid) NumTiles() int {
	return g.TilesX * g.TilesY
}

func (g Grid) TileID(tx, ty int) int {
	return ty*g.TilesX + tx
}

func (g Grid) TileCoords(id int) (tx, ty int) {
	return id % g.TilesX, id / g.TilesX
}

// PixelBounds returns the clipped pixel region [x0,x1) x [y0,y1) of a tile.
func (g Grid) PixelBounds(tx, ty int) (x0, y0, x1, y1 int) {
	x0, y0 = tx*BlockX, ty*BlockY
	x1 = min(x0+BlockX, g.Width)
	y1 = min(y0+BlockY, g.Height)
	return
}

// Rect is a half-open range of tiles: [MinX,MaxX) x [MinY,MaxY).
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

func (r Rect) Area() int {
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// BoundingRect returns the tiles covered by the axis-aligned square of half
// size radius around p, clamped to the grid.
func (g Grid) BoundingRect(p mgl32.Vec2, radius int) Rect {
	r := float32(radius)
	return Rect{
		MinX: clampTile((p.X()-r)/BlockX, g.TilesX),
		MinY: clampTile((p.Y()-r)/BlockY, g.TilesY),
		MaxX: clampTile((p.X()+r+BlockX-1)/BlockX, g.TilesX),
		MaxY: clampTile((p.Y()+r+BlockY-1)/BlockY, g.TilesY),
	}
}

// clampTile truncates toward zero like an int cast, but clamps first so far
// off-screen centers never overflow.
func clampTile(v float32, n int) int {
	if !(v > 0) {
		return 0
	}
	if v >= float32(n) {
		return n
	}
	return int(v)
}

// Overlaps reports whether the clipped pixel region of tile (tx, ty) meets the
// disk of the given radius around p.
func (g Grid) Overlaps(tx, ty int, p mgl32.Vec2, radius int) bool {
	x0, y0, x1, y1 := g.PixelBounds(tx, ty)
	if x1 <= x0 || y1 <= y0 {
		return false
	}
	cx := clampF(p.X(), float32(x0), float32(x1-1))
	cy := clampF(p.Y(), float32(y0), float32(y1-1))
	dx, dy := cx-p.X(), cy-p.Y()
	r := float32(radius)
	return dx*dx+dy*dy <= r*r
}

func clampF(v, lo, hi float32) float32 {
	return float32(math.Min(math.Max(float64(v), float64(lo)), float64(hi)))
}

// ForEachTouched calls fn for every tile in rect that overlaps the disk, in
// row-major order, and returns how many there were.
func (g Grid) ForEachTouched(rect Rect, p mgl32.Vec2, radius int, fn func(tileID int)) int {
	n := 0
	for ty := rect.MinY; ty < rect.MaxY; ty++ {
		for tx := rect.MinX; tx < rect.MaxX; tx++ {
			if !g.Overlaps(tx, ty, p, radius) {
				continue
			}
			if fn != nil {
				fn(g.TileID(tx, ty))
			}
			n++
		}
	}
	return n
}

// Range is a half-open span [Start, End) into a sorted point list.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() int {
	return int(r.End - r.Start)
}
