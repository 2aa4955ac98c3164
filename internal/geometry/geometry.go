// Package geometry provides the pixel-space vocabulary shared by the canvas
// store, the layout generator, the interactive surface and the renderer:
// points, sizes, rects, grid snapping and the per-axis scale ratios used to
// translate edits between differently-sized artboards.
package geometry

import "math"

// Point is a position in artboard pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the delta from other to p.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Size is a width/height pair in artboard pixel space.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFrom builds a rect from a position and size.
func RectFrom(p Point, s Size) Rect {
	return Rect{X: p.X, Y: p.Y, Width: s.Width, Height: s.Height}
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects checks if the two rects overlap. Touching edges count as an
// intersection.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width && other.X <= r.X+r.Width &&
		r.Y <= other.Y+other.Height && other.Y <= r.Y+r.Height
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Clamp restricts value to [minVal, maxVal]. A degenerate range
// (maxVal <= minVal) collapses to minVal so an inverted range can never
// produce an out-of-bounds result.
func Clamp(value, minVal, maxVal float64) float64 {
	if maxVal <= minVal {
		return minVal
	}
	return math.Min(math.Max(value, minVal), maxVal)
}

// Snap rounds value to the nearest multiple of gridSize. A non-positive
// gridSize disables snapping and returns value unchanged.
func Snap(value, gridSize float64) float64 {
	if gridSize <= 0 {
		return value
	}
	return math.Round(value/gridSize) * gridSize
}

// ScaleRatio returns the per-axis factors that map a length in the source
// artboard's space onto the target artboard's space: target / source.
func ScaleRatio(sourceW, sourceH, targetW, targetH float64) (sx, sy float64) {
	if sourceW == 0 || sourceH == 0 {
		return 1, 1
	}
	return targetW / sourceW, targetH / sourceH
}

// ClampRect fits a position/size pair into [0, boundsW] x [0, boundsH]:
// the size is capped to the bounds first, then the position is shifted so
// the rect stays fully inside. Returns the adjusted pair.
func ClampRect(pos Point, size Size, boundsW, boundsH float64) (Point, Size) {
	size.Width = Clamp(size.Width, 1, boundsW)
	size.Height = Clamp(size.Height, 1, boundsH)
	pos.X = Clamp(pos.X, 0, boundsW-size.Width)
	pos.Y = Clamp(pos.Y, 0, boundsH-size.Height)
	return pos, size
}
