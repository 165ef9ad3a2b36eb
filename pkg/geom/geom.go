// Package geom holds the small geometry types shared by the gaze pipeline.
package geom

import (
	"image"
	"math"
)

// Point is a normalized 2D coordinate. Screen and iris positions are in
// [0,1]×[0,1] with the origin at the top-left corner.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Center is the middle of a normalized region.
var Center = Point{X: 0.5, Y: 0.5}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Scale returns p*k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Clamp limits both coordinates to [lo, hi].
func (p Point) Clamp(lo, hi float64) Point {
	return Point{X: Clamp(p.X, lo, hi), Y: Clamp(p.Y, lo, hi)}
}

// Clamp01 limits both coordinates to the unit square.
func (p Point) Clamp01() Point {
	return p.Clamp(0, 1)
}

// Finite reports whether both coordinates are neither NaN nor infinite.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Mean returns the componentwise average of a and b.
func Mean(a, b Point) Point {
	return a.Add(b).Scale(0.5)
}

// Clamp limits a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Area returns the pixel area of r, zero for empty rectangles.
func Area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// Normalize maps a pixel position inside r to normalized coordinates of r.
func Normalize(r image.Rectangle, x, y float64) Point {
	if r.Dx() == 0 || r.Dy() == 0 {
		return Center
	}
	return Point{
		X: (x - float64(r.Min.X)) / float64(r.Dx()),
		Y: (y - float64(r.Min.Y)) / float64(r.Dy()),
	}
}
