// Package vecmath provides the small amount of vector and scalar math the
// acoustics packages need. It has no dependency on any rendering engine.
package vecmath

import "math"

// Vec3 is a point or direction in venue coordinates (meters).
// X runs across the width, Y along the depth and Z is height.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// V is shorthand for constructing a Vec3.
func V(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns a + b.
func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Scale returns a * s.
func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

// Dot returns the dot product.
func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Len returns the Euclidean length.
func (a Vec3) Len() float64 {
	return math.Sqrt(a.Dot(a))
}

// Dist returns the Euclidean distance between a and b.
func (a Vec3) Dist(b Vec3) float64 {
	return a.Sub(b).Len()
}

// Dist2 returns the squared distance between a and b.
func (a Vec3) Dist2(b Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// HorizontalDist returns the distance between a and b projected onto the floor.
func (a Vec3) HorizontalDist(b Vec3) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// IsFinite reports whether every component is a finite number.
func (a Vec3) IsFinite() bool {
	return IsFinite(a.X) && IsFinite(a.Y) && IsFinite(a.Z)
}

// Nearest returns the index of and distance to the point in pts closest to p.
// Returns (-1, +Inf) for an empty slice.
func Nearest(p Vec3, pts []Vec3) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i, q := range pts {
		if d := p.Dist(q); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}
