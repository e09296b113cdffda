// Package coords converts geometry between the editing surface and PDF user
// space.
//
// Editing space has its origin at the top-left corner of the page with y
// growing downwards, expressed in unscaled page units. Document space has its
// origin at the bottom-left corner with y growing upwards. Every conversion
// takes the unscaled page height explicitly; nothing here reads ambient state.
package coords

import (
	"errors"
	"math"
)

// Matrix is an affine transform [a b c d e f] in PDF order.
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns m followed by o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies m to p.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Inverse returns the inverse of m.
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det, -m[1] / det,
		-m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// IsIdentity reports whether m leaves every point unchanged.
func (m Matrix) IsIdentity() bool { return m == Identity() }

// ScaleFactors returns the length of the transformed unit vectors.
func (m Matrix) ScaleFactors() (sx, sy float64) {
	return math.Hypot(m[0], m[1]), math.Hypot(m[2], m[3])
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns a rotation by angle radians.
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Point is a position in either coordinate space.
type Point struct{ X, Y float64 }

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Transform is a decomposed local transform as stored on scene nodes.
// Rotation is in degrees, clockwise on screen.
type Transform struct {
	X        float64 `cbor:"x,omitempty"`
	Y        float64 `cbor:"y,omitempty"`
	ScaleX   float64 `cbor:"sx,omitempty"`
	ScaleY   float64 `cbor:"sy,omitempty"`
	Rotation float64 `cbor:"r,omitempty"`
	// Skew is the horizontal shear factor applied between scale and
	// rotation: x' = x + Skew*y.
	Skew float64 `cbor:"k,omitempty"`
}

// IdentityTransform returns a transform with unit scale.
func IdentityTransform() Transform { return Transform{ScaleX: 1, ScaleY: 1} }

// Matrix composes scale, then skew, then rotation, then translation.
// A zero scale component is read as 1 so that zero-value transforms are
// usable.
func (t Transform) Matrix() Matrix {
	sx, sy := t.ScaleX, t.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	m := Scale(sx, sy)
	if t.Skew != 0 {
		m = m.Multiply(Matrix{1, 0, t.Skew, 1, 0, 0})
	}
	if t.Rotation != 0 {
		m = m.Multiply(Rotate(t.Rotation * math.Pi / 180))
	}
	return m.Multiply(Translate(t.X, t.Y))
}

// IsIdentity reports whether t has no effect.
func (t Transform) IsIdentity() bool { return t.Matrix().IsIdentity() }

// Decompose splits m into a Transform whose Matrix reproduces m. Singular
// matrices are not reproduced.
func Decompose(m Matrix) Transform {
	sx := math.Hypot(m[0], m[1])
	if sx == 0 {
		return Transform{X: m[4], Y: m[5], ScaleX: 1, ScaleY: 1}
	}
	c, s := m[0]/sx, m[1]/sx
	sy := (m[0]*m[3] - m[1]*m[2]) / sx
	t := Transform{
		X:        m[4],
		Y:        m[5],
		ScaleX:   sx,
		ScaleY:   sy,
		Rotation: math.Atan2(s, c) * 180 / math.Pi,
	}
	if sy != 0 {
		t.Skew = (m[2]*c + m[3]*s) / sy
	}
	return t
}
