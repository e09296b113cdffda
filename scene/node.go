// Package scene holds the transient vector scene the editor draws into: shape
// groups made of primitive nodes, each carrying a local transform, kept on
// one background layer per page.
//
// Global coordinates are never cached. They are derived on demand by
// composing node and group matrices, so re-parenting or re-transforming a
// group can not leave stale geometry behind.
package scene

import (
	"math"

	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/pathdata"
)

// NodeType tags the primitive a Node draws.
type NodeType string

const (
	TypeLine    NodeType = "line"
	TypeRect    NodeType = "rect"
	TypeEllipse NodeType = "ellipse"
	TypeImage   NodeType = "image"
	TypePath    NodeType = "path"
	TypeText    NodeType = "text"
)

// Well-known node names. Encoders look primitives up by these when a group
// holds more than one role.
const (
	NameShape  = "shape"
	NameStroke = "stroke"
	NameLeader = "leader"
	NameBox    = "box"
	NameIcon   = "icon"
	NameLabel  = "label"
	NameGhost  = "ghost"
)

// Node is one primitive shape. Which geometry fields are meaningful depends
// on Type:
//
//	line     Points (flat x,y list), Closed
//	rect     Width, Height from the local origin
//	ellipse  RadiusX, RadiusY around the local origin
//	image    Width, Height; pixels live in the owning record's content
//	path     Data (path command string)
//	text     Text, FontSize, Width, Height
type Node struct {
	Type      NodeType         `cbor:"t"`
	Name      string           `cbor:"n,omitempty"`
	Transform coords.Transform `cbor:"tf"`

	Points  []float64 `cbor:"pts,omitempty"`
	Closed  bool      `cbor:"closed,omitempty"`
	Width   float64   `cbor:"w,omitempty"`
	Height  float64   `cbor:"h,omitempty"`
	RadiusX float64   `cbor:"rx,omitempty"`
	RadiusY float64   `cbor:"ry,omitempty"`
	Data    string    `cbor:"d,omitempty"`
	Text    string    `cbor:"text,omitempty"`

	Stroke      string    `cbor:"stroke,omitempty"`
	Fill        string    `cbor:"fill,omitempty"`
	StrokeWidth float64   `cbor:"sw,omitempty"`
	Opacity     float64   `cbor:"op,omitempty"`
	FontSize    float64   `cbor:"fs,omitempty"`
	Dash        []float64 `cbor:"dash,omitempty"`
	// Composite is a blend hint such as "multiply" for highlighters.
	Composite string `cbor:"gco,omitempty"`
}

// Line returns a polyline node through pts.
func Line(pts []float64) *Node {
	return &Node{Type: TypeLine, Transform: coords.IdentityTransform(), Points: append([]float64(nil), pts...)}
}

// Rect returns a rectangle node covering r.
func Rect(r coords.Rect) *Node {
	r = r.Normalize()
	tf := coords.IdentityTransform()
	tf.X, tf.Y = r.X, r.Y
	return &Node{Type: TypeRect, Transform: tf, Width: r.Width, Height: r.Height}
}

// Ellipse returns an ellipse node inscribed in r.
func Ellipse(r coords.Rect) *Node {
	r = r.Normalize()
	c := r.Center()
	tf := coords.IdentityTransform()
	tf.X, tf.Y = c.X, c.Y
	return &Node{Type: TypeEllipse, Transform: tf, RadiusX: r.Width / 2, RadiusY: r.Height / 2}
}

// Image returns an image node covering r.
func Image(r coords.Rect) *Node {
	n := Rect(r)
	n.Type = TypeImage
	return n
}

// Path returns a path node drawing d.
func Path(d string) *Node {
	return &Node{Type: TypePath, Transform: coords.IdentityTransform(), Data: d}
}

// Text returns a text label node at origin.
func Text(origin coords.Point, text string, fontSize float64) *Node {
	tf := coords.IdentityTransform()
	tf.X, tf.Y = origin.X, origin.Y
	return &Node{Type: TypeText, Transform: tf, Text: text, FontSize: fontSize}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := *n
	c.Points = append([]float64(nil), n.Points...)
	c.Dash = append([]float64(nil), n.Dash...)
	return &c
}

// LocalPoints returns the node's defining points in its own coordinate
// space. Lines yield their vertices, boxes their corners, ellipses their
// bounding-box corners, paths their sampled outline.
func (n *Node) LocalPoints() []coords.Point {
	switch n.Type {
	case TypeLine:
		out := make([]coords.Point, 0, len(n.Points)/2)
		for i := 0; i+1 < len(n.Points); i += 2 {
			out = append(out, coords.Point{X: n.Points[i], Y: n.Points[i+1]})
		}
		return out
	case TypeRect, TypeImage, TypeText:
		c := coords.Rect{Width: n.Width, Height: n.Height}.Corners()
		return c[:]
	case TypeEllipse:
		c := coords.Rect{X: -n.RadiusX, Y: -n.RadiusY, Width: 2 * n.RadiusX, Height: 2 * n.RadiusY}.Corners()
		return c[:]
	case TypePath:
		return pathdata.Sample(pathdata.Parse(n.Data), 8)
	}
	return nil
}

// LocalBounds is the axis-aligned box of LocalPoints.
func (n *Node) LocalBounds() (coords.Rect, bool) {
	if n.Type == TypeEllipse {
		return coords.Rect{X: -n.RadiusX, Y: -n.RadiusY, Width: 2 * n.RadiusX, Height: 2 * n.RadiusY}, true
	}
	return coords.BoundsOf(n.LocalPoints())
}

// EllipsePoints samples the ellipse outline every step degrees in local
// space, starting at angle 0 and going clockwise on screen.
func (n *Node) EllipsePoints(stepDegrees float64) []coords.Point {
	if stepDegrees <= 0 {
		stepDegrees = 1
	}
	count := int(math.Round(360 / stepDegrees))
	out := make([]coords.Point, 0, count)
	for i := 0; i < count; i++ {
		a := float64(i) * stepDegrees * math.Pi / 180
		out = append(out, coords.Point{X: n.RadiusX * math.Cos(a), Y: n.RadiusY * math.Sin(a)})
	}
	return out
}
