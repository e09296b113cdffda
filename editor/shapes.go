package editor

import (
	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/pathdata"
	"github.com/wudi/pdfmarkup/scene"
)

// Shape holds the geometry of one gesture. Editor drives the state machine
// and calls these hooks; a Shape only knows how to grow and build itself.
type Shape interface {
	// Begin starts the shape at the press point.
	Begin(p coords.Point)
	// Extend follows the pointer: the dragged corner for single-gesture
	// shapes, the rubber-band segment for multi-click shapes.
	Extend(p coords.Point)
	// AddVertex commits a click. It reports false for clicks that add
	// nothing, such as the second press of a double click.
	AddVertex(p coords.Point) bool
	// Finish drops preview-only state before validation.
	Finish()
	// Validate reports whether the finished shape is worth keeping.
	Validate(minSize float64) bool
	// Build returns the primitives for the current geometry.
	Build() []*scene.Node
}

// Payload is the content the host attaches to the next placed shape: label
// text for notes, callouts and free text, image data for stamps and
// signatures.
type Payload struct {
	Text  string
	Image []byte
	// Width and Height size the ghost preview, in page units.
	Width, Height float64
}

type vertexLimiter interface {
	MaxVertices() int
}

type rectAdder interface {
	AddRect(r coords.Rect)
}

const (
	dupTolerance  = 1.0
	calloutWidth  = 120
	calloutHeight = 40
	ghostWidth    = 120
	ghostHeight   = 40
)

type shapeFactory func(cfg config.EditorConfig, p Payload, st annot.Style) Shape

var shapeFactories = map[annot.Kind]shapeFactory{
	annot.KindRectangle: func(config.EditorConfig, Payload, annot.Style) Shape { return &boxShape{} },
	annot.KindEllipse:   func(config.EditorConfig, Payload, annot.Style) Shape { return &boxShape{ellipse: true} },
	annot.KindLine:      func(config.EditorConfig, Payload, annot.Style) Shape { return &lineShape{} },
	annot.KindArrow:     func(config.EditorConfig, Payload, annot.Style) Shape { return &lineShape{} },
	annot.KindFreehand:  func(config.EditorConfig, Payload, annot.Style) Shape { return &strokeShape{} },
	annot.KindFreeHighlight: func(config.EditorConfig, Payload, annot.Style) Shape {
		return &strokeShape{}
	},
	annot.KindPolyline: func(config.EditorConfig, Payload, annot.Style) Shape { return &vertexShape{} },
	annot.KindPolygon:  func(config.EditorConfig, Payload, annot.Style) Shape { return &vertexShape{closed: true} },
	annot.KindCloud: func(config.EditorConfig, Payload, annot.Style) Shape {
		return &vertexShape{closed: true, cloud: true, radius: pathdata.CloudRadius(1)}
	},
	annot.KindCallout: func(_ config.EditorConfig, p Payload, st annot.Style) Shape {
		return &calloutShape{text: p.Text, fontSize: st.FontSize}
	},
	annot.KindNote: func(cfg config.EditorConfig, _ Payload, _ annot.Style) Shape {
		return &noteShape{size: cfg.NoteSize}
	},
	annot.KindHighlight: func(config.EditorConfig, Payload, annot.Style) Shape { return &markupShape{} },
	annot.KindUnderline: func(config.EditorConfig, Payload, annot.Style) Shape { return &markupShape{} },
	annot.KindStrikeout: func(config.EditorConfig, Payload, annot.Style) Shape { return &markupShape{} },
	annot.KindFreeText:  newImageShape,
	annot.KindStamp:     newImageShape,
	annot.KindSignature: newImageShape,
}

func named(n *scene.Node, name string) *scene.Node {
	n.Name = name
	return n
}

// boxShape is a rectangle or ellipse dragged from corner to corner.
type boxShape struct {
	ellipse bool
	a, b    coords.Point
}

func (s *boxShape) Begin(p coords.Point)          { s.a, s.b = p, p }
func (s *boxShape) Extend(p coords.Point)         { s.b = p }
func (s *boxShape) AddVertex(p coords.Point) bool { s.b = p; return true }
func (s *boxShape) Finish()                       {}

func (s *boxShape) Validate(minSize float64) bool {
	return coords.RectFromPoints(s.a, s.b).MaxSide() >= minSize
}

func (s *boxShape) Build() []*scene.Node {
	r := coords.RectFromPoints(s.a, s.b)
	if s.ellipse {
		return []*scene.Node{named(scene.Ellipse(r), scene.NameShape)}
	}
	return []*scene.Node{named(scene.Rect(r), scene.NameShape)}
}

// lineShape is a straight line or arrow from press to release.
type lineShape struct {
	a, b coords.Point
}

func (s *lineShape) Begin(p coords.Point)          { s.a, s.b = p, p }
func (s *lineShape) Extend(p coords.Point)         { s.b = p }
func (s *lineShape) AddVertex(p coords.Point) bool { s.b = p; return true }
func (s *lineShape) Finish()                       {}

func (s *lineShape) Validate(minSize float64) bool {
	return coords.RectFromPoints(s.a, s.b).MaxSide() >= minSize
}

func (s *lineShape) Build() []*scene.Node {
	return []*scene.Node{named(scene.Line([]float64{s.a.X, s.a.Y, s.b.X, s.b.Y}), scene.NameShape)}
}

// strokeShape is one freehand stroke.
type strokeShape struct {
	pts []coords.Point
}

func (s *strokeShape) Begin(p coords.Point) { s.pts = []coords.Point{p} }

func (s *strokeShape) Extend(p coords.Point) {
	if n := len(s.pts); n > 0 && s.pts[n-1] == p {
		return
	}
	s.pts = append(s.pts, p)
}

func (s *strokeShape) AddVertex(p coords.Point) bool {
	s.Extend(p)
	return true
}

func (s *strokeShape) Finish() {}

func (s *strokeShape) Validate(minSize float64) bool {
	if len(s.pts) < 2 {
		return false
	}
	r, ok := coords.BoundsOf(s.pts)
	return ok && r.MaxSide() >= minSize
}

func (s *strokeShape) Build() []*scene.Node {
	return []*scene.Node{named(scene.Line(flat(s.pts)), scene.NameStroke)}
}

// vertexShape is a polyline, polygon or cloud built one click at a time.
type vertexShape struct {
	closed bool
	cloud  bool
	radius float64
	verts  []coords.Point
	hover  *coords.Point
}

func (s *vertexShape) Begin(p coords.Point) { s.verts = []coords.Point{p} }

func (s *vertexShape) Extend(p coords.Point) { s.hover = &p }

func (s *vertexShape) AddVertex(p coords.Point) bool {
	s.hover = nil
	if n := len(s.verts); n > 0 && s.verts[n-1].Dist(p) < dupTolerance {
		return false
	}
	s.verts = append(s.verts, p)
	return true
}

func (s *vertexShape) Finish() { s.hover = nil }

func (s *vertexShape) Validate(float64) bool { return len(s.verts) >= 2 }

func (s *vertexShape) Build() []*scene.Node {
	pts := append([]coords.Point(nil), s.verts...)
	if s.hover != nil {
		pts = append(pts, *s.hover)
	}
	if s.cloud && len(pts) >= 2 {
		d := pathdata.Format(pathdata.Cloud(pts, s.closed, s.radius))
		return []*scene.Node{named(scene.Path(d), scene.NameShape)}
	}
	n := scene.Line(flat(pts))
	n.Closed = s.closed && len(pts) > 2
	return []*scene.Node{named(n, scene.NameShape)}
}

// calloutShape is a leader line of up to three clicks ending in a text box.
// The first click is the point the callout refers to.
type calloutShape struct {
	text     string
	fontSize float64
	verts    []coords.Point
	hover    *coords.Point
}

func (s *calloutShape) MaxVertices() int { return 3 }

func (s *calloutShape) Begin(p coords.Point) { s.verts = []coords.Point{p} }

func (s *calloutShape) Extend(p coords.Point) { s.hover = &p }

func (s *calloutShape) AddVertex(p coords.Point) bool {
	s.hover = nil
	if n := len(s.verts); n >= s.MaxVertices() || (n > 0 && s.verts[n-1].Dist(p) < dupTolerance) {
		return false
	}
	s.verts = append(s.verts, p)
	return true
}

func (s *calloutShape) Finish() { s.hover = nil }

func (s *calloutShape) Validate(float64) bool { return len(s.verts) >= 2 }

func (s *calloutShape) Build() []*scene.Node {
	pts := append([]coords.Point(nil), s.verts...)
	if s.hover != nil {
		pts = append(pts, *s.hover)
	}
	if len(pts) == 0 {
		return nil
	}
	first, last := pts[0], pts[len(pts)-1]
	box := coords.Rect{X: last.X, Y: last.Y - calloutHeight/2, Width: calloutWidth, Height: calloutHeight}
	if last.X < first.X {
		box.X = last.X - calloutWidth
	}
	label := scene.Text(coords.Point{X: box.X, Y: box.Y}, s.text, s.fontSize)
	label.Name = scene.NameLabel
	label.Width, label.Height = box.Width, box.Height
	return []*scene.Node{
		named(scene.Line(flat(pts)), scene.NameLeader),
		named(scene.Rect(box), scene.NameBox),
		label,
	}
}

// noteShape is a fixed-size icon placed with one click.
type noteShape struct {
	size float64
	at   coords.Point
}

func (s *noteShape) Begin(p coords.Point)          { s.at = p }
func (s *noteShape) Extend(p coords.Point)         { s.at = p }
func (s *noteShape) AddVertex(p coords.Point) bool { s.at = p; return true }
func (s *noteShape) Finish()                       {}
func (s *noteShape) Validate(float64) bool         { return s.size > 0 }

func (s *noteShape) Build() []*scene.Node {
	r := coords.Rect{X: s.at.X, Y: s.at.Y, Width: s.size, Height: s.size}
	return []*scene.Node{named(scene.Rect(r), scene.NameIcon)}
}

// markupShape is one rectangle per selected text line.
type markupShape struct {
	rects []coords.Rect
}

func (s *markupShape) Begin(coords.Point)          {}
func (s *markupShape) Extend(coords.Point)         {}
func (s *markupShape) AddVertex(coords.Point) bool { return false }
func (s *markupShape) Finish()                     {}
func (s *markupShape) AddRect(r coords.Rect)       { s.rects = append(s.rects, r.Normalize()) }

func (s *markupShape) Validate(float64) bool {
	for _, r := range s.rects {
		if !r.Empty() {
			return true
		}
	}
	return false
}

func (s *markupShape) Build() []*scene.Node {
	out := make([]*scene.Node, 0, len(s.rects))
	for _, r := range s.rects {
		if !r.Empty() {
			out = append(out, scene.Rect(r))
		}
	}
	return out
}

// imageShape is the ghost that follows the cursor and, once placed, the
// bitmap of a free-text, stamp or signature record.
type imageShape struct {
	at            coords.Point
	width, height float64
	placed        bool
}

func newImageShape(_ config.EditorConfig, p Payload, _ annot.Style) Shape {
	s := &imageShape{width: p.Width, height: p.Height}
	if s.width <= 0 || s.height <= 0 {
		s.width, s.height = ghostWidth, ghostHeight
	}
	return s
}

func (s *imageShape) Begin(p coords.Point)          { s.at = p }
func (s *imageShape) Extend(p coords.Point)         { s.at = p }
func (s *imageShape) AddVertex(p coords.Point) bool { s.at = p; return true }
func (s *imageShape) Finish()                       { s.placed = true }

func (s *imageShape) Validate(float64) bool { return s.width > 0 && s.height > 0 }

// Resize sets the size of the rendered bitmap.
func (s *imageShape) Resize(w, h float64) {
	if w > 0 && h > 0 {
		s.width, s.height = w, h
	}
}

func (s *imageShape) Build() []*scene.Node {
	n := scene.Image(coords.Rect{X: s.at.X, Y: s.at.Y, Width: s.width, Height: s.height})
	if s.placed {
		return []*scene.Node{named(n, scene.NameShape)}
	}
	n.Opacity = 0.5
	return []*scene.Node{named(n, scene.NameGhost)}
}

func flat(pts []coords.Point) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}
