package encode

import (
	"math"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/pathdata"
	"github.com/wudi/pdfmarkup/scene"
)

// rect emits the bounding rect and the outline sampled every EdgeStep along
// the four edges.
func (e *Encoder) rect(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypeRect)
	if !ok {
		return ErrNoGeometry
	}
	corners := o.points()
	bounds, ok := coords.BoundsOf(corners)
	if !ok {
		return ErrNoGeometry
	}
	out.Rect = docRect(bounds, h)
	out.Path = coords.ToDocumentFlat(sampleEdges(corners, e.cfg.EdgeStep), h)
	return nil
}

// FlipY maps editing space to document space and back for a page of height
// h.
func FlipY(h float64) coords.Matrix { return coords.Matrix{1, 0, 0, -1, 0, h} }

// sampleEdges walks the closed polygon pts and emits a point every step
// units, corners included.
func sampleEdges(pts []coords.Point, step float64) []coords.Point {
	if len(pts) == 0 {
		return nil
	}
	var out []coords.Point
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		length := a.Dist(b)
		n := int(math.Ceil(length / step))
		if n < 1 {
			n = 1
		}
		for j := 0; j < n; j++ {
			t := float64(j) / float64(n)
			out = append(out, coords.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
		}
	}
	return append(out, pts[0])
}

// ellipse samples the outline at EllipseStep degree intervals. The rect is
// [cx-rx cy-ry cx+rx cy+ry] after the axis flip.
func (e *Encoder) ellipse(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypeEllipse)
	if !ok {
		return ErrNoGeometry
	}
	m := o.g.NodeMatrix(o.n)
	pts := o.n.EllipsePoints(e.cfg.EllipseStep)
	for i, p := range pts {
		pts[i] = m.Transform(p)
	}
	bounds, ok := coords.BoundsOf(pts)
	if !ok {
		return ErrNoGeometry
	}
	out.Rect = docRect(bounds, h)
	out.Path = coords.ToDocumentFlat(pts, h)
	return nil
}

// ink emits one document-space path per stroke. The rect is the union of
// stroke bounds grown by half the stroke width.
func (e *Encoder) ink(g *scene.Group, st annot.Style, h float64, out *annot.Geometry) error {
	strokes := nodesOf(g, scene.TypeLine)
	var bounds []coords.Rect
	for _, s := range strokes {
		pts := s.points()
		r, ok := coords.BoundsOf(pts)
		if !ok {
			continue
		}
		bounds = append(bounds, r.Expand(st.StrokeWidth/2))
		out.InkList = append(out.InkList, coords.ToDocumentFlat(pts, h))
	}
	union, ok := coords.UnionAll(bounds)
	if !ok {
		return ErrNoGeometry
	}
	out.Rect = docRect(union, h)
	return nil
}

// polyline emits the vertex list. Polygons drop a repeated closing vertex.
func (e *Encoder) polyline(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypeLine)
	if !ok {
		return ErrNoGeometry
	}
	pts := o.points()
	if g.Kind == annot.KindPolygon && len(pts) > 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	bounds, ok := coords.BoundsOf(pts)
	if !ok {
		return ErrNoGeometry
	}
	out.Vertices = coords.ToDocumentFlat(pts, h)
	out.Rect = docRect(bounds.Expand(e.cfg.CloudPadding), h)
	return nil
}

// cloud keeps the literal path string and the sampled outline, both in
// document space.
func (e *Encoder) cloud(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypePath)
	if !ok {
		return ErrNoGeometry
	}
	cmds := pathdata.Transform(pathdata.Parse(o.n.Data), o.g.NodeMatrix(o.n))
	pts := pathdata.Sample(cmds, e.cfg.CurveSteps)
	bounds, ok := coords.BoundsOf(pts)
	if !ok {
		return ErrNoGeometry
	}
	out.PathData = pathdata.Format(pathdata.Transform(cmds, FlipY(h)))
	out.Path = coords.ToDocumentFlat(pts, h)
	out.Vertices = out.Path
	out.Rect = docRect(bounds.Expand(e.cfg.CloudPadding), h)
	return nil
}

// line emits the end points. Arrows get an open arrow head at the end and a
// rect large enough to hold it.
func (e *Encoder) line(g *scene.Group, st annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypeLine)
	if !ok {
		return ErrNoGeometry
	}
	pts := o.points()
	if len(pts) < 2 {
		return ErrNoGeometry
	}
	ends := []coords.Point{pts[0], pts[len(pts)-1]}
	bounds, _ := coords.BoundsOf(ends)
	pad := st.StrokeWidth / 2
	out.LineEndings = [2]string{"None", "None"}
	if g.Kind == annot.KindArrow {
		out.LineEndings[1] = "OpenArrow"
		pad = math.Max(6, 3*st.StrokeWidth)
	}
	out.Line = coords.ToDocumentFlat(ends, h)
	out.Rect = docRect(bounds.Expand(pad), h)
	return nil
}

// image emits the rect of the rasterized bitmap.
func (e *Encoder) image(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameShape, scene.TypeImage, scene.TypeRect)
	if !ok {
		return ErrNoGeometry
	}
	bounds, ok := o.bounds()
	if !ok {
		return ErrNoGeometry
	}
	out.Rect = docRect(bounds, h)
	out.HasImage = o.n.Type == scene.TypeImage
	return nil
}

// note emits the icon rect.
func (e *Encoder) note(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	o, ok := named(g, scene.NameIcon, scene.TypeRect, scene.TypeImage)
	if !ok {
		return ErrNoGeometry
	}
	bounds, ok := o.bounds()
	if !ok {
		return ErrNoGeometry
	}
	out.Rect = docRect(bounds, h)
	return nil
}

// callout emits the leader line, tip first, the text box and a rect
// covering both.
func (e *Encoder) callout(g *scene.Group, st annot.Style, h float64, out *annot.Geometry) error {
	leader, ok := named(g, scene.NameLeader, scene.TypeLine)
	if !ok {
		return ErrNoGeometry
	}
	box, ok := named(g, scene.NameBox, scene.TypeRect, scene.TypeImage)
	if !ok {
		return ErrNoGeometry
	}
	pts := leader.points()
	if len(pts) > 3 {
		pts = append(pts[:2:2], pts[len(pts)-1])
	}
	lb, ok := coords.BoundsOf(pts)
	if !ok {
		return ErrNoGeometry
	}
	bb, ok := box.bounds()
	if !ok {
		return ErrNoGeometry
	}
	arrow := math.Max(6, 3*st.StrokeWidth)
	out.Callout = coords.ToDocumentFlat(pts, h)
	b := docRect(bb, h)
	out.Box = b[:]
	out.Rect = docRect(bb.Union(lb.Expand(arrow)), h)
	out.LineEndings = [2]string{"OpenArrow", "None"}
	return nil
}
