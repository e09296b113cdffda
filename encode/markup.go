package encode

import (
	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/scene"
)

// markup emits one quad per covered rectangle, ordered top-left, top-right,
// bottom-left, bottom-right, an outline per rectangle ordered top-left,
// bottom-left, bottom-right, top-right, and the union rect.
func (e *Encoder) markup(g *scene.Group, _ annot.Style, h float64, out *annot.Geometry) error {
	rects := nodesOf(g, scene.TypeRect)
	if len(rects) == 0 {
		return ErrNoGeometry
	}
	first := true
	for _, o := range rects {
		r, ok := o.bounds()
		if !ok {
			continue
		}
		q := coords.ToDocumentQuad(r, h)
		out.QuadPoints = append(out.QuadPoints, q[:]...)
		out.Outline = append(out.Outline, q[0], q[1], q[4], q[5], q[6], q[7], q[2], q[3])

		d := docRect(r, h)
		if first {
			out.Rect, first = d, false
			continue
		}
		out.Rect = coords.DocumentRectUnion(out.Rect, d)
	}
	if first {
		return ErrNoGeometry
	}
	return nil
}
