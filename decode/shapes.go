package decode

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/pathdata"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/writer"
)

// KindOf maps a document annotation to the editing kind that reproduces
// it.
func KindOf(a semantic.Annotation) (annot.Kind, error) {
	base := a.Base()
	switch t := a.(type) {
	case *semantic.SquareAnnotation:
		return annot.KindRectangle, nil
	case *semantic.CircleAnnotation:
		return annot.KindEllipse, nil
	case *semantic.InkAnnotation:
		if base.Subject == annot.KindFreeHighlight.Label() {
			return annot.KindFreeHighlight, nil
		}
		return annot.KindFreehand, nil
	case *semantic.PolyLineAnnotation:
		if len(t.Path) > 0 || base.CloudIntensity > 0 {
			return annot.KindCloud, nil
		}
		return annot.KindPolyline, nil
	case *semantic.PolygonAnnotation:
		if base.CloudIntensity > 0 {
			return annot.KindCloud, nil
		}
		return annot.KindPolygon, nil
	case *semantic.HighlightAnnotation:
		return annot.KindHighlight, nil
	case *semantic.UnderlineAnnotation:
		return annot.KindUnderline, nil
	case *semantic.StrikeOutAnnotation:
		return annot.KindStrikeout, nil
	case *semantic.FreeTextAnnotation:
		if len(t.CalloutLine) >= 4 || t.Intent == "FreeTextCallout" {
			return annot.KindCallout, nil
		}
		return annot.KindFreeText, nil
	case *semantic.StampAnnotation:
		if base.Subject == annot.KindSignature.Label() {
			return annot.KindSignature, nil
		}
		return annot.KindStamp, nil
	case *semantic.TextAnnotation:
		return annot.KindNote, nil
	case *semantic.LineAnnotation:
		for _, le := range t.LE {
			if strings.HasSuffix(le, "Arrow") {
				return annot.KindArrow, nil
			}
		}
		return annot.KindLine, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, a.Type())
}

// build adds the primitives of a to g in editing space and returns the
// record content.
func build(g *scene.Group, a semantic.Annotation, h float64) (annot.Content, error) {
	base := a.Base()
	rect := coords.ToEditingRect(base.RectVal.Array(), h)
	var content annot.Content

	switch t := a.(type) {
	case *semantic.SquareAnnotation:
		g.Add(named(scene.Rect(insetRD(rect, t.RD)), scene.NameShape))
	case *semantic.CircleAnnotation:
		g.Add(named(scene.Ellipse(insetRD(rect, t.RD)), scene.NameShape))
	case *semantic.InkAnnotation:
		for _, stroke := range t.InkList {
			if len(stroke) < 2 {
				continue
			}
			g.Add(named(scene.Line(editingFlat(stroke, h)), scene.NameStroke))
		}
		if len(g.Nodes) == 0 {
			return content, fmt.Errorf("ink without strokes")
		}
	case *semantic.PolyLineAnnotation:
		if g.Kind == annot.KindCloud {
			d := cloudPath(t.Path, t.Vertices, false, base.CloudIntensity, h)
			if d == "" {
				return content, fmt.Errorf("cloud without path")
			}
			g.Add(named(scene.Path(d), scene.NameShape))
			break
		}
		if len(t.Vertices) < 4 {
			return content, fmt.Errorf("polyline needs 2 vertices, has %d numbers", len(t.Vertices))
		}
		g.Add(named(scene.Line(editingFlat(t.Vertices, h)), scene.NameShape))
	case *semantic.PolygonAnnotation:
		if len(t.Vertices) < 4 {
			return content, fmt.Errorf("polygon needs 2 vertices, has %d numbers", len(t.Vertices))
		}
		if g.Kind == annot.KindCloud {
			g.Add(named(scene.Path(cloudPath(nil, t.Vertices, true, base.CloudIntensity, h)), scene.NameShape))
			break
		}
		n := scene.Line(editingFlat(t.Vertices, h))
		n.Closed = true
		g.Add(named(n, scene.NameShape))
	case *semantic.HighlightAnnotation, *semantic.UnderlineAnnotation, *semantic.StrikeOutAnnotation:
		qp, _ := semantic.QuadPoints(a)
		rects := coords.QuadsToEditingRects(qp, h)
		if len(rects) == 0 {
			rects = []coords.Rect{rect}
		}
		for _, r := range rects {
			g.Add(scene.Rect(r))
		}
	case *semantic.LineAnnotation:
		if len(t.L) < 4 {
			return content, fmt.Errorf("line needs 4 numbers, has %d", len(t.L))
		}
		g.Add(named(scene.Line(editingFlat(t.L[:4], h)), scene.NameShape))
	case *semantic.TextAnnotation:
		g.Add(named(scene.Rect(rect), scene.NameIcon))
	case *semantic.FreeTextAnnotation:
		box := insetRD(rect, t.RD)
		if g.Kind == annot.KindCallout && len(t.CalloutLine) >= 4 {
			g.Add(named(scene.Line(editingFlat(t.CalloutLine, h)), scene.NameLeader))
			g.Add(named(scene.Rect(box), scene.NameBox))
		} else {
			g.Add(named(scene.Rect(box), scene.NameShape))
		}
		_, size, _ := writer.ParseDA(t.DA)
		label := scene.Text(coords.Point{X: box.X, Y: box.Y}, t.Contents, size)
		label.Name = scene.NameLabel
		label.Width, label.Height = box.Width, box.Height
		g.Add(label)
		content.Text = t.Contents
	case *semantic.StampAnnotation:
		if t.Image == nil {
			g.Add(named(scene.Rect(rect), scene.NameShape))
			content.Text = t.Name
			break
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, t.Image.NRGBA()); err != nil {
			return content, fmt.Errorf("encode stamp bitmap: %w", err)
		}
		g.Add(named(scene.Image(rect), scene.NameShape))
		content.Image = buf.Bytes()
		content.ImageWidth = float64(t.Image.Width)
		content.ImageHeight = float64(t.Image.Height)
		content.Text = t.Name
	default:
		return content, fmt.Errorf("%w: %s", ErrUnsupported, a.Type())
	}
	return content, nil
}

func named(n *scene.Node, name string) *scene.Node {
	n.Name = name
	return n
}

// editingFlat converts a flat document-space point list to editing space.
func editingFlat(flat []float64, h float64) []float64 {
	out := make([]float64, 0, len(flat))
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, flat[i], h-flat[i+1])
	}
	return out
}

// insetRD shrinks an editing rect by a /RD array [left bottom right top].
func insetRD(r coords.Rect, rd []float64) coords.Rect {
	if len(rd) != 4 {
		return r
	}
	out := coords.Rect{
		X:      r.X + rd[0],
		Y:      r.Y + rd[3],
		Width:  r.Width - rd[0] - rd[2],
		Height: r.Height - rd[1] - rd[3],
	}
	if out.Empty() {
		return r
	}
	return out
}

// cloudPath returns the editing-space path of a cloud: the /Path entries
// when present, else a scalloped outline through the vertices.
func cloudPath(segs []semantic.PathSegment, vertices []float64, closed bool, intensity, h float64) string {
	if cmds := encode.PathCommands(segs); len(cmds) > 0 {
		return pathdata.Format(pathdata.Transform(cmds, encode.FlipY(h)))
	}
	flat := editingFlat(vertices, h)
	if len(flat) < 4 {
		return ""
	}
	pts := make([]coords.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, coords.Point{X: flat[i], Y: flat[i+1]})
	}
	if intensity <= 0 {
		intensity = 1
	}
	return pathdata.Format(pathdata.Cloud(pts, closed, pathdata.CloudRadius(intensity)))
}

// styleOf reads the record style off the document object.
func styleOf(kind annot.Kind, a semantic.Annotation) annot.Style {
	base := a.Base()
	st := annot.Style{
		Color:       annot.ColorHex(base.Color),
		StrokeWidth: base.BorderWidth,
		Opacity:     base.Opacity,
	}
	if ft, ok := a.(*semantic.FreeTextAnnotation); ok {
		_, size, color := writer.ParseDA(ft.DA)
		st.FontSize = size
		if st.Color == "" {
			st.Color = annot.ColorHex(color)
		}
	}
	return st.WithDefaults(annot.DefaultStyle(kind))
}
