package encode

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/pathdata"
	"github.com/wudi/pdfmarkup/writer"
)

// Annotation builds the document annotation object for a record from its
// last encoded geometry. Comments are not included.
func Annotation(rec *annot.Record) (semantic.Annotation, error) {
	if !Supports(rec.Kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, rec.Kind)
	}
	geo := rec.Geometry
	st := rec.Style.WithDefaults(annot.DefaultStyle(rec.Kind))
	base := semantic.BaseAnnotation{
		Subtype:     rec.Kind.Subtype(),
		RectVal:     semantic.RectFromArray(geo.Rect),
		Contents:    rec.Content.Text,
		Color:       geo.Color[:],
		BorderWidth: geo.StrokeWidth,
		Flags:       semantic.FlagPrint,
		Author:      rec.Author,
		Name:        rec.ID,
		Subject:     rec.Kind.Label(),
		Modified:    rec.LastModified,
		Created:     rec.Created,
		Opacity:     geo.Opacity,
		PageIndex:   rec.Page - 1,
	}
	if base.Opacity <= 0 {
		base.Opacity = 1
	}
	if rec.Readonly {
		base.Flags |= semantic.FlagReadOnly | semantic.FlagLocked
	}

	switch rec.Kind {
	case annot.KindRectangle:
		return &semantic.SquareAnnotation{BaseAnnotation: base}, nil
	case annot.KindEllipse:
		return &semantic.CircleAnnotation{BaseAnnotation: base}, nil
	case annot.KindFreehand, annot.KindFreeHighlight:
		return &semantic.InkAnnotation{BaseAnnotation: base, InkList: geo.Clone().InkList}, nil
	case annot.KindPolyline:
		return &semantic.PolyLineAnnotation{BaseAnnotation: base, Vertices: clone(geo.Vertices)}, nil
	case annot.KindPolygon:
		return &semantic.PolygonAnnotation{BaseAnnotation: base, Vertices: clone(geo.Vertices)}, nil
	case annot.KindCloud:
		base.CloudIntensity = 1
		return &semantic.PolyLineAnnotation{
			BaseAnnotation: base,
			Vertices:       clone(geo.Vertices),
			Path:           PathSegments(pathdata.Parse(geo.PathData)),
		}, nil
	case annot.KindHighlight:
		base.BorderWidth = 0
		return &semantic.HighlightAnnotation{BaseAnnotation: base, QuadPoints: clone(geo.QuadPoints)}, nil
	case annot.KindUnderline:
		return &semantic.UnderlineAnnotation{BaseAnnotation: base, QuadPoints: clone(geo.QuadPoints)}, nil
	case annot.KindStrikeout:
		return &semantic.StrikeOutAnnotation{BaseAnnotation: base, QuadPoints: clone(geo.QuadPoints)}, nil
	case annot.KindLine, annot.KindArrow:
		return &semantic.LineAnnotation{
			BaseAnnotation: base,
			L:              clone(geo.Line),
			LE:             []string{geo.LineEndings[0], geo.LineEndings[1]},
		}, nil
	case annot.KindNote:
		return &semantic.TextAnnotation{BaseAnnotation: base, Icon: "Comment"}, nil
	case annot.KindFreeText:
		base.BorderWidth = 0
		return &semantic.FreeTextAnnotation{
			BaseAnnotation: base,
			DA:             writer.DefaultAppearance(st.FontSize, geo.Color[:]),
		}, nil
	case annot.KindCallout:
		ft := &semantic.FreeTextAnnotation{
			BaseAnnotation: base,
			DA:             writer.DefaultAppearance(st.FontSize, geo.Color[:]),
			CalloutLine:    clone(geo.Callout),
			Intent:         "FreeTextCallout",
			LineEnding:     geo.LineEndings[0],
		}
		if len(geo.Box) == 4 {
			r := base.RectVal
			ft.RD = []float64{geo.Box[0] - r.LLX, geo.Box[1] - r.LLY, r.URX - geo.Box[2], r.URY - geo.Box[3]}
		}
		return ft, nil
	case annot.KindStamp, annot.KindSignature:
		base.BorderWidth = 0
		stamp := &semantic.StampAnnotation{BaseAnnotation: base, Name: rec.Content.Text}
		if rec.Content.HasImage() {
			img, err := png.Decode(bytes.NewReader(rec.Content.Image))
			if err != nil {
				return nil, fmt.Errorf("decode %s bitmap of %s: %w", rec.Kind, rec.ID, err)
			}
			stamp.Image = semantic.ImageFrom(img)
		}
		return stamp, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, rec.Kind)
}

// PathSegments converts path commands to PolyLine /Path entries. Quadratic
// curves are raised to cubics; close repeats the subpath start.
func PathSegments(cmds []pathdata.Command) []semantic.PathSegment {
	var (
		out        []semantic.PathSegment
		cur, start coords.Point
	)
	for _, c := range pathdata.Cubic(cmds) {
		switch c.Op {
		case pathdata.MoveTo:
			cur, start = c.Pts[0], c.Pts[0]
			out = append(out, semantic.PathSegment{cur.X, cur.Y})
		case pathdata.LineTo:
			cur = c.Pts[0]
			out = append(out, semantic.PathSegment{cur.X, cur.Y})
		case pathdata.CubicTo:
			cur = c.Pts[2]
			out = append(out, semantic.PathSegment{c.Pts[0].X, c.Pts[0].Y, c.Pts[1].X, c.Pts[1].Y, cur.X, cur.Y})
		case pathdata.Close:
			if cur != start {
				out = append(out, semantic.PathSegment{start.X, start.Y})
			}
			cur = start
		}
	}
	return out
}

// PathCommands is the inverse of PathSegments. Entries that are neither 2
// nor 6 numbers long are skipped.
func PathCommands(segs []semantic.PathSegment) []pathdata.Command {
	var out []pathdata.Command
	for i, s := range segs {
		switch len(s) {
		case 2:
			op := pathdata.LineTo
			if i == 0 {
				op = pathdata.MoveTo
			}
			out = append(out, pathdata.Command{Op: op, Pts: []coords.Point{{X: s[0], Y: s[1]}}})
		case 6:
			out = append(out, pathdata.Command{Op: pathdata.CubicTo, Pts: []coords.Point{
				{X: s[0], Y: s[1]}, {X: s[2], Y: s[3]}, {X: s[4], Y: s[5]},
			}})
		}
	}
	return out
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
