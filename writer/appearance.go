package writer

import (
	"fmt"
	"math"
	"strings"

	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/pathdata"
)

// kappa places the control points of a quarter-circle bezier.
const kappa = 0.551784

// AppearanceGenerator builds normal appearance streams for annotations. The
// forms draw in default user space: their BBox equals the annotation Rect.
type AppearanceGenerator struct{}

func NewAppearanceGenerator() *AppearanceGenerator { return &AppearanceGenerator{} }

// Generate returns the appearance form for a, or nil when the subtype has
// no generated appearance.
func (g *AppearanceGenerator) Generate(a semantic.Annotation, ctx SerializationContext) (*raw.StreamObj, error) {
	base := a.Base()
	rect := base.RectVal.Normalize()
	if rect.Width() <= 0 || rect.Height() <= 0 {
		return nil, fmt.Errorf("empty rect %v", rect.Array())
	}
	res := raw.Dict()
	var c content
	c.WriteString("q\n")
	g.graphicsState(&c, res, base, a)

	switch t := a.(type) {
	case *semantic.SquareAnnotation:
		g.square(&c, t)
	case *semantic.CircleAnnotation:
		g.circle(&c, t)
	case *semantic.LineAnnotation:
		g.line(&c, t)
	case *semantic.PolygonAnnotation:
		g.polygon(&c, t)
	case *semantic.PolyLineAnnotation:
		g.polyline(&c, t)
	case *semantic.InkAnnotation:
		g.ink(&c, t)
	case *semantic.HighlightAnnotation:
		g.quads(&c, base.Color, t.QuadPoints, markHighlight)
	case *semantic.UnderlineAnnotation:
		g.quads(&c, base.Color, t.QuadPoints, markUnderline)
	case *semantic.StrikeOutAnnotation:
		g.quads(&c, base.Color, t.QuadPoints, markStrikeOut)
	case *semantic.SquigglyAnnotation:
		g.quads(&c, base.Color, t.QuadPoints, markSquiggly)
	case *semantic.FreeTextAnnotation:
		g.freeText(&c, res, t)
	case *semantic.StampAnnotation:
		if err := g.stamp(&c, res, t, ctx); err != nil {
			return nil, err
		}
	case *semantic.TextAnnotation:
		g.note(&c, t)
	case *semantic.CaretAnnotation:
		g.caret(&c, t)
	default:
		return nil, nil
	}
	c.WriteString("Q\n")
	if res.Len() == 0 {
		res = nil
	}
	return formXObject(rect, res, c.Bytes()), nil
}

func (g *AppearanceGenerator) graphicsState(c *content, res *raw.DictObj, base *semantic.BaseAnnotation, a semantic.Annotation) {
	_, multiply := a.(*semantic.HighlightAnnotation)
	translucent := base.Opacity > 0 && base.Opacity < 1
	if !translucent && !multiply {
		return
	}
	gs := raw.Dict()
	gs.Put("Type", raw.NameLiteral("ExtGState"))
	if translucent {
		gs.Put("CA", raw.Num(base.Opacity))
		gs.Put("ca", raw.Num(base.Opacity))
	}
	if multiply {
		gs.Put("BM", raw.NameLiteral("Multiply"))
	}
	states := raw.Dict()
	states.Put("GS0", gs)
	res.Put("ExtGState", states)
	c.WriteString("/GS0 gs\n")
}

// stroke sets the pen from the border entries and reports whether anything
// should be stroked.
func (g *AppearanceGenerator) stroke(c *content, base *semantic.BaseAnnotation) bool {
	if len(base.Color) == 0 {
		return false
	}
	w := base.BorderWidth
	if w <= 0 {
		w = 1
	}
	c.strokeColor(base.Color)
	c.op("w", w)
	if base.BorderStyle == "D" {
		c.dash(base.Dash)
	}
	return true
}

func paintOp(stroked, filled bool) string {
	switch {
	case stroked && filled:
		return "B"
	case filled:
		return "f"
	case stroked:
		return "S"
	}
	return "n"
}

// inset shrinks rect by half the border width plus any RD differences.
func inset(r semantic.Rectangle, width float64, rd []float64) semantic.Rectangle {
	h := width / 2
	r = semantic.Rectangle{LLX: r.LLX + h, LLY: r.LLY + h, URX: r.URX - h, URY: r.URY - h}
	if len(rd) == 4 {
		r.LLX += rd[0]
		r.URY -= rd[1]
		r.URX -= rd[2]
		r.LLY += rd[3]
	}
	return r
}

func (g *AppearanceGenerator) square(c *content, a *semantic.SquareAnnotation) {
	stroked := g.stroke(c, &a.BaseAnnotation)
	c.fillColor(a.IC)
	r := inset(a.RectVal.Normalize(), a.BorderWidth, a.RD)
	if a.CloudIntensity > 0 {
		// counter-clockwise in y-up space so the bumps face outward
		verts := []coords.Point{{X: r.LLX, Y: r.URY}, {X: r.LLX, Y: r.LLY}, {X: r.URX, Y: r.LLY}, {X: r.URX, Y: r.URY}}
		g.path(c, pathdata.Cloud(verts, true, pathdata.CloudRadius(a.CloudIntensity)))
	} else {
		c.op("re", r.LLX, r.LLY, r.Width(), r.Height())
	}
	c.WriteString(paintOp(stroked, len(a.IC) > 0) + "\n")
}

func (g *AppearanceGenerator) circle(c *content, a *semantic.CircleAnnotation) {
	stroked := g.stroke(c, &a.BaseAnnotation)
	c.fillColor(a.IC)
	r := inset(a.RectVal.Normalize(), a.BorderWidth, a.RD)
	ellipse(c, (r.LLX+r.URX)/2, (r.LLY+r.URY)/2, r.Width()/2, r.Height()/2)
	c.WriteString(paintOp(stroked, len(a.IC) > 0) + "\n")
}

// ellipse appends four bezier quarter arcs.
func ellipse(c *content, cx, cy, rx, ry float64) {
	mx, my := rx*kappa, ry*kappa
	c.op("m", cx+rx, cy)
	c.op("c", cx+rx, cy+my, cx+mx, cy+ry, cx, cy+ry)
	c.op("c", cx-mx, cy+ry, cx-rx, cy+my, cx-rx, cy)
	c.op("c", cx-rx, cy-my, cx-mx, cy-ry, cx, cy-ry)
	c.op("c", cx+mx, cy-ry, cx+rx, cy-my, cx+rx, cy)
	c.WriteString("h\n")
}

func (g *AppearanceGenerator) line(c *content, a *semantic.LineAnnotation) {
	if len(a.L) != 4 || !g.stroke(c, &a.BaseAnnotation) {
		return
	}
	c.op("m", a.L[0], a.L[1])
	c.op("l", a.L[2], a.L[3])
	c.WriteString("S\n")
	g.endings(c, &a.BaseAnnotation, a.LE, a.IC, flatPoints(a.L))
}

func (g *AppearanceGenerator) polygon(c *content, a *semantic.PolygonAnnotation) {
	pts := flatPoints(a.Vertices)
	if len(pts) < 2 {
		return
	}
	stroked := g.stroke(c, &a.BaseAnnotation)
	c.fillColor(a.IC)
	if a.CloudIntensity > 0 {
		g.path(c, pathdata.Cloud(pts, true, pathdata.CloudRadius(a.CloudIntensity)))
	} else {
		polyline(c, pts)
		c.WriteString("h\n")
	}
	c.WriteString(paintOp(stroked, len(a.IC) > 0) + "\n")
}

func (g *AppearanceGenerator) polyline(c *content, a *semantic.PolyLineAnnotation) {
	if !g.stroke(c, &a.BaseAnnotation) {
		return
	}
	c.WriteString("1 J 1 j\n")
	if len(a.Path) > 0 {
		for i, seg := range a.Path {
			switch {
			case len(seg) == 2 && i == 0:
				c.op("m", seg...)
			case len(seg) == 2:
				c.op("l", seg...)
			case len(seg) == 6:
				c.op("c", seg...)
			}
		}
		c.WriteString("S\n")
		return
	}
	pts := flatPoints(a.Vertices)
	if len(pts) < 2 {
		return
	}
	polyline(c, pts)
	c.WriteString("S\n")
	g.endings(c, &a.BaseAnnotation, a.LE, nil, pts)
}

func (g *AppearanceGenerator) ink(c *content, a *semantic.InkAnnotation) {
	if !g.stroke(c, &a.BaseAnnotation) {
		return
	}
	c.WriteString("1 J 1 j\n")
	for _, stroke := range a.InkList {
		pts := flatPoints(stroke)
		switch len(pts) {
		case 0:
			continue
		case 1:
			// a dot still needs a segment to show the round cap
			c.op("m", pts[0].X, pts[0].Y)
			c.op("l", pts[0].X, pts[0].Y)
		default:
			polyline(c, pts)
		}
	}
	c.WriteString("S\n")
}

func (g *AppearanceGenerator) path(c *content, cmds []pathdata.Command) {
	for _, cmd := range pathdata.Cubic(cmds) {
		switch cmd.Op {
		case pathdata.MoveTo:
			c.op("m", cmd.Pts[0].X, cmd.Pts[0].Y)
		case pathdata.LineTo:
			c.op("l", cmd.Pts[0].X, cmd.Pts[0].Y)
		case pathdata.CubicTo:
			c.op("c", cmd.Pts[0].X, cmd.Pts[0].Y, cmd.Pts[1].X, cmd.Pts[1].Y, cmd.Pts[2].X, cmd.Pts[2].Y)
		case pathdata.Close:
			c.WriteString("h\n")
		}
	}
}

func polyline(c *content, pts []coords.Point) {
	c.op("m", pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		c.op("l", p.X, p.Y)
	}
}

func flatPoints(vals []float64) []coords.Point {
	pts := make([]coords.Point, 0, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		pts = append(pts, coords.Point{X: vals[i], Y: vals[i+1]})
	}
	return pts
}

// endings draws arrow heads for OpenArrow and ClosedArrow line endings.
func (g *AppearanceGenerator) endings(c *content, base *semantic.BaseAnnotation, le []string, ic []float64, pts []coords.Point) {
	if len(le) != 2 || len(pts) < 2 {
		return
	}
	w := base.BorderWidth
	if w <= 0 {
		w = 1
	}
	size := math.Max(6, 3*w)
	n := len(pts)
	g.arrow(c, le[0], pts[1], pts[0], size, ic)
	g.arrow(c, le[1], pts[n-2], pts[n-1], size, ic)
}

func (g *AppearanceGenerator) arrow(c *content, style string, from, tip coords.Point, size float64, ic []float64) {
	if style != "OpenArrow" && style != "ClosedArrow" {
		return
	}
	angle := math.Atan2(tip.Y-from.Y, tip.X-from.X)
	spread := math.Pi / 6
	left := coords.Point{X: tip.X - size*math.Cos(angle-spread), Y: tip.Y - size*math.Sin(angle-spread)}
	right := coords.Point{X: tip.X - size*math.Cos(angle+spread), Y: tip.Y - size*math.Sin(angle+spread)}
	c.op("m", left.X, left.Y)
	c.op("l", tip.X, tip.Y)
	c.op("l", right.X, right.Y)
	if style == "OpenArrow" {
		c.WriteString("S\n")
		return
	}
	c.WriteString("h\n")
	if len(ic) > 0 {
		c.fillColor(ic)
		c.WriteString("B\n")
		return
	}
	c.WriteString("s\n")
}

type markStyle int

const (
	markHighlight markStyle = iota
	markUnderline
	markStrikeOut
	markSquiggly
)

// quads paints text markup over each quadrilateral. QuadPoints list the
// corners top-left, top-right, bottom-left, bottom-right.
func (g *AppearanceGenerator) quads(c *content, color, qp []float64, style markStyle) {
	if len(color) == 0 {
		color = []float64{1, 1, 0}
	}
	g.markupColor(c, color)
	for i := 0; i+8 <= len(qp); i += 8 {
		tl := coords.Point{X: qp[i], Y: qp[i+1]}
		tr := coords.Point{X: qp[i+2], Y: qp[i+3]}
		bl := coords.Point{X: qp[i+4], Y: qp[i+5]}
		br := coords.Point{X: qp[i+6], Y: qp[i+7]}
		height := math.Hypot(tl.X-bl.X, tl.Y-bl.Y)
		switch style {
		case markHighlight:
			c.op("m", tl.X, tl.Y)
			c.op("l", tr.X, tr.Y)
			c.op("l", br.X, br.Y)
			c.op("l", bl.X, bl.Y)
			c.WriteString("h f\n")
		case markUnderline:
			c.op("w", math.Max(1, height/14))
			c.op("m", bl.X, bl.Y+height/14)
			c.op("l", br.X, br.Y+height/14)
			c.WriteString("S\n")
		case markStrikeOut:
			c.op("w", math.Max(1, height/14))
			c.op("m", (tl.X+bl.X)/2, (tl.Y+bl.Y)/2)
			c.op("l", (tr.X+br.X)/2, (tr.Y+br.Y)/2)
			c.WriteString("S\n")
		case markSquiggly:
			amp := math.Max(1, height/12)
			c.op("w", amp/2)
			step := 2 * amp
			length := math.Hypot(br.X-bl.X, br.Y-bl.Y)
			if length == 0 {
				continue
			}
			ux, uy := (br.X-bl.X)/length, (br.Y-bl.Y)/length
			c.op("m", bl.X, bl.Y+amp)
			for d, up := step, false; d <= length; d, up = d+step, !up {
				off := 0.0
				if up {
					off = amp
				}
				c.op("l", bl.X+ux*d, bl.Y+uy*d+off)
			}
			c.WriteString("S\n")
		}
	}
}

// markup colors come from C for both fill and stroke.
func (g *AppearanceGenerator) markupColor(c *content, color []float64) {
	c.fillColor(color)
	c.strokeColor(color)
}

func (g *AppearanceGenerator) freeText(c *content, res *raw.DictObj, a *semantic.FreeTextAnnotation) {
	fontName, fontSize, color := ParseDA(a.DA)
	if fontName == "" {
		fontName = "Helv"
	}
	if fontSize <= 0 {
		fontSize = 12
	}
	if len(color) == 0 {
		color = []float64{0}
	}
	r := a.RectVal.Normalize()
	if len(a.CalloutLine) >= 4 && g.stroke(c, &a.BaseAnnotation) {
		polyline(c, flatPoints(a.CalloutLine))
		c.WriteString("S\n")
		r = inset(r, 0, a.RD)
	}
	if a.BorderWidth > 0 && g.stroke(c, &a.BaseAnnotation) {
		b := inset(r, a.BorderWidth, nil)
		c.op("re", b.LLX, b.LLY, b.Width(), b.Height())
		c.WriteString("S\n")
	}

	fonts := raw.Dict()
	fonts.Put(fontName, helvetica())
	res.Put("Font", fonts)

	pad := 2 + a.BorderWidth
	lines := wrap(a.Contents, r.Width()-2*pad, fontSize)
	leading := fontSize * 1.15
	c.WriteString("BT\n")
	c.WriteString("/" + raw.NameEscape(fontName) + " ")
	c.op("Tf", fontSize)
	c.fillColor(color)
	y := r.URY - pad - fontSize
	for _, line := range lines {
		if y < r.LLY {
			break
		}
		x := r.LLX + pad
		switch a.Q {
		case 1:
			x = r.LLX + (r.Width()-textWidth(line, fontSize))/2
		case 2:
			x = r.URX - pad - textWidth(line, fontSize)
		}
		c.op("Tm", 1, 0, 0, 1, x, y)
		c.WriteString(escapeText(line) + " Tj\n")
		y -= leading
	}
	c.WriteString("ET\n")
}

func helvetica() *raw.DictObj {
	f := raw.Dict()
	f.Put("Type", raw.NameLiteral("Font"))
	f.Put("Subtype", raw.NameLiteral("Type1"))
	f.Put("BaseFont", raw.NameLiteral("Helvetica"))
	f.Put("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	return f
}

// wrap breaks text into lines no wider than width, keeping explicit line
// breaks.
func wrap(text string, width, fontSize float64) []string {
	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if textWidth(line+" "+w, fontSize) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line += " " + w
		}
		lines = append(lines, line)
	}
	return lines
}

// stamp paints the image into the rect, or a labelled box when there is
// none.
func (g *AppearanceGenerator) stamp(c *content, res *raw.DictObj, a *semantic.StampAnnotation, ctx SerializationContext) error {
	r := a.RectVal.Normalize()
	if a.Image == nil {
		color := a.Color
		if len(color) == 0 {
			color = []float64{0.8, 0, 0}
		}
		g.markupColor(c, color)
		c.op("w", 2)
		b := inset(r, 2, nil)
		c.op("re", b.LLX, b.LLY, b.Width(), b.Height())
		c.WriteString("S\n")
		label := a.Name
		if label == "" {
			label = "Draft"
		}
		size := math.Min(r.Height()*0.5, 24)
		fonts := raw.Dict()
		fonts.Put("Helv", helvetica())
		res.Put("Font", fonts)
		c.WriteString("BT\n/Helv ")
		c.op("Tf", size)
		c.op("Td", r.LLX+(r.Width()-textWidth(label, size))/2, r.LLY+(r.Height()-size)/2+size*0.2)
		c.WriteString(escapeText(strings.ToUpper(label)) + " Tj\nET\n")
		return nil
	}
	img := a.Image
	if img.Width <= 0 || img.Height <= 0 || len(img.RGB) < img.Width*img.Height*3 {
		return fmt.Errorf("stamp image %dx%d has %d samples", img.Width, img.Height, len(img.RGB))
	}
	imRef := ctx.NextRef()
	im := imageXObject(img.Width, img.Height, "DeviceRGB", img.RGB)
	if len(img.Alpha) == img.Width*img.Height {
		maskRef := ctx.NextRef()
		ctx.AddObject(maskRef, imageXObject(img.Width, img.Height, "DeviceGray", img.Alpha))
		im.Dict.Put("SMask", raw.RefObj{R: maskRef})
	}
	ctx.AddObject(imRef, im)
	xobjs := raw.Dict()
	xobjs.Put("Im0", raw.RefObj{R: imRef})
	res.Put("XObject", xobjs)
	c.op("cm", r.Width(), 0, 0, r.Height(), r.LLX, r.LLY)
	c.WriteString("/Im0 Do\n")
	return nil
}

func imageXObject(w, h int, colorSpace string, data []byte) *raw.StreamObj {
	d := raw.Dict()
	d.Put("Type", raw.NameLiteral("XObject"))
	d.Put("Subtype", raw.NameLiteral("Image"))
	d.Put("Width", raw.NumberInt(int64(w)))
	d.Put("Height", raw.NumberInt(int64(h)))
	d.Put("ColorSpace", raw.NameLiteral(colorSpace))
	d.Put("BitsPerComponent", raw.NumberInt(8))
	return raw.NewStream(d, data)
}

// note draws a speech bubble icon filling the rect.
func (g *AppearanceGenerator) note(c *content, a *semantic.TextAnnotation) {
	color := a.Color
	if len(color) == 0 {
		color = []float64{1, 0.82, 0}
	}
	r := inset(a.RectVal.Normalize(), 1, nil)
	tail := r.Height() * 0.25
	c.fillColor(color)
	c.strokeColor([]float64{0})
	c.op("w", 1)
	c.op("m", r.LLX, r.URY)
	c.op("l", r.URX, r.URY)
	c.op("l", r.URX, r.LLY+tail)
	c.op("l", r.LLX+r.Width()*0.45, r.LLY+tail)
	c.op("l", r.LLX+r.Width()*0.2, r.LLY)
	c.op("l", r.LLX+r.Width()*0.25, r.LLY+tail)
	c.op("l", r.LLX, r.LLY+tail)
	c.WriteString("h B\n")
	body := r.Height() - tail
	for i := 1; i <= 3; i++ {
		y := r.LLY + tail + body*float64(i)/4
		c.op("m", r.LLX+r.Width()*0.2, y)
		c.op("l", r.URX-r.Width()*0.2, y)
	}
	c.WriteString("S\n")
}

func (g *AppearanceGenerator) caret(c *content, a *semantic.CaretAnnotation) {
	color := a.Color
	if len(color) == 0 {
		color = []float64{0, 0, 1}
	}
	r := inset(a.RectVal.Normalize(), 0, a.RD)
	cx := (r.LLX + r.URX) / 2
	c.fillColor(color)
	c.op("m", r.LLX, r.LLY)
	c.op("v", cx, r.LLY, cx, r.URY)
	c.op("v", cx, r.LLY, r.URX, r.LLY)
	c.WriteString("h f\n")
}
