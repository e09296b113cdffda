package coords

import "math"

// PageHeight returns the unscaled page height for a canvas rendered at scale.
// Callers divide zoom out here before converting any point.
func PageHeight(canvasHeightPixels, scale float64) float64 {
	if scale == 0 {
		return canvasHeightPixels
	}
	return canvasHeightPixels / scale
}

// ToDocumentPoint converts an editing-space point to document space.
func ToDocumentPoint(p Point, pageHeight float64) Point {
	return Point{X: p.X, Y: pageHeight - p.Y}
}

// ToEditingPoint converts a document-space point to editing space.
func ToEditingPoint(p Point, pageHeight float64) Point {
	return Point{X: p.X, Y: pageHeight - p.Y}
}

// ToDocumentRect converts r to a PDF rectangle [llx lly urx ury].
func ToDocumentRect(r Rect, pageHeight float64) [4]float64 {
	x1 := r.X
	y1 := pageHeight - r.Y - r.Height
	return [4]float64{x1, y1, x1 + r.Width, y1 + r.Height}
}

// ToEditingRect is the inverse of ToDocumentRect. Corner order in d is not
// trusted; the rectangle is normalized first.
func ToEditingRect(d [4]float64, pageHeight float64) Rect {
	llx, urx := math.Min(d[0], d[2]), math.Max(d[0], d[2])
	lly, ury := math.Min(d[1], d[3]), math.Max(d[1], d[3])
	return Rect{
		X:      llx,
		Y:      pageHeight - ury,
		Width:  urx - llx,
		Height: ury - lly,
	}
}

// ToDocumentQuad converts r to the eight QuadPoints numbers for one
// highlighted rectangle, ordered top-left, top-right, bottom-left,
// bottom-right.
func ToDocumentQuad(r Rect, pageHeight float64) [8]float64 {
	d := ToDocumentRect(r, pageHeight)
	x1, y1, x2, y2 := d[0], d[1], d[2], d[3]
	return [8]float64{x1, y2, x2, y2, x1, y1, x2, y1}
}

// QuadToEditingRect returns the editing-space bounding box of one quad. Any
// corner order is accepted since producers disagree on it.
func QuadToEditingRect(q []float64, pageHeight float64) (Rect, bool) {
	if len(q) < 8 {
		return Rect{}, false
	}
	pts := make([]Point, 0, 4)
	for i := 0; i+1 < 8; i += 2 {
		pts = append(pts, ToEditingPoint(Point{X: q[i], Y: q[i+1]}, pageHeight))
	}
	return BoundsOf(pts)
}

// QuadsToEditingRects splits a flat QuadPoints array into editing rectangles.
// A trailing partial quad is ignored.
func QuadsToEditingRects(q []float64, pageHeight float64) []Rect {
	var out []Rect
	for i := 0; i+8 <= len(q); i += 8 {
		if r, ok := QuadToEditingRect(q[i:i+8], pageHeight); ok {
			out = append(out, r)
		}
	}
	return out
}

// DocumentRectUnion returns the union of PDF rectangles.
func DocumentRectUnion(a, b [4]float64) [4]float64 {
	return [4]float64{
		math.Min(a[0], b[0]),
		math.Min(a[1], b[1]),
		math.Max(a[2], b[2]),
		math.Max(a[3], b[3]),
	}
}

// FlattenPoints applies m to every (x, y) pair in flat and returns the
// transformed points.
func FlattenPoints(m Matrix, flat []float64) []Point {
	out := make([]Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out = append(out, m.Transform(Point{X: flat[i], Y: flat[i+1]}))
	}
	return out
}

// ToDocumentFlat converts editing points to a flat document-space list
// [x1 y1 x2 y2 ...].
func ToDocumentFlat(pts []Point, pageHeight float64) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		d := ToDocumentPoint(p, pageHeight)
		out = append(out, d.X, d.Y)
	}
	return out
}
