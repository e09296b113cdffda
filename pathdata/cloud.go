package pathdata

import (
	"math"

	"github.com/wudi/pdfmarkup/coords"
)

// Cloud builds a scalloped outline through vertices. Each edge is split into
// bumps about 2*radius long, each drawn as a quadratic curve bulging to the
// left of the direction of travel.
func Cloud(vertices []coords.Point, closed bool, radius float64) []Command {
	if len(vertices) < 2 || radius <= 0 {
		return nil
	}
	pts := vertices
	if closed && vertices[0] != vertices[len(vertices)-1] {
		pts = append(append([]coords.Point(nil), vertices...), vertices[0])
	}
	out := []Command{{Op: MoveTo, Pts: []coords.Point{pts[0]}}}
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		length := a.Dist(b)
		if length == 0 {
			continue
		}
		n := int(math.Max(1, math.Round(length/(2*radius))))
		dx, dy := (b.X-a.X)/float64(n), (b.Y-a.Y)/float64(n)
		// unit normal to the left of travel in y-down space
		nx, ny := dy/math.Hypot(dx, dy), -dx/math.Hypot(dx, dy)
		bulge := math.Hypot(dx, dy) / 2
		for j := 0; j < n; j++ {
			s := coords.Point{X: a.X + dx*float64(j), Y: a.Y + dy*float64(j)}
			e := coords.Point{X: s.X + dx, Y: s.Y + dy}
			ctrl := coords.Point{X: (s.X+e.X)/2 + nx*bulge, Y: (s.Y+e.Y)/2 + ny*bulge}
			out = append(out, Command{Op: QuadTo, Pts: []coords.Point{ctrl, e}})
		}
	}
	if closed {
		out = append(out, Command{Op: Close})
	}
	return out
}

// CloudRadius returns the bump radius for a border effect intensity, which
// PDF readers expect in [0, 2].
func CloudRadius(intensity float64) float64 {
	return 2.5 + 2.5*math.Max(0, math.Min(2, intensity))
}
