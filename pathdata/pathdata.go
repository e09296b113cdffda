// Package pathdata parses SVG-style path command strings and samples them
// into point lists.
//
// Only move (M), line (L), quadratic curve (Q), cubic curve (C) and close (Z)
// are understood, in absolute and relative form. Any other command letter is
// skipped together with its arguments; parsing resumes at the next letter.
package pathdata

import (
	"math"
	"strconv"
	"strings"

	"github.com/wudi/pdfmarkup/coords"
)

// Op is a path command.
type Op byte

const (
	MoveTo  Op = 'M'
	LineTo  Op = 'L'
	QuadTo  Op = 'Q'
	CubicTo Op = 'C'
	Close   Op = 'Z'
)

// Command is one absolute path segment. Pts holds the control points
// followed by the end point.
type Command struct {
	Op  Op
	Pts []coords.Point
}

func (op Op) arity() int {
	switch op {
	case MoveTo, LineTo:
		return 1
	case QuadTo:
		return 2
	case CubicTo:
		return 3
	}
	return 0
}

// Parse converts d into absolute commands.
func Parse(d string) []Command {
	toks := tokenize(d)
	var (
		out     []Command
		cur     coords.Point
		start   coords.Point
		op      byte
		skip    bool
		pending []float64
	)
	flush := func(rel bool) {
		n := Op(op).arity() * 2
		for n > 0 && len(pending) >= n {
			args := pending[:n]
			pending = pending[n:]
			pts := make([]coords.Point, 0, n/2)
			for i := 0; i < n; i += 2 {
				p := coords.Point{X: args[i], Y: args[i+1]}
				if rel {
					p = p.Add(cur.X, cur.Y)
				}
				pts = append(pts, p)
			}
			cmdOp := Op(op)
			out = append(out, Command{Op: cmdOp, Pts: pts})
			cur = pts[len(pts)-1]
			if cmdOp == MoveTo {
				start = cur
				// extra pairs after a move are implicit line-tos
				op = byte(LineTo)
			}
		}
	}
	rel := false
	for _, t := range toks {
		if t.isOp {
			pending = pending[:0]
			upper := t.op &^ 0x20
			rel = t.op != upper
			switch Op(upper) {
			case MoveTo, LineTo, QuadTo, CubicTo:
				op = upper
				skip = false
			case Close:
				out = append(out, Command{Op: Close})
				cur = start
				op = 0
				skip = false
			default:
				skip = true
				op = 0
			}
			continue
		}
		if skip || op == 0 {
			continue
		}
		pending = append(pending, t.num)
		flush(rel)
	}
	return out
}

type token struct {
	isOp bool
	op   byte
	num  float64
}

func tokenize(d string) []token {
	var toks []token
	i := 0
	for i < len(d) {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			if c == 'e' || c == 'E' {
				// stray exponent marker
				i++
				continue
			}
			toks = append(toks, token{isOp: true, op: c})
			i++
		default:
			j := scanNumber(d, i)
			if j == i {
				i++
				continue
			}
			if v, err := strconv.ParseFloat(d[i:j], 64); err == nil {
				toks = append(toks, token{num: v})
			}
			i = j
		}
	}
	return toks
}

func scanNumber(d string, i int) int {
	j := i
	if j < len(d) && (d[j] == '+' || d[j] == '-') {
		j++
	}
	digits := false
	dot := false
	for j < len(d) {
		c := d[j]
		if c >= '0' && c <= '9' {
			digits = true
			j++
			continue
		}
		if c == '.' && !dot {
			dot = true
			j++
			continue
		}
		break
	}
	if !digits {
		return i
	}
	if j < len(d) && (d[j] == 'e' || d[j] == 'E') {
		k := j + 1
		if k < len(d) && (d[k] == '+' || d[k] == '-') {
			k++
		}
		if k < len(d) && d[k] >= '0' && d[k] <= '9' {
			for k < len(d) && d[k] >= '0' && d[k] <= '9' {
				k++
			}
			j = k
		}
	}
	return j
}

// Format writes cmds back as an absolute path string.
func Format(cmds []Command) string {
	var sb strings.Builder
	for i, c := range cmds {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte(c.Op))
		for _, p := range c.Pts {
			sb.WriteByte(' ')
			sb.WriteString(fmtNum(p.X))
			sb.WriteByte(' ')
			sb.WriteString(fmtNum(p.Y))
		}
	}
	return sb.String()
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

// Transform applies m to every point of cmds.
func Transform(cmds []Command, m coords.Matrix) []Command {
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		pts := make([]coords.Point, len(c.Pts))
		for j, p := range c.Pts {
			pts[j] = m.Transform(p)
		}
		out[i] = Command{Op: c.Op, Pts: pts}
	}
	return out
}

// Sample flattens cmds into points, evaluating each curve at steps equal
// parameter intervals. Close segments repeat the subpath start.
func Sample(cmds []Command, steps int) []coords.Point {
	if steps < 1 {
		steps = 1
	}
	var (
		out   []coords.Point
		cur   coords.Point
		start coords.Point
	)
	for _, c := range cmds {
		switch c.Op {
		case MoveTo:
			cur = c.Pts[0]
			start = cur
			out = append(out, cur)
		case LineTo:
			cur = c.Pts[0]
			out = append(out, cur)
		case QuadTo:
			for i := 1; i <= steps; i++ {
				out = append(out, quadAt(cur, c.Pts[0], c.Pts[1], float64(i)/float64(steps)))
			}
			cur = c.Pts[1]
		case CubicTo:
			for i := 1; i <= steps; i++ {
				out = append(out, cubicAt(cur, c.Pts[0], c.Pts[1], c.Pts[2], float64(i)/float64(steps)))
			}
			cur = c.Pts[2]
		case Close:
			if cur != start {
				out = append(out, start)
			}
			cur = start
		}
	}
	return out
}

// Bounds returns the bounding box of the sampled path.
func Bounds(cmds []Command, steps int) (coords.Rect, bool) {
	return coords.BoundsOf(Sample(cmds, steps))
}

func quadAt(p0, p1, p2 coords.Point, t float64) coords.Point {
	u := 1 - t
	return coords.Point{
		X: u*u*p0.X + 2*u*t*p1.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*p1.Y + t*t*p2.Y,
	}
}

func cubicAt(p0, p1, p2, p3 coords.Point, t float64) coords.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return coords.Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// Cubic raises quadratic curves to the equivalent cubics, leaving every
// other command as is.
func Cubic(cmds []Command) []Command {
	out := make([]Command, 0, len(cmds))
	var cur, start coords.Point
	for _, c := range cmds {
		switch c.Op {
		case MoveTo:
			cur, start = c.Pts[0], c.Pts[0]
		case LineTo:
			cur = c.Pts[0]
		case QuadTo:
			q, end := c.Pts[0], c.Pts[1]
			c = Command{Op: CubicTo, Pts: []coords.Point{
				{X: cur.X + 2*(q.X-cur.X)/3, Y: cur.Y + 2*(q.Y-cur.Y)/3},
				{X: end.X + 2*(q.X-end.X)/3, Y: end.Y + 2*(q.Y-end.Y)/3},
				end,
			}}
			cur = end
		case CubicTo:
			cur = c.Pts[2]
		case Close:
			cur = start
		}
		out = append(out, c)
	}
	return out
}
