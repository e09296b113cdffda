package pathdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wudi/pdfmarkup/coords"
)

func TestParseAbsoluteAndRelative(t *testing.T) {
	got := Parse("M 10 10 l 5 0 L20,20 q 5 5 10 0 Z")
	want := []Command{
		{Op: MoveTo, Pts: []coords.Point{{X: 10, Y: 10}}},
		{Op: LineTo, Pts: []coords.Point{{X: 15, Y: 10}}},
		{Op: LineTo, Pts: []coords.Point{{X: 20, Y: 20}}},
		{Op: QuadTo, Pts: []coords.Point{{X: 25, Y: 25}, {X: 30, Y: 20}}},
		{Op: Close},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("Parse (-want +got):\n%s", diff)
	}
}

func TestParseImplicitLineTo(t *testing.T) {
	got := Parse("M0 0 10 0 10 10")
	if len(got) != 3 || got[1].Op != LineTo || got[2].Op != LineTo {
		t.Fatalf("expected move + two implicit line-tos, got %+v", got)
	}
}

func TestParseSkipsUnknownCommands(t *testing.T) {
	// A (arc) and H are not understood; their arguments must not leak into
	// the following commands.
	got := Parse("M0 0 A 5 5 0 0 1 10 10 H 40 L 20 0 C 20 10 30 10 30 0")
	if len(got) != 3 {
		t.Fatalf("expected 3 commands, got %d: %+v", len(got), got)
	}
	if got[1].Op != LineTo || got[1].Pts[0] != (coords.Point{X: 20, Y: 0}) {
		t.Fatalf("line after skipped commands = %+v", got[1])
	}
	if got[2].Op != CubicTo {
		t.Fatalf("expected cubic, got %c", got[2].Op)
	}
}

func TestParseExponentNumbers(t *testing.T) {
	got := Parse("M1e1,-2.5E-1L.5-.5")
	want := []Command{
		{Op: MoveTo, Pts: []coords.Point{{X: 10, Y: -0.25}}},
		{Op: LineTo, Pts: []coords.Point{{X: 0.5, Y: -0.5}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse (-want +got):\n%s", diff)
	}
}

func TestSampleCurves(t *testing.T) {
	cmds := Parse("M0 0 Q 5 10 10 0 C 10 10 20 10 20 0 Z")
	pts := Sample(cmds, 4)
	// 1 move + 4 quad + 4 cubic + close back to start
	if len(pts) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(pts))
	}
	if pts[2] != (coords.Point{X: 5, Y: 5}) {
		t.Fatalf("quad midpoint = %+v", pts[2])
	}
	if pts[4] != (coords.Point{X: 10, Y: 0}) || pts[8] != (coords.Point{X: 20, Y: 0}) {
		t.Fatalf("curve end points wrong: %+v %+v", pts[4], pts[8])
	}
	if pts[9] != (coords.Point{}) {
		t.Fatalf("close should return to start, got %+v", pts[9])
	}
}

func TestFormatRoundTrip(t *testing.T) {
	cmds := Parse("M 1.5 2 L 3 4 C 1 2 3 4 5 6 Z")
	if got := Format(cmds); got != "M 1.5 2 L 3 4 C 1 2 3 4 5 6 Z" {
		t.Fatalf("Format = %q", got)
	}
	if diff := cmp.Diff(cmds, Parse(Format(cmds)), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("reparse (-want +got):\n%s", diff)
	}
}

func TestTransform(t *testing.T) {
	cmds := Transform(Parse("M 1 1 L 2 2"), coords.Translate(10, 20))
	if cmds[1].Pts[0] != (coords.Point{X: 12, Y: 22}) {
		t.Fatalf("transformed = %+v", cmds[1].Pts[0])
	}
}

func TestCloud(t *testing.T) {
	verts := []coords.Point{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 40}}
	cmds := Cloud(verts, true, 5)
	if cmds[0].Op != MoveTo || cmds[len(cmds)-1].Op != Close {
		t.Fatalf("cloud should be a closed subpath: %s", Format(cmds))
	}
	// 40/10 = 4 bumps per straight edge, round(56.57/10) = 6 on the diagonal
	if n := len(cmds) - 2; n != 14 {
		t.Fatalf("expected 14 bumps, got %d", n)
	}
	r, ok := Bounds(cmds, 8)
	if !ok {
		t.Fatal("no bounds")
	}
	if r.Y >= 0 {
		t.Fatalf("top edge bumps should bulge above y=0, bounds %+v", r)
	}
	if Cloud(verts[:1], false, 5) != nil {
		t.Fatal("single vertex cloud should be nil")
	}
}
