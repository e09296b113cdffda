package selection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/decode"
	"github.com/wudi/pdfmarkup/editor"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/store"
)

type confirmFunc func(ids []string) bool

func (f confirmFunc) ConfirmDelete(ids []string) bool { return f(ids) }

type fixture struct {
	page    *scene.Page
	store   *store.Store
	surface *editor.Surface
	reg     editor.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	enc := encode.New(cfg.Encoder)
	reg := editor.NewRegistry(cfg.Editor, enc, decode.New(enc))
	page := scene.NewPage(1, scene.Viewport{Scale: 1, Width: 600, Height: 800})
	st := store.New()
	return &fixture{
		page:    page,
		store:   st,
		reg:     reg,
		surface: editor.NewSurface(page, reg, st, editor.WithConfig(cfg)),
	}
}

// rect draws a rectangle and returns its id.
func (f *fixture) rect(t *testing.T, x0, y0, x1, y1 float64) string {
	t.Helper()
	f.surface.SetTool(annot.KindRectangle)
	before := f.store.Len()
	for _, ev := range []editor.Event{
		{Type: editor.EventPress, Point: coords.Point{X: x0, Y: y0}},
		{Type: editor.EventMove, Point: coords.Point{X: x1, Y: y1}},
		{Type: editor.EventRelease, Point: coords.Point{X: x1, Y: y1}},
	} {
		require.NoError(t, f.surface.Handle(ev))
	}
	require.Equal(t, before+1, f.store.Len())
	groups := f.page.Layer.Groups()
	return groups[len(groups)-1].ID
}

func (f *fixture) controller(opts ...Option) *Controller {
	return New(f.page, f.reg, f.store, opts...)
}

func requireRect(t *testing.T, want [4]float64, got [4]float64) {
	t.Helper()
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-6, "rect %v", got)
	}
}

func TestMoveReencodes(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	before, _ := f.store.Get(id)

	c := f.controller()
	require.NoError(t, c.Select(id))
	require.NoError(t, c.Move(20, 10))
	require.NoError(t, c.Move(50, 30))
	require.NoError(t, c.End())

	rec, ok := f.store.Get(id)
	require.True(t, ok)
	requireRect(t, [4]float64{60, 700, 160, 750}, rec.Geometry.Rect)
	require.False(t, rec.LastModified.Before(before.LastModified))
	require.True(t, f.page.Layer.Get(id).Transform.IsIdentity())

	g, err := scene.Restore(rec.Snapshot)
	require.NoError(t, err)
	r, ok := g.NodeBounds(g.Nodes[0])
	require.True(t, ok)
	require.InDelta(t, 60, r.X, 1e-9)
	require.InDelta(t, 50, r.Y, 1e-9)
}

func TestMoveClampsToPage(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.NoError(t, c.Select(id))

	// Client rect with stroke is (9,19)-(111,71).
	require.NoError(t, c.Move(-100, -100))
	b, ok := c.Bounds()
	require.True(t, ok)
	require.InDelta(t, 0, b.X, 1e-9)
	require.InDelta(t, 0, b.Y, 1e-9)

	require.NoError(t, c.Move(1000, 1000))
	require.NoError(t, c.End())
	rec, _ := f.store.Get(id)
	requireRect(t, [4]float64{499, 1, 599, 51}, rec.Geometry.Rect)
}

func TestMultiSelectionBounds(t *testing.T) {
	f := newFixture(t)
	a := f.rect(t, 10, 20, 110, 70)
	b := f.rect(t, 200, 300, 250, 400)
	c := f.controller()
	require.NoError(t, c.Select(a, b))
	require.ElementsMatch(t, []string{a, b}, c.Selected())

	bounds, ok := c.Bounds()
	require.True(t, ok)
	require.InDelta(t, 9, bounds.X, 1e-9)
	require.InDelta(t, 19, bounds.Y, 1e-9)
	require.InDelta(t, 242, bounds.Width, 1e-9)
	require.InDelta(t, 382, bounds.Height, 1e-9)

	// The combined box can only move as far as its bottom edge allows.
	require.NoError(t, c.Move(0, 1000))
	require.NoError(t, c.End())
	recB, _ := f.store.Get(b)
	require.InDelta(t, 1, recB.Geometry.Rect[1], 1e-6)
	recA, _ := f.store.Get(a)
	require.InDelta(t, 730-399, recA.Geometry.Rect[1], 1e-6)
}

func TestResizeFromCorner(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.NoError(t, c.Select(id))
	require.Equal(t, HandleBottomRight, c.HandleAt(coords.Point{X: 111, Y: 71}))

	require.NoError(t, c.Resize(HandleBottomRight, coords.Point{X: 9 + 204, Y: 19 + 104}))
	require.NoError(t, c.End())
	rec, _ := f.store.Get(id)
	requireRect(t, [4]float64{11, 679, 211, 779}, rec.Geometry.Rect)
}

func TestRotateAboutCentre(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 120, 110, 170)
	c := f.controller()
	require.NoError(t, c.Select(id))
	require.NoError(t, c.Rotate(90))
	require.NoError(t, c.End())

	rec, _ := f.store.Get(id)
	requireRect(t, [4]float64{35, 605, 85, 705}, rec.Geometry.Rect)
}

func TestRotateClampsToPage(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.NoError(t, c.Select(id))

	// Turned upright the box would reach y=-6 with its stroke.
	require.NoError(t, c.Rotate(90))
	b, ok := c.Bounds()
	require.True(t, ok)
	require.InDelta(t, 0, b.Y, 1e-9)
	require.NoError(t, c.End())

	rec, _ := f.store.Get(id)
	requireRect(t, [4]float64{35, 699, 85, 799}, rec.Geometry.Rect)
}

func TestResizeAfterRotateKeepsShape(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 100, 100, 200, 150)
	c := f.controller()
	require.NoError(t, c.Select(id))
	require.NoError(t, c.Rotate(45))
	require.NoError(t, c.End())

	// Stretching a rotated box sideways shears it.
	start, ok := c.Bounds()
	require.True(t, ok)
	require.NoError(t, c.Resize(HandleRight, coords.Point{X: start.X + 2*start.Width, Y: start.Y + start.Height/2}))
	during, ok := c.Bounds()
	require.True(t, ok)
	require.Greater(t, during.Width, 1.5*start.Width)
	require.NoError(t, c.End())

	after, ok := c.Bounds()
	require.True(t, ok)
	require.InDelta(t, during.X, after.X, 1e-6)
	require.InDelta(t, during.Y, after.Y, 1e-6)
	require.InDelta(t, during.Width, after.Width, 1e-6)
	require.InDelta(t, during.Height, after.Height, 1e-6)

	rec, _ := f.store.Get(id)
	g, err := scene.Restore(rec.Snapshot)
	require.NoError(t, err)
	restored, ok := g.ClientRect()
	require.True(t, ok)
	require.InDelta(t, after.Width, restored.Width, 1e-6)
	require.InDelta(t, after.Height, restored.Height, 1e-6)
}

func TestFlagsAreHonoured(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.NoError(t, c.Select(id))

	no := false
	_, err := f.store.Update(id, annot.Patch{Resizable: &no})
	require.NoError(t, err)
	require.ErrorIs(t, c.Resize(HandleRight, coords.Point{X: 300, Y: 40}), ErrLocked)
	require.ErrorIs(t, c.Rotate(10), ErrLocked)
	require.NoError(t, c.Move(5, 5))
	c.Cancel()

	yes := true
	_, err = f.store.Update(id, annot.Patch{Readonly: &yes})
	require.NoError(t, err)
	require.ErrorIs(t, c.Move(5, 5), ErrLocked)
	require.ErrorIs(t, c.Delete(id), ErrLocked)
	require.ErrorIs(t, c.SetStyle(annot.Style{Color: "#00ff00"}), ErrLocked)
}

func TestCancelRevertsTransform(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.NoError(t, c.Select(id))
	before, _ := c.Bounds()

	require.NoError(t, c.Move(40, 40))
	c.Cancel()
	after, _ := c.Bounds()
	require.Equal(t, before, after)
	rec, _ := f.store.Get(id)
	requireRect(t, [4]float64{10, 730, 110, 780}, rec.Geometry.Rect)
}

func TestSetStyle(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	c := f.controller()
	require.ErrorIs(t, c.SetStyle(annot.Style{Color: "#0000ff"}), ErrEmpty)
	require.NoError(t, c.Select(id))
	require.NoError(t, c.SetStyle(annot.Style{Color: "#0000ff"}))

	rec, _ := f.store.Get(id)
	require.Equal(t, "#0000ff", rec.Style.Color)
	require.Equal(t, 2.0, rec.Style.StrokeWidth)
	require.Equal(t, [3]float64{0, 0, 1}, rec.Geometry.Color)
	require.Equal(t, "#0000ff", f.page.Layer.Get(id).Nodes[0].Stroke)
}

func TestDoubleClickDelete(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	var deleted []string
	answer := false
	c := f.controller(
		WithConfirmer(confirmFunc(func(ids []string) bool { return answer })),
		OnDelete(func(id string) { deleted = append(deleted, id) }),
	)
	inside := coords.Point{X: 50, Y: 40}

	ok, err := c.DoubleClick(inside)
	require.NoError(t, err)
	require.False(t, ok)
	_, found := f.store.Get(id)
	require.True(t, found)

	answer = true
	ok, err = c.DoubleClick(coords.Point{X: 500, Y: 500})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.DoubleClick(inside)
	require.NoError(t, err)
	require.True(t, ok)
	_, found = f.store.Get(id)
	require.False(t, found)
	require.Nil(t, f.page.Layer.Get(id))
	require.Equal(t, []string{id}, deleted)
}

func TestDoubleClickDisabled(t *testing.T) {
	f := newFixture(t)
	id := f.rect(t, 10, 20, 110, 70)
	cfg := config.Default().Selection
	cfg.DeleteOnDoubleClick = false
	c := f.controller(WithConfig(cfg))

	ok, err := c.DoubleClick(coords.Point{X: 50, Y: 40})
	require.NoError(t, err)
	require.False(t, ok)
	_, found := f.store.Get(id)
	require.True(t, found)
}

func TestSelectUnknown(t *testing.T) {
	f := newFixture(t)
	c := f.controller()
	require.ErrorIs(t, c.Select("nope"), store.ErrNotFound)
	require.ErrorIs(t, c.Move(1, 1), ErrEmpty)
	require.False(t, c.SelectAt(coords.Point{X: 1, Y: 1}))
	require.ErrorIs(t, c.Delete("nope"), store.ErrNotFound)
}
