package editor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/decode"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/raster"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/store"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

type fakeRelease struct {
	next int
	fns  map[int]func()
}

func (f *fakeRelease) ListenRelease(fn func()) func() {
	if f.fns == nil {
		f.fns = map[int]func(){}
	}
	id := f.next
	f.next++
	f.fns[id] = fn
	return func() { delete(f.fns, id) }
}

func (f *fakeRelease) fire() {
	var fns []func()
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

type fixture struct {
	surface *Surface
	store   *store.Store
	clock   *ManualClock
	release *fakeRelease
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cfg := config.Default()
	enc := encode.New(cfg.Encoder)
	reg := NewRegistry(cfg.Editor, enc, decode.New(enc))
	f := &fixture{
		store:   store.New(),
		clock:   NewManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		release: &fakeRelease{},
	}
	page := scene.NewPage(1, scene.Viewport{Scale: 1.5, Width: 900, Height: 1200})
	all := append([]Option{
		WithConfig(cfg),
		WithClock(f.clock),
		WithReleaseListener(f.release),
	}, opts...)
	f.surface = NewSurface(page, reg, f.store, all...)
	return f
}

func (f *fixture) events(t *testing.T, evs ...Event) {
	t.Helper()
	for _, ev := range evs {
		if err := f.surface.Handle(ev); err != nil {
			t.Fatalf("Handle(%+v): %v", ev, err)
		}
	}
}

func press(x, y float64) Event { return Event{Type: EventPress, Point: coords.Point{X: x, Y: y}} }
func move(x, y float64) Event  { return Event{Type: EventMove, Point: coords.Point{X: x, Y: y}} }
func up(x, y float64) Event    { return Event{Type: EventRelease, Point: coords.Point{X: x, Y: y}} }
func key(k string) Event       { return Event{Type: EventKey, Key: k} }

func (f *fixture) drag(t *testing.T, x0, y0, x1, y1 float64) {
	t.Helper()
	f.events(t, press(x0, y0), move((x0+x1)/2, (y0+y1)/2), move(x1, y1), up(x1, y1))
}

func (f *fixture) only(t *testing.T) *annot.Record {
	t.Helper()
	all := f.store.All()
	if len(all) != 1 {
		t.Fatalf("store holds %d records, want 1", len(all))
	}
	return all[0]
}

func TestRectangleGesture(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindRectangle)
	f.drag(t, 10, 20, 110, 70)

	rec := f.only(t)
	if diff := cmp.Diff([4]float64{10, 730, 110, 780}, rec.Geometry.Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
	g := f.surface.Page().Layer.Get(rec.ID)
	if g == nil || !g.IsDone() {
		t.Fatalf("group %s missing or not done", rec.ID)
	}
	if rec.Kind != annot.KindRectangle || rec.Subtype != "Square" || !rec.Resizable {
		t.Errorf("record = %+v", rec)
	}
	e, _ := f.surface.Editor(annot.KindRectangle)
	if e.State() != StateIdle || e.Outcome() != StateDone {
		t.Errorf("state %s outcome %s", e.State(), e.Outcome())
	}
	if len(f.release.fns) != 0 {
		t.Errorf("release listener still registered")
	}

	restored, err := scene.Restore(rec.Snapshot)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(restored.Nodes) != 1 || restored.Nodes[0].Width != 100 {
		t.Errorf("snapshot nodes = %+v", restored.Nodes)
	}
}

func TestMinimumSizeRejection(t *testing.T) {
	for _, kind := range []annot.Kind{annot.KindRectangle, annot.KindEllipse, annot.KindLine, annot.KindFreehand} {
		f := newFixture(t)
		f.surface.SetTool(kind)
		f.drag(t, 10, 10, 17, 15)

		if n := f.store.Len(); n != 0 {
			t.Errorf("%s: store holds %d records", kind, n)
		}
		if n := f.surface.Page().Layer.Len(); n != 0 {
			t.Errorf("%s: layer holds %d groups", kind, n)
		}
		e, _ := f.surface.Editor(kind)
		if e.Outcome() != StateCancelled {
			t.Errorf("%s: outcome %s, want cancelled", kind, e.Outcome())
		}
	}
}

func TestCancelPaths(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(f *fixture, t *testing.T)
	}{
		{"escape", func(f *fixture, t *testing.T) { f.events(t, key("Escape")) }},
		{"leave", func(f *fixture, t *testing.T) { f.events(t, Event{Type: EventLeave}) }},
		{"tool switch", func(f *fixture, t *testing.T) { f.surface.SetTool(annot.KindEllipse) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.surface.SetTool(annot.KindRectangle)
			f.events(t, press(10, 10), move(80, 80))
			if len(f.release.fns) != 1 {
				t.Fatalf("release listener not registered")
			}
			tt.cancel(f, t)
			if len(f.release.fns) != 0 {
				t.Errorf("release listener leaked")
			}
			if f.store.Len() != 0 || f.surface.Page().Layer.Len() != 0 {
				t.Errorf("cancelled gesture left state behind")
			}
			// Moves after the gesture ended are ignored.
			f.surface.SetTool(annot.KindRectangle)
			f.events(t, move(90, 90), up(90, 90))
			if f.store.Len() != 0 {
				t.Errorf("stray release created a record")
			}
		})
	}
}

func TestWindowReleaseCompletesGesture(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindEllipse)
	f.events(t, press(100, 100), move(200, 160))
	f.release.fire()

	rec := f.only(t)
	if diff := cmp.Diff([4]float64{100, 640, 200, 700}, rec.Geometry.Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
	if len(rec.Geometry.Path) != 2*720 {
		t.Errorf("ellipse samples = %d, want 720 points", len(rec.Geometry.Path)/2)
	}
	if len(f.release.fns) != 0 {
		t.Errorf("release listener leaked")
	}
}

func TestFreehandDebounce(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindFreehand)

	f.drag(t, 10, 10, 50, 50)
	first := f.only(t)
	f.clock.Advance(500 * time.Millisecond)

	f.drag(t, 60, 60, 100, 100)
	merged := f.only(t)
	if merged.ID != first.ID {
		t.Fatalf("second stroke created %s, want merge into %s", merged.ID, first.ID)
	}
	if n := len(merged.Geometry.InkList); n != 2 {
		t.Errorf("ink list has %d strokes, want 2", n)
	}
	if n := f.clock.Pending(); n != 1 {
		t.Errorf("%d timers pending, want 1", n)
	}

	f.clock.Advance(1500 * time.Millisecond)
	f.drag(t, 200, 200, 240, 240)
	if n := f.store.Len(); n != 2 {
		t.Fatalf("store holds %d records, want 2", n)
	}
	for _, rec := range f.store.All() {
		if rec.ID != first.ID && len(rec.Geometry.InkList) != 1 {
			t.Errorf("new record has %d strokes", len(rec.Geometry.InkList))
		}
	}
}

func TestDebounceDropsTinyStrokeOnly(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindFreehand)
	f.drag(t, 10, 10, 50, 50)
	f.clock.Advance(200 * time.Millisecond)
	f.drag(t, 70, 70, 71, 71)

	rec := f.only(t)
	if n := len(rec.Geometry.InkList); n != 1 {
		t.Errorf("ink list has %d strokes, want 1", n)
	}
	g := f.surface.Page().Layer.Get(rec.ID)
	if g == nil || len(g.Nodes) != 1 {
		t.Fatalf("group lost its first stroke")
	}
}

func TestPolylineClicks(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindPolyline)
	f.events(t,
		press(10, 10), up(10, 10),
		move(50, 10),
		press(50, 10), up(50, 10),
		press(50, 50), press(50, 50),
		Event{Type: EventDoubleClick, Point: coords.Point{X: 50, Y: 50}},
	)
	rec := f.only(t)
	want := []float64{10, 790, 50, 790, 50, 750}
	if diff := cmp.Diff(want, rec.Geometry.Vertices, approx); diff != "" {
		t.Errorf("vertices mismatch (-want +got):\n%s", diff)
	}
}

func TestPolygonClosesNearStart(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindPolygon)
	f.events(t, press(10, 10), press(100, 10), press(100, 100), press(13, 12))

	rec := f.only(t)
	if n := len(rec.Geometry.Vertices); n != 6 {
		t.Errorf("polygon has %d numbers, want 6", n)
	}
}

func TestMultiClickNeedsTwoVertices(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindCloud)
	f.events(t, press(10, 10), move(40, 40), key("Enter"))
	if f.store.Len() != 0 || f.surface.Page().Layer.Len() != 0 {
		t.Errorf("single-vertex cloud was kept")
	}
}

func TestCloudGesture(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindCloud)
	f.events(t, press(100, 100), press(200, 100), press(200, 200), key("Enter"))

	rec := f.only(t)
	if rec.Geometry.PathData == "" || len(rec.Geometry.Vertices) == 0 {
		t.Fatalf("cloud geometry = %+v", rec.Geometry)
	}
	// The padded rect contains every vertex.
	r := rec.Geometry.Rect
	for i := 0; i+1 < len(rec.Geometry.Vertices); i += 2 {
		x, y := rec.Geometry.Vertices[i], rec.Geometry.Vertices[i+1]
		if x < r[0] || x > r[2] || y < r[1] || y > r[3] {
			t.Fatalf("vertex (%g,%g) outside rect %v", x, y, r)
		}
	}
}

func TestCalloutFinishesAfterThreeClicks(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindCallout)
	f.surface.SetPayload(Payload{Text: "look here"})
	f.events(t, press(10, 10), press(60, 40), press(100, 40))

	rec := f.only(t)
	if rec.Content.Text != "look here" {
		t.Errorf("text = %q", rec.Content.Text)
	}
	if n := len(rec.Geometry.Callout); n != 6 {
		t.Errorf("callout line has %d numbers, want 6", n)
	}
	if len(rec.Geometry.Box) != 4 {
		t.Errorf("box = %v", rec.Geometry.Box)
	}
}

func TestNotePlacement(t *testing.T) {
	f := newFixture(t)
	f.surface.SetTool(annot.KindNote)
	f.surface.SetPayload(Payload{Text: "remember"})
	f.events(t, press(30, 30))

	rec := f.only(t)
	if diff := cmp.Diff([4]float64{30, 746, 54, 770}, rec.Geometry.Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
	if rec.Resizable || rec.Content.Text != "remember" {
		t.Errorf("record = %+v", rec)
	}
}

func TestSelectRectsHighlight(t *testing.T) {
	f := newFixture(t)
	if _, err := f.surface.SelectRects([]coords.Rect{{X: 1, Y: 1, Width: 5, Height: 5}}); err == nil {
		t.Fatalf("select tool accepted a text selection")
	}
	f.surface.SetTool(annot.KindHighlight)
	if err := f.surface.Handle(press(1, 1)); err == nil {
		t.Errorf("highlight accepted a pointer press")
	}
	id, err := f.surface.SelectRects([]coords.Rect{
		{X: 50, Y: 100, Width: 100, Height: 20},
		{X: 20, Y: 120, Width: 60, Height: 22},
	})
	if err != nil {
		t.Fatalf("SelectRects: %v", err)
	}
	rec := f.only(t)
	if rec.ID != id {
		t.Errorf("id %s, record %s", id, rec.ID)
	}
	if diff := cmp.Diff([4]float64{20, 658, 150, 700}, rec.Geometry.Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{50, 700, 150, 700, 50, 680, 150, 680}, rec.Geometry.QuadPoints[:8], approx); diff != "" {
		t.Errorf("quad mismatch (-want +got):\n%s", diff)
	}

	id, err = f.surface.SelectRects([]coords.Rect{{X: 5, Y: 5}})
	if err != nil || id != "" {
		t.Errorf("empty selection = %q, %v", id, err)
	}
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func rasterFixture(t *testing.T) (*fixture, chan func()) {
	t.Helper()
	r, err := raster.New(config.Default().Raster)
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	calls := make(chan func(), 8)
	f := newFixture(t, WithRasterizer(r), WithDispatch(func(fn func()) { calls <- fn }))
	return f, calls
}

func runNext(t *testing.T, calls chan func()) {
	t.Helper()
	select {
	case fn := <-calls:
		fn()
	case <-time.After(10 * time.Second):
		t.Fatal("no callback dispatched")
	}
}

func TestStampRasterizes(t *testing.T) {
	f, calls := rasterFixture(t)
	f.surface.SetTool(annot.KindStamp)
	f.surface.SetPayload(Payload{Image: tinyPNG(t), Text: "Approved"})

	f.events(t, move(90, 90))
	layer := f.surface.Page().Layer
	if layer.Len() != 1 || layer.Groups()[0].Find(scene.NameGhost) == nil {
		t.Fatalf("no ghost after move")
	}
	f.events(t, move(100, 100), press(100, 100))
	id := layer.Groups()[0].ID
	if !f.surface.Pending(id) {
		t.Fatalf("placed stamp is not pending")
	}
	if f.store.Len() != 0 {
		t.Fatalf("stamp persisted before its bitmap")
	}

	runNext(t, calls)
	rec := f.only(t)
	if !rec.Geometry.HasImage || rec.Content.ImageWidth != 4 || rec.Content.Text != "Approved" {
		t.Errorf("record = %+v", rec)
	}
	if diff := cmp.Diff([4]float64{100, 698, 104, 700}, rec.Geometry.Rect, approx); diff != "" {
		t.Errorf("rect mismatch (-want +got):\n%s", diff)
	}
	if f.surface.Pending(id) {
		t.Errorf("task still pending")
	}
}

func TestDeleteWhilePendingCancelsPersistence(t *testing.T) {
	f, calls := rasterFixture(t)
	f.surface.SetTool(annot.KindFreeText)
	f.surface.SetPayload(Payload{Text: "draft"})
	f.events(t, press(40, 40))
	id := f.surface.Page().Layer.Groups()[0].ID

	if !f.surface.Discard(id) {
		t.Fatalf("Discard found nothing")
	}
	runNext(t, calls)
	if f.store.Len() != 0 {
		t.Errorf("deleted shape was persisted")
	}
	if f.surface.Page().Layer.Len() != 0 {
		t.Errorf("deleted group still on layer")
	}
}

func TestRasterFailureDiscardsGroup(t *testing.T) {
	f, calls := rasterFixture(t)
	f.surface.SetTool(annot.KindSignature)
	f.surface.SetPayload(Payload{Image: []byte("not an image")})
	f.events(t, press(40, 40))

	runNext(t, calls)
	if f.store.Len() != 0 || f.surface.Page().Layer.Len() != 0 {
		t.Errorf("failed rasterization left state behind")
	}
}

func TestRegistryRejectsSelect(t *testing.T) {
	cfg := config.Default()
	enc := encode.New(cfg.Encoder)
	reg := NewRegistry(cfg.Editor, enc, decode.New(enc))
	if _, err := reg.Get(annot.KindSelect); err == nil {
		t.Fatalf("select has a handler")
	}
	for _, k := range annot.Kinds() {
		if _, err := reg.Get(k); err != nil {
			t.Errorf("%s: %v", k, err)
		}
	}
}

func TestDebouncerRestartStopsPrevious(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	d := NewDebouncer(clock, time.Second, nil)
	fired := 0
	d.Restart(func() { fired++ })
	clock.Advance(600 * time.Millisecond)
	d.Restart(func() { fired += 10 })
	clock.Advance(600 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("first timer fired after restart")
	}
	clock.Advance(500 * time.Millisecond)
	if fired != 10 || d.Active() {
		t.Errorf("fired = %d, active = %v", fired, d.Active())
	}
}
