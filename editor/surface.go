package editor

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/raster"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/store"
)

// Surface is the editing state of one rendered page: the active tool, one
// Editor per kind, the page's stroke debounce timer and the rasterizations
// still pending for placed image shapes.
//
// A Surface is not safe for concurrent use. Timer expiries and raster
// completions are handed to the dispatch function so the owner can
// serialize them with host events.
type Surface struct {
	page     *scene.Page
	reg      Registry
	store    *store.Store
	cfg      config.EditorConfig
	author   string
	styles   annot.Styles
	clock    Clock
	release  ReleaseListener
	raster   *raster.Rasterizer
	dispatch func(func())
	log      observability.Logger
	ctx      context.Context

	tool     annot.Kind
	payload  Payload
	editors  map[annot.Kind]*Editor
	debounce *Debouncer
	pending  map[string]*pendingRaster
}

// pendingRaster tracks one placed image shape waiting for its bitmap.
type pendingRaster struct {
	task *raster.Task
}

// Option configures a Surface.
type Option func(*Surface)

// WithConfig sets the editor tunables and author; zero values keep the
// defaults.
func WithConfig(cfg *config.Config) Option {
	return func(s *Surface) {
		if cfg == nil {
			return
		}
		s.cfg = cfg.Editor
		s.author = cfg.Author
		s.styles = annot.StylesFromConfig(cfg.Styles)
	}
}

func WithClock(c Clock) Option {
	return func(s *Surface) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithReleaseListener installs the host's window-level release hook.
func WithReleaseListener(l ReleaseListener) Option {
	return func(s *Surface) { s.release = l }
}

// WithRasterizer sets the renderer for free-text, stamp and signature
// bitmaps.
func WithRasterizer(r *raster.Rasterizer) Option {
	return func(s *Surface) { s.raster = r }
}

// WithDispatch routes timer and raster callbacks through fn.
func WithDispatch(fn func(func())) Option {
	return func(s *Surface) {
		if fn != nil {
			s.dispatch = fn
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(s *Surface) { s.log = observability.OrNop(l) }
}

// WithContext sets the parent context of raster tasks.
func WithContext(ctx context.Context) Option {
	return func(s *Surface) { s.ctx = ctx }
}

// NewSurface returns the editing surface of page. Records go to st.
func NewSurface(page *scene.Page, reg Registry, st *store.Store, opts ...Option) *Surface {
	def := config.Default()
	s := &Surface{
		page:     page,
		reg:      reg,
		store:    st,
		cfg:      def.Editor,
		styles:   annot.StylesFromConfig(nil),
		clock:    RealClock{},
		dispatch: func(fn func()) { fn() },
		log:      observability.NopLogger{},
		ctx:      context.Background(),
		tool:     annot.KindSelect,
		editors:  make(map[annot.Kind]*Editor),
		pending:  make(map[string]*pendingRaster),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(observability.Int("page", page.Number))
	s.debounce = NewDebouncer(s.clock, time.Duration(s.cfg.DebounceMs)*time.Millisecond, s.dispatch)
	return s
}

// Page returns the page the surface draws on.
func (s *Surface) Page() *scene.Page { return s.page }

// Tool returns the active kind.
func (s *Surface) Tool() annot.Kind { return s.tool }

// SetTool switches the active kind. Any gesture in progress is cancelled and
// open stroke groups stop merging.
func (s *Surface) SetTool(k annot.Kind) {
	for _, e := range s.editors {
		e.Cancel()
		e.closeOpen()
	}
	s.tool = k
}

// SetPayload sets the text or image the next placed shape carries.
func (s *Surface) SetPayload(p Payload) { s.payload = p }

// SetStyle overrides the style new shapes of kind k are drawn with.
func (s *Surface) SetStyle(k annot.Kind, st annot.Style) {
	s.styles[k] = st.WithDefaults(s.styles.For(k))
}

// Style returns the style new shapes of kind k get.
func (s *Surface) Style(k annot.Kind) annot.Style { return s.styles.For(k) }

// Editor returns the editor of kind k, creating it on first use.
func (s *Surface) Editor(k annot.Kind) (*Editor, error) {
	if e, ok := s.editors[k]; ok {
		return e, nil
	}
	h, err := s.reg.Get(k)
	if err != nil {
		return nil, err
	}
	e := newEditor(s, h)
	s.editors[k] = e
	return e, nil
}

// Handle routes an input event to the active tool's editor. It returns
// ErrNoShape while the select tool is active.
func (s *Surface) Handle(ev Event) error {
	if s.tool.IsTextMarkup() && ev.Type != EventKey && ev.Type != EventLeave {
		return fmt.Errorf("%w: %s is driven by text selection", ErrNoShape, s.tool)
	}
	e, err := s.Editor(s.tool)
	if err != nil {
		return err
	}
	e.Handle(ev)
	return nil
}

// Cancel abandons whatever gesture is in progress.
func (s *Surface) Cancel() {
	for _, e := range s.editors {
		e.Cancel()
	}
}

// SelectRects marks up a text selection, one rectangle per covered line in
// editing space, with the active text-markup tool.
func (s *Surface) SelectRects(rects []coords.Rect) (string, error) {
	if !s.tool.IsTextMarkup() {
		return "", fmt.Errorf("%w: %s does not mark up text", ErrNoShape, s.tool)
	}
	e, err := s.Editor(s.tool)
	if err != nil {
		return "", err
	}
	if len(rects) == 0 {
		return "", nil
	}
	e.Cancel()
	e.begin(coords.Point{X: rects[0].X, Y: rects[0].Y})
	adder := e.shape.(rectAdder)
	for _, r := range rects {
		adder.AddRect(r)
	}
	id := e.group.ID
	e.finalize()
	if e.Outcome() != StateDone {
		return "", nil
	}
	return id, nil
}

// persist encodes g and saves or updates its record.
func (s *Surface) persist(h Handler, g *scene.Group, content annot.Content) error {
	st := s.Style(g.Kind)
	geo, err := h.Encode(g, st, s.page.Height())
	if err != nil {
		return err
	}
	snap, err := g.Snapshot()
	if err != nil {
		return err
	}
	g.MarkDone()

	if _, ok := s.store.Get(g.ID); ok {
		_, err := s.store.Update(g.ID, annot.Patch{Snapshot: snap, Geometry: &geo})
		return err
	}
	now := s.clock.Now()
	s.store.Save(&annot.Record{
		ID:           g.ID,
		Page:         g.Page,
		Kind:         g.Kind,
		Snapshot:     snap,
		Style:        st,
		Content:      content,
		Author:       s.author,
		Subtype:      g.Kind.Subtype(),
		Geometry:     geo,
		Draggable:    true,
		Resizable:    g.Kind != annot.KindNote,
		Created:      now,
		LastModified: now,
	}, false)
	s.log.Debug("saved record", observability.String("id", g.ID), observability.String("kind", g.Kind.String()))
	return nil
}

// rasterize renders the bitmap of a placed image shape in the background.
// The group stays visible but unsaved until the task resolves.
func (s *Surface) rasterize(kind annot.Kind, g *scene.Group, shape *imageShape) {
	p := s.payload
	st := s.Style(kind)
	r := s.raster
	fn := func(ctx context.Context) (*raster.Bitmap, error) {
		if r == nil {
			return nil, fmt.Errorf("no rasterizer configured")
		}
		if kind == annot.KindFreeText || len(p.Image) == 0 {
			return r.Text(ctx, raster.TextRequest{Text: p.Text, FontSize: st.FontSize, Color: nrgba(st.Color)})
		}
		return r.Image(ctx, p.Image)
	}
	ticket := &pendingRaster{}
	s.pending[g.ID] = ticket
	ticket.task = raster.Start(s.ctx, fn, func(bmp *raster.Bitmap, err error) {
		s.dispatch(func() { s.finishRaster(ticket, g, shape, p, bmp, err) })
	})
}

func (s *Surface) finishRaster(ticket *pendingRaster, g *scene.Group, shape *imageShape, p Payload, bmp *raster.Bitmap, err error) {
	if s.pending[g.ID] == ticket {
		delete(s.pending, g.ID)
	}
	if g.Destroyed() {
		return
	}
	if err != nil {
		s.log.Warn("discarding shape after failed rasterization", observability.String("id", g.ID), observability.Err(err))
		g.Destroy()
		return
	}
	data, err := bmp.PNG()
	if err != nil {
		s.log.Warn("discarding shape with unencodable bitmap", observability.String("id", g.ID), observability.Err(err))
		g.Destroy()
		return
	}
	shape.Resize(bmp.Width, bmp.Height)
	g.Nodes = shape.Build()
	g.Paint(s.Style(g.Kind))

	b := bmp.Image.Bounds()
	content := annot.Content{
		Text:        p.Text,
		Image:       data,
		ImageWidth:  float64(b.Dx()),
		ImageHeight: float64(b.Dy()),
	}
	h, err := s.reg.Get(g.Kind)
	if err == nil {
		err = s.persist(h, g, content)
	}
	if err != nil {
		s.log.Warn("discarding image shape", observability.String("id", g.ID), observability.Err(err))
		g.Destroy()
	}
}

// Pending reports whether the group id is waiting for its bitmap.
func (s *Surface) Pending(id string) bool {
	_, ok := s.pending[id]
	return ok
}

// Discard destroys the group id on this page. A pending rasterization is
// cancelled so nothing is persisted. The store is not touched.
func (s *Surface) Discard(id string) bool {
	if pr, ok := s.pending[id]; ok {
		pr.task.Cancel()
		delete(s.pending, id)
	}
	for _, e := range s.editors {
		if e.group != nil && e.group.ID == id {
			e.discard()
		}
		if e.open != nil && e.open.ID == id {
			e.closeOpen()
		}
	}
	return s.page.Layer.Remove(id)
}

// Close cancels gestures, timers and pending rasterizations.
func (s *Surface) Close() {
	s.SetTool(annot.KindSelect)
	s.debounce.Stop()
	for id, pr := range s.pending {
		pr.task.Cancel()
		delete(s.pending, id)
	}
}

func nrgba(hex string) color.NRGBA {
	c, err := annot.NormalizeColor(hex)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{
		R: uint8(c[0]*255 + 0.5),
		G: uint8(c[1]*255 + 0.5),
		B: uint8(c[2]*255 + 0.5),
		A: 255,
	}
}
