// Package viewer connects a host document viewer to the markup core. A
// Session owns the store and one editing surface and selection per rendered
// page, and serializes host events, timer expiries and raster completions
// behind a single lock.
package viewer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_host.go -package=mocks github.com/wudi/pdfmarkup/viewer AnnotationLayer,ReleaseListener,Confirmer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/decode"
	"github.com/wudi/pdfmarkup/editor"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/export"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/raster"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/selection"
	"github.com/wudi/pdfmarkup/store"
	"github.com/wudi/pdfmarkup/writer"
)

var (
	// ErrNoPage is returned for events on pages that were never rendered.
	ErrNoPage = errors.New("viewer: page not rendered")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("viewer: session closed")
)

// defaultHeight is used for pages whose size is not known yet.
const defaultHeight = 792

// AnnotationLayer is the host viewer's own rendering of the document's
// annotations.
type AnnotationLayer interface {
	// MarkDeleted hides the host object with the given id. The object stays
	// in the document so its original bytes can be recovered on save.
	MarkDeleted(source string)
	// ResetTransient drops host-side storage derived from raster bitmaps.
	ResetTransient()
}

// ReleaseListener is the host's window-level pointer-release hook.
type ReleaseListener = editor.ReleaseListener

// Confirmer asks the user before annotations are deleted.
type Confirmer = selection.Confirmer

// PageRendered reports that the host drew a page, either for the first time
// or at a new viewport.
type PageRendered struct {
	Page     int
	Viewport scene.Viewport
}

// DocumentLoaded carries the annotation objects of a freshly opened
// document.
type DocumentLoaded struct {
	Annotations []semantic.Annotation
	// PageHeight, when set, gives the unscaled height of every page.
	// Otherwise rendered pages are asked and the rest assume US Letter.
	PageHeight decode.PageHeight
}

type pageState struct {
	page    *scene.Page
	surface *editor.Surface
	sel     *selection.Controller

	// Select tool drag state.
	dragging bool
	handle   selection.Handle
	from     coords.Point
	center   coords.Point
}

// Session is the markup state of one open document. All methods are safe
// for concurrent use.
type Session struct {
	mu     sync.Mutex
	closed bool

	cfg     *config.Config
	reg     editor.Registry
	enc     *encode.Encoder
	dec     *decode.Decoder
	store   *store.Store
	raster  *raster.Rasterizer
	clock   editor.Clock
	layer   AnnotationLayer
	release ReleaseListener
	confirm Confirmer
	log     observability.Logger
	tracer  observability.Tracer
	ctx     context.Context
	cancel  context.CancelFunc

	pages   map[int]*pageState
	tool    annot.Kind
	payload editor.Payload
	styles  map[annot.Kind]annot.Style
}

// Option configures a Session.
type Option func(*Session)

func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

func WithLogger(l observability.Logger) Option {
	return func(s *Session) { s.log = observability.OrNop(l) }
}

func WithTracer(t observability.Tracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock replaces the timer source of the stroke debounce.
func WithClock(c editor.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithAnnotationLayer(l AnnotationLayer) Option {
	return func(s *Session) { s.layer = l }
}

func WithReleaseListener(l ReleaseListener) Option {
	return func(s *Session) { s.release = l }
}

func WithConfirmer(c Confirmer) Option {
	return func(s *Session) { s.confirm = c }
}

// WithStore shares an existing store.
func WithStore(st *store.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithRasterizer replaces the rasterizer built from the configuration.
func WithRasterizer(r *raster.Rasterizer) Option {
	return func(s *Session) { s.raster = r }
}

// New opens a session.
func New(ctx context.Context, opts ...Option) (*Session, error) {
	s := &Session{
		cfg:    config.Default(),
		clock:  editor.RealClock{},
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
		pages:  make(map[int]*pageState),
		tool:   annot.KindSelect,
		styles: make(map[annot.Kind]annot.Style),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("viewer config: %w", err)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if s.store == nil {
		s.store = store.New(store.WithLogger(s.log), store.WithClock(s.clock.Now))
	}
	if s.raster == nil {
		r, err := raster.New(s.cfg.Raster,
			raster.WithLogger(s.log),
			raster.WithTracer(s.tracer),
			raster.WithCache(raster.NewCache(s.cfg.CacheTTL())))
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("viewer rasterizer: %w", err)
		}
		s.raster = r
	}
	s.enc = encode.New(s.cfg.Encoder)
	s.dec = decode.New(s.enc,
		decode.WithLogger(s.log),
		decode.WithTracer(s.tracer),
		decode.WithClock(s.clock.Now))
	s.reg = editor.NewRegistry(s.cfg.Editor, s.enc, s.dec)
	return s, nil
}

// Store returns the record store.
func (s *Session) Store() *store.Store { return s.store }

// dispatch runs fn under the session lock. Timers and raster tasks deliver
// through it.
func (s *Session) dispatch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn()
}

// PageRendered creates the editing state of a page, or applies a new
// viewport to an existing one. A new page gets the groups of every stored
// record on it.
func (s *Session) PageRendered(ev PageRendered) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if ps, ok := s.pages[ev.Page]; ok {
		ps.page.Resize(ev.Viewport)
		return nil
	}

	page := scene.NewPage(ev.Page, ev.Viewport)
	ps := &pageState{page: page}
	ps.surface = editor.NewSurface(page, s.reg, s.store,
		editor.WithConfig(s.cfg),
		editor.WithClock(s.clock),
		editor.WithReleaseListener(s.release),
		editor.WithRasterizer(s.raster),
		editor.WithDispatch(s.dispatch),
		editor.WithLogger(s.log),
		editor.WithContext(s.ctx))
	ps.sel = selection.New(page, s.reg, s.store,
		selection.WithConfig(s.cfg.Selection),
		selection.WithConfirmer(s.confirm),
		selection.WithLogger(s.log.With(observability.Int("page", ev.Page))),
		selection.OnDelete(func(id string) { ps.surface.Discard(id) }))
	ps.surface.SetTool(s.tool)
	ps.surface.SetPayload(s.payload)
	for k, st := range s.styles {
		ps.surface.SetStyle(k, st)
	}
	s.pages[ev.Page] = ps

	for _, rec := range s.store.GetByPage(ev.Page) {
		s.attach(ps, rec)
	}
	s.log.Debug("page rendered", observability.Int("page", ev.Page), observability.Int("groups", page.Layer.Len()))
	return nil
}

// attach rebuilds rec's group on its page.
func (s *Session) attach(ps *pageState, rec *annot.Record) {
	g, err := scene.Restore(rec.Snapshot)
	if err != nil {
		s.log.Warn("record has a broken snapshot", observability.String("id", rec.ID), observability.Err(err))
		return
	}
	ps.page.Layer.Add(g)
}

func (s *Session) pageHeight(n int) float64 {
	if ps, ok := s.pages[n]; ok && ps.page.Viewport.Scale > 0 {
		return ps.page.Height()
	}
	return defaultHeight
}

func (s *Session) pageSize(n int) (float64, float64, bool) {
	ps, ok := s.pages[n]
	if !ok || ps.page.Viewport.Scale <= 0 {
		return 0, 0, false
	}
	return ps.page.Width(), ps.page.Height(), true
}

// DocumentLoaded decodes the document's annotations into records, puts
// their groups on rendered pages and hides the decoded objects in the host
// layer.
func (s *Session) DocumentLoaded(ctx context.Context, ev DocumentLoaded) (*decode.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	height := ev.PageHeight
	if height == nil {
		height = s.pageHeight
	}
	res, err := s.dec.DecodeAllWith(ctx, ev.Annotations, height, s.reg.Decode)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Decoded {
		s.store.Save(d.Record, true)
		if ps, ok := s.pages[d.Record.Page]; ok {
			ps.page.Layer.Add(d.Group)
		}
		if s.layer != nil && d.Source != "" {
			s.layer.MarkDeleted(d.Source)
		}
	}
	return res, nil
}

// SetTool switches every page to kind k. Gestures and selections in
// progress are abandoned.
func (s *Session) SetTool(k annot.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = k
	for _, ps := range s.pages {
		ps.sel.Clear()
		ps.dragging = false
		ps.surface.SetTool(k)
	}
}

// Tool returns the active kind.
func (s *Session) Tool() annot.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetPayload sets the text or image placed by the next free-text, stamp,
// signature, note or callout.
func (s *Session) SetPayload(p editor.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = p
	for _, ps := range s.pages {
		ps.surface.SetPayload(p)
	}
}

// SetStyle overrides the style new shapes of kind k are drawn with.
func (s *Session) SetStyle(k annot.Kind, st annot.Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[k] = st
	for _, ps := range s.pages {
		ps.surface.SetStyle(k, st)
	}
}

func (s *Session) page(n int) (*pageState, error) {
	if s.closed {
		return nil, ErrClosed
	}
	ps, ok := s.pages[n]
	if !ok {
		return nil, fmt.Errorf("page %d: %w", n, ErrNoPage)
	}
	return ps, nil
}

// Handle routes a pointer or key event on page n to the active tool. With
// the select tool it drives the page's selection.
func (s *Session) Handle(n int, ev editor.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.page(n)
	if err != nil {
		return err
	}
	if s.tool != annot.KindSelect {
		return ps.surface.Handle(ev)
	}
	return s.handleSelect(ps, ev)
}

func (s *Session) handleSelect(ps *pageState, ev editor.Event) error {
	switch ev.Type {
	case editor.EventPress:
		ps.handle = selection.HandleNone
		if len(ps.sel.Selected()) > 0 {
			ps.handle = ps.sel.HandleAt(ev.Point)
		}
		if ps.handle == selection.HandleNone && !ps.sel.SelectAt(ev.Point) {
			ps.dragging = false
			return nil
		}
		b, _ := ps.sel.Bounds()
		ps.dragging, ps.from, ps.center = true, ev.Point, b.Center()
	case editor.EventMove:
		if !ps.dragging {
			return nil
		}
		switch ps.handle {
		case selection.HandleNone:
			return ps.sel.Move(ev.Point.X-ps.from.X, ev.Point.Y-ps.from.Y)
		case selection.HandleRotate:
			a0 := math.Atan2(ps.from.Y-ps.center.Y, ps.from.X-ps.center.X)
			a1 := math.Atan2(ev.Point.Y-ps.center.Y, ev.Point.X-ps.center.X)
			return ps.sel.Rotate((a1 - a0) * 180 / math.Pi)
		default:
			return ps.sel.Resize(ps.handle, ev.Point)
		}
	case editor.EventRelease:
		if !ps.dragging {
			return nil
		}
		ps.dragging = false
		return ps.sel.End()
	case editor.EventDoubleClick:
		ps.dragging = false
		_, err := ps.sel.DoubleClick(ev.Point)
		return err
	case editor.EventLeave:
		ps.dragging = false
		ps.sel.Cancel()
	case editor.EventKey:
		switch ev.Key {
		case "Escape":
			ps.dragging = false
			ps.sel.Cancel()
		case "Delete", "Backspace":
			ids := ps.sel.Selected()
			if len(ids) == 0 || (s.confirm != nil && !s.confirm.ConfirmDelete(ids)) {
				return nil
			}
			var errs []error
			for _, id := range ids {
				errs = append(errs, ps.sel.Delete(id))
			}
			return errors.Join(errs...)
		}
	}
	return nil
}

// SelectText marks up a host text selection on page n with the active text
// markup tool. rects are line boxes in editing space.
func (s *Session) SelectText(n int, rects []coords.Rect) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.page(n)
	if err != nil {
		return "", err
	}
	return ps.surface.SelectRects(rects)
}

// Select selects the given groups on page n.
func (s *Session) Select(n int, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.page(n)
	if err != nil {
		return err
	}
	return ps.sel.Select(ids...)
}

// Restyle applies st to the selection on page n.
func (s *Session) Restyle(n int, st annot.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, err := s.page(n)
	if err != nil {
		return err
	}
	return ps.sel.SetStyle(st)
}

// Delete removes annotation id from the store and its page. A shape still
// waiting for its bitmap is discarded and never persisted.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, ps := range s.pages {
		if ps.surface.Pending(id) {
			ps.surface.Discard(id)
			return nil
		}
	}
	rec, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	if ps, ok := s.pages[rec.Page]; ok {
		return ps.sel.Delete(id)
	}
	if rec.Readonly {
		return fmt.Errorf("delete %s: %w", id, selection.ErrLocked)
	}
	s.store.Delete(id)
	return nil
}

// RestoreOriginal brings back the decoded state of id.
func (s *Session) RestoreOriginal(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.store.RestoreOriginal(id)
	if err != nil {
		return err
	}
	for _, ps := range s.pages {
		if ps.page.Layer.Get(id) != nil && ps.page.Number != rec.Page {
			ps.page.Layer.Remove(id)
		}
	}
	if ps, ok := s.pages[rec.Page]; ok {
		ps.sel.Clear()
		s.attach(ps, rec)
	}
	return nil
}

// AddComment appends a reply by the configured author to record id.
func (s *Session) AddComment(id, text string) (annot.Comment, error) {
	return s.store.AddComment(id, annot.Comment{Title: s.cfg.Author, Text: text})
}

// PrintOrDownload clears raster caches here and in the host before the
// document is printed or saved.
func (s *Session) PrintOrDownload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.raster.Cache(); c != nil {
		c.Flush()
	}
	if s.layer != nil {
		s.layer.ResetTransient()
	}
}

// Export writes every record, with its comments as replies, into document
// annotation dictionaries.
func (s *Session) Export(ctx context.Context) (*raw.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex := export.New(writer.Config{
		Compression: s.cfg.Export.Compression,
		Appearances: s.cfg.Export.Appearances,
	},
		export.WithPageSize(s.pageSize),
		export.WithLogger(s.log),
		export.WithTracer(s.tracer))
	return ex.Document(ctx, s.store.All())
}

// Rows flattens the store for tabular export.
func (s *Session) Rows() []export.Row {
	return export.Rows(s.store.All())
}

// Close abandons gestures, timers and pending rasterizations. Later
// callbacks are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ps := range s.pages {
		ps.surface.Close()
	}
	s.cancel()
	s.closed = true
}
