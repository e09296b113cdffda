// Package selection moves, resizes, rotates, restyles and deletes finished
// shape groups on one page and writes every change back to the store.
package selection

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/editor"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/scene"
	"github.com/wudi/pdfmarkup/store"
)

var (
	// ErrLocked is returned when the selection's flags forbid the operation.
	ErrLocked = errors.New("selection: annotation is locked")
	// ErrEmpty is returned for operations that need a selection.
	ErrEmpty = errors.New("selection: nothing selected")
)

// Confirmer asks the user whether to delete annotations.
type Confirmer interface {
	ConfirmDelete(ids []string) bool
}

// Handle is a resize anchor on the selection box, or the rotation knob.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
	HandleRotate
)

type op int

const (
	opNone op = iota
	opMove
	opResize
	opRotate
)

// Controller is the selection of one page. It is not safe for concurrent
// use.
type Controller struct {
	page    *scene.Page
	reg     editor.Registry
	store   *store.Store
	cfg     config.SelectionConfig
	confirm Confirmer
	log     observability.Logger
	// onDelete runs after a group is deleted.
	onDelete func(id string)

	selected []*scene.Group
	op       op
	start    coords.Rect
	saved    map[string]*scene.Group
}

// Option configures a Controller.
type Option func(*Controller)

func WithConfig(cfg config.SelectionConfig) Option {
	return func(c *Controller) { c.cfg = cfg }
}

func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) { c.confirm = cf }
}

func WithLogger(l observability.Logger) Option {
	return func(c *Controller) { c.log = observability.OrNop(l) }
}

// OnDelete registers fn to run for every deleted id.
func OnDelete(fn func(id string)) Option {
	return func(c *Controller) { c.onDelete = fn }
}

// New returns an empty selection on page.
func New(page *scene.Page, reg editor.Registry, st *store.Store, opts ...Option) *Controller {
	c := &Controller{
		page:  page,
		reg:   reg,
		store: st,
		cfg:   config.Default().Selection,
		log:   observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select replaces the selection with the done groups ids.
func (c *Controller) Select(ids ...string) error {
	c.Cancel()
	var sel []*scene.Group
	for _, id := range ids {
		g := c.page.Layer.Get(id)
		if g == nil || !g.IsDone() {
			return fmt.Errorf("select %s: %w", id, store.ErrNotFound)
		}
		sel = append(sel, g)
	}
	c.selected = sel
	return nil
}

// SelectAt selects the topmost group under p. It reports whether one was
// found; a miss clears the selection.
func (c *Controller) SelectAt(p coords.Point) bool {
	c.Cancel()
	g := c.page.Layer.HitTest(p)
	if g == nil {
		c.selected = nil
		return false
	}
	c.selected = []*scene.Group{g}
	return true
}

// Clear drops the selection, abandoning any transform in progress.
func (c *Controller) Clear() {
	c.Cancel()
	c.selected = nil
}

// Selected returns the ids of the selected groups.
func (c *Controller) Selected() []string {
	out := make([]string, 0, len(c.selected))
	for _, g := range c.selected {
		out = append(out, g.ID)
	}
	return out
}

// Bounds is the union of the selected groups' client rects.
func (c *Controller) Bounds() (coords.Rect, bool) {
	rects := make([]coords.Rect, 0, len(c.selected))
	for _, g := range c.selected {
		if r, ok := g.ClientRect(); ok {
			rects = append(rects, r)
		}
	}
	return coords.UnionAll(rects)
}

// Handles returns the handle boxes around the selection.
func (c *Controller) Handles() map[Handle]coords.Rect {
	b, ok := c.Bounds()
	if !ok {
		return nil
	}
	size := c.cfg.HandleSize
	out := make(map[Handle]coords.Rect, 9)
	for h := HandleTopLeft; h <= HandleRotate; h++ {
		p := handlePoint(b, h, size)
		out[h] = coords.Rect{X: p.X - size/2, Y: p.Y - size/2, Width: size, Height: size}
	}
	return out
}

// HandleAt returns the handle under p.
func (c *Controller) HandleAt(p coords.Point) Handle {
	for h, r := range c.Handles() {
		if r.Contains(p) {
			return h
		}
	}
	return HandleNone
}

func handlePoint(b coords.Rect, h Handle, size float64) coords.Point {
	cx, cy := b.X+b.Width/2, b.Y+b.Height/2
	switch h {
	case HandleTopLeft:
		return coords.Point{X: b.X, Y: b.Y}
	case HandleTop:
		return coords.Point{X: cx, Y: b.Y}
	case HandleTopRight:
		return coords.Point{X: b.Right(), Y: b.Y}
	case HandleRight:
		return coords.Point{X: b.Right(), Y: cy}
	case HandleBottomRight:
		return coords.Point{X: b.Right(), Y: b.Bottom()}
	case HandleBottom:
		return coords.Point{X: cx, Y: b.Bottom()}
	case HandleBottomLeft:
		return coords.Point{X: b.X, Y: b.Bottom()}
	case HandleLeft:
		return coords.Point{X: b.X, Y: cy}
	case HandleRotate:
		return coords.Point{X: cx, Y: b.Y - 3*size}
	}
	return coords.Point{X: cx, Y: cy}
}

// flags reads the interaction flags of g's record.
func (c *Controller) flags(g *scene.Group) (draggable, resizable bool) {
	rec, ok := c.store.Get(g.ID)
	if !ok || rec.Readonly {
		return false, false
	}
	return rec.Draggable, rec.Resizable
}

// begin starts a transform of kind o. The groups are baked so the transform
// can be set absolutely on every update.
func (c *Controller) begin(o op) error {
	if len(c.selected) == 0 {
		return ErrEmpty
	}
	if c.op == o {
		return nil
	}
	if c.op != opNone {
		if err := c.End(); err != nil {
			return err
		}
	}
	for _, g := range c.selected {
		drag, resize := c.flags(g)
		if (o == opMove && !drag) || (o != opMove && !resize) {
			return fmt.Errorf("%s: %w", g.ID, ErrLocked)
		}
	}
	b, ok := c.Bounds()
	if !ok {
		return ErrEmpty
	}
	c.saved = make(map[string]*scene.Group, len(c.selected))
	for _, g := range c.selected {
		c.saved[g.ID] = g.Clone()
		g.Bake()
	}
	c.op, c.start = o, b
	return nil
}

// Move translates the selection by (dx, dy) from where the drag started.
// The offset is clamped so the selection box stays on the page.
func (c *Controller) Move(dx, dy float64) error {
	if err := c.begin(opMove); err != nil {
		return err
	}
	page := c.page.Bounds()
	dx = clamp(dx, page.X-c.start.X, page.Right()-c.start.Right())
	dy = clamp(dy, page.Y-c.start.Y, page.Bottom()-c.start.Bottom())
	for _, g := range c.selected {
		tf := coords.IdentityTransform()
		tf.X, tf.Y = dx, dy
		g.Transform = tf
	}
	return nil
}

// clamp limits v to [lo, hi]. When the box is larger than the page, lo
// wins so the top-left corner stays visible.
func clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Resize drags handle h to p, scaling the selection about the opposite
// anchor. p is clamped to the page.
func (c *Controller) Resize(h Handle, p coords.Point) error {
	if h == HandleNone || h == HandleRotate {
		return fmt.Errorf("resize with handle %d", h)
	}
	if err := c.begin(opResize); err != nil {
		return err
	}
	page := c.page.Bounds()
	p.X = clamp(p.X, page.X, page.Right())
	p.Y = clamp(p.Y, page.Y, page.Bottom())

	b := c.start
	anchor := handlePoint(b, opposite(h), 0)
	sx, sy := 1.0, 1.0
	if h != HandleTop && h != HandleBottom && b.Width > 0 {
		sx = (p.X - anchor.X) / (handlePoint(b, h, 0).X - anchor.X)
	}
	if h != HandleLeft && h != HandleRight && b.Height > 0 {
		sy = (p.Y - anchor.Y) / (handlePoint(b, h, 0).Y - anchor.Y)
	}
	// Flipping through the anchor is not supported; keep a sliver.
	sx = max(sx, 0.01)
	sy = max(sy, 0.01)
	for _, g := range c.selected {
		g.Transform = coords.Transform{
			X:      anchor.X * (1 - sx),
			Y:      anchor.Y * (1 - sy),
			ScaleX: sx,
			ScaleY: sy,
		}
	}
	return nil
}

func opposite(h Handle) Handle {
	switch h {
	case HandleTopLeft:
		return HandleBottomRight
	case HandleTop:
		return HandleBottom
	case HandleTopRight:
		return HandleBottomLeft
	case HandleRight:
		return HandleLeft
	case HandleBottomRight:
		return HandleTopLeft
	case HandleBottom:
		return HandleTop
	case HandleBottomLeft:
		return HandleTopRight
	case HandleLeft:
		return HandleRight
	}
	return HandleNone
}

// Rotate turns the selection by degrees, clockwise on screen, about the
// centre of its box. The rotated box is shifted back onto the page when it
// would cross an edge.
func (c *Controller) Rotate(degrees float64) error {
	if err := c.begin(opRotate); err != nil {
		return err
	}
	center := c.start.Center()
	tf := coords.IdentityTransform()
	tf.Rotation = degrees
	rc := tf.Matrix().Transform(center)
	tf.X, tf.Y = center.X-rc.X, center.Y-rc.Y
	c.setTransform(tf)

	b, ok := c.Bounds()
	if !ok {
		return nil
	}
	page := c.page.Bounds()
	dx := clamp(0, page.X-b.X, page.Right()-b.Right())
	dy := clamp(0, page.Y-b.Y, page.Bottom()-b.Bottom())
	if dx != 0 || dy != 0 {
		tf.X += dx
		tf.Y += dy
		c.setTransform(tf)
	}
	return nil
}

func (c *Controller) setTransform(tf coords.Transform) {
	for _, g := range c.selected {
		g.Transform = tf
	}
}

// Cancel reverts a transform in progress.
func (c *Controller) Cancel() {
	if c.op == opNone {
		return
	}
	for _, g := range c.selected {
		if s, ok := c.saved[g.ID]; ok {
			g.Transform = s.Transform
			g.Nodes = s.Nodes
			g.Children = nil
			for _, ch := range s.Children {
				g.AddChild(ch)
			}
		}
	}
	c.op, c.saved = opNone, nil
}

// End commits the transform in progress: every selected group is
// re-encoded through its kind's handler and its record updated.
func (c *Controller) End() error {
	if c.op == opNone {
		return nil
	}
	c.op, c.saved = opNone, nil
	var errs []error
	for _, g := range c.selected {
		g.Bake()
		if err := c.commit(g, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetStyle restyles the selection and re-encodes it.
func (c *Controller) SetStyle(st annot.Style) error {
	if len(c.selected) == 0 {
		return ErrEmpty
	}
	c.Cancel()
	var errs []error
	for _, g := range c.selected {
		rec, ok := c.store.Get(g.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("restyle %s: %w", g.ID, store.ErrNotFound))
			continue
		}
		if rec.Readonly {
			errs = append(errs, fmt.Errorf("restyle %s: %w", g.ID, ErrLocked))
			continue
		}
		merged := rec.Style.Merge(st)
		g.Paint(merged)
		if err := c.commit(g, &merged); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) commit(g *scene.Group, st *annot.Style) error {
	rec, ok := c.store.Get(g.ID)
	if !ok {
		c.log.Warn("transformed group has no record", observability.String("id", g.ID))
		return fmt.Errorf("commit %s: %w", g.ID, store.ErrNotFound)
	}
	style := rec.Style
	if st != nil {
		style = *st
	}
	h, err := c.reg.Get(g.Kind)
	if err != nil {
		return err
	}
	geo, err := h.Encode(g, style, c.page.Height())
	if err != nil {
		return fmt.Errorf("re-encode %s: %w", g.ID, err)
	}
	snap, err := g.Snapshot()
	if err != nil {
		return err
	}
	_, err = c.store.Update(g.ID, annot.Patch{Snapshot: snap, Geometry: &geo, Style: st})
	return err
}

// Delete removes the record and the group of id. Readonly records are
// refused.
func (c *Controller) Delete(id string) error {
	if rec, ok := c.store.Get(id); ok && rec.Readonly {
		return fmt.Errorf("delete %s: %w", id, ErrLocked)
	}
	c.Cancel()
	found := c.store.Delete(id)
	if c.page.Layer.Remove(id) {
		found = true
	}
	kept := c.selected[:0]
	for _, g := range c.selected {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	c.selected = kept
	if !found {
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	if c.onDelete != nil {
		c.onDelete(id)
	}
	c.log.Debug("deleted annotation", observability.String("id", id))
	return nil
}

// DoubleClick runs the delete flow for the group under p when enabled. It
// reports whether something was deleted.
func (c *Controller) DoubleClick(p coords.Point) (bool, error) {
	if !c.cfg.DeleteOnDoubleClick {
		return false, nil
	}
	g := c.page.Layer.HitTest(p)
	if g == nil {
		return false, nil
	}
	if rec, ok := c.store.Get(g.ID); ok && rec.Readonly {
		return false, nil
	}
	if c.confirm != nil && !c.confirm.ConfirmDelete([]string{g.ID}) {
		return false, nil
	}
	if err := c.Delete(g.ID); err != nil {
		return false, err
	}
	return true, nil
}
