// Package editor turns pointer gestures on a page into shape groups and,
// once a gesture completes, into store records.
//
// Every page has one Surface. A Surface owns one Editor per annotation kind;
// each Editor runs the same state machine
//
//	Idle -> Drawing -> (Previewing <-> Drawing) -> Finalizing -> Done|Cancelled -> Idle
//
// and leaves the geometry to the Shape its kind's Handler creates.
package editor

import (
	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/scene"
)

// State is the gesture state of an Editor.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StatePreviewing
	StateFinalizing
	StateDone
	StateCancelled
)

var stateNames = [...]string{"idle", "drawing", "previewing", "finalizing", "done", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// EventType classifies host input.
type EventType int

const (
	EventPress EventType = iota
	EventMove
	EventRelease
	EventDoubleClick
	EventLeave
	EventKey
)

// Event is one pointer or keyboard input. Point is in unscaled editing
// space.
type Event struct {
	Type  EventType
	Point coords.Point
	// Key is set for EventKey, e.g. "Escape" or "Enter".
	Key string
}

// Editor runs the gesture state machine of one kind on one page.
type Editor struct {
	s       *Surface
	kind    annot.Kind
	handler Handler
	log     observability.Logger

	state   State
	last    State
	group   *scene.Group
	shape   Shape
	base    []*scene.Node
	start   coords.Point
	cursor  coords.Point
	clicks  int
	gesture *Gesture
	// open is the debounced group still accepting strokes.
	open *scene.Group
}

func newEditor(s *Surface, h Handler) *Editor {
	return &Editor{
		s:       s,
		kind:    h.Kind(),
		handler: h,
		log:     s.log.With(observability.String("kind", h.Kind().String())),
		last:    StateIdle,
	}
}

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Outcome returns how the last gesture ended: StateDone, StateCancelled, or
// StateIdle before any gesture finished.
func (e *Editor) Outcome() State { return e.last }

// Group returns the group being drawn, if any.
func (e *Editor) Group() *scene.Group { return e.group }

func (e *Editor) active() bool {
	return e.state == StateDrawing || e.state == StatePreviewing
}

// Handle feeds one input event through the state machine.
func (e *Editor) Handle(ev Event) {
	switch ev.Type {
	case EventPress:
		e.press(ev.Point)
	case EventMove:
		e.move(ev.Point)
	case EventRelease:
		e.release(ev.Point)
	case EventDoubleClick:
		if e.kind.IsMultiClick() && e.active() {
			e.finalize()
		}
	case EventLeave:
		e.Cancel()
	case EventKey:
		switch ev.Key {
		case "Escape":
			e.Cancel()
		case "Enter":
			if e.kind.IsMultiClick() && e.active() {
				e.finalize()
			}
		}
	}
}

func (e *Editor) press(p coords.Point) {
	e.cursor = p
	switch {
	case e.kind.IsMultiClick():
		if !e.active() {
			e.begin(p)
			return
		}
		if e.clicks >= 2 && p.Dist(e.start) <= e.s.cfg.CloseRadius {
			e.finalize()
			return
		}
		if e.shape.AddVertex(p) {
			e.clicks++
		}
		e.state = StateDrawing
		e.refresh()
		if l, ok := e.shape.(vertexLimiter); ok && e.clicks >= l.MaxVertices() {
			e.finalize()
		}
	case e.kind.IsImageBearing():
		if !e.active() {
			e.begin(p)
		}
		e.shape.AddVertex(p)
		e.finalize()
	case e.kind == annot.KindNote:
		e.begin(p)
		e.finalize()
	case e.kind.IsSingleGesture():
		if e.active() {
			return
		}
		e.begin(p)
		e.gesture = startGesture(e.s.release, e.onWindowRelease(e.group))
	}
}

func (e *Editor) move(p coords.Point) {
	switch {
	case e.kind.IsImageBearing() && e.state == StateIdle:
		// The ghost appears as soon as the pointer is over the page.
		e.begin(p)
		return
	case !e.active():
		return
	}
	e.cursor = p
	e.shape.Extend(p)
	e.state = StatePreviewing
	e.refresh()
}

func (e *Editor) release(p coords.Point) {
	if !e.kind.IsSingleGesture() || !e.active() {
		return
	}
	e.shape.Extend(p)
	e.finalize()
}

// onWindowRelease completes the gesture of g when the pointer is released
// outside the page canvas.
func (e *Editor) onWindowRelease(g *scene.Group) func() {
	return func() {
		e.s.dispatch(func() {
			if e.group == g && e.active() {
				e.release(e.cursor)
			}
		})
	}
}

func (e *Editor) begin(p coords.Point) {
	e.shape = e.handler.NewShape(e.s.payload, e.s.Style(e.kind))
	e.shape.Begin(p)
	e.start, e.cursor, e.clicks = p, p, 1
	e.base = nil

	if e.kind.IsDebounced() && e.open != nil && !e.open.Destroyed() {
		e.s.debounce.Stop()
		e.group = e.open
		e.base = append([]*scene.Node(nil), e.open.Nodes...)
	} else {
		e.open = nil
		e.group = scene.NewGroup(annot.NewID(), e.kind, e.s.page.Number)
		e.s.page.Layer.Add(e.group)
	}
	e.state = StateDrawing
	e.refresh()
}

func (e *Editor) refresh() {
	nodes := append([]*scene.Node(nil), e.base...)
	e.group.Nodes = append(nodes, e.shape.Build()...)
	e.group.Paint(e.s.Style(e.kind))
}

func (e *Editor) finalize() {
	if !e.active() {
		return
	}
	e.state = StateFinalizing
	e.gesture.Release()
	e.gesture = nil
	e.shape.Finish()
	e.refresh()

	if !e.shape.Validate(e.s.cfg.MinSize) {
		e.log.Debug("discarding degenerate shape", observability.String("id", e.group.ID))
		e.discard()
		return
	}
	if e.kind.IsImageBearing() {
		e.s.rasterize(e.kind, e.group, e.shape.(*imageShape))
		e.settle(StateDone)
		return
	}

	var content annot.Content
	if e.kind == annot.KindNote || e.kind == annot.KindCallout {
		content.Text = e.s.payload.Text
	}
	if err := e.s.persist(e.handler, e.group, content); err != nil {
		e.log.Warn("dropping shape that failed to encode", observability.String("id", e.group.ID), observability.Err(err))
		e.discard()
		return
	}
	if e.kind.IsDebounced() {
		e.open = e.group
		open := e.group
		e.s.debounce.Restart(func() {
			if e.open == open {
				e.open = nil
				e.log.Debug("closed stroke group", observability.String("id", open.ID))
			}
		})
	}
	e.settle(StateDone)
}

// Cancel abandons a gesture in Drawing or Previewing. Finished records are
// not touched.
func (e *Editor) Cancel() {
	if !e.active() {
		return
	}
	e.discard()
}

// discard drops the current gesture. A stroke added to an open group only
// removes itself.
func (e *Editor) discard() {
	e.gesture.Release()
	e.gesture = nil
	if len(e.base) > 0 {
		e.group.Nodes = e.base
		if e.open == e.group {
			open := e.group
			e.s.debounce.Restart(func() {
				if e.open == open {
					e.open = nil
				}
			})
		}
	} else {
		if e.open == e.group {
			e.open = nil
		}
		e.group.Destroy()
	}
	e.settle(StateCancelled)
}

func (e *Editor) settle(outcome State) {
	e.last = outcome
	e.group = nil
	e.shape = nil
	e.base = nil
	e.clicks = 0
	e.state = StateIdle
}

// closeOpen stops merging strokes into the open group.
func (e *Editor) closeOpen() {
	if e.open != nil {
		e.s.debounce.Stop()
		e.open = nil
	}
}
