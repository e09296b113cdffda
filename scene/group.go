package scene

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/coords"
)

// Phase is the lifecycle phase of a group.
type Phase int

const (
	// PhaseInProgress groups are being drawn and are not in the store.
	PhaseInProgress Phase = iota
	// PhaseDone groups are mirrored by a store record with the same id.
	PhaseDone
)

// Group is the scene container for one annotation.
type Group struct {
	ID        string           `cbor:"id"`
	Kind      annot.Kind       `cbor:"kind"`
	Page      int              `cbor:"page"`
	Name      string           `cbor:"name,omitempty"`
	Transform coords.Transform `cbor:"tf"`
	Nodes     []*Node          `cbor:"nodes"`
	Children  []*Group         `cbor:"children,omitempty"`

	phase     Phase
	parent    *Group
	layer     *Layer
	destroyed bool
}

// NewGroup returns an empty in-progress group.
func NewGroup(id string, kind annot.Kind, page int) *Group {
	return &Group{ID: id, Kind: kind, Page: page, Transform: coords.IdentityTransform()}
}

// Add appends primitives to the group.
func (g *Group) Add(nodes ...*Node) {
	g.Nodes = append(g.Nodes, nodes...)
}

// AddChild nests c inside g. c's transform becomes relative to g.
func (g *Group) AddChild(c *Group) {
	c.parent = g
	g.Children = append(g.Children, c)
}

// Parent returns the enclosing group, or nil for a top-level group.
func (g *Group) Parent() *Group { return g.parent }

// Layer returns the layer the group is attached to, if any.
func (g *Group) Layer() *Layer {
	for p := g; p != nil; p = p.parent {
		if p.layer != nil {
			return p.layer
		}
	}
	return nil
}

func (g *Group) Phase() Phase    { return g.phase }
func (g *Group) IsDone() bool    { return g.phase == PhaseDone }
func (g *Group) MarkDone()       { g.phase = PhaseDone }
func (g *Group) Destroyed() bool { return g.destroyed }

// Destroy detaches the group from its layer and drops its primitives.
func (g *Group) Destroy() {
	if g.destroyed {
		return
	}
	if g.layer != nil {
		g.layer.detach(g)
	}
	if g.parent != nil {
		kids := g.parent.Children[:0]
		for _, c := range g.parent.Children {
			if c != g {
				kids = append(kids, c)
			}
		}
		g.parent.Children = kids
		g.parent = nil
	}
	g.Nodes = nil
	g.Children = nil
	g.destroyed = true
}

// Matrix returns the group's global matrix: its local transform followed by
// every ancestor's.
func (g *Group) Matrix() coords.Matrix {
	m := g.Transform.Matrix()
	for p := g.parent; p != nil; p = p.parent {
		m = m.Multiply(p.Transform.Matrix())
	}
	return m
}

// NodeMatrix maps n's local space to page editing space.
func (g *Group) NodeMatrix(n *Node) coords.Matrix {
	return n.Transform.Matrix().Multiply(g.Matrix())
}

// GlobalPoints returns n's defining points in editing space.
func (g *Group) GlobalPoints(n *Node) []coords.Point {
	m := g.NodeMatrix(n)
	pts := n.LocalPoints()
	for i, p := range pts {
		pts[i] = m.Transform(p)
	}
	return pts
}

// GlobalFlat is GlobalPoints for line nodes, as a flat x,y list.
func (g *Group) GlobalFlat(n *Node) []float64 {
	pts := g.GlobalPoints(n)
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}

// NodeBounds returns the editing-space box of one node, excluding stroke.
func (g *Group) NodeBounds(n *Node) (coords.Rect, bool) {
	lb, ok := n.LocalBounds()
	if !ok {
		return coords.Rect{}, false
	}
	return coords.TransformRect(g.NodeMatrix(n), lb), true
}

// ClientRect is the editing-space box of every primitive in the group and
// its children, including half the stroke width.
func (g *Group) ClientRect() (coords.Rect, bool) {
	var (
		out   coords.Rect
		found bool
	)
	g.Walk(func(owner *Group, n *Node) {
		r, ok := owner.NodeBounds(n)
		if !ok {
			return
		}
		if n.StrokeWidth > 0 {
			sx, sy := owner.NodeMatrix(n).ScaleFactors()
			r = r.Expand(n.StrokeWidth * max(sx, sy) / 2)
		}
		if !found {
			out, found = r, true
			return
		}
		out = out.Union(r)
	})
	return out, found
}

// Walk visits every node of g and its children, depth first.
func (g *Group) Walk(fn func(owner *Group, n *Node)) {
	for _, n := range g.Nodes {
		fn(g, n)
	}
	for _, c := range g.Children {
		c.Walk(fn)
	}
}

// Find returns the first node with the given name.
func (g *Group) Find(name string) *Node {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// FindAll returns every direct node with the given type.
func (g *Group) FindAll(t NodeType) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// Remove drops direct nodes matching name.
func (g *Group) Remove(name string) {
	kept := g.Nodes[:0]
	for _, n := range g.Nodes {
		if n.Name != name {
			kept = append(kept, n)
		}
	}
	g.Nodes = kept
}

// Clone returns a detached deep copy of g.
func (g *Group) Clone() *Group {
	c := &Group{
		ID:        g.ID,
		Kind:      g.Kind,
		Page:      g.Page,
		Name:      g.Name,
		Transform: g.Transform,
		phase:     g.phase,
	}
	for _, n := range g.Nodes {
		c.Nodes = append(c.Nodes, n.Clone())
	}
	for _, ch := range g.Children {
		c.AddChild(ch.Clone())
	}
	return c
}

// Bake folds the transforms of g and every descendant into their
// primitives, leaving all of them at identity. Global geometry is unchanged.
func (g *Group) Bake() {
	g.bakeWith(coords.Identity())
}

// bakeWith bakes g given the accumulated matrix of the groups between g and
// the group Bake was called on.
func (g *Group) bakeWith(outer coords.Matrix) {
	m := g.Transform.Matrix().Multiply(outer)
	for _, n := range g.Nodes {
		bakeNode(n, m)
	}
	for _, c := range g.Children {
		c.bakeWith(m)
	}
	g.Transform = coords.IdentityTransform()
}

func bakeNode(n *Node, m coords.Matrix) {
	full := n.Transform.Matrix().Multiply(m)
	if n.Type == TypeLine {
		for i := 0; i+1 < len(n.Points); i += 2 {
			p := full.Transform(coords.Point{X: n.Points[i], Y: n.Points[i+1]})
			n.Points[i], n.Points[i+1] = p.X, p.Y
		}
		n.Transform = coords.IdentityTransform()
		return
	}
	// Boxes keep their own size; the whole affine, shear included, moves
	// into the node transform.
	n.Transform = coords.Decompose(full)
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Snapshot serializes g and its children.
func (g *Group) Snapshot() ([]byte, error) {
	data, err := encMode.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("snapshot group %s: %w", g.ID, err)
	}
	return data, nil
}

// Restore rebuilds a detached group from a snapshot. The result is marked
// done.
func Restore(data []byte) (*Group, error) {
	var g Group
	if err := cbor.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("restore group: %w", err)
	}
	g.relink()
	g.phase = PhaseDone
	return &g, nil
}

func (g *Group) relink() {
	for _, c := range g.Children {
		c.parent = g
		c.phase = PhaseDone
		c.relink()
	}
}
