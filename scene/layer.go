package scene

import "github.com/wudi/pdfmarkup/coords"

// Layer is the background layer of one page. It owns the page's groups in
// paint order.
type Layer struct {
	page   int
	groups []*Group
}

// NewLayer returns an empty layer for page.
func NewLayer(page int) *Layer { return &Layer{page: page} }

func (l *Layer) Page() int { return l.page }
func (l *Layer) Len() int  { return len(l.groups) }

// Add attaches g on top of the layer. A group already on another layer is
// moved. Adding a group whose id is present replaces the old one.
func (l *Layer) Add(g *Group) {
	if g.layer != nil && g.layer != l {
		g.layer.detach(g)
	}
	for i, old := range l.groups {
		if old.ID == g.ID {
			if old != g {
				old.layer = nil
			}
			l.groups[i] = g
			g.layer = l
			g.Page = l.page
			g.destroyed = false
			return
		}
	}
	g.layer = l
	g.Page = l.page
	g.destroyed = false
	l.groups = append(l.groups, g)
}

// Get returns the group with id.
func (l *Layer) Get(id string) *Group {
	for _, g := range l.groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Remove destroys the group with id. It reports whether one was found.
func (l *Layer) Remove(id string) bool {
	g := l.Get(id)
	if g == nil {
		return false
	}
	g.Destroy()
	return true
}

// Groups returns the groups in paint order.
func (l *Layer) Groups() []*Group {
	return append([]*Group(nil), l.groups...)
}

// Clear destroys every group.
func (l *Layer) Clear() {
	for _, g := range l.Groups() {
		g.Destroy()
	}
}

// HitTest returns the topmost done group whose client rect contains p.
func (l *Layer) HitTest(p coords.Point) *Group {
	for i := len(l.groups) - 1; i >= 0; i-- {
		g := l.groups[i]
		if !g.IsDone() {
			continue
		}
		if r, ok := g.ClientRect(); ok && r.Contains(p) {
			return g
		}
	}
	return nil
}

func (l *Layer) detach(g *Group) {
	for i, x := range l.groups {
		if x == g {
			l.groups = append(l.groups[:i], l.groups[i+1:]...)
			break
		}
	}
	g.layer = nil
}

// Viewport is the host's rendering state of one page.
type Viewport struct {
	Scale    float64
	Rotation int
	// Width and Height are in canvas pixels.
	Width  float64
	Height float64
}

// Page is the editing surface of one rendered page.
type Page struct {
	Number   int
	Viewport Viewport
	Layer    *Layer
}

// NewPage creates the surface for a freshly rendered page.
func NewPage(number int, vp Viewport) *Page {
	return &Page{Number: number, Viewport: vp, Layer: NewLayer(number)}
}

// Height is the unscaled page height used for document conversion.
func (p *Page) Height() float64 {
	return coords.PageHeight(p.Viewport.Height, p.Viewport.Scale)
}

// Width is the unscaled page width.
func (p *Page) Width() float64 {
	return coords.PageHeight(p.Viewport.Width, p.Viewport.Scale)
}

// Bounds is the page area in editing space.
func (p *Page) Bounds() coords.Rect {
	return coords.Rect{Width: p.Width(), Height: p.Height()}
}

// Resize applies a new viewport. Groups live in unscaled units and are not
// touched.
func (p *Page) Resize(vp Viewport) { p.Viewport = vp }
