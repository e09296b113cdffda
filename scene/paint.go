package scene

import "github.com/wudi/pdfmarkup/annot"

// Paint applies st to every primitive of g for display. Highlighters blend
// with multiply so the text underneath stays readable.
func (g *Group) Paint(st annot.Style) {
	g.Walk(func(_ *Group, n *Node) {
		if n.Name == NameGhost {
			return
		}
		n.Opacity = st.Opacity
		switch {
		case n.Type == TypeText:
			n.Fill = st.Color
			if st.FontSize > 0 {
				n.FontSize = st.FontSize
			}
		case n.Type == TypeImage:
		case g.Kind == annot.KindHighlight:
			n.Fill = st.Color
			n.Composite = "multiply"
		case g.Kind == annot.KindFreeHighlight:
			n.Stroke = st.Color
			n.StrokeWidth = st.StrokeWidth
			n.Composite = "multiply"
		default:
			n.Stroke = st.Color
			n.StrokeWidth = st.StrokeWidth
		}
	})
}
