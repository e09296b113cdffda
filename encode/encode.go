// Package encode converts finished shape groups into the document-space
// geometry PDF annotations carry, and records into semantic annotations.
package encode

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/coords"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/scene"
)

var (
	// ErrUnsupported is returned for kinds that have no encoding.
	ErrUnsupported = errors.New("encode: unsupported kind")
	// ErrNoGeometry is returned when a group lacks the primitives its kind
	// needs.
	ErrNoGeometry = errors.New("encode: group has no geometry")
)

// Encoder produces document-space geometry for every drawable kind.
type Encoder struct {
	cfg config.EncoderConfig
	log observability.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Encoder) { e.log = observability.OrNop(l) }
}

// New returns an encoder. Zero config values take the built-in defaults.
func New(cfg config.EncoderConfig, opts ...Option) *Encoder {
	def := config.Default().Encoder
	if cfg.EdgeStep <= 0 {
		cfg.EdgeStep = def.EdgeStep
	}
	if cfg.EllipseStep <= 0 {
		cfg.EllipseStep = def.EllipseStep
	}
	if cfg.CloudPadding <= 0 {
		cfg.CloudPadding = def.CloudPadding
	}
	if cfg.CurveSteps <= 0 {
		cfg.CurveSteps = def.CurveSteps
	}
	e := &Encoder{cfg: cfg, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type encodeFunc func(e *Encoder, g *scene.Group, st annot.Style, h float64, out *annot.Geometry) error

var encoders = map[annot.Kind]encodeFunc{
	annot.KindRectangle:     (*Encoder).rect,
	annot.KindEllipse:       (*Encoder).ellipse,
	annot.KindFreehand:      (*Encoder).ink,
	annot.KindFreeHighlight: (*Encoder).ink,
	annot.KindPolyline:      (*Encoder).polyline,
	annot.KindPolygon:       (*Encoder).polyline,
	annot.KindCloud:         (*Encoder).cloud,
	annot.KindHighlight:     (*Encoder).markup,
	annot.KindUnderline:     (*Encoder).markup,
	annot.KindStrikeout:     (*Encoder).markup,
	annot.KindFreeText:      (*Encoder).image,
	annot.KindStamp:         (*Encoder).image,
	annot.KindSignature:     (*Encoder).image,
	annot.KindLine:          (*Encoder).line,
	annot.KindArrow:         (*Encoder).line,
	annot.KindNote:          (*Encoder).note,
	annot.KindCallout:       (*Encoder).callout,
}

// Supports reports whether k has an encoding.
func Supports(k annot.Kind) bool {
	_, ok := encoders[k]
	return ok
}

// Encode computes the document-space payload of g for a page of the given
// unscaled height. Color is normalized to an RGB triple; opacity and stroke
// width pass through.
func (e *Encoder) Encode(g *scene.Group, st annot.Style, pageHeight float64) (annot.Geometry, error) {
	fn, ok := encoders[g.Kind]
	if !ok {
		return annot.Geometry{}, fmt.Errorf("%w: %s", ErrUnsupported, g.Kind)
	}
	st = st.WithDefaults(annot.DefaultStyle(g.Kind))
	out := annot.Geometry{
		Opacity:     st.Opacity,
		StrokeWidth: st.StrokeWidth,
	}
	if st.Color != "" {
		c, err := annot.NormalizeColor(st.Color)
		if err != nil {
			return annot.Geometry{}, fmt.Errorf("encode %s %s: %w", g.Kind, g.ID, err)
		}
		out.Color = c
	}
	if err := fn(e, g, st, pageHeight, &out); err != nil {
		return annot.Geometry{}, fmt.Errorf("encode %s %s: %w", g.Kind, g.ID, err)
	}
	e.log.Debug("encoded group",
		observability.String("id", g.ID),
		observability.String("kind", g.Kind.String()),
		observability.Int("page", g.Page),
	)
	return out, nil
}

// nodesOf returns every primitive of g and its children with the group that
// owns it, in paint order.
func nodesOf(g *scene.Group, types ...scene.NodeType) []owned {
	var out []owned
	g.Walk(func(owner *scene.Group, n *scene.Node) {
		for _, t := range types {
			if n.Type == t {
				out = append(out, owned{owner, n})
				return
			}
		}
	})
	return out
}

type owned struct {
	g *scene.Group
	n *scene.Node
}

func (o owned) points() []coords.Point { return o.g.GlobalPoints(o.n) }

func (o owned) bounds() (coords.Rect, bool) { return o.g.NodeBounds(o.n) }

// named returns the first primitive called name, falling back to the first
// of the given types.
func named(g *scene.Group, name string, types ...scene.NodeType) (owned, bool) {
	var found owned
	g.Walk(func(owner *scene.Group, n *scene.Node) {
		if found.n == nil && n.Name == name {
			found = owned{owner, n}
		}
	})
	if found.n != nil {
		return found, true
	}
	all := nodesOf(g, types...)
	if len(all) == 0 {
		return owned{}, false
	}
	return all[0], true
}

func docRect(r coords.Rect, h float64) [4]float64 {
	return coords.ToDocumentRect(r.Normalize(), h)
}
