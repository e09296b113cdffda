package editor

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/decode"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/scene"
)

// ErrNoShape is returned for kinds without a drawing handler, such as the
// select tool.
var ErrNoShape = errors.New("editor: no shape handler for kind")

// Handler is the per-kind specialization: how to build a shape while
// drawing and how to move between groups and document objects.
type Handler interface {
	Kind() annot.Kind
	NewShape(p Payload, st annot.Style) Shape
	Encode(g *scene.Group, st annot.Style, pageHeight float64) (annot.Geometry, error)
	Decode(a semantic.Annotation, pageHeight float64) (decode.Decoded, error)
}

// Registry maps every drawable kind to its handler.
type Registry map[annot.Kind]Handler

// NewRegistry builds a handler for each kind the encoder supports.
func NewRegistry(cfg config.EditorConfig, enc *encode.Encoder, dec *decode.Decoder) Registry {
	r := make(Registry, len(shapeFactories))
	for kind, f := range shapeFactories {
		if !encode.Supports(kind) {
			continue
		}
		r[kind] = &handler{kind: kind, cfg: cfg, factory: f, enc: enc, dec: dec}
	}
	return r
}

// Get returns the handler for k.
func (r Registry) Get(k annot.Kind) (Handler, error) {
	h, ok := r[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoShape, k)
	}
	return h, nil
}

// Decode routes a document object to the handler of its kind. It
// satisfies decode.DecodeFunc.
func (r Registry) Decode(a semantic.Annotation, pageHeight float64) (decode.Decoded, error) {
	kind, err := decode.Classify(a)
	if err != nil {
		return decode.Decoded{}, err
	}
	h, err := r.Get(kind)
	if err != nil {
		return decode.Decoded{}, err
	}
	return h.Decode(a, pageHeight)
}

// Encode re-encodes g through the handler that owns its kind.
func (r Registry) Encode(g *scene.Group, st annot.Style, pageHeight float64) (annot.Geometry, error) {
	h, err := r.Get(g.Kind)
	if err != nil {
		return annot.Geometry{}, err
	}
	return h.Encode(g, st, pageHeight)
}

type handler struct {
	kind    annot.Kind
	cfg     config.EditorConfig
	factory shapeFactory
	enc     *encode.Encoder
	dec     *decode.Decoder
}

func (h *handler) Kind() annot.Kind { return h.kind }

func (h *handler) NewShape(p Payload, st annot.Style) Shape {
	return h.factory(h.cfg, p, st)
}

func (h *handler) Encode(g *scene.Group, st annot.Style, pageHeight float64) (annot.Geometry, error) {
	if g.Kind != h.kind {
		return annot.Geometry{}, fmt.Errorf("%s handler given %s group %s", h.kind, g.Kind, g.ID)
	}
	return h.enc.Encode(g, st, pageHeight)
}

func (h *handler) Decode(a semantic.Annotation, pageHeight float64) (decode.Decoded, error) {
	d, err := h.dec.Decode(a, pageHeight)
	if err != nil {
		return decode.Decoded{}, err
	}
	if d.Record.Kind != h.kind {
		return decode.Decoded{}, fmt.Errorf("%s handler decoded %s object as %s", h.kind, a.Type(), d.Record.Kind)
	}
	return d, nil
}
