// Package writer turns semantic annotations into raw PDF dictionaries,
// generating appearance streams for annotations that carry none.
package writer

import (
	"context"
	"fmt"

	"github.com/wudi/pdfmarkup/filters"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/observability"
)

// Config controls serialization.
type Config struct {
	// Compression is the zlib level for appearance and image streams; 0
	// leaves streams unfiltered.
	Compression int
	// Appearances generates normal appearance streams for annotations
	// without one.
	Appearances bool
}

// Page is the annotation list of one output page.
type Page struct {
	// Index is 0-based.
	Index       int
	Width       float64
	Height      float64
	Annotations []semantic.Annotation
}

// Writer serializes pages of annotations into a raw document.
type Writer struct {
	cfg         Config
	annots      AnnotationSerializer
	log         observability.Logger
	firstObject int
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used for skipped annotations.
func WithLogger(l observability.Logger) Option {
	return func(w *Writer) { w.log = observability.OrNop(l) }
}

// WithSerializer replaces the annotation serializer.
func WithSerializer(s AnnotationSerializer) Option {
	return func(w *Writer) { w.annots = s }
}

// WithFirstObject sets the first object number handed out.
func WithFirstObject(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.firstObject = n
		}
	}
}

// New returns a writer for cfg.
func New(cfg Config, opts ...Option) *Writer {
	w := &Writer{cfg: cfg, log: observability.NopLogger{}, firstObject: 1}
	for _, opt := range opts {
		opt(w)
	}
	if w.annots == nil {
		w.annots = NewAnnotationSerializer(cfg)
	}
	return w
}

// Write numbers and serializes every annotation. Annotations are assigned
// references in order, so a reply must follow the annotation it answers.
func (w *Writer) Write(ctx context.Context, pages []Page) (*raw.Document, error) {
	b := newObjectBuilder(w.firstObject)
	for _, p := range pages {
		out := raw.Page{Index: p.Index, Width: p.Width, Height: p.Height}
		for _, a := range p.Annotations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if a == nil {
				continue
			}
			a.Base().PageIndex = p.Index
			ref, err := w.annots.Serialize(a, b)
			if err != nil {
				w.log.Warn("annotation not written",
					observability.String("subtype", a.Type()),
					observability.Int("page", p.Index),
					observability.Err(err))
				continue
			}
			out.Annots = append(out.Annots, raw.RefObj{R: ref})
		}
		b.doc.Pages = append(b.doc.Pages, out)
	}
	if w.cfg.Compression != 0 {
		if err := b.compress(w.cfg.Compression); err != nil {
			return nil, err
		}
	}
	return b.doc, nil
}

// objectBuilder implements SerializationContext over a raw document.
type objectBuilder struct {
	doc  *raw.Document
	next int
}

func newObjectBuilder(first int) *objectBuilder {
	return &objectBuilder{doc: raw.NewDocument(), next: first}
}

func (b *objectBuilder) NextRef() raw.ObjectRef {
	ref := raw.ObjectRef{Num: b.next}
	b.next++
	return ref
}

func (b *objectBuilder) AddObject(ref raw.ObjectRef, obj raw.Object) {
	b.doc.Objects[ref] = obj
}

// PageRef has no page objects to point at; the output only carries the
// annotation arrays.
func (b *objectBuilder) PageRef(index int) *raw.ObjectRef { return nil }

func (b *objectBuilder) compress(level int) error {
	for ref, obj := range b.doc.Objects {
		s, ok := obj.(*raw.StreamObj)
		if !ok {
			continue
		}
		if err := filters.Compress(s, level); err != nil {
			return fmt.Errorf("compress object %s: %w", ref, err)
		}
	}
	return nil
}
