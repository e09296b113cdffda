// Package decode rebuilds editable shape groups and records from document
// annotation objects.
package decode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/richtext"
	"github.com/wudi/pdfmarkup/scene"
)

var (
	// ErrUnsupported is returned for subtypes with no editable kind.
	ErrUnsupported = errors.New("decode: unsupported annotation subtype")
	// ErrReply is returned by Decode for reply objects, which become
	// comments instead of shapes.
	ErrReply = errors.New("decode: annotation is a reply")
	// ErrPopup is returned by Decode for popup windows.
	ErrPopup = errors.New("decode: annotation is a popup")
)

// Decoded is one annotation rebuilt for editing.
type Decoded struct {
	Record *annot.Record
	Group  *scene.Group
	// Source is the id of the document object, used to hide it in the host
	// annotation layer.
	Source string
}

// Result is the outcome of a batch decode.
type Result struct {
	Decoded []Decoded
	// Skipped counts objects of unsupported subtypes or broken geometry.
	Skipped int
	// Dropped counts replies whose parent is not in the batch.
	Dropped int
}

// PageHeight returns the unscaled height of a 1-based page.
type PageHeight func(page int) float64

// Decoder converts semantic annotations into records and groups.
type Decoder struct {
	enc    *encode.Encoder
	log    observability.Logger
	tracer observability.Tracer
	now    func() time.Time
}

// Option configures a Decoder.
type Option func(*Decoder)

func WithLogger(l observability.Logger) Option {
	return func(d *Decoder) { d.log = observability.OrNop(l) }
}

func WithTracer(t observability.Tracer) Option {
	return func(d *Decoder) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithClock sets the time source for records without dates.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) { d.now = now }
}

// New returns a decoder that fills record geometry with enc.
func New(enc *encode.Encoder, opts ...Option) *Decoder {
	d := &Decoder{
		enc:    enc,
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFunc decodes one annotation for a page of the given unscaled
// height.
type DecodeFunc func(a semantic.Annotation, pageHeight float64) (Decoded, error)

// Classify returns the editable kind of a. Popups and replies report
// ErrPopup and ErrReply; other objects without a kind report
// ErrUnsupported.
func Classify(a semantic.Annotation) (annot.Kind, error) {
	if _, ok := a.(*semantic.PopupAnnotation); ok {
		return annot.KindSelect, ErrPopup
	}
	if a.Base().IsReply() {
		return annot.KindSelect, ErrReply
	}
	return KindOf(a)
}

// Decode rebuilds one annotation for a page of the given unscaled height.
// The group and record share the source object's id.
func (d *Decoder) Decode(a semantic.Annotation, pageHeight float64) (Decoded, error) {
	base := a.Base()
	kind, err := Classify(a)
	if err != nil {
		return Decoded{}, err
	}
	id := base.ID()
	if id == "" {
		id = annot.NewID()
	}
	page := base.PageIndex + 1

	g := scene.NewGroup(id, kind, page)
	content, err := build(g, a, pageHeight)
	if err != nil {
		return Decoded{}, fmt.Errorf("decode %s %s: %w", a.Type(), id, err)
	}
	st := styleOf(kind, a)
	g.Paint(st)
	g.MarkDone()

	geo, err := d.enc.Encode(g, st, pageHeight)
	if err != nil {
		return Decoded{}, fmt.Errorf("decode %s %s: %w", a.Type(), id, err)
	}
	snap, err := g.Snapshot()
	if err != nil {
		return Decoded{}, err
	}

	modified := base.Modified
	if modified.IsZero() {
		modified = d.now()
	}
	created := base.Created
	if created.IsZero() {
		created = modified
	}
	rec := &annot.Record{
		ID:           id,
		Page:         page,
		Kind:         kind,
		Snapshot:     snap,
		Style:        st,
		Content:      content,
		Author:       base.Author,
		Subtype:      a.Type(),
		Geometry:     geo,
		Draggable:    !fixed(a),
		Resizable:    !fixed(a),
		Readonly:     base.Flags&(semantic.FlagReadOnly|semantic.FlagLocked) != 0,
		Created:      created,
		LastModified: modified,
	}
	if rec.Content.Text == "" {
		rec.Content.Text = text(base)
	}
	return Decoded{Record: rec, Group: g, Source: base.ID()}, nil
}

// DecodeAll decodes a document's annotations. Failures are logged and
// skipped; replies are attached to their parent's comments after every
// parent is known.
func (d *Decoder) DecodeAll(ctx context.Context, annots []semantic.Annotation, height PageHeight) (*Result, error) {
	return d.DecodeAllWith(ctx, annots, height, d.Decode)
}

// DecodeAllWith is DecodeAll with every object decoded by fn. fn must
// report popups and replies with ErrPopup and ErrReply.
func (d *Decoder) DecodeAllWith(ctx context.Context, annots []semantic.Annotation, height PageHeight, fn DecodeFunc) (*Result, error) {
	ctx, span := d.tracer.StartSpan(ctx, observability.SpanDecodeDocument)
	defer span.Finish()

	res := &Result{}
	byRef := make(map[string]*annot.Record)
	var replies []semantic.Annotation
	for _, a := range annots {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return nil, err
		}
		base := a.Base()
		dec, err := fn(a, height(base.PageIndex+1))
		switch {
		case errors.Is(err, ErrPopup):
			continue
		case errors.Is(err, ErrReply):
			replies = append(replies, a)
			continue
		case err != nil:
			res.Skipped++
			d.log.Warn("skipping annotation",
				observability.String("subtype", a.Type()),
				observability.String("id", base.ID()),
				observability.Int("page", base.PageIndex+1),
				observability.Err(err),
			)
			continue
		}
		res.Decoded = append(res.Decoded, dec)
		if !base.Ref.IsZero() {
			byRef[base.Ref.String()] = dec.Record
		}
		if base.Name != "" {
			byRef[base.Name] = dec.Record
		}
	}

	for _, a := range replies {
		base := a.Base()
		parent := parentOf(base, byRef, replies)
		if parent == nil {
			res.Dropped++
			d.log.Debug("dropping reply without parent",
				observability.String("id", base.ID()),
				observability.String("irt", base.InReplyTo.String()),
			)
			continue
		}
		parent.Comments = append(parent.Comments, comment(a))
	}
	for _, dec := range res.Decoded {
		sortComments(dec.Record.Comments)
	}

	span.SetTag(observability.TagAnnotationCount, len(res.Decoded))
	span.SetTag(observability.TagSkippedCount, res.Skipped)
	d.log.Info("decoded annotations",
		observability.Int("count", len(res.Decoded)),
		observability.Int("skipped", res.Skipped),
		observability.Int("dropped", res.Dropped),
	)
	return res, nil
}

// parentOf follows the IRT chain up to a decoded record, so replies to
// replies land in the root thread.
func parentOf(base *semantic.BaseAnnotation, byRef map[string]*annot.Record, replies []semantic.Annotation) *annot.Record {
	seen := map[string]bool{}
	for cur := base; cur != nil; {
		key := cur.InReplyTo.String()
		if cur.ReplyTo != nil {
			key = cur.ReplyTo.Base().ID()
		}
		if seen[key] {
			return nil
		}
		seen[key] = true
		if rec, ok := byRef[key]; ok {
			return rec
		}
		cur = findReply(key, replies)
	}
	return nil
}

func findReply(key string, replies []semantic.Annotation) *semantic.BaseAnnotation {
	for _, r := range replies {
		b := r.Base()
		if (!b.Ref.IsZero() && b.Ref.String() == key) || (b.Name != "" && b.Name == key) {
			return b
		}
	}
	return nil
}

func comment(a semantic.Annotation) annot.Comment {
	base := a.Base()
	c := annot.Comment{
		ID:    base.ID(),
		Title: base.Author,
		Text:  text(base),
		Date:  base.Modified,
	}
	if c.ID == "" {
		c.ID = annot.NewID()
	}
	if t, ok := a.(*semantic.TextAnnotation); ok && t.State != "" && (t.StateModel == "" || t.StateModel == "Review") {
		c.Status = t.State
		if c.Status == "None" {
			c.Status = annot.StatusNone
		}
	}
	return c
}

// text prefers plain Contents and falls back to the rich text body.
func text(base *semantic.BaseAnnotation) string {
	if base.Contents != "" || base.RichText == "" {
		return base.Contents
	}
	plain, err := richtext.PlainText(base.RichText)
	if err != nil {
		return ""
	}
	return plain
}

func sortComments(cs []annot.Comment) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Date.Before(cs[j].Date) })
}

// fixed reports the host types that keep their position and size.
func fixed(a semantic.Annotation) bool {
	switch a.(type) {
	case *semantic.TextAnnotation, *semantic.FreeTextAnnotation, *semantic.StampAnnotation:
		return true
	}
	return false
}
