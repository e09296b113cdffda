// Package export flattens store records for persistence: back into document
// annotation dictionaries, and into ordered tabular rows.
package export

import (
	"context"
	"sort"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/encode"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/observability"
	"github.com/wudi/pdfmarkup/richtext"
	"github.com/wudi/pdfmarkup/writer"
)

// US Letter, for pages the host reports no size for.
const (
	defaultWidth  = 612
	defaultHeight = 792
)

// replyIcon is the side of the reply note rectangle.
const replyIcon = 24

// PageSize returns the unscaled size of a 1-based page.
type PageSize func(page int) (width, height float64, ok bool)

// Exporter writes records as document annotations.
type Exporter struct {
	w      *writer.Writer
	log    observability.Logger
	tracer observability.Tracer
	size   PageSize
}

// Option configures an Exporter.
type Option func(*Exporter)

func WithLogger(l observability.Logger) Option {
	return func(e *Exporter) { e.log = observability.OrNop(l) }
}

func WithTracer(t observability.Tracer) Option {
	return func(e *Exporter) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithPageSize sets the page size lookup.
func WithPageSize(fn PageSize) Option {
	return func(e *Exporter) { e.size = fn }
}

// WithWriter replaces the dictionary writer.
func WithWriter(w *writer.Writer) Option {
	return func(e *Exporter) { e.w = w }
}

// New returns an exporter serializing with cfg.
func New(cfg writer.Config, opts ...Option) *Exporter {
	e := &Exporter{log: observability.NopLogger{}, tracer: observability.NopTracer()}
	for _, opt := range opts {
		opt(e)
	}
	if e.w == nil {
		e.w = writer.New(cfg, writer.WithLogger(e.log))
	}
	return e
}

// Annotations builds one document annotation per record followed by one
// reply per comment, grouped by page in ascending order. Records of kinds
// with no document form are skipped with a warning.
func (e *Exporter) Annotations(records []*annot.Record) []writer.Page {
	byPage := make(map[int][]semantic.Annotation)
	var pages []int
	for _, rec := range records {
		a, err := encode.Annotation(rec)
		if err != nil {
			e.log.Warn("skipping record",
				observability.String("id", rec.ID),
				observability.String("kind", rec.Kind.String()),
				observability.Err(err))
			continue
		}
		if _, ok := byPage[rec.Page]; !ok {
			pages = append(pages, rec.Page)
		}
		byPage[rec.Page] = append(byPage[rec.Page], a)
		for _, c := range rec.Comments {
			byPage[rec.Page] = append(byPage[rec.Page], e.reply(a, rec, c))
		}
	}
	sort.Ints(pages)

	out := make([]writer.Page, 0, len(pages))
	for _, n := range pages {
		w, h := float64(defaultWidth), float64(defaultHeight)
		if e.size != nil {
			if pw, ph, ok := e.size(n); ok {
				w, h = pw, ph
			}
		}
		out = append(out, writer.Page{Index: n - 1, Width: w, Height: h, Annotations: byPage[n]})
	}
	return out
}

// reply builds the text annotation answering parent for comment c.
func (e *Exporter) reply(parent semantic.Annotation, rec *annot.Record, c annot.Comment) *semantic.TextAnnotation {
	r := parent.Rect()
	t := &semantic.TextAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:   "Text",
			RectVal:   semantic.Rectangle{LLX: r.LLX, LLY: r.URY - replyIcon, URX: r.LLX + replyIcon, URY: r.URY},
			Contents:  c.Text,
			Flags:     semantic.FlagPrint | semantic.FlagNoZoom | semantic.FlagNoRotate,
			Author:    c.Title,
			Name:      c.ID,
			Modified:  c.Date,
			Created:   c.Date,
			ReplyTo:   parent,
			ReplyType: "R",
			Opacity:   1,
			PageIndex: rec.Page - 1,
		},
		Icon: "Comment",
	}
	if rc, err := richtext.ToXHTML(c.Text); err == nil {
		t.RichText = rc
	} else {
		e.log.Debug("comment left without rich text", observability.String("id", c.ID), observability.Err(err))
	}
	if c.Status != annot.StatusNone {
		t.State = c.Status
		t.StateModel = "Review"
	}
	return t
}

// Document serializes records into a raw document holding the per-page
// annotation arrays.
func (e *Exporter) Document(ctx context.Context, records []*annot.Record) (*raw.Document, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanExportDocument)
	defer span.Finish()

	pages := e.Annotations(records)
	doc, err := e.w.Write(ctx, pages)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	n := 0
	for _, p := range doc.Pages {
		n += len(p.Annots)
	}
	span.SetTag(observability.TagAnnotationCount, n)
	e.log.Info("exported annotations",
		observability.Int("records", len(records)),
		observability.Int("objects", n),
		observability.Int("pages", len(doc.Pages)))
	return doc, nil
}

// Row is one line of the tabular export. Comments produce rows of their own
// directly after their record.
type Row struct {
	Index   int
	ID      string
	Page    int
	Type    string
	Author  string
	Content string
	Date    time.Time
	Status  string
}

// CommentLabel is the type label of comment rows.
const CommentLabel = "Comment"

// Rows orders records by page ascending, then most recently modified
// first, and flattens each record's comments after it in date order. Index
// is 1-based.
func Rows(records []*annot.Record) []Row {
	sorted := append([]*annot.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Page != sorted[j].Page {
			return sorted[i].Page < sorted[j].Page
		}
		return sorted[i].LastModified.After(sorted[j].LastModified)
	})

	var rows []Row
	add := func(r Row) {
		r.Index = len(rows) + 1
		rows = append(rows, r)
	}
	for _, rec := range sorted {
		add(Row{
			ID:      rec.ID,
			Page:    rec.Page,
			Type:    rec.Kind.Label(),
			Author:  rec.Author,
			Content: rec.Content.Text,
			Date:    rec.LastModified,
		})
		comments := append([]annot.Comment(nil), rec.Comments...)
		sort.SliceStable(comments, func(i, j int) bool { return comments[i].Date.Before(comments[j].Date) })
		for _, c := range comments {
			add(Row{
				ID:      c.ID,
				Page:    rec.Page,
				Type:    CommentLabel,
				Author:  c.Title,
				Content: c.Text,
				Date:    c.Date,
				Status:  c.Status,
			})
		}
	}
	return rows
}
