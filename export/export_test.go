package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/extractor"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/writer"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func rectRecord(id string, page int, modified time.Time) *annot.Record {
	return &annot.Record{
		ID:     id,
		Page:   page,
		Kind:   annot.KindRectangle,
		Author: "ana",
		Geometry: annot.Geometry{
			Rect:        [4]float64{10, 20, 110, 70},
			Color:       [3]float64{1, 0, 0},
			StrokeWidth: 2,
			Opacity:     1,
		},
		Created:      modified,
		LastModified: modified,
	}
}

func extract(t *testing.T, doc *raw.Document) []semantic.Annotation {
	t.Helper()
	var buf bytes.Buffer
	if err := raw.EncodeJSON(&buf, doc); err != nil {
		t.Fatalf("encode json: %v", err)
	}
	back, err := raw.DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	ex, err := extractor.New(back)
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}
	annots, err := ex.ExtractAnnotations(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return annots
}

func TestDocumentWritesRepliesAfterParent(t *testing.T) {
	rec := rectRecord("r-1", 2, t0)
	rec.Comments = []annot.Comment{
		{ID: "c-1", Title: "bo", Text: "needs **work**", Date: t0.Add(time.Minute), Status: annot.StatusAccepted},
		{ID: "c-2", Title: "ana", Text: "done", Date: t0.Add(2 * time.Minute)},
	}
	sizes := func(page int) (float64, float64, bool) { return 595, 842, page == 2 }
	e := New(writer.Config{Appearances: true}, WithPageSize(sizes))

	doc, err := e.Document(context.Background(), []*annot.Record{rec})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Index != 1 || doc.Pages[0].Width != 595 {
		t.Fatalf("pages = %+v", doc.Pages)
	}

	annots := extract(t, doc)
	if len(annots) != 3 {
		t.Fatalf("expected 3 annotations, got %d", len(annots))
	}
	sq, ok := annots[0].(*semantic.SquareAnnotation)
	if !ok {
		t.Fatalf("first annotation is %T", annots[0])
	}
	if sq.Name != "r-1" || sq.Author != "ana" || sq.PageIndex != 1 {
		t.Fatalf("square = %+v", sq.BaseAnnotation)
	}
	if diff := cmp.Diff([4]float64{10, 20, 110, 70}, sq.Rect().Array()); diff != "" {
		t.Fatalf("rect (-want +got):\n%s", diff)
	}

	first := annots[1].(*semantic.TextAnnotation)
	if first.InReplyTo != sq.Ref || first.Name != "c-1" || first.Author != "bo" {
		t.Fatalf("reply = %+v", first.BaseAnnotation)
	}
	if first.State != annot.StatusAccepted || first.StateModel != "Review" {
		t.Fatalf("review state = %q/%q", first.State, first.StateModel)
	}
	if !strings.Contains(first.RichText, "<strong>work</strong>") {
		t.Fatalf("rich text = %q", first.RichText)
	}
	second := annots[2].(*semantic.TextAnnotation)
	if second.InReplyTo != sq.Ref || second.State != "" {
		t.Fatalf("second reply = %+v", second)
	}
}

func TestDocumentSkipsUnsupported(t *testing.T) {
	bad := rectRecord("bad", 1, t0)
	bad.Kind = annot.KindSelect
	good := rectRecord("good", 3, t0)
	e := New(writer.Config{})

	pages := e.Annotations([]*annot.Record{good, bad})
	if len(pages) != 1 || pages[0].Index != 2 || len(pages[0].Annotations) != 1 {
		t.Fatalf("pages = %+v", pages)
	}
	if pages[0].Width != defaultWidth || pages[0].Height != defaultHeight {
		t.Fatalf("default size = %vx%v", pages[0].Width, pages[0].Height)
	}
}

func TestDocumentGroupsPagesAscending(t *testing.T) {
	e := New(writer.Config{})
	doc, err := e.Document(context.Background(), []*annot.Record{
		rectRecord("c", 5, t0),
		rectRecord("a", 1, t0),
		rectRecord("b", 5, t0),
	})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	var got []int
	for _, p := range doc.Pages {
		got = append(got, p.Index)
	}
	if diff := cmp.Diff([]int{0, 4}, got); diff != "" {
		t.Fatalf("page order (-want +got):\n%s", diff)
	}
	if len(doc.Pages[1].Annots) != 2 {
		t.Fatalf("page 5 annots = %d", len(doc.Pages[1].Annots))
	}
}

func TestDocumentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(writer.Config{}).Document(ctx, []*annot.Record{rectRecord("a", 1, t0)}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRowsOrdering(t *testing.T) {
	old := rectRecord("old", 1, t0)
	old.Content.Text = "first"
	old.Comments = []annot.Comment{
		{ID: "c-late", Title: "bo", Text: "late", Date: t0.Add(3 * time.Hour), Status: annot.StatusRejected},
		{ID: "c-early", Title: "ana", Text: "early", Date: t0.Add(time.Hour)},
	}
	recent := rectRecord("recent", 1, t0.Add(time.Hour))
	recent.Kind = annot.KindNote
	later := rectRecord("p2", 2, t0.Add(-time.Hour))

	rows := Rows([]*annot.Record{later, old, recent})
	type key struct {
		Index  int
		ID     string
		Page   int
		Type   string
		Status string
	}
	var got []key
	for _, r := range rows {
		got = append(got, key{r.Index, r.ID, r.Page, r.Type, r.Status})
	}
	want := []key{
		{1, "recent", 1, "Note", ""},
		{2, "old", 1, "Rectangle", ""},
		{3, "c-early", 1, CommentLabel, ""},
		{4, "c-late", 1, CommentLabel, annot.StatusRejected},
		{5, "p2", 2, "Rectangle", ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
	if rows[1].Content != "first" || rows[3].Author != "bo" || !rows[3].Date.Equal(t0.Add(3*time.Hour)) {
		t.Fatalf("row fields = %+v / %+v", rows[1], rows[3])
	}
	if old.Comments[0].ID != "c-late" {
		t.Fatal("Rows reordered the record's comments")
	}
}
