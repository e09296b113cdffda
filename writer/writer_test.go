package writer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmarkup/extractor"
	"github.com/wudi/pdfmarkup/filters"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
)

func writeAndExtract(t *testing.T, cfg Config, pages []Page) (*raw.Document, []semantic.Annotation) {
	t.Helper()
	doc, err := New(cfg).Write(context.Background(), pages)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
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
	return doc, annots
}

func TestWriter_NewAnnotations(t *testing.T) {
	modified := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	square := &semantic.SquareAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:     "Square",
			RectVal:     semantic.Rectangle{LLX: 10, LLY: 20, URX: 110, URY: 70},
			Contents:    "Größe prüfen",
			Color:       []float64{1, 0, 0},
			BorderWidth: 2,
			Author:      "reviewer",
			Name:        "sq-1",
			Modified:    modified,
			Opacity:     0.5,
		},
	}
	highlight := &semantic.HighlightAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype: "Highlight",
			RectVal: semantic.Rectangle{LLX: 50, LLY: 50, URX: 200, URY: 70},
			Color:   []float64{1, 1, 0},
			Name:    "hl-1",
		},
		QuadPoints: []float64{50, 70, 200, 70, 50, 50, 200, 50},
	}
	reply := &semantic.TextAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:   "Text",
			RectVal:   semantic.Rectangle{LLX: 10, LLY: 20, URX: 30, URY: 40},
			Contents:  "looks good",
			ReplyTo:   square,
			ReplyType: "R",
			Name:      "c-1",
		},
		State:      "Accepted",
		StateModel: "Review",
	}
	line := &semantic.LineAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype: "Line",
			RectVal: semantic.Rectangle{LLX: 0, LLY: 0, URX: 100, URY: 100},
			Color:   []float64{0, 0, 1},
		},
		L:  []float64{5, 5, 95, 95},
		LE: []string{"None", "OpenArrow"},
	}

	doc, annots := writeAndExtract(t, Config{Appearances: true}, []Page{
		{Index: 0, Width: 612, Height: 792, Annotations: []semantic.Annotation{square, highlight, reply}},
		{Index: 1, Width: 612, Height: 792, Annotations: []semantic.Annotation{line}},
	})
	if len(doc.Pages) != 2 || len(doc.Pages[0].Annots) != 3 {
		t.Fatalf("unexpected page layout: %+v", doc.Pages)
	}
	if len(annots) != 4 {
		t.Fatalf("expected 4 annotations, got %d", len(annots))
	}

	sq, ok := annots[0].(*semantic.SquareAnnotation)
	if !ok {
		t.Fatalf("first annotation is %T", annots[0])
	}
	if sq.Contents != "Größe prüfen" || sq.Author != "reviewer" || sq.Name != "sq-1" {
		t.Fatalf("text fields lost: %+v", sq.BaseAnnotation)
	}
	if !sq.Modified.Equal(modified) {
		t.Fatalf("modified = %v", sq.Modified)
	}
	if sq.Opacity != 0.5 || sq.BorderWidth != 2 {
		t.Fatalf("opacity/border = %v/%v", sq.Opacity, sq.BorderWidth)
	}
	if !bytes.Contains(sq.Appearance, []byte(" re\n")) {
		t.Fatalf("square appearance missing rectangle:\n%s", sq.Appearance)
	}

	hl := annots[1].(*semantic.HighlightAnnotation)
	if diff := cmp.Diff(highlight.QuadPoints, hl.QuadPoints); diff != "" {
		t.Fatalf("quad points (-want +got):\n%s", diff)
	}

	r := annots[2].(*semantic.TextAnnotation)
	if r.InReplyTo != sq.Ref {
		t.Fatalf("reply IRT = %v, parent ref %v", r.InReplyTo, sq.Ref)
	}
	if r.State != "Accepted" || r.ReplyType != "R" {
		t.Fatalf("review state lost: %+v", r)
	}

	ln := annots[3].(*semantic.LineAnnotation)
	if ln.PageIndex != 1 || len(ln.LE) != 2 || ln.LE[1] != "OpenArrow" {
		t.Fatalf("line = %+v", ln)
	}
}

func TestWriterSkipsAppearancesWhenDisabled(t *testing.T) {
	ink := &semantic.InkAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{Subtype: "Ink", RectVal: semantic.Rectangle{URX: 10, URY: 10}, Color: []float64{0}},
		InkList:        [][]float64{{1, 1, 5, 5, 9, 2}},
	}
	doc, err := New(Config{}).Write(context.Background(), []Page{{Annotations: []semantic.Annotation{ink}}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	dict := doc.Objects[ink.Ref].(*raw.DictObj)
	if _, ok := dict.Lookup("AP"); ok {
		t.Fatal("appearance written with Appearances off")
	}
	if _, ok := dict.Lookup("InkList"); !ok {
		t.Fatal("InkList missing")
	}
}

func TestWriterSkipsAnnotationWithoutSubtype(t *testing.T) {
	good := &semantic.CircleAnnotation{BaseAnnotation: semantic.BaseAnnotation{Subtype: "Circle", RectVal: semantic.Rectangle{URX: 10, URY: 10}}}
	bad := &semantic.GenericAnnotation{}
	doc, err := New(Config{}).Write(context.Background(), []Page{{Annotations: []semantic.Annotation{bad, good}}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(doc.Pages[0].Annots) != 1 {
		t.Fatalf("expected only the circle, got %d", len(doc.Pages[0].Annots))
	}
}

func TestWriterCompressesStreams(t *testing.T) {
	circle := &semantic.CircleAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{Subtype: "Circle", RectVal: semantic.Rectangle{URX: 40, URY: 20}, Color: []float64{0, 1, 0}},
		IC:             []float64{1, 1, 1},
	}
	doc, err := New(Config{Appearances: true, Compression: 9}).Write(context.Background(), []Page{{Annotations: []semantic.Annotation{circle}}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	dict := doc.Objects[circle.Ref].(*raw.DictObj)
	apRef := raw.Deref(doc, dict.KV["AP"].(*raw.DictObj).KV["N"]).(*raw.StreamObj)
	if f, _ := apRef.Dict.Lookup("Filter"); f == nil {
		t.Fatal("appearance not compressed")
	}
	data, err := filters.Default().DecodeStream(context.Background(), apRef)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(string(data), " c\n") || !strings.HasSuffix(string(data), "B\nQ\n") {
		t.Fatalf("circle appearance:\n%s", data)
	}
}

func TestStampImageRoundTrip(t *testing.T) {
	img := &semantic.Image{
		Width: 2, Height: 1,
		RGB:   []byte{255, 0, 0, 0, 0, 255},
		Alpha: []byte{255, 128},
	}
	stamp := &semantic.StampAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{Subtype: "Stamp", RectVal: semantic.Rectangle{LLX: 100, LLY: 100, URX: 140, URY: 120}},
		Image:          img,
	}
	_, annots := writeAndExtract(t, Config{}, []Page{{Annotations: []semantic.Annotation{stamp}}})
	got := annots[0].(*semantic.StampAnnotation)
	if got.Image == nil {
		t.Fatal("stamp image lost")
	}
	if diff := cmp.Diff(img, got.Image); diff != "" {
		t.Fatalf("image (-want +got):\n%s", diff)
	}
}

func TestFreeTextAppearance(t *testing.T) {
	ft := &semantic.FreeTextAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:  "FreeText",
			RectVal:  semantic.Rectangle{LLX: 0, LLY: 0, URX: 60, URY: 100},
			Contents: "one two three four\nfive (x)",
		},
		DA: "/Helv 10 Tf 0 0 1 rg",
	}
	doc, err := New(Config{Appearances: true}).Write(context.Background(), []Page{{Annotations: []semantic.Annotation{ft}}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	dict := doc.Objects[ft.Ref].(*raw.DictObj)
	form := raw.Deref(doc, dict.KV["AP"].(*raw.DictObj).KV["N"]).(*raw.StreamObj)
	text := string(form.Data)
	for _, want := range []string{"/Helv 10 Tf", "0 0 1 rg", "(five \\(x\\)) Tj"} {
		if !strings.Contains(text, want) {
			t.Fatalf("appearance missing %q:\n%s", want, text)
		}
	}
	if n := strings.Count(text, " Tj"); n != 3 {
		t.Fatalf("expected 3 wrapped lines, got %d:\n%s", n, text)
	}
}

func TestParseDA(t *testing.T) {
	font, size, color := ParseDA("/Helv 12 Tf 0.5 g")
	if font != "Helv" || size != 12 || len(color) != 1 || color[0] != 0.5 {
		t.Fatalf("ParseDA = %q %v %v", font, size, color)
	}
	if got := DefaultAppearance(9, []float64{1, 0, 0}); got != "/Helv 9 Tf 1 0 0 rg" {
		t.Fatalf("DefaultAppearance = %q", got)
	}
}

func TestWriterHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Write(ctx, []Page{{Annotations: []semantic.Annotation{&semantic.GenericAnnotation{}}}})
	if err == nil {
		t.Fatal("expected context error")
	}
}
