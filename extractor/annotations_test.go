package extractor

import (
	"context"
	"testing"
	"time"

	"github.com/wudi/pdfmarkup/filters"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
)

func fixture(t *testing.T) *raw.Document {
	t.Helper()
	doc := raw.NewDocument()

	sq := raw.Dict()
	sq.Put("Type", raw.NameLiteral("Annot"))
	sq.Put("Subtype", raw.NameLiteral("Square"))
	sq.Put("Rect", raw.Numbers(110, 780, 10, 730))
	sq.Put("C", raw.Numbers(1, 0, 0))
	sq.Put("T", raw.TextString("Zoë"))
	sq.Put("NM", raw.Str([]byte("sq-1")))
	sq.Put("M", raw.Str([]byte("D:20240101120000Z")))
	sq.Put("CA", raw.NumberFloat(0.5))
	bs := raw.Dict()
	bs.Put("W", raw.NumberInt(3))
	bs.Put("S", raw.NameLiteral("D"))
	bs.Put("D", raw.Numbers(3, 2))
	sq.Put("BS", bs)
	compressed, err := filters.FlateEncode([]byte("1 0 0 RG 0 0 100 50 re S"), 6)
	if err != nil {
		t.Fatalf("flate: %v", err)
	}
	apDict := raw.Dict()
	apDict.Put("Filter", raw.NameLiteral("FlateDecode"))
	apDict.Put("BBox", raw.Numbers(0, 0, 100, 50))
	ap := raw.Dict()
	ap.Put("N", raw.NewStream(apDict, compressed))
	sq.Put("AP", ap)
	doc.Objects[raw.ObjectRef{Num: 10}] = sq

	reply := raw.Dict()
	reply.Put("Subtype", raw.NameLiteral("Text"))
	reply.Put("Rect", raw.Numbers(0, 0, 20, 20))
	reply.Put("IRT", raw.Ref(10, 0))
	reply.Put("Contents", raw.Str([]byte("looks good")))
	reply.Put("State", raw.Str([]byte("Accepted")))
	reply.Put("StateModel", raw.Str([]byte("Review")))

	ink := raw.Dict()
	ink.Put("Subtype", raw.NameLiteral("Ink"))
	ink.Put("Rect", raw.Numbers(0, 0, 50, 50))
	ink.Put("InkList", raw.NewArray(raw.Numbers(1, 2, 3, 4), raw.Numbers(5), raw.Numbers(6, 7, 8, 9)))

	pl := raw.Dict()
	pl.Put("Subtype", raw.NameLiteral("PolyLine"))
	pl.Put("Vertices", raw.Numbers(0, 0, 10, 10))
	pl.Put("Path", raw.NewArray(raw.Numbers(0, 0), raw.Numbers(1, 2, 3, 4, 5, 6), raw.Numbers(1)))
	be := raw.Dict()
	be.Put("S", raw.NameLiteral("C"))
	pl.Put("BE", be)

	doc.Pages = []raw.Page{{
		Index: 0, Width: 612, Height: 792,
		Annots: []raw.Object{raw.Ref(10, 0), reply, raw.NameLiteral("junk"), ink, pl},
	}}
	return doc
}

func TestExtractAnnotations(t *testing.T) {
	ext, err := New(fixture(t))
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	annots, err := ext.ExtractAnnotations(context.Background())
	if err != nil {
		t.Fatalf("extract annotations: %v", err)
	}
	if len(annots) != 4 {
		t.Fatalf("expected 4 annotations (junk skipped), got %d", len(annots))
	}

	sq, ok := annots[0].(*semantic.SquareAnnotation)
	if !ok {
		t.Fatalf("first annotation is %T", annots[0])
	}
	if sq.RectVal != (semantic.Rectangle{LLX: 10, LLY: 730, URX: 110, URY: 780}) {
		t.Fatalf("rect not normalized: %+v", sq.RectVal)
	}
	if sq.Ref != (raw.ObjectRef{Num: 10}) || sq.ID() != "sq-1" {
		t.Fatalf("identity = %v / %s", sq.Ref, sq.ID())
	}
	if sq.Author != "Zoë" || sq.Opacity != 0.5 {
		t.Fatalf("author/opacity = %q %v", sq.Author, sq.Opacity)
	}
	if !sq.Modified.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("modified = %v", sq.Modified)
	}
	if sq.BorderWidth != 3 || sq.BorderStyle != "D" || len(sq.Dash) != 2 {
		t.Fatalf("border = %v %s %v", sq.BorderWidth, sq.BorderStyle, sq.Dash)
	}
	if string(sq.Appearance) != "1 0 0 RG 0 0 100 50 re S" {
		t.Fatalf("appearance = %q", sq.Appearance)
	}

	reply := annots[1].(*semantic.TextAnnotation)
	if !reply.IsReply() || reply.InReplyTo.Num != 10 || reply.State != "Accepted" {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Opacity != 1 {
		t.Fatalf("default opacity should be 1, got %v", reply.Opacity)
	}

	ink := annots[2].(*semantic.InkAnnotation)
	if len(ink.InkList) != 2 {
		t.Fatalf("degenerate stroke should be dropped, got %v", ink.InkList)
	}

	pl := annots[3].(*semantic.PolyLineAnnotation)
	if len(pl.Path) != 2 || pl.CloudIntensity != 1 {
		t.Fatalf("polyline path=%v cloud=%v", pl.Path, pl.CloudIntensity)
	}
}

func TestStampImage(t *testing.T) {
	doc := raw.NewDocument()
	imgDict := raw.Dict()
	imgDict.Put("Subtype", raw.NameLiteral("Image"))
	imgDict.Put("Width", raw.NumberInt(2))
	imgDict.Put("Height", raw.NumberInt(1))
	imgDict.Put("BitsPerComponent", raw.NumberInt(8))
	imgDict.Put("ColorSpace", raw.NameLiteral("DeviceRGB"))
	maskDict := raw.Dict()
	maskDict.Put("Subtype", raw.NameLiteral("Image"))
	maskDict.Put("Width", raw.NumberInt(2))
	maskDict.Put("Height", raw.NumberInt(1))
	maskDict.Put("BitsPerComponent", raw.NumberInt(8))
	maskDict.Put("ColorSpace", raw.NameLiteral("DeviceGray"))
	doc.Objects[raw.ObjectRef{Num: 2}] = raw.NewStream(maskDict, []byte{255, 0})
	imgDict.Put("SMask", raw.Ref(2, 0))
	doc.Objects[raw.ObjectRef{Num: 1}] = raw.NewStream(imgDict, []byte{255, 0, 0, 0, 0, 255})

	xo := raw.Dict()
	xo.Put("Im0", raw.Ref(1, 0))
	res := raw.Dict()
	res.Put("XObject", xo)
	form := raw.Dict()
	form.Put("Resources", res)
	ap := raw.Dict()
	ap.Put("N", raw.NewStream(form, []byte("q 2 0 0 1 0 0 cm /Im0 Do Q")))
	stamp := raw.Dict()
	stamp.Put("Subtype", raw.NameLiteral("Stamp"))
	stamp.Put("Rect", raw.Numbers(0, 0, 2, 1))
	stamp.Put("AP", ap)
	doc.Pages = []raw.Page{{Annots: []raw.Object{stamp}}}

	ext, _ := New(doc)
	annots, err := ext.ExtractAnnotations(context.Background())
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	img := annots[0].(*semantic.StampAnnotation).Image
	if img == nil || img.Width != 2 || len(img.RGB) != 6 || len(img.Alpha) != 2 {
		t.Fatalf("stamp image = %+v", img)
	}
}
