package raw

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSerializeDict(t *testing.T) {
	d := Dict()
	d.Put("Type", NameLiteral("Annot"))
	d.Put("Subtype", NameLiteral("Square"))
	d.Put("Rect", Numbers(10, 730, 110.5, 780))
	d.Put("Contents", Str([]byte("a (b)")))
	d.Put("P", Ref(3, 0))
	d.Put("F", nil)

	got := string(Serialize(d))
	want := "<</Contents (a \\(b\\))/P 3 0 R/Rect [10 730 110.5 780]/Subtype /Square/Type /Annot>>"
	if got != want {
		t.Fatalf("Serialize =\n%s\nwant\n%s", got, want)
	}
}

func TestSerializeStreamAndIndirect(t *testing.T) {
	s := NewStream(nil, []byte("0 0 m"))
	got := string(SerializeIndirect(ObjectRef{Num: 7}, s))
	if !strings.HasPrefix(got, "7 0 obj\n<</Length 5>>\nstream\n0 0 m\nendstream") {
		t.Fatalf("unexpected stream serialization: %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[float64]string{1: "1", 0.5: "0.5", 1.23456: "1.2346", -0.00001: "0"}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestNameEscape(t *testing.T) {
	if got := NameEscape("A B#"); got != "A#20B#23" {
		t.Fatalf("NameEscape = %s", got)
	}
}

func TestTextStringRoundTrip(t *testing.T) {
	for _, s := range []string{"plain", "Grüße", "日本語"} {
		enc := TextString(s)
		if got := DecodeText(enc.Value()); got != s {
			t.Fatalf("DecodeText(TextString(%q)) = %q", s, got)
		}
	}
	if got := DecodeText([]byte{'c', 0xE9}); got != "cé" {
		t.Fatalf("latin-1 decode = %q", got)
	}
}

func TestDeref(t *testing.T) {
	doc := NewDocument()
	doc.Objects[ObjectRef{Num: 1}] = Ref(2, 0)
	doc.Objects[ObjectRef{Num: 2}] = NameLiteral("X")
	doc.Objects[ObjectRef{Num: 3}] = Ref(3, 0)
	if n, ok := Deref(doc, Ref(1, 0)).(NameObj); !ok || n.Val != "X" {
		t.Fatalf("Deref chain failed")
	}
	if Deref(doc, Ref(3, 0)) != nil {
		t.Fatal("cycle should resolve to nil")
	}
	if Deref(doc, Ref(9, 0)) != nil {
		t.Fatal("missing object should resolve to nil")
	}
}

const dump = `{
  "objects": {"5 0": {"Type": "/Annot", "Subtype": "/Text", "Contents": "'/not a name", "IRT": "4 0 R"}},
  "pages": [
    {"index": 0, "width": 612, "height": 792, "annots": [
      "5 0 R",
      {"Subtype": "/Square", "Rect": [10, 730, 110.5, 780], "T": "Ann",
       "AP": {"N": {"$stream": "MCAwIG0=", "dict": {"Subtype": "/Form"}}}}
    ]}
  ]
}`

func TestJSONDump(t *testing.T) {
	doc, err := DecodeJSON(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(doc.Pages) != 1 || len(doc.Pages[0].Annots) != 2 {
		t.Fatalf("unexpected pages: %+v", doc.Pages)
	}
	if _, ok := doc.Pages[0].Annots[0].(RefObj); !ok {
		t.Fatalf("first annot should be a reference, got %T", doc.Pages[0].Annots[0])
	}
	reply := Deref(doc, doc.Pages[0].Annots[0]).(*DictObj)
	contents, _ := reply.Lookup("Contents")
	if got := string(contents.(StringObj).Value()); got != "/not a name" {
		t.Fatalf("quoted string decoded as %q", got)
	}
	sq := doc.Pages[0].Annots[1].(*DictObj)
	rect, _ := sq.Lookup("Rect")
	if n := rect.(*ArrayObj).Items[2].(NumberObj); n.IsInt || n.F != 110.5 {
		t.Fatalf("rect x2 = %+v", n)
	}
	ap, _ := sq.Lookup("AP")
	normal, _ := ap.(*DictObj).Lookup("N")
	if s := normal.(*StreamObj); string(s.Data) != "0 0 m" {
		t.Fatalf("stream data = %q", s.Data)
	}

	var buf bytes.Buffer
	if err := EncodeJSON(&buf, doc); err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	again, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if got, want := string(Serialize(again.Pages[0].Annots[1])), string(Serialize(sq)); got != want {
		t.Fatalf("round trip changed dict:\n%s\n%s", got, want)
	}
	back := Deref(again, again.Pages[0].Annots[0]).(*DictObj)
	c2, _ := back.Lookup("Contents")
	if string(c2.(StringObj).Value()) != "/not a name" {
		t.Fatal("ambiguous string lost its quoting")
	}
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("", -5*3600-30*60))
	s := FormatDate(ts)
	if s != "D:20240309140507-05'30'" {
		t.Fatalf("FormatDate = %s", s)
	}
	back, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !back.Equal(ts) {
		t.Fatalf("ParseDate = %v, want %v", back, ts)
	}
	utc, err := ParseDate("D:20240309")
	if err != nil || !utc.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("short date = %v, %v", utc, err)
	}
	if _, err := ParseDate("D:20"); err == nil {
		t.Fatal("expected error for truncated year")
	}
}
