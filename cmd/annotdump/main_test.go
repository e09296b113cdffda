package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pdfmarkup/annot"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/writer"
)

func writeDump(t *testing.T) string {
	t.Helper()
	square := &semantic.SquareAnnotation{BaseAnnotation: semantic.BaseAnnotation{
		Subtype:     "Square",
		RectVal:     semantic.Rectangle{LLX: 10, LLY: 20, URX: 110, URY: 70},
		Contents:    "check\nthis",
		Color:       []float64{1, 0, 0},
		BorderWidth: 2,
		Author:      "ana",
		Name:        "sq-1",
		Modified:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}}
	reply := &semantic.TextAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{
			Subtype:  "Text",
			RectVal:  semantic.Rectangle{LLX: 10, LLY: 46, URX: 34, URY: 70},
			Contents: "ok",
			Author:   "bo",
			Name:     "c-1",
			ReplyTo:  square,
			Modified: time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC),
		},
		State:      "Accepted",
		StateModel: "Review",
	}
	doc, err := writer.New(writer.Config{}).Write(context.Background(), []writer.Page{
		{Index: 0, Width: 612, Height: 792, Annotations: []semantic.Annotation{square, reply}},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dump.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := raw.EncodeJSON(f, doc); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestRunPrintsRows(t *testing.T) {
	path := writeDump(t)
	var out bytes.Buffer
	if err := run(context.Background(), options{dumpPath: path}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out.String())
	}
	if !strings.Contains(lines[1], "sq-1") || !strings.Contains(lines[1], "Rectangle") || !strings.Contains(lines[1], "check this") {
		t.Fatalf("record row = %q", lines[1])
	}
	if !strings.Contains(lines[2], "c-1") || !strings.Contains(lines[2], "Accepted") {
		t.Fatalf("comment row = %q", lines[2])
	}
}

func TestRunRewritesDump(t *testing.T) {
	path := writeDump(t)
	out := filepath.Join(t.TempDir(), "out.json")
	var buf bytes.Buffer
	if err := run(context.Background(), options{dumpPath: path, records: true, rewrite: out}, &buf); err != nil {
		t.Fatalf("run: %v", err)
	}
	var records []*annot.Record
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("records json: %v", err)
	}
	if len(records) != 1 || records[0].ID != "sq-1" || len(records[0].Comments) != 1 {
		t.Fatalf("records = %+v", records)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	doc, err := raw.DecodeJSON(f)
	if err != nil {
		t.Fatalf("decode rewritten dump: %v", err)
	}
	if len(doc.Pages) != 1 || len(doc.Pages[0].Annots) != 2 {
		t.Fatalf("rewritten pages = %+v", doc.Pages)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\tb\nc"); got != "a b c" {
		t.Fatalf("oneLine = %q", got)
	}
	long := strings.Repeat("x", 80)
	if got := []rune(oneLine(long)); len(got) != 60 {
		t.Fatalf("truncated to %d runes", len(got))
	}
}
