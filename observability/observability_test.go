package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanDecodeDocument)
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag(TagAnnotationCount, 3)
	span.SetError(nil)
	span.Finish()
}

func TestZerologFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf)
	log.With(String("page", "3")).Warn("skipping annotation",
		String("subtype", "Sound"),
		Int("index", 2),
		Float("scale", 1.5),
		Bool("original", true),
		Err(errors.New("unsupported")),
	)
	out := buf.String()
	for _, want := range []string{`"level":"warn"`, `"page":"3"`, `"subtype":"Sound"`, `"index":2`, `"scale":1.5`, `"original":true`, `"error":"unsupported"`, `"message":"skipping annotation"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %s", out, want)
		}
	}
}

func TestZerologLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf).Level(zerolog.WarnLevel)
	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	log.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected error line, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("debug not parsed")
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("unknown level should default to info")
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Fatal("OrNop(nil) should be NopLogger")
	}
}
