package richtext

import (
	"strings"
	"testing"
)

func TestToXHTML(t *testing.T) {
	rc, err := ToXHTML("**Check** the ~~old~~ total\nsecond line")
	if err != nil {
		t.Fatalf("ToXHTML: %v", err)
	}
	for _, want := range []string{
		`<body xmlns="http://www.w3.org/1999/xhtml"`,
		"<strong>Check</strong>",
		"<del>old</del>",
		"<br />",
		"</body>",
	} {
		if !strings.Contains(rc, want) {
			t.Fatalf("missing %q in %s", want, rc)
		}
	}
}

func TestToXHTMLMath(t *testing.T) {
	rc, err := ToXHTML("$$x^2$$")
	if err != nil {
		t.Fatalf("ToXHTML: %v", err)
	}
	if !strings.Contains(rc, "<math") {
		t.Fatalf("expected MathML, got %s", rc)
	}
}

func TestPlainText(t *testing.T) {
	got, err := PlainText(`<?xml version="1.0"?><body xmlns="http://www.w3.org/1999/xhtml"><p>first <b>bold</b></p><p>a<br/>b</p><script>x()</script></body>`)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if got != "first bold\na\nb" {
		t.Fatalf("PlainText = %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	rc, err := ToXHTML("Please *fix* this")
	if err != nil {
		t.Fatalf("ToXHTML: %v", err)
	}
	got, err := PlainText(rc)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if got != "Please fix this" {
		t.Fatalf("round trip = %q", got)
	}
}
