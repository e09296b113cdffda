// Package richtext converts comment text between markdown and the XHTML
// rich text (/RC) carried by markup annotations.
package richtext

import (
	"bytes"
	"fmt"
	"strings"

	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const bodyOpen = `<?xml version="1.0"?><body xmlns="http://www.w3.org/1999/xhtml" ` +
	`xmlns:xfa="http://www.xfa.org/schema/xfa-data/1.0/" xfa:APIVersion="Acrobat:7.0.0" xfa:spec="2.0.2">`

const bodyClose = `</body>`

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Strikethrough,
		extension.Linkify,
		treeblood.MathML(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithXHTML(),
		gmhtml.WithHardWraps(),
	),
)

// ToXHTML renders markdown comment text as an XHTML rich text body. Raw
// HTML in the source is not passed through.
func ToXHTML(source string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(bodyOpen)
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render rich text: %w", err)
	}
	buf.WriteString(bodyClose)
	return buf.String(), nil
}

// PlainText extracts the text of a rich text body. Block elements and line
// breaks become newlines.
func PlainText(rc string) (string, error) {
	rc = strings.TrimSpace(rc)
	if strings.HasPrefix(rc, "<?xml") {
		if end := strings.Index(rc, "?>"); end >= 0 {
			rc = rc[end+2:]
		}
	}
	doc, err := html.Parse(strings.NewReader(rc))
	if err != nil {
		return "", fmt.Errorf("parse rich text: %w", err)
	}
	var sb strings.Builder
	walk(doc, &sb)
	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

func walk(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br:
			sb.WriteByte('\n')
			return
		case atom.Script, atom.Style:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, sb)
	}
	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		sb.WriteByte('\n')
	}
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Tr, atom.Body:
		return true
	}
	return false
}
