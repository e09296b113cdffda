package writer

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
)

func rectArray(r semantic.Rectangle) *raw.ArrayObj {
	return raw.Numbers(r.LLX, r.LLY, r.URX, r.URY)
}

func nameArray(names []string) *raw.ArrayObj {
	arr := raw.NewArray()
	for _, n := range names {
		arr.Append(raw.NameLiteral(n))
	}
	return arr
}

// putNumbers stores a numeric array unless vals is empty.
func putNumbers(dict *raw.DictObj, key string, vals []float64) {
	if len(vals) > 0 {
		dict.Put(key, raw.Numbers(vals...))
	}
}

func putText(dict *raw.DictObj, key, value string) {
	if value != "" {
		dict.Put(key, raw.TextString(value))
	}
}

// content accumulates content stream operators.
type content struct{ bytes.Buffer }

func (c *content) op(op string, args ...float64) {
	for _, a := range args {
		c.WriteString(raw.FormatNumber(a))
		c.WriteByte(' ')
	}
	c.WriteString(op)
	c.WriteByte('\n')
}

func (c *content) fillColor(color []float64) {
	switch len(color) {
	case 1:
		c.op("g", color...)
	case 3:
		c.op("rg", color...)
	case 4:
		c.op("k", color...)
	}
}

func (c *content) strokeColor(color []float64) {
	switch len(color) {
	case 1:
		c.op("G", color...)
	case 3:
		c.op("RG", color...)
	case 4:
		c.op("K", color...)
	}
}

func (c *content) dash(d []float64) {
	if len(d) == 0 {
		return
	}
	c.WriteByte('[')
	for i, v := range d {
		if i > 0 {
			c.WriteByte(' ')
		}
		c.WriteString(raw.FormatNumber(v))
	}
	c.WriteString("] 0 d\n")
}

// ParseDA reads the font, size and color out of a default appearance string
// such as "/Helv 12 Tf 0 0 1 rg".
func ParseDA(da string) (fontName string, fontSize float64, color []float64) {
	parts := strings.Fields(da)
	for i := 0; i < len(parts); i++ {
		if strings.HasPrefix(parts[i], "/") {
			fontName = parts[i][1:]
			if i+1 < len(parts) {
				fmt.Sscanf(parts[i+1], "%f", &fontSize)
			}
		} else if parts[i] == "g" || parts[i] == "G" {
			if i >= 1 {
				color = scanFloats(parts[i-1 : i])
			}
		} else if parts[i] == "rg" || parts[i] == "RG" {
			if i >= 3 {
				color = scanFloats(parts[i-3 : i])
			}
		} else if parts[i] == "k" || parts[i] == "K" {
			if i >= 4 {
				color = scanFloats(parts[i-4 : i])
			}
		}
	}
	return
}

func scanFloats(parts []string) []float64 {
	out := make([]float64, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%f", &out[i])
	}
	return out
}

// DefaultAppearance formats a DA string for Helvetica.
func DefaultAppearance(fontSize float64, color []float64) string {
	var c content
	c.op("Tf", fontSize)
	c.fillColor(color)
	return "/Helv " + strings.ReplaceAll(strings.TrimSpace(c.String()), "\n", " ")
}

// escapeText encodes s for a WinAnsi simple font and returns it as a
// parenthesized literal. Characters outside the encoding are replaced.
func escapeText(s string) string {
	enc, err := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).String(s)
	if err != nil {
		enc = s
	}
	return string(raw.EscapeLiteral([]byte(enc)))
}

// textWidth approximates Helvetica advance widths at half an em per glyph.
func textWidth(s string, fontSize float64) float64 {
	return float64(len([]rune(s))) * fontSize * 0.5
}
