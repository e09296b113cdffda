package annot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/pdfmarkup/config"
)

// Style carries the visual attributes of a record. Zero fields take the
// kind's default.
type Style struct {
	Color       string  `cbor:"color,omitempty" json:"color,omitempty"`
	StrokeWidth float64 `cbor:"strokeWidth,omitempty" json:"strokeWidth,omitempty"`
	Opacity     float64 `cbor:"opacity,omitempty" json:"opacity,omitempty"`
	FontSize    float64 `cbor:"fontSize,omitempty" json:"fontSize,omitempty"`
}

var defaultStyles = map[Kind]Style{
	KindHighlight:     {Color: "#ffff00", Opacity: 0.5},
	KindStrikeout:     {Color: "#ff0000", StrokeWidth: 1, Opacity: 1},
	KindUnderline:     {Color: "#0000ff", StrokeWidth: 1, Opacity: 1},
	KindFreeText:      {Color: "#000000", Opacity: 1, FontSize: 16},
	KindRectangle:     {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindEllipse:       {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindFreehand:      {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindFreeHighlight: {Color: "#ffff00", StrokeWidth: 10, Opacity: 0.5},
	KindPolyline:      {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindCloud:         {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindSignature:     {Color: "#000000", Opacity: 1},
	KindStamp:         {Color: "#ff0000", Opacity: 1},
	KindNote:          {Color: "#ffcc00", Opacity: 1},
	KindCallout:       {Color: "#ff0000", StrokeWidth: 1, Opacity: 1, FontSize: 14},
	KindPolygon:       {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindLine:          {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
	KindArrow:         {Color: "#ff0000", StrokeWidth: 2, Opacity: 1},
}

// DefaultStyle returns the built-in style for k.
func DefaultStyle(k Kind) Style { return defaultStyles[k] }

// WithDefaults fills zero fields from def.
func (s Style) WithDefaults(def Style) Style {
	if s.Color == "" {
		s.Color = def.Color
	}
	if s.StrokeWidth == 0 {
		s.StrokeWidth = def.StrokeWidth
	}
	if s.Opacity == 0 {
		s.Opacity = def.Opacity
	}
	if s.FontSize == 0 {
		s.FontSize = def.FontSize
	}
	return s
}

// Merge overlays the non-zero fields of o onto s.
func (s Style) Merge(o Style) Style {
	return o.WithDefaults(s)
}

// Styles resolves per-kind styles from configuration overrides.
type Styles map[Kind]Style

// StylesFromConfig applies configured overrides on top of the defaults.
// Unknown kind names are ignored.
func StylesFromConfig(overrides map[string]config.StyleConfig) Styles {
	out := make(Styles, len(defaultStyles))
	for k, st := range defaultStyles {
		out[k] = st
	}
	for name, sc := range overrides {
		k, err := ParseKind(name)
		if err != nil {
			continue
		}
		out[k] = Style{
			Color:       sc.Color,
			StrokeWidth: sc.StrokeWidth,
			Opacity:     sc.Opacity,
			FontSize:    sc.FontSize,
		}.WithDefaults(out[k])
	}
	return out
}

// For returns the style for k, falling back to the built-in default.
func (ss Styles) For(k Kind) Style {
	if st, ok := ss[k]; ok {
		return st
	}
	return defaultStyles[k]
}

// NormalizeColor parses "#rgb", "#rrggbb", "rgb(r, g, b)", "rgba(...)" or a
// three-number list "r g b" in [0,1] and returns an RGB triple in [0,1].
func NormalizeColor(s string) ([3]float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		open := strings.IndexByte(s, '(')
		end := strings.IndexByte(s, ')')
		if open < 0 || end < open {
			return [3]float64{}, fmt.Errorf("malformed color %q", s)
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) < 3 {
			return [3]float64{}, fmt.Errorf("malformed color %q", s)
		}
		var out [3]float64
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
			if err != nil {
				return [3]float64{}, fmt.Errorf("malformed color %q: %w", s, err)
			}
			out[i] = clamp01(v / 255)
		}
		return out, nil
	}
	fields := strings.Fields(s)
	if len(fields) == 3 {
		var out [3]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return [3]float64{}, fmt.Errorf("malformed color %q: %w", s, err)
			}
			out[i] = clamp01(v)
		}
		return out, nil
	}
	return [3]float64{}, fmt.Errorf("unsupported color %q", s)
}

func parseHex(h string) ([3]float64, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 8 {
		h = h[:6]
	}
	if len(h) != 6 {
		return [3]float64{}, fmt.Errorf("malformed hex color #%s", h)
	}
	var out [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return [3]float64{}, fmt.Errorf("malformed hex color #%s: %w", h, err)
		}
		out[i] = float64(v) / 255
	}
	return out, nil
}

// ColorHex formats an RGB triple in [0,1] as "#rrggbb". Gray and CMYK arrays
// are converted first.
func ColorHex(c []float64) string {
	var r, g, b float64
	switch len(c) {
	case 1:
		r, g, b = c[0], c[0], c[0]
	case 3:
		r, g, b = c[0], c[1], c[2]
	case 4:
		k := c[3]
		r = (1 - c[0]) * (1 - k)
		g = (1 - c[1]) * (1 - k)
		b = (1 - c[2]) * (1 - k)
	default:
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", to255(r), to255(g), to255(b))
}

func to255(v float64) int {
	return int(clamp01(v)*255 + 0.5)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
