// Package annot defines annotation kinds and the records the store keeps for
// them.
package annot

import "fmt"

// Kind is the closed set of annotation tools.
type Kind int

const (
	KindSelect Kind = iota
	KindHighlight
	KindStrikeout
	KindUnderline
	KindFreeText
	KindRectangle
	KindEllipse
	KindFreehand
	KindFreeHighlight
	KindPolyline
	KindCloud
	KindSignature
	KindStamp
	KindNote
	KindCallout
	KindPolygon
	KindLine
	KindArrow

	kindCount
)

type kindInfo struct {
	name    string
	label   string
	subtype string
}

var kinds = [kindCount]kindInfo{
	KindSelect:        {"select", "Select", ""},
	KindHighlight:     {"highlight", "Highlight", "Highlight"},
	KindStrikeout:     {"strikeout", "Strikeout", "StrikeOut"},
	KindUnderline:     {"underline", "Underline", "Underline"},
	KindFreeText:      {"freetext", "Text", "FreeText"},
	KindRectangle:     {"rectangle", "Rectangle", "Square"},
	KindEllipse:       {"ellipse", "Ellipse", "Circle"},
	KindFreehand:      {"freehand", "Freehand", "Ink"},
	KindFreeHighlight: {"freehighlight", "Free highlight", "Ink"},
	KindPolyline:      {"polyline", "Polyline", "PolyLine"},
	KindCloud:         {"cloud", "Cloud", "PolyLine"},
	KindSignature:     {"signature", "Signature", "Stamp"},
	KindStamp:         {"stamp", "Stamp", "Stamp"},
	KindNote:          {"note", "Note", "Text"},
	KindCallout:       {"callout", "Callout", "FreeText"},
	KindPolygon:       {"polygon", "Polygon", "Polygon"},
	KindLine:          {"line", "Line", "Line"},
	KindArrow:         {"arrow", "Arrow", "Line"},
}

// Kinds returns every drawable kind, excluding KindSelect.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := KindHighlight; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) Valid() bool { return k >= 0 && k < kindCount }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// Label is the human readable name used in tabular exports.
func (k Kind) Label() string {
	if !k.Valid() {
		return "Unknown"
	}
	return kinds[k].label
}

// Subtype returns the PDF annotation subtype the kind is saved as.
func (k Kind) Subtype() string {
	if !k.Valid() {
		return ""
	}
	return kinds[k].subtype
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k := Kind(0); k < kindCount; k++ {
		if kinds[k].name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// IsSingleGesture reports kinds drawn with one press-drag-release.
func (k Kind) IsSingleGesture() bool {
	switch k {
	case KindRectangle, KindEllipse, KindLine, KindArrow, KindFreehand, KindFreeHighlight:
		return true
	}
	return false
}

// IsMultiClick reports kinds built vertex by vertex.
func (k Kind) IsMultiClick() bool {
	switch k {
	case KindPolyline, KindPolygon, KindCloud, KindCallout:
		return true
	}
	return false
}

// IsImageBearing reports kinds persisted as a rasterized bitmap.
func (k Kind) IsImageBearing() bool {
	switch k {
	case KindFreeText, KindStamp, KindSignature:
		return true
	}
	return false
}

// IsTextMarkup reports kinds placed over text runs.
func (k Kind) IsTextMarkup() bool {
	switch k {
	case KindHighlight, KindUnderline, KindStrikeout:
		return true
	}
	return false
}

// IsDebounced reports kinds whose rapid strokes merge into one record.
func (k Kind) IsDebounced() bool {
	return k == KindFreehand || k == KindFreeHighlight
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid annotation kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
