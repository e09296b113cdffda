// Package semantic holds typed PDF annotation objects, one struct per
// subtype, sitting between raw dictionaries and the markup records.
package semantic

import (
	"time"

	"github.com/wudi/pdfmarkup/ir/raw"
)

// Rectangle is a PDF rectangle in document space.
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

// RectFromArray builds a normalized rectangle from [x1 y1 x2 y2].
func RectFromArray(a [4]float64) Rectangle {
	return Rectangle{LLX: a[0], LLY: a[1], URX: a[2], URY: a[3]}.Normalize()
}

func (r Rectangle) Array() [4]float64 { return [4]float64{r.LLX, r.LLY, r.URX, r.URY} }
func (r Rectangle) Width() float64    { return r.URX - r.LLX }
func (r Rectangle) Height() float64   { return r.URY - r.LLY }
func (r Rectangle) IsZero() bool      { return r == Rectangle{} }

// Normalize orders the corners lower-left, upper-right.
func (r Rectangle) Normalize() Rectangle {
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r
}

// Annotation flags (/F).
const (
	FlagInvisible = 1 << 0
	FlagHidden    = 1 << 1
	FlagPrint     = 1 << 2
	FlagNoZoom    = 1 << 3
	FlagNoRotate  = 1 << 4
	FlagNoView    = 1 << 5
	FlagReadOnly  = 1 << 6
	FlagLocked    = 1 << 7
)

// Annotation represents a page annotation.
type Annotation interface {
	Type() string
	Rect() Rectangle
	SetRect(Rectangle)
	Reference() raw.ObjectRef
	SetReference(raw.ObjectRef)
	Base() *BaseAnnotation
}

// BaseAnnotation provides common fields for annotations.
type BaseAnnotation struct {
	Subtype  string
	RectVal  Rectangle
	Contents string
	// Color holds 0 (transparent), 1, 3 or 4 components.
	Color []float64
	// BorderWidth comes from /BS /W, falling back to the third /Border entry.
	BorderWidth float64
	BorderStyle string
	Dash        []float64
	// CloudIntensity is the /BE /I value when the border effect is cloudy.
	CloudIntensity float64
	Flags          int
	Author         string // T
	Name           string // NM
	Subject        string // Subj
	Modified       time.Time
	Created        time.Time
	// InReplyTo is the parent of a reply (IRT).
	InReplyTo raw.ObjectRef
	// ReplyTo links a reply to a parent that has no reference yet; writers
	// turn it into IRT once the parent is numbered.
	ReplyTo   Annotation
	ReplyType string
	// Opacity is CA; 1 when the dictionary has none.
	Opacity  float64
	RichText string // RC
	// Appearance is the normal appearance stream content.
	Appearance     []byte
	AppearanceBBox Rectangle
	AppearanceRes  *raw.DictObj
	// PageIndex is 0-based.
	PageIndex int
	Ref       raw.ObjectRef
	Popup     raw.ObjectRef
}

func (a *BaseAnnotation) Type() string                 { return a.Subtype }
func (a *BaseAnnotation) Rect() Rectangle              { return a.RectVal }
func (a *BaseAnnotation) SetRect(r Rectangle)          { a.RectVal = r }
func (a *BaseAnnotation) Reference() raw.ObjectRef     { return a.Ref }
func (a *BaseAnnotation) SetReference(r raw.ObjectRef) { a.Ref = r }
func (a *BaseAnnotation) Base() *BaseAnnotation        { return a }

// IsReply reports whether the annotation answers another one.
func (a *BaseAnnotation) IsReply() bool { return !a.InReplyTo.IsZero() || a.ReplyTo != nil }

// ID returns the annotation's stable identifier: NM when present, else the
// object reference.
func (a *BaseAnnotation) ID() string {
	if a.Name != "" {
		return a.Name
	}
	if !a.Ref.IsZero() {
		return a.Ref.String()
	}
	return ""
}

// TextAnnotation represents a sticky note annotation. Replies are text
// annotations with InReplyTo set; review replies carry State/StateModel.
type TextAnnotation struct {
	BaseAnnotation
	Open       bool
	Icon       string // e.g., "Comment", "Key", "Note", "Help"
	State      string
	StateModel string
}

// HighlightAnnotation represents a highlight annotation.
type HighlightAnnotation struct {
	BaseAnnotation
	QuadPoints []float64 // 8 numbers per quadrilateral
}

// UnderlineAnnotation represents an underline annotation.
type UnderlineAnnotation struct {
	BaseAnnotation
	QuadPoints []float64
}

// StrikeOutAnnotation represents a strikeout annotation.
type StrikeOutAnnotation struct {
	BaseAnnotation
	QuadPoints []float64
}

// SquigglyAnnotation represents a squiggly underline annotation.
type SquigglyAnnotation struct {
	BaseAnnotation
	QuadPoints []float64
}

// FreeTextAnnotation represents a free text annotation.
type FreeTextAnnotation struct {
	BaseAnnotation
	DA string // Default appearance string
	Q  int    // Quadding (justification): 0=Left, 1=Center, 2=Right
	// CalloutLine is /CL: 4 or 6 numbers from the knee to the text box.
	CalloutLine []float64
	Intent      string
	LineEnding  string
	RD          []float64
}

// LineAnnotation represents a line annotation.
type LineAnnotation struct {
	BaseAnnotation
	L  []float64 // [x1 y1 x2 y2]
	LE []string  // start and end styles, e.g. OpenArrow, None
	IC []float64
}

// SquareAnnotation represents a square annotation.
type SquareAnnotation struct {
	BaseAnnotation
	IC []float64
	RD []float64
}

// CircleAnnotation represents a circle annotation.
type CircleAnnotation struct {
	BaseAnnotation
	IC []float64
	RD []float64
}

// PolygonAnnotation represents a closed polygon.
type PolygonAnnotation struct {
	BaseAnnotation
	Vertices []float64
	IC       []float64
}

// PathSegment is one entry of a PolyLine /Path array: 2 numbers for a move
// or line, 6 for a cubic curve.
type PathSegment []float64

// PolyLineAnnotation represents an open polyline. Path, when present,
// describes curved geometry and takes precedence over Vertices for readers
// that understand it.
type PolyLineAnnotation struct {
	BaseAnnotation
	Vertices []float64
	LE       []string
	Path     []PathSegment
}

// Image is a decoded raster used by stamp appearances.
type Image struct {
	Width, Height int
	// RGB holds 8-bit samples, 3 per pixel.
	RGB []byte
	// Alpha holds one 8-bit sample per pixel, or nil when opaque.
	Alpha []byte
}

// StampAnnotation represents a rubber stamp, optionally carrying a raster
// image in its appearance.
type StampAnnotation struct {
	BaseAnnotation
	Name  string
	Image *Image
}

// InkAnnotation represents a freehand "scribble" annotation.
type InkAnnotation struct {
	BaseAnnotation
	InkList [][]float64
}

// CaretAnnotation marks a text insertion point.
type CaretAnnotation struct {
	BaseAnnotation
	Symbol string
	RD     []float64
}

// PopupAnnotation represents a popup window attached to a markup
// annotation.
type PopupAnnotation struct {
	BaseAnnotation
	Parent raw.ObjectRef
	Open   bool
}

// LinkAnnotation represents a link annotation.
type LinkAnnotation struct {
	BaseAnnotation
	URI string
}

// WidgetAnnotation represents a form widget annotation.
type WidgetAnnotation struct {
	BaseAnnotation
	FieldName string
}

// GenericAnnotation represents an annotation not covered by specific types.
type GenericAnnotation struct {
	BaseAnnotation
}

// QuadPoints returns the quadrilaterals of text markup annotations.
func QuadPoints(a Annotation) ([]float64, bool) {
	switch t := a.(type) {
	case *HighlightAnnotation:
		return t.QuadPoints, true
	case *UnderlineAnnotation:
		return t.QuadPoints, true
	case *StrikeOutAnnotation:
		return t.QuadPoints, true
	case *SquigglyAnnotation:
		return t.QuadPoints, true
	}
	return nil, false
}
