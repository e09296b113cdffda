package annot

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh record identifier.
func NewID() string { return uuid.NewString() }

// Comment is one reply in a record's discussion thread.
type Comment struct {
	ID     string    `cbor:"id" json:"id"`
	Title  string    `cbor:"title,omitempty" json:"title,omitempty"`
	Text   string    `cbor:"text" json:"text"`
	Date   time.Time `cbor:"date" json:"date"`
	Status string    `cbor:"status,omitempty" json:"status,omitempty"`
}

// Review states a comment may carry.
const (
	StatusNone      = ""
	StatusAccepted  = "Accepted"
	StatusRejected  = "Rejected"
	StatusCancelled = "Cancelled"
	StatusCompleted = "Completed"
)

// Content is the free text and raster payload of text, stamp and signature
// records.
type Content struct {
	Text string `cbor:"text,omitempty" json:"text,omitempty"`
	// Image is PNG data.
	Image       []byte  `cbor:"image,omitempty" json:"-"`
	ImageWidth  float64 `cbor:"iw,omitempty" json:"imageWidth,omitempty"`
	ImageHeight float64 `cbor:"ih,omitempty" json:"imageHeight,omitempty"`
}

// HasImage reports whether a bitmap is attached.
func (c Content) HasImage() bool { return len(c.Image) > 0 }

// Geometry is the encoded document-space payload of one record. Which fields
// are set depends on the kind.
type Geometry struct {
	Rect       [4]float64  `cbor:"rect" json:"rect"`
	QuadPoints []float64   `cbor:"quad,omitempty" json:"quadPoints,omitempty"`
	Outline    []float64   `cbor:"outline,omitempty" json:"outline,omitempty"`
	InkList    [][]float64 `cbor:"ink,omitempty" json:"inkList,omitempty"`
	Vertices   []float64   `cbor:"vertices,omitempty" json:"vertices,omitempty"`
	// Path is a sampled boundary or curve, flat [x y x y ...].
	Path []float64 `cbor:"path,omitempty" json:"path,omitempty"`
	// PathData keeps the literal path command string of cloud shapes.
	PathData    string    `cbor:"d,omitempty" json:"pathData,omitempty"`
	Line        []float64 `cbor:"line,omitempty" json:"line,omitempty"`
	LineEndings [2]string `cbor:"le,omitempty" json:"lineEndings,omitempty"`
	Callout     []float64 `cbor:"cl,omitempty" json:"callout,omitempty"`
	// Box is the text box of callouts inside Rect, [llx lly urx ury].
	Box         []float64  `cbor:"box,omitempty" json:"box,omitempty"`
	Color       [3]float64 `cbor:"color" json:"color"`
	Opacity     float64    `cbor:"opacity,omitempty" json:"opacity,omitempty"`
	StrokeWidth float64    `cbor:"width,omitempty" json:"strokeWidth,omitempty"`
	HasImage    bool       `cbor:"img,omitempty" json:"hasImage,omitempty"`
}

// Record is the store-resident description of one annotation.
type Record struct {
	ID   string `cbor:"id" json:"id"`
	Page int    `cbor:"page" json:"page"`
	Kind Kind   `cbor:"kind" json:"kind"`
	// Snapshot is the serialized shape group; it is the source of truth for
	// re-rendering and re-encoding.
	Snapshot     []byte    `cbor:"snapshot" json:"-"`
	Style        Style     `cbor:"style" json:"style"`
	Content      Content   `cbor:"content" json:"content"`
	Comments     []Comment `cbor:"comments,omitempty" json:"comments,omitempty"`
	Author       string    `cbor:"author,omitempty" json:"author,omitempty"`
	Subtype      string    `cbor:"subtype,omitempty" json:"subtype,omitempty"`
	Geometry     Geometry  `cbor:"geometry" json:"geometry"`
	Draggable    bool      `cbor:"draggable" json:"draggable"`
	Resizable    bool      `cbor:"resizable" json:"resizable"`
	Readonly     bool      `cbor:"readonly" json:"readonly"`
	Created      time.Time `cbor:"created" json:"created"`
	LastModified time.Time `cbor:"modified" json:"lastModified"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Snapshot = append([]byte(nil), r.Snapshot...)
	c.Content.Image = append([]byte(nil), r.Content.Image...)
	c.Comments = append([]Comment(nil), r.Comments...)
	c.Geometry = r.Geometry.Clone()
	return &c
}

// Clone returns a deep copy of g.
func (g Geometry) Clone() Geometry {
	c := g
	c.QuadPoints = append([]float64(nil), g.QuadPoints...)
	c.Outline = append([]float64(nil), g.Outline...)
	c.Vertices = append([]float64(nil), g.Vertices...)
	c.Path = append([]float64(nil), g.Path...)
	c.Line = append([]float64(nil), g.Line...)
	c.Callout = append([]float64(nil), g.Callout...)
	c.Box = append([]float64(nil), g.Box...)
	if g.InkList != nil {
		c.InkList = make([][]float64, len(g.InkList))
		for i, s := range g.InkList {
			c.InkList[i] = append([]float64(nil), s...)
		}
	}
	return c
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	Page      *int
	Snapshot  []byte
	Style     *Style
	Content   *Content
	Comments  []Comment
	Geometry  *Geometry
	Author    *string
	Draggable *bool
	Resizable *bool
	Readonly  *bool
}

// Apply merges p into r. It does not touch LastModified.
func (p Patch) Apply(r *Record) {
	if p.Page != nil {
		r.Page = *p.Page
	}
	if p.Snapshot != nil {
		r.Snapshot = append([]byte(nil), p.Snapshot...)
	}
	if p.Style != nil {
		r.Style = r.Style.Merge(*p.Style)
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.Comments != nil {
		r.Comments = append([]Comment(nil), p.Comments...)
	}
	if p.Geometry != nil {
		r.Geometry = p.Geometry.Clone()
	}
	if p.Author != nil {
		r.Author = *p.Author
	}
	if p.Draggable != nil {
		r.Draggable = *p.Draggable
	}
	if p.Resizable != nil {
		r.Resizable = *p.Resizable
	}
	if p.Readonly != nil {
		r.Readonly = *p.Readonly
	}
}
