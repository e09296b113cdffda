package writer

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
)

// ErrNoSubtype is returned for annotations without a subtype.
var ErrNoSubtype = errors.New("annotation has no subtype")

// SerializationContext provides access to the writer's state for serializers.
type SerializationContext interface {
	NextRef() raw.ObjectRef
	AddObject(ref raw.ObjectRef, obj raw.Object)
	PageRef(index int) *raw.ObjectRef
}

// AnnotationSerializer serializes semantic annotations into raw objects.
type AnnotationSerializer interface {
	Serialize(annot semantic.Annotation, ctx SerializationContext) (raw.ObjectRef, error)
}

type defaultAnnotationSerializer struct {
	cfg        Config
	appearance *AppearanceGenerator
}

// NewAnnotationSerializer returns the serializer used by New.
func NewAnnotationSerializer(cfg Config) AnnotationSerializer {
	return &defaultAnnotationSerializer{cfg: cfg, appearance: NewAppearanceGenerator()}
}

func (s *defaultAnnotationSerializer) Serialize(a semantic.Annotation, ctx SerializationContext) (raw.ObjectRef, error) {
	base := a.Base()
	if base.Subtype == "" {
		return raw.ObjectRef{}, ErrNoSubtype
	}
	ref := ctx.NextRef()
	a.SetReference(ref)

	dict := raw.Dict()
	dict.Put("Type", raw.NameLiteral("Annot"))
	dict.Put("Subtype", raw.NameLiteral(base.Subtype))
	dict.Put("Rect", rectArray(base.RectVal.Normalize()))
	if pref := ctx.PageRef(base.PageIndex); pref != nil {
		dict.Put("P", raw.RefObj{R: *pref})
	}

	switch t := a.(type) {
	case *semantic.TextAnnotation:
		if t.Open {
			dict.Put("Open", raw.Bool(true))
		}
		if t.Icon != "" {
			dict.Put("Name", raw.NameLiteral(t.Icon))
		}
		putText(dict, "State", t.State)
		putText(dict, "StateModel", t.StateModel)
	case *semantic.HighlightAnnotation:
		putNumbers(dict, "QuadPoints", t.QuadPoints)
	case *semantic.UnderlineAnnotation:
		putNumbers(dict, "QuadPoints", t.QuadPoints)
	case *semantic.StrikeOutAnnotation:
		putNumbers(dict, "QuadPoints", t.QuadPoints)
	case *semantic.SquigglyAnnotation:
		putNumbers(dict, "QuadPoints", t.QuadPoints)
	case *semantic.FreeTextAnnotation:
		da := t.DA
		if da == "" {
			da = DefaultAppearance(12, []float64{0})
		}
		dict.Put("DA", raw.Str([]byte(da)))
		if t.Q != 0 {
			dict.Put("Q", raw.NumberInt(int64(t.Q)))
		}
		putNumbers(dict, "CL", t.CalloutLine)
		if t.Intent != "" {
			dict.Put("IT", raw.NameLiteral(t.Intent))
		}
		if t.LineEnding != "" {
			dict.Put("LE", raw.NameLiteral(t.LineEnding))
		}
		putNumbers(dict, "RD", t.RD)
	case *semantic.LineAnnotation:
		if len(t.L) == 4 {
			putNumbers(dict, "L", t.L)
		}
		if len(t.LE) == 2 {
			dict.Put("LE", nameArray(t.LE))
		}
		putNumbers(dict, "IC", t.IC)
	case *semantic.SquareAnnotation:
		putNumbers(dict, "IC", t.IC)
		if len(t.RD) == 4 {
			putNumbers(dict, "RD", t.RD)
		}
	case *semantic.CircleAnnotation:
		putNumbers(dict, "IC", t.IC)
		if len(t.RD) == 4 {
			putNumbers(dict, "RD", t.RD)
		}
	case *semantic.PolygonAnnotation:
		putNumbers(dict, "Vertices", t.Vertices)
		putNumbers(dict, "IC", t.IC)
	case *semantic.PolyLineAnnotation:
		putNumbers(dict, "Vertices", t.Vertices)
		if len(t.LE) == 2 {
			dict.Put("LE", nameArray(t.LE))
		}
		if len(t.Path) > 0 {
			path := raw.NewArray()
			for _, seg := range t.Path {
				path.Append(raw.Numbers(seg...))
			}
			dict.Put("Path", path)
		}
	case *semantic.InkAnnotation:
		if len(t.InkList) > 0 {
			arr := raw.NewArray()
			for _, stroke := range t.InkList {
				arr.Append(raw.Numbers(stroke...))
			}
			dict.Put("InkList", arr)
		}
	case *semantic.StampAnnotation:
		if t.Name != "" {
			dict.Put("Name", raw.NameLiteral(t.Name))
		}
	case *semantic.CaretAnnotation:
		if t.Symbol != "" {
			dict.Put("Sy", raw.NameLiteral(t.Symbol))
		}
		putNumbers(dict, "RD", t.RD)
	case *semantic.PopupAnnotation:
		if t.Open {
			dict.Put("Open", raw.Bool(true))
		}
		if !t.Parent.IsZero() {
			dict.Put("Parent", raw.RefObj{R: t.Parent})
		}
	case *semantic.LinkAnnotation:
		if t.URI != "" {
			action := raw.Dict()
			action.Put("S", raw.NameLiteral("URI"))
			action.Put("URI", raw.Str([]byte(t.URI)))
			dict.Put("A", action)
		}
	case *semantic.WidgetAnnotation:
		putText(dict, "T", t.FieldName)
	}

	s.markup(dict, base)
	s.border(dict, base)

	form, err := s.appearanceStream(a, ctx)
	if err != nil {
		return raw.ObjectRef{}, fmt.Errorf("appearance for %s: %w", base.Subtype, err)
	}
	if form != nil {
		apRef := ctx.NextRef()
		ctx.AddObject(apRef, form)
		ap := raw.Dict()
		ap.Put("N", raw.RefObj{R: apRef})
		dict.Put("AP", ap)
	}

	ctx.AddObject(ref, dict)
	return ref, nil
}

// markup writes the entries shared by markup annotations.
func (s *defaultAnnotationSerializer) markup(dict *raw.DictObj, base *semantic.BaseAnnotation) {
	putText(dict, "Contents", base.Contents)
	putNumbers(dict, "C", base.Color)
	if base.Flags != 0 {
		dict.Put("F", raw.NumberInt(int64(base.Flags)))
	}
	if _, widget := dict.Lookup("T"); !widget {
		putText(dict, "T", base.Author)
	}
	putText(dict, "NM", base.Name)
	putText(dict, "Subj", base.Subject)
	if !base.Modified.IsZero() {
		dict.Put("M", raw.Str([]byte(raw.FormatDate(base.Modified))))
	}
	if !base.Created.IsZero() {
		dict.Put("CreationDate", raw.Str([]byte(raw.FormatDate(base.Created))))
	}
	irt := base.InReplyTo
	if base.ReplyTo != nil && !base.ReplyTo.Reference().IsZero() {
		irt = base.ReplyTo.Reference()
	}
	if !irt.IsZero() {
		dict.Put("IRT", raw.RefObj{R: irt})
		if base.ReplyType != "" {
			dict.Put("RT", raw.NameLiteral(base.ReplyType))
		}
	}
	if base.Opacity > 0 && base.Opacity < 1 {
		dict.Put("CA", raw.Num(base.Opacity))
	}
	putText(dict, "RC", base.RichText)
}

func (s *defaultAnnotationSerializer) border(dict *raw.DictObj, base *semantic.BaseAnnotation) {
	if base.BorderWidth > 0 || base.BorderStyle != "" || len(base.Dash) > 0 {
		bs := raw.Dict()
		bs.Put("W", raw.Num(base.BorderWidth))
		if base.BorderStyle != "" {
			bs.Put("S", raw.NameLiteral(base.BorderStyle))
		}
		putNumbers(bs, "D", base.Dash)
		dict.Put("BS", bs)
	}
	if base.CloudIntensity > 0 {
		be := raw.Dict()
		be.Put("S", raw.NameLiteral("C"))
		be.Put("I", raw.Num(base.CloudIntensity))
		dict.Put("BE", be)
	}
}

// appearanceStream returns the normal appearance form, keeping an existing
// appearance and generating one otherwise. Stamps carrying an image always
// get one since the image lives only in the appearance.
func (s *defaultAnnotationSerializer) appearanceStream(a semantic.Annotation, ctx SerializationContext) (*raw.StreamObj, error) {
	base := a.Base()
	if len(base.Appearance) > 0 {
		bbox := base.AppearanceBBox
		if bbox.IsZero() {
			bbox = base.RectVal.Normalize()
		}
		return formXObject(bbox, base.AppearanceRes, base.Appearance), nil
	}
	stamp, isStamp := a.(*semantic.StampAnnotation)
	if !s.cfg.Appearances && !(isStamp && stamp.Image != nil) {
		return nil, nil
	}
	return s.appearance.Generate(a, ctx)
}

func formXObject(bbox semantic.Rectangle, res *raw.DictObj, data []byte) *raw.StreamObj {
	d := raw.Dict()
	d.Put("Type", raw.NameLiteral("XObject"))
	d.Put("Subtype", raw.NameLiteral("Form"))
	d.Put("BBox", rectArray(bbox))
	if res != nil {
		d.Put("Resources", res)
	}
	return raw.NewStream(d, data)
}
