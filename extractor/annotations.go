package extractor

import (
	"context"

	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/ir/semantic"
	"github.com/wudi/pdfmarkup/observability"
)

// ExtractAnnotations returns annotations found across all pages, in page
// order. Entries that are not dictionaries are skipped with a warning.
func (e *Extractor) ExtractAnnotations(ctx context.Context) ([]semantic.Annotation, error) {
	var annots []semantic.Annotation
	for _, page := range e.raw.Pages {
		for i, obj := range page.Annots {
			if err := ctx.Err(); err != nil {
				return annots, err
			}
			dict := derefDict(e.raw, obj)
			if dict == nil {
				e.log.Warn("annotation is not a dictionary",
					observability.Int("page", page.Index),
					observability.Int("index", i))
				continue
			}
			var ref raw.ObjectRef
			if r, ok := obj.(raw.Reference); ok {
				ref = r.Ref()
			}
			annots = append(annots, e.annotation(ctx, dict, ref, page.Index))
		}
	}
	return annots, nil
}

// Annotation converts one dictionary.
func (e *Extractor) Annotation(ctx context.Context, dict *raw.DictObj, ref raw.ObjectRef, pageIndex int) semantic.Annotation {
	return e.annotation(ctx, dict, ref, pageIndex)
}

func (e *Extractor) annotation(ctx context.Context, dict *raw.DictObj, ref raw.ObjectRef, pageIndex int) semantic.Annotation {
	base := e.base(ctx, dict, ref, pageIndex)
	switch base.Subtype {
	case "Text":
		a := &semantic.TextAnnotation{BaseAnnotation: base}
		a.Open, _ = boolFromDict(dict, "Open")
		a.Icon, _ = nameFromDict(dict, "Name")
		a.State, _ = stringFromDict(dict, "State")
		a.StateModel, _ = stringFromDict(dict, "StateModel")
		return a
	case "Highlight":
		return &semantic.HighlightAnnotation{BaseAnnotation: base, QuadPoints: e.floats(dict, "QuadPoints")}
	case "Underline":
		return &semantic.UnderlineAnnotation{BaseAnnotation: base, QuadPoints: e.floats(dict, "QuadPoints")}
	case "StrikeOut":
		return &semantic.StrikeOutAnnotation{BaseAnnotation: base, QuadPoints: e.floats(dict, "QuadPoints")}
	case "Squiggly":
		return &semantic.SquigglyAnnotation{BaseAnnotation: base, QuadPoints: e.floats(dict, "QuadPoints")}
	case "FreeText":
		a := &semantic.FreeTextAnnotation{BaseAnnotation: base}
		a.DA, _ = stringFromDict(dict, "DA")
		a.Q, _ = intFromObject(deref(e.raw, valueFromDict(dict, "Q")))
		a.CalloutLine = e.floats(dict, "CL")
		a.Intent, _ = nameFromDict(dict, "IT")
		a.LineEnding, _ = nameFromDict(dict, "LE")
		a.RD = e.floats(dict, "RD")
		return a
	case "Line":
		return &semantic.LineAnnotation{
			BaseAnnotation: base,
			L:              e.floats(dict, "L"),
			LE:             e.names(dict, "LE"),
			IC:             e.floats(dict, "IC"),
		}
	case "Square":
		return &semantic.SquareAnnotation{BaseAnnotation: base, IC: e.floats(dict, "IC"), RD: e.floats(dict, "RD")}
	case "Circle":
		return &semantic.CircleAnnotation{BaseAnnotation: base, IC: e.floats(dict, "IC"), RD: e.floats(dict, "RD")}
	case "Polygon":
		return &semantic.PolygonAnnotation{BaseAnnotation: base, Vertices: e.floats(dict, "Vertices"), IC: e.floats(dict, "IC")}
	case "PolyLine":
		a := &semantic.PolyLineAnnotation{
			BaseAnnotation: base,
			Vertices:       e.floats(dict, "Vertices"),
			LE:             e.names(dict, "LE"),
		}
		if arr := derefArray(e.raw, valueFromDict(dict, "Path")); arr != nil {
			for _, it := range arr.Items {
				if seg := floatArray(e.raw, it); len(seg) == 2 || len(seg) == 6 {
					a.Path = append(a.Path, seg)
				}
			}
		}
		return a
	case "Ink":
		a := &semantic.InkAnnotation{BaseAnnotation: base}
		if arr := derefArray(e.raw, valueFromDict(dict, "InkList")); arr != nil {
			for _, it := range arr.Items {
				if stroke := floatArray(e.raw, it); len(stroke) >= 2 {
					a.InkList = append(a.InkList, stroke)
				}
			}
		}
		return a
	case "Stamp":
		a := &semantic.StampAnnotation{BaseAnnotation: base}
		a.Name, _ = nameFromDict(dict, "Name")
		a.Image = e.stampImage(ctx, dict)
		return a
	case "Caret":
		a := &semantic.CaretAnnotation{BaseAnnotation: base, RD: e.floats(dict, "RD")}
		a.Symbol, _ = nameFromDict(dict, "Sy")
		return a
	case "Popup":
		a := &semantic.PopupAnnotation{BaseAnnotation: base}
		if r, ok := valueFromDict(dict, "Parent").(raw.Reference); ok {
			a.Parent = r.Ref()
		}
		a.Open, _ = boolFromDict(dict, "Open")
		return a
	case "Link":
		return &semantic.LinkAnnotation{BaseAnnotation: base, URI: extractAnnotationURI(e.raw, dict)}
	case "Widget":
		a := &semantic.WidgetAnnotation{BaseAnnotation: base}
		// for widgets /T is the field name, not an author
		a.FieldName = base.Author
		a.Author = ""
		return a
	}
	return &semantic.GenericAnnotation{BaseAnnotation: base}
}

func (e *Extractor) base(ctx context.Context, dict *raw.DictObj, ref raw.ObjectRef, pageIndex int) semantic.BaseAnnotation {
	b := semantic.BaseAnnotation{Ref: ref, PageIndex: pageIndex, Opacity: 1}
	b.Subtype, _ = nameFromDict(dict, "Subtype")
	b.RectVal = rectFromArray(derefArray(e.raw, valueFromDict(dict, "Rect")))
	b.Contents, _ = stringFromObject(deref(e.raw, valueFromDict(dict, "Contents")))
	if color := derefArray(e.raw, valueFromDict(dict, "C")); color != nil {
		b.Color = extractFloatArray(color)
	}
	if flags, ok := intFromObject(deref(e.raw, valueFromDict(dict, "F"))); ok {
		b.Flags = flags
	}
	b.Author, _ = stringFromDict(dict, "T")
	b.Name, _ = stringFromDict(dict, "NM")
	b.Subject, _ = stringFromDict(dict, "Subj")
	if s, ok := stringFromDict(dict, "M"); ok {
		if t, err := raw.ParseDate(s); err == nil {
			b.Modified = t
		}
	}
	if s, ok := stringFromDict(dict, "CreationDate"); ok {
		if t, err := raw.ParseDate(s); err == nil {
			b.Created = t
		}
	}
	if r, ok := valueFromDict(dict, "IRT").(raw.Reference); ok {
		b.InReplyTo = r.Ref()
	}
	b.ReplyType, _ = nameFromDict(dict, "RT")
	if ca, ok := floatFromObject(deref(e.raw, valueFromDict(dict, "CA"))); ok {
		b.Opacity = ca
	}
	if rc := deref(e.raw, valueFromDict(dict, "RC")); rc != nil {
		if s, ok := stringFromObject(rc); ok {
			b.RichText = s
		} else if data, _ := e.streamBytes(ctx, rc); data != nil {
			b.RichText = raw.DecodeText(data)
		}
	}
	if r, ok := valueFromDict(dict, "Popup").(raw.Reference); ok {
		b.Popup = r.Ref()
	}
	e.border(dict, &b)
	e.appearance(ctx, dict, &b)
	return b
}

func (e *Extractor) border(dict *raw.DictObj, b *semantic.BaseAnnotation) {
	if border := extractFloatArray(derefArray(e.raw, valueFromDict(dict, "Border"))); len(border) >= 3 {
		b.BorderWidth = border[2]
	}
	if bs := derefDict(e.raw, valueFromDict(dict, "BS")); bs != nil {
		if w, ok := floatFromObject(deref(e.raw, valueFromDict(bs, "W"))); ok {
			b.BorderWidth = w
		}
		b.BorderStyle, _ = nameFromDict(bs, "S")
		b.Dash = extractFloatArray(derefArray(e.raw, valueFromDict(bs, "D")))
	}
	if be := derefDict(e.raw, valueFromDict(dict, "BE")); be != nil {
		if s, _ := nameFromDict(be, "S"); s == "C" {
			b.CloudIntensity = 1
			if i, ok := floatFromObject(deref(e.raw, valueFromDict(be, "I"))); ok {
				b.CloudIntensity = i
			}
		}
	}
}

func (e *Extractor) appearance(ctx context.Context, dict *raw.DictObj, b *semantic.BaseAnnotation) {
	ap := derefDict(e.raw, valueFromDict(dict, "AP"))
	if ap == nil {
		return
	}
	normal := deref(e.raw, valueFromDict(ap, "N"))
	if states, ok := normal.(*raw.DictObj); ok {
		// appearance subdictionary keyed by state
		state, _ := nameFromDict(dict, "AS")
		normal = deref(e.raw, valueFromDict(states, state))
	}
	data, sd := e.streamBytes(ctx, normal)
	if sd == nil {
		return
	}
	b.Appearance = data
	b.AppearanceBBox = rectFromArray(derefArray(e.raw, valueFromDict(sd, "BBox")))
	b.AppearanceRes = derefDict(e.raw, valueFromDict(sd, "Resources"))
}

// stampImage returns the first 8-bit RGB or gray image XObject painted by
// the stamp's normal appearance.
func (e *Extractor) stampImage(ctx context.Context, dict *raw.DictObj) *semantic.Image {
	ap := derefDict(e.raw, valueFromDict(dict, "AP"))
	form := derefDict(e.raw, valueFromDict(ap, "N"))
	res := derefDict(e.raw, valueFromDict(form, "Resources"))
	xobjs := derefDict(e.raw, valueFromDict(res, "XObject"))
	if xobjs == nil {
		return nil
	}
	for _, k := range xobjs.Keys() {
		obj := valueFromDict(xobjs, k.Value())
		sd := derefDict(e.raw, obj)
		if st, _ := nameFromDict(sd, "Subtype"); st != "Image" {
			continue
		}
		img := e.image(ctx, obj)
		if img == nil {
			continue
		}
		if smask := valueFromDict(sd, "SMask"); smask != nil {
			if alpha := e.image(ctx, smask); alpha != nil && len(alpha.RGB) == img.Width*img.Height {
				img.Alpha = alpha.RGB
			}
		}
		return img
	}
	return nil
}

// image decodes an 8-bit DeviceRGB or DeviceGray image. Gray images keep one
// sample per pixel in RGB so soft masks can reuse this path.
func (e *Extractor) image(ctx context.Context, obj raw.Object) *semantic.Image {
	data, sd := e.streamBytes(ctx, obj)
	if data == nil || sd == nil {
		return nil
	}
	w, _ := intFromObject(deref(e.raw, valueFromDict(sd, "Width")))
	h, _ := intFromObject(deref(e.raw, valueFromDict(sd, "Height")))
	bpc, _ := intFromObject(deref(e.raw, valueFromDict(sd, "BitsPerComponent")))
	cs, _ := nameFromDict(sd, "ColorSpace")
	if w <= 0 || h <= 0 || bpc != 8 {
		return nil
	}
	comps := 0
	switch cs {
	case "DeviceRGB":
		comps = 3
	case "DeviceGray":
		comps = 1
	default:
		return nil
	}
	if len(data) < w*h*comps {
		return nil
	}
	return &semantic.Image{Width: w, Height: h, RGB: data[:w*h*comps]}
}

func (e *Extractor) floats(dict *raw.DictObj, key string) []float64 {
	return extractFloatArray(derefArray(e.raw, valueFromDict(dict, key)))
}

func (e *Extractor) names(dict *raw.DictObj, key string) []string {
	arr := derefArray(e.raw, valueFromDict(dict, key))
	if arr == nil {
		if n, ok := nameFromObject(deref(e.raw, valueFromDict(dict, key))); ok {
			return []string{n}
		}
		return nil
	}
	out := make([]string, 0, len(arr.Items))
	for _, it := range arr.Items {
		if n, ok := nameFromObject(deref(e.raw, it)); ok {
			out = append(out, n)
		}
	}
	return out
}

func floatArray(doc *raw.Document, obj raw.Object) []float64 {
	return extractFloatArray(derefArray(doc, obj))
}

func rectFromArray(arr *raw.ArrayObj) semantic.Rectangle {
	var rect [4]float64
	if arr == nil {
		return semantic.Rectangle{}
	}
	for i := 0; i < len(arr.Items) && i < 4; i++ {
		if val, ok := floatFromObject(arr.Items[i]); ok {
			rect[i] = val
		}
	}
	return semantic.RectFromArray(rect)
}

func extractFloatArray(arr *raw.ArrayObj) []float64 {
	if arr == nil {
		return nil
	}
	out := make([]float64, 0, len(arr.Items))
	for _, item := range arr.Items {
		if val, ok := floatFromObject(item); ok {
			out = append(out, val)
		}
	}
	return out
}

func extractAnnotationURI(doc *raw.Document, dict *raw.DictObj) string {
	if dict == nil {
		return ""
	}
	if uri, ok := stringFromDict(dict, "URI"); ok {
		return uri
	}
	action := derefDict(doc, valueFromDict(dict, "A"))
	if action == nil {
		return ""
	}
	if typ, ok := nameFromDict(action, "S"); ok && typ == "URI" {
		if uri, ok := stringFromDict(action, "URI"); ok {
			return uri
		}
	}
	return ""
}
