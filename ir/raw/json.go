package raw

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// The dump format maps PDF objects onto JSON:
//
//	"/Name"        name
//	"12 0 R"       reference
//	"'text"        literal string (the quote is stripped)
//	"text"         literal string, when unambiguous
//	{"$stream": base64, "dict": {...}}   stream
//
// Numbers, booleans, null, arrays and objects map directly.

var refPattern = regexp.MustCompile(`^(\d+) (\d+) R$`)

type jsonPage struct {
	Index  int               `json:"index"`
	Width  float64           `json:"width"`
	Height float64           `json:"height"`
	Annots []json.RawMessage `json:"annots"`
}

type jsonDocument struct {
	Objects map[string]json.RawMessage `json:"objects,omitempty"`
	Pages   []jsonPage                 `json:"pages"`
}

// DecodeJSON reads a document dump.
func DecodeJSON(r io.Reader) (*Document, error) {
	var jd jsonDocument
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&jd); err != nil {
		return nil, fmt.Errorf("decode document dump: %w", err)
	}
	doc := NewDocument()
	for key, msg := range jd.Objects {
		ref, err := parseObjectKey(key)
		if err != nil {
			return nil, err
		}
		obj, err := UnmarshalJSONObject(msg)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", key, err)
		}
		doc.Objects[ref] = obj
	}
	for _, jp := range jd.Pages {
		p := Page{Index: jp.Index, Width: jp.Width, Height: jp.Height}
		for i, msg := range jp.Annots {
			obj, err := UnmarshalJSONObject(msg)
			if err != nil {
				return nil, fmt.Errorf("page %d annotation %d: %w", jp.Index, i, err)
			}
			p.Annots = append(p.Annots, obj)
		}
		doc.Pages = append(doc.Pages, p)
	}
	return doc, nil
}

// EncodeJSON writes doc in the dump format.
func EncodeJSON(w io.Writer, doc *Document) error {
	jd := jsonDocument{Objects: map[string]json.RawMessage{}}
	refs := make([]ObjectRef, 0, len(doc.Objects))
	for ref := range doc.Objects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })
	for _, ref := range refs {
		msg, err := json.Marshal(ToJSON(doc.Objects[ref]))
		if err != nil {
			return fmt.Errorf("object %s: %w", ref, err)
		}
		jd.Objects[fmt.Sprintf("%d %d", ref.Num, ref.Gen)] = msg
	}
	for _, p := range doc.Pages {
		jp := jsonPage{Index: p.Index, Width: p.Width, Height: p.Height}
		for _, a := range p.Annots {
			msg, err := json.Marshal(ToJSON(a))
			if err != nil {
				return fmt.Errorf("page %d: %w", p.Index, err)
			}
			jp.Annots = append(jp.Annots, msg)
		}
		jd.Pages = append(jd.Pages, jp)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jd)
}

func parseObjectKey(key string) (ObjectRef, error) {
	parts := strings.Fields(key)
	if len(parts) == 3 && parts[2] == "R" {
		parts = parts[:2]
	}
	if len(parts) != 2 {
		return ObjectRef{}, fmt.Errorf("bad object key %q", key)
	}
	num, err1 := strconv.Atoi(parts[0])
	gen, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return ObjectRef{}, fmt.Errorf("bad object key %q", key)
	}
	return ObjectRef{Num: num, Gen: gen}, nil
}

// UnmarshalJSONObject converts one dump value into an Object.
func UnmarshalJSONObject(msg json.RawMessage) (Object, error) {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(msg)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return FromJSON(v)
}

// FromJSON converts a decoded JSON value (decoded with UseNumber) into an
// Object.
func FromJSON(v interface{}) (Object, error) {
	switch t := v.(type) {
	case nil:
		return NullObj{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NumberInt(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", t, err)
		}
		return NumberFloat(f), nil
	case float64:
		return Num(t), nil
	case string:
		switch {
		case strings.HasPrefix(t, "'"):
			return TextString(t[1:]), nil
		case strings.HasPrefix(t, "/"):
			return NameLiteral(t[1:]), nil
		}
		if m := refPattern.FindStringSubmatch(t); m != nil {
			num, _ := strconv.Atoi(m[1])
			gen, _ := strconv.Atoi(m[2])
			return Ref(num, gen), nil
		}
		return TextString(t), nil
	case []interface{}:
		arr := &ArrayObj{Items: make([]Object, 0, len(t))}
		for i, it := range t {
			o, err := FromJSON(it)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr.Items = append(arr.Items, o)
		}
		return arr, nil
	case map[string]interface{}:
		if data, ok := t["$stream"].(string); ok {
			b, err := base64.StdEncoding.DecodeString(data)
			if err != nil {
				return nil, fmt.Errorf("stream data: %w", err)
			}
			dict := Dict()
			if d, ok := t["dict"]; ok {
				o, err := FromJSON(d)
				if err != nil {
					return nil, err
				}
				if dd, ok := o.(*DictObj); ok {
					dict = dd
				}
			}
			return NewStream(dict, b), nil
		}
		d := Dict()
		for k, it := range t {
			o, err := FromJSON(it)
			if err != nil {
				return nil, fmt.Errorf("/%s: %w", k, err)
			}
			d.Put(k, o)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unsupported JSON value %T", v)
}

// ToJSON is the inverse of FromJSON.
func ToJSON(o Object) interface{} {
	switch v := o.(type) {
	case nil, NullObj:
		return nil
	case NameObj:
		return "/" + v.Val
	case NumberObj:
		if v.IsInt {
			return v.I
		}
		return v.F
	case BoolObj:
		return v.V
	case String:
		s := DecodeText(v.Value())
		if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "'") || refPattern.MatchString(s) {
			return "'" + s
		}
		return s
	case Reference:
		return v.Ref().String()
	case *ArrayObj:
		out := make([]interface{}, len(v.Items))
		for i, it := range v.Items {
			out[i] = ToJSON(it)
		}
		return out
	case *DictObj:
		out := make(map[string]interface{}, len(v.KV))
		for k, it := range v.KV {
			out[k] = ToJSON(it)
		}
		return out
	case *StreamObj:
		return map[string]interface{}{
			"$stream": base64.StdEncoding.EncodeToString(v.Data),
			"dict":    ToJSON(v.Dict),
		}
	}
	return nil
}
