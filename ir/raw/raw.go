// Package raw is the untyped PDF object model annotation dictionaries are
// read from and written to.
package raw

import "fmt"

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// IsZero reports whether r is unset.
func (r ObjectRef) IsZero() bool { return r.Num == 0 && r.Gen == 0 }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
	IsIndirect() bool
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key Name) (Object, bool)
	Set(key Name, value Object)
	Keys() []Name
	Len() int
}

// Array represents a PDF array object.
type Array interface {
	Object
	Get(index int) (Object, bool)
	Len() int
	Append(obj Object)
}

// Stream represents a raw (undecoded) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
	Length() int64
}

// Name represents a PDF name object.
type Name interface {
	Object
	Value() string
}

// String represents a PDF string (literal or hex).
type String interface {
	Object
	Value() []byte
	IsHex() bool
}

// Number represents a PDF numeric value.
type Number interface {
	Object
	Int() int64
	Float() float64
	IsInteger() bool
}

// Boolean represents a PDF boolean.
type Boolean interface {
	Object
	Value() bool
}

// Null represents the PDF null object.
type Null interface{ Object }

// Reference represents an indirect object reference.
type Reference interface {
	Object
	Ref() ObjectRef
}

// Resolver looks up indirect objects.
type Resolver interface {
	Resolve(ref ObjectRef) (Object, bool)
}

// Page lists the annotations of one page together with its media size.
type Page struct {
	// Index is 0-based.
	Index  int
	Width  float64
	Height float64
	// Annots holds annotation dictionaries or references to them.
	Annots []Object
}

// Document is the slice of a PDF the markup core works on: indirect objects
// and the annotation arrays of every page.
type Document struct {
	Objects map[ObjectRef]Object
	Pages   []Page
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Objects: make(map[ObjectRef]Object)}
}

// Resolve implements Resolver.
func (d *Document) Resolve(ref ObjectRef) (Object, bool) {
	if d == nil {
		return nil, false
	}
	o, ok := d.Objects[ref]
	return o, ok
}

// Deref follows references until a direct object is reached. Cycles stop at
// the first repeated reference.
func Deref(r Resolver, o Object) Object {
	seen := map[ObjectRef]bool{}
	for {
		ref, ok := o.(Reference)
		if !ok || r == nil {
			return o
		}
		if seen[ref.Ref()] {
			return nil
		}
		seen[ref.Ref()] = true
		next, ok := r.Resolve(ref.Ref())
		if !ok {
			return nil
		}
		o = next
	}
}
