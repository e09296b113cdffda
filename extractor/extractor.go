// Package extractor reads annotation dictionaries out of a raw document and
// turns them into typed semantic annotations.
package extractor

import (
	"context"
	"errors"

	"github.com/wudi/pdfmarkup/filters"
	"github.com/wudi/pdfmarkup/ir/raw"
	"github.com/wudi/pdfmarkup/observability"
)

// Extractor exposes helper routines for pulling annotations out of a raw
// document.
type Extractor struct {
	raw     *raw.Document
	filters *filters.Pipeline
	log     observability.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for skipped objects.
func WithLogger(l observability.Logger) Option {
	return func(e *Extractor) { e.log = observability.OrNop(l) }
}

// WithFilters replaces the stream decoding pipeline.
func WithFilters(p *filters.Pipeline) Option {
	return func(e *Extractor) { e.filters = p }
}

// New creates an extractor backed by doc.
func New(doc *raw.Document, opts ...Option) (*Extractor, error) {
	if doc == nil {
		return nil, errors.New("raw document is required")
	}
	e := &Extractor{raw: doc, filters: filters.Default(), log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PageCount returns the number of pages with annotation arrays.
func (e *Extractor) PageCount() int { return len(e.raw.Pages) }

// PageSize returns the media size of the page with 0-based index idx.
func (e *Extractor) PageSize(idx int) (width, height float64, ok bool) {
	for _, p := range e.raw.Pages {
		if p.Index == idx {
			return p.Width, p.Height, true
		}
	}
	return 0, 0, false
}

func (e *Extractor) streamBytes(ctx context.Context, obj raw.Object) ([]byte, *raw.DictObj) {
	s, ok := deref(e.raw, obj).(*raw.StreamObj)
	if !ok {
		return nil, nil
	}
	data, err := e.filters.DecodeStream(ctx, s)
	if err != nil {
		e.log.Debug("stream not decoded", observability.Err(err))
		return nil, s.Dict
	}
	return data, s.Dict
}

func valueFromDict(dict *raw.DictObj, key string) raw.Object {
	if dict == nil {
		return nil
	}
	val, _ := dict.Lookup(key)
	return val
}

func nameFromDict(dict *raw.DictObj, key string) (string, bool) {
	return nameFromObject(valueFromDict(dict, key))
}

func stringFromDict(dict *raw.DictObj, key string) (string, bool) {
	return stringFromObject(valueFromDict(dict, key))
}

func boolFromDict(dict *raw.DictObj, key string) (bool, bool) {
	if b, ok := valueFromDict(dict, key).(raw.Boolean); ok {
		return b.Value(), true
	}
	return false, false
}

func nameFromObject(obj raw.Object) (string, bool) {
	switch v := obj.(type) {
	case raw.Name:
		return v.Value(), true
	}
	return "", false
}

// stringFromObject decodes PDF text strings, including UTF-16 ones.
func stringFromObject(obj raw.Object) (string, bool) {
	switch v := obj.(type) {
	case raw.String:
		return raw.DecodeText(v.Value()), true
	}
	return "", false
}

func intFromObject(obj raw.Object) (int, bool) {
	switch v := obj.(type) {
	case raw.Number:
		return int(v.Int()), true
	}
	return 0, false
}

func floatFromObject(obj raw.Object) (float64, bool) {
	switch v := obj.(type) {
	case raw.Number:
		return v.Float(), true
	}
	return 0, false
}

func deref(doc *raw.Document, obj raw.Object) raw.Object {
	if obj == nil {
		return nil
	}
	return raw.Deref(doc, obj)
}

func derefDict(doc *raw.Document, obj raw.Object) *raw.DictObj {
	resolved := deref(doc, obj)
	if dict, ok := resolved.(*raw.DictObj); ok {
		return dict
	}
	if stream, ok := resolved.(*raw.StreamObj); ok {
		return stream.Dict
	}
	return nil
}

func derefArray(doc *raw.Document, obj raw.Object) *raw.ArrayObj {
	if arr, ok := deref(doc, obj).(*raw.ArrayObj); ok {
		return arr
	}
	return nil
}
