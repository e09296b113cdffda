// Package filters decodes and encodes the stream filters that appear in
// annotation appearance streams and stamp images.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfmarkup/ir/raw"
)

// ErrUnknownFilter is returned for filters without a registered decoder.
var ErrUnknownFilter = errors.New("unknown filter")

type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte, params raw.Dictionary) ([]byte, error)
}

type Pipeline struct {
	decoders []Decoder
	limits   Limits
}

// NewPipeline constructs a pipeline with provided decoders and limits.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	return &Pipeline{decoders: decoders, limits: limits}
}

// Default returns a pipeline with every built-in decoder.
func Default() *Pipeline {
	return NewPipeline([]Decoder{
		NewFlateDecoder(),
		NewASCIIHexDecoder(),
		NewASCII85Decoder(),
	}, Limits{MaxDecompressedSize: 64 << 20})
}

type Limits struct {
	MaxDecompressedSize int64
}

func (p *Pipeline) findDecoder(name string) Decoder {
	for _, d := range p.decoders {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string, params []raw.Dictionary) ([]byte, error) {
	data := input
	for i, name := range filterNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec := p.findDecoder(name)
		if dec == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		var param raw.Dictionary
		if i < len(params) {
			param = params[i]
		}
		out, err := dec.Decode(ctx, data, param)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecompressedSize > 0 && int64(len(out)) > p.limits.MaxDecompressedSize {
			return nil, errors.New("decompressed size exceeds limit")
		}
		data = out
	}
	return data, nil
}

// DecodeStream returns the decoded content of s.
func (p *Pipeline) DecodeStream(ctx context.Context, s raw.Stream) ([]byte, error) {
	names, params := StreamFilters(s.Dictionary())
	return p.Decode(ctx, s.RawData(), names, params)
}

// StreamFilters lists the /Filter chain of a stream dictionary with the
// matching /DecodeParms. A single name or dictionary counts as a one-element
// array; parameters are nil where absent.
func StreamFilters(dict raw.Dictionary) ([]string, []raw.Dictionary) {
	obj, ok := dict.Get(raw.NameLiteral("Filter"))
	if !ok {
		return nil, nil
	}
	var names []string
	for _, item := range items(obj) {
		if n, ok := item.(raw.Name); ok {
			names = append(names, n.Value())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	params := make([]raw.Dictionary, len(names))
	if obj, ok := dict.Get(raw.NameLiteral("DecodeParms")); ok {
		for i, item := range items(obj) {
			if d, ok := item.(raw.Dictionary); ok && i < len(params) {
				params[i] = d
			}
		}
	}
	return names, params
}

func items(obj raw.Object) []raw.Object {
	if arr, ok := obj.(*raw.ArrayObj); ok {
		return arr.Items
	}
	return []raw.Object{obj}
}

type flateDecoder struct{}

func (flateDecoder) Name() string { return "FlateDecode" }
func NewFlateDecoder() Decoder    { return flateDecoder{} }

// Decode reads zlib data and falls back to a bare deflate stream, which some
// producers write.
func (flateDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	var r io.ReadCloser
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err == nil {
		r = zr
	} else {
		r = flate.NewReader(bytes.NewReader(in))
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type ascii85Decoder struct{}

func (ascii85Decoder) Name() string { return "ASCII85Decode" }
func (ascii85Decoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	data := bytes.TrimSpace(in)
	data = bytes.TrimPrefix(data, []byte("<~"))
	data = bytes.TrimSuffix(data, []byte("~>"))
	out := make([]byte, 4*len(data)/5+4)
	n, _, err := stdascii85.Decode(out, data, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

type asciiHexDecoder struct{}

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }
func (asciiHexDecoder) Decode(ctx context.Context, in []byte, params raw.Dictionary) ([]byte, error) {
	clean := make([]byte, 0, len(in)+1)
	for _, b := range in {
		if b == '>' {
			break
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' || b == '\f' {
			continue
		}
		clean = append(clean, b)
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}
	out := make([]byte, hex.DecodedLen(len(clean)))
	if _, err := hex.Decode(out, clean); err != nil {
		return nil, err
	}
	return out, nil
}
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

// FlateEncode compresses data as a zlib stream for /FlateDecode.
func FlateEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compress replaces the data of s with its Flate encoding and sets /Filter.
// Streams that already carry a filter are left alone.
func Compress(s *raw.StreamObj, level int) error {
	if _, ok := s.Dict.Lookup("Filter"); ok {
		return nil
	}
	enc, err := FlateEncode(s.Data, level)
	if err != nil {
		return err
	}
	s.Data = enc
	s.Dict.Put("Filter", raw.NameLiteral("FlateDecode"))
	s.Dict.Put("Length", raw.NumberInt(int64(len(enc))))
	return nil
}
