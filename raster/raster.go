// Package raster renders free-text labels and scales stamp or signature
// images into bitmaps that image-bearing annotations carry.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // register decoders
	"image/png"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfmarkup/config"
	"github.com/wudi/pdfmarkup/observability"
)

// ErrEmpty is returned for blank text or zero-sized images.
var ErrEmpty = errors.New("raster: nothing to render")

// Bitmap is a rendered image together with its size in page units.
type Bitmap struct {
	Image *image.NRGBA
	// Width and Height are in unscaled page units.
	Width, Height float64
}

// PNG encodes the bitmap.
func (b *Bitmap) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.Image); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TextRequest describes a free-text label.
type TextRequest struct {
	Text     string
	FontSize float64
	Color    color.NRGBA
	// MaxWidth wraps lines, in page units; zero uses the configured width.
	MaxWidth float64
}

func (r TextRequest) key() string {
	return fmt.Sprintf("text\x00%s\x00%g\x00%v\x00%g", r.Text, r.FontSize, r.Color, r.MaxWidth)
}

// Rasterizer renders text with the embedded Go Regular face. Shaping runs
// under a mutex; drawing faces are created per call.
type Rasterizer struct {
	cfg    config.RasterConfig
	cache  *Cache
	log    observability.Logger
	tracer observability.Tracer

	mu     sync.Mutex
	face   *gofont.Face
	shaper shaping.HarfbuzzShaper
	otf    *opentype.Font
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

func WithLogger(l observability.Logger) Option {
	return func(r *Rasterizer) { r.log = observability.OrNop(l) }
}

func WithTracer(t observability.Tracer) Option {
	return func(r *Rasterizer) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithCache shares a bitmap cache between rasterizers.
func WithCache(c *Cache) Option {
	return func(r *Rasterizer) { r.cache = c }
}

// New parses the embedded font and returns a rasterizer.
func New(cfg config.RasterConfig, opts ...Option) (*Rasterizer, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, fmt.Errorf("parse shaping face: %w", err)
	}
	otf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse drawing face: %w", err)
	}
	r := &Rasterizer{
		cfg:    cfg,
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
		face:   face,
		otf:    otf,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache(time.Duration(cfg.CacheTTLMs) * time.Millisecond)
	}
	return r, nil
}

// Cache returns the bitmap cache.
func (r *Rasterizer) Cache() *Cache { return r.cache }

func (r *Rasterizer) scale() float64 {
	if r.cfg.DPI <= 0 {
		return 2
	}
	return r.cfg.DPI / 72
}

// Text renders req into a tightly sized bitmap with the configured padding.
func (r *Rasterizer) Text(ctx context.Context, req TextRequest) (*Bitmap, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmpty
	}
	if req.FontSize <= 0 {
		req.FontSize = 12
	}
	if req.MaxWidth <= 0 {
		req.MaxWidth = r.cfg.MaxWidth
	}
	key := req.key()
	if bmp, ok := r.cache.Get(key); ok {
		return bmp, nil
	}
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanRasterize)
	defer span.Finish()

	lines, ascent, descent := r.layout(req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pad := float64(r.cfg.Padding)
	lineHeight := (ascent + descent) * 1.2
	width := 0.0
	for _, l := range lines {
		width = math.Max(width, l.width)
	}
	wPt := width + 2*pad
	hPt := lineHeight*float64(len(lines)) + 2*pad

	s := r.scale()
	img := image.NewNRGBA(image.Rect(0, 0, int(math.Ceil(wPt*s)), int(math.Ceil(hPt*s))))
	face, err := opentype.NewFace(r.otf, &opentype.FaceOptions{Size: req.FontSize, DPI: 72 * s, Hinting: font.HintingFull})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("drawing face: %w", err)
	}
	defer face.Close()
	d := font.Drawer{Dst: img, Src: image.NewUniform(req.Color), Face: face}
	for i, l := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		baseline := pad + ascent + float64(i)*lineHeight
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(pad * s * 64), Y: fixed.Int26_6(baseline * s * 64)}
		d.DrawString(l.text)
	}

	bmp := &Bitmap{Image: img, Width: wPt, Height: hPt}
	r.cache.Set(key, bmp)
	span.SetTag("lines", len(lines))
	return bmp, nil
}

type line struct {
	text  string
	width float64
}

// layout wraps text at word boundaries, keeping explicit newlines. Widths
// and extents are in page units.
func (r *Rasterizer) layout(req TextRequest) (lines []line, ascent, descent float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, para := range strings.Split(strings.ReplaceAll(req.Text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, line{})
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if adv, _, _ := r.measure(next, req.FontSize); adv > req.MaxWidth {
				adv, _, _ := r.measure(cur, req.FontSize)
				lines = append(lines, line{text: cur, width: adv})
				cur = w
				continue
			}
			cur = next
		}
		adv, _, _ := r.measure(cur, req.FontSize)
		lines = append(lines, line{text: cur, width: adv})
	}
	_, ascent, descent = r.measure("Hg", req.FontSize)
	return lines, ascent, descent
}

// measure shapes s and returns its advance and line extents. r.mu must be
// held.
func (r *Rasterizer) measure(s string, size float64) (advance, ascent, descent float64) {
	runes := []rune(s)
	script := language.Latin
	for _, c := range runes {
		if sc := language.LookupScript(c); sc != language.Common && sc != language.Inherited {
			script = sc
			break
		}
	}
	out := r.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      r.face,
		Size:      fixed.Int26_6(size * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	return fixedToFloat(out.Advance), fixedToFloat(out.LineBounds.Ascent), -fixedToFloat(out.LineBounds.Descent)
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

// Image decodes a PNG or JPEG and scales it down to the configured maximum
// width. One pixel maps to one page unit before scaling.
func (r *Rasterizer) Image(ctx context.Context, data []byte) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	key := imageKey(data, r.cfg.MaxWidth)
	if bmp, ok := r.cache.Get(key); ok {
		return bmp, nil
	}
	ctx, span := r.tracer.StartSpan(ctx, observability.SpanRasterize)
	defer span.Finish()

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmpty
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	if limit := r.cfg.MaxWidth; limit > 0 && w > limit {
		h = h * limit / w
		w = limit
	}
	dst := image.NewNRGBA(image.Rect(0, 0, int(math.Max(1, math.Round(w))), int(math.Max(1, math.Round(h)))))
	if dst.Bounds().Size() == b.Size() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	}
	r.log.Debug("image scaled",
		observability.String("format", format),
		observability.Int("width", dst.Bounds().Dx()),
		observability.Int("height", dst.Bounds().Dy()))
	bmp := &Bitmap{Image: dst, Width: w, Height: h}
	r.cache.Set(key, bmp)
	return bmp, nil
}
