package semantic

import (
	"image"
	"image/draw"
)

// ImageFrom converts a Go image into 8-bit RGB samples, keeping alpha only
// when some pixel is not opaque.
func ImageFrom(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		offset := i * 4
		pixels = append(pixels, nrgba.Pix[offset], nrgba.Pix[offset+1], nrgba.Pix[offset+2])
		a := nrgba.Pix[offset+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	img := &Image{Width: w, Height: h, RGB: pixels}
	if hasAlpha {
		img.Alpha = alpha
	}
	return img
}

// NRGBA rebuilds a Go image. Gray data (one sample per pixel) is expanded.
func (img *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	n := img.Width * img.Height
	gray := len(img.RGB) == n && n > 0
	for i := 0; i < n; i++ {
		var r, g, b byte
		switch {
		case gray:
			r, g, b = img.RGB[i], img.RGB[i], img.RGB[i]
		case len(img.RGB) >= (i+1)*3:
			r, g, b = img.RGB[i*3], img.RGB[i*3+1], img.RGB[i*3+2]
		}
		a := byte(255)
		if len(img.Alpha) == n {
			a = img.Alpha[i]
		}
		out.Pix[i*4], out.Pix[i*4+1], out.Pix[i*4+2], out.Pix[i*4+3] = r, g, b, a
	}
	return out
}
