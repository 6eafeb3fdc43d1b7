// Package prepare turns decoded photos into panel sized RGB images ready for dithering.
package prepare

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/webp" // WEBP decoder
)

// Open decodes an image file, applying its EXIF orientation.
func Open(filename string) (image.Image, error) {
	return imaging.Open(filename, imaging.AutoOrientation(true))
}

// Decode an image, applying its EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

// Fit scales m to fit in width×height, keeping its aspect ratio, and centers it on a white
// canvas of exactly width×height pixels. Smaller images are scaled up.
func Fit(m image.Image, width, height int) *image.NRGBA {
	var (
		b    = m.Bounds()
		w, h int
	)
	if b.Dx()*height > b.Dy()*width {
		w = width
		h = int(math.Round(float64(width) * float64(b.Dy()) / float64(b.Dx())))
	} else {
		h = height
		w = int(math.Round(float64(height) * float64(b.Dx()) / float64(b.Dy())))
	}

	resized := imaging.Resize(m, max(w, 1), max(h, 1), imaging.Lanczos)
	canvas := imaging.New(width, height, color.White)
	return imaging.PasteCenter(canvas, resized)
}

// Options for Enhance. Zero values disable a step.
type Options struct {
	// AutoContrast stretches each channel, ignoring this percentage of the darkest and
	// lightest pixels.
	AutoContrast float64

	// Brightness and Contrast in percent, -100 to 100.
	Brightness float64
	Contrast   float64

	// Vibrance raises the saturation of muted colors, 0 to 1. Highlights and neutrals are left
	// alone.
	Vibrance float64

	// Saturation in percent, -100 to 500.
	Saturation float64

	// Gamma above 1 lightens the midtones.
	Gamma float64

	// Sharpen applies an unsharp mask.
	Sharpen bool
}

// Enhance adjusts colors for the limited gamut of a color e-paper panel.
func Enhance(m image.Image, o Options) *image.NRGBA {
	var filters []gift.Filter
	if o.AutoContrast > 0 {
		filters = append(filters, autoContrast(m, o.AutoContrast))
	}
	if o.Brightness != 0 {
		filters = append(filters, gift.Brightness(float32(o.Brightness)))
	}
	if o.Contrast != 0 {
		filters = append(filters, gift.Contrast(float32(o.Contrast)))
	}
	if o.Vibrance > 0 {
		filters = append(filters, vibrance(o.Vibrance))
	}
	if o.Saturation != 0 {
		filters = append(filters, gift.Saturation(float32(o.Saturation)))
	}
	if o.Gamma > 0 && o.Gamma != 1 {
		filters = append(filters, gift.Gamma(float32(o.Gamma)))
	}
	if o.Sharpen {
		filters = append(filters, gift.UnsharpMask(1.3, 1.6, 4.0/255))
	}

	g := gift.New(filters...)
	out := image.NewNRGBA(g.Bounds(m.Bounds()))
	g.Draw(out, m)
	return out
}

// autoContrast maps the channel range left after cutting cutoff percent off both ends of
// each channel histogram to the full range.
func autoContrast(m image.Image, cutoff float64) gift.Filter {
	var (
		src   = imaging.Clone(m)
		hist  [3][256]int
		total = src.Rect.Dx() * src.Rect.Dy()
	)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		hist[0][src.Pix[i+0]]++
		hist[1][src.Pix[i+1]]++
		hist[2][src.Pix[i+2]]++
	}

	var lo, hi [3]float32
	cut := int(float64(total) * cutoff / 100)
	for c := range hist {
		l, h := 0, 255
		for n := 0; l < 255; l++ {
			if n += hist[c][l]; n > cut {
				break
			}
		}
		for n := 0; h > 0; h-- {
			if n += hist[c][h]; n > cut {
				break
			}
		}
		if h <= l {
			l, h = 0, 255
		}
		lo[c], hi[c] = float32(l)/255, float32(h)/255
	}

	stretch := func(v float32, c int) float32 {
		return min(max((v-lo[c])/(hi[c]-lo[c]), 0), 1)
	}
	return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return stretch(r, 0), stretch(g, 1), stretch(b, 2), a
	})
}

const (
	vibranceProtectLightness  = 0.88
	vibranceProtectSaturation = 0.12
)

// vibrance moves the HSL saturation of each color towards 1 by amount, skipping highlights
// and neutrals.
func vibrance(amount float64) gift.Filter {
	return gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		h, s, l := colorful.Color{R: float64(r), G: float64(g), B: float64(b)}.Hsl()
		if l >= vibranceProtectLightness || s <= vibranceProtectSaturation {
			return r, g, b, a
		}
		c := colorful.Hsl(h, s+(1-s)*amount, l).Clamped()
		return float32(c.R), float32(c.G), float32(c.B), a
	})
}
