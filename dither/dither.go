// Package dither reduces images to a small palette with Atkinson error diffusion.
//
// Dithering a single image is strictly sequential: every pixel depends on the error diffused
// by the pixels visited before it. Independent images may be dithered concurrently, the
// only shared state is the lookup table cache.
package dither

import (
	"errors"
	"fmt"
	"image"

	"github.com/BeatGlow/epd/lut"
	"github.com/BeatGlow/epd/palette"
	"github.com/BeatGlow/epd/pixel"
)

// Errors
var (
	ErrInvalidImage = errors.New("dither: invalid image")
)

// Image is a palette-indexed image.
//
// The pixels of the embedded [image.Paletted] are indices into the distinct colors of Source,
// and its Palette holds those distinct colors.
type Image struct {
	*image.Paletted

	// Source is the palette the image was reduced to.
	Source *palette.Palette
}

// SlotAt returns the Source palette slot of the pixel at (x, y).
func (m *Image) SlotAt(x, y int) int {
	return m.Source.Slot(int(m.ColorIndexAt(x, y)))
}

// Dither reduces m to the colors of p. A nil config uses [DefaultConfig].
func Dither(m image.Image, p *palette.Palette, config *Config) (*Image, error) {
	if config == nil {
		config = &DefaultConfig
	}
	if err := checkImage(m); err != nil {
		return nil, err
	}
	if err := config.Validate(p); err != nil {
		return nil, err
	}

	var s space
	switch config.Space {
	case lut.RGB:
		table, err := config.cache().Get(p, lut.RGB, config.bits())
		if err != nil {
			return nil, err
		}
		s = newRGBSpace(m, p.Distinct(), table, config)
	case lut.Perceptual:
		s = newLabSpace(m, p.Lab(), config)
	}

	out := image.NewPaletted(m.Bounds(), p.ColorPalette())
	atkinson(s, out, config.Serpentine)
	return &Image{Paletted: out, Source: p}, nil
}

// atkinson runs the error diffusion over the pixels of out.
//
// Each pixel passes 1/8 of its error to six neighbors; the remaining 2/8 are dropped, as is
// the share of neighbors outside the image.
func atkinson(s space, out *image.Paletted, serpentine bool) {
	var (
		w = out.Rect.Dx()
		h = out.Rect.Dy()
	)
	for y := 0; y < h; y++ {
		x, end, dir := 0, w, 1
		if serpentine && y&1 == 1 {
			x, end, dir = w-1, -1, -1
		}

		for ; x != end; x += dir {
			i := y*w + x
			out.Pix[y*out.Stride+x] = s.visit(i)

			x1, x2, xm := x+dir, x+2*dir, x-dir
			if x1 >= 0 && x1 < w {
				s.diffuse(i + dir)
			}
			if x2 >= 0 && x2 < w {
				s.diffuse(i + 2*dir)
			}
			if y+1 < h {
				if xm >= 0 && xm < w {
					s.diffuse(i + w - dir)
				}
				s.diffuse(i + w)
				if x1 >= 0 && x1 < w {
					s.diffuse(i + w + dir)
				}
			}
			if y+2 < h {
				s.diffuse(i + 2*w)
			}
		}
	}
}

// Quantize maps every pixel of m to the nearest color of p, without error diffusion.
//
// The lookup table for config.Space is used in either space; the neutral lock doesn't apply.
// A nil config uses [DefaultConfig].
func Quantize(m image.Image, p *palette.Palette, config *Config) (*Image, error) {
	if config == nil {
		config = &DefaultConfig
	}
	if err := checkImage(m); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: nil palette", palette.ErrInvalidPalette)
	}

	table, err := config.cache().Get(p, config.Space, config.bits())
	if err != nil {
		return nil, err
	}

	out := image.NewPaletted(m.Bounds(), p.ColorPalette())
	w := out.Rect.Dx()
	eachPixel(m, func(i int, c pixel.RGB) {
		out.Pix[(i/w)*out.Stride+i%w] = table.Lookup(c.R, c.G, c.B)
	})
	return &Image{Paletted: out, Source: p}, nil
}

func checkImage(m image.Image) error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidImage)
	}
	if b := m.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: %dx%d pixels", ErrInvalidImage, b.Dx(), b.Dy())
	}
	return nil
}
