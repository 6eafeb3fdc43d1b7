package palette

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BeatGlow/epd/pixel"
)

// Remap moves a paletted image from the color space of src to the color space of dst.
//
// Both palettes must have the same number of slots, slot i of src corresponds to slot i of dst.
// Pixel indices are not changed, only the colors of the attached palette are replaced. Colors
// that don't appear in src are kept as they are. When a color appears in several src slots,
// the first slot decides.
func Remap(m *image.Paletted, src, dst *Palette) (*image.Paletted, error) {
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: nil palette", ErrInvalidPalette)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidPalette)
	}
	if src.Len() != dst.Len() {
		return nil, fmt.Errorf("%w: %w: %d source slots, %d target slots", ErrInvalidPalette, ErrPaletteMismatch, src.Len(), dst.Len())
	}

	mapping := make(map[pixel.RGB]pixel.RGB, src.Len())
	for i, c := range src.colors {
		if _, ok := mapping[c]; !ok {
			mapping[c] = dst.colors[i]
		}
	}

	out := &image.Paletted{
		Pix:     append([]uint8(nil), m.Pix...),
		Stride:  m.Stride,
		Rect:    m.Rect,
		Palette: make(color.Palette, len(m.Palette)),
	}
	for i, c := range m.Palette {
		if v, ok := mapping[pixel.RGBModel.Convert(c).(pixel.RGB)]; ok {
			out.Palette[i] = v
		} else {
			out.Palette[i] = c
		}
	}
	return out, nil
}
