package epd

import (
	"fmt"
	"image"
	"image/color"

	"github.com/BeatGlow/epd/palette"
	"github.com/BeatGlow/epd/pixel"
)

// indexedDisplay keeps a 4-bits per pixel frame buffer of panel color codes.
type indexedDisplay struct {
	baseDisplay
	buf    *pixel.Index4Image
	panel  *palette.Palette
	source *palette.Palette
	slots  []int // usable slots, reserved ones left out
	white  uint8
}

func (d *indexedDisplay) init(config *Config) error {
	if config.Palette == nil {
		config.Palette = palette.Spectra6Panel()
		if config.Source == nil {
			config.Source = palette.Spectra6()
		}
	}
	if config.Source == nil {
		config.Source = config.Palette
	}
	if n := config.Palette.Len(); n > 16 {
		return fmt.Errorf("%w: %d slots, at most 16 color codes", palette.ErrInvalidPalette, n)
	}
	if config.Source.Len() != config.Palette.Len() {
		return fmt.Errorf("%w: %w: %d source slots, %d panel slots", palette.ErrInvalidPalette,
			palette.ErrPaletteMismatch, config.Source.Len(), config.Palette.Len())
	}

	slots := make(color.Palette, config.Palette.Len())
	for i, c := range config.Palette.Colors() {
		slots[i] = c
	}

	d.panel = config.Palette
	d.source = config.Source
	d.slots = d.slots[:0]
	for slot := 0; slot < d.source.Len(); slot++ {
		if d.source.Slot(d.source.Index(slot)) == slot {
			d.slots = append(d.slots, slot)
		}
	}
	d.buf = pixel.NewIndex4Image(config.Width, config.Height, slots)
	d.width = config.Width
	d.height = config.Height
	d.rotation = config.Rotation
	d.white = d.code(pixel.RGB{R: 0xff, G: 0xff, B: 0xff})
	d.Clear()
	return nil
}

func (d *indexedDisplay) Clear() {
	d.buf.FillIndex(d.white)
}

func (d *indexedDisplay) ColorModel() color.Model {
	return d.buf.Palette
}

func (d *indexedDisplay) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(d.Bounds()) {
		return color.Transparent
	}
	return d.buf.At(d.physical(x, y))
}

func (d *indexedDisplay) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(d.Bounds()) {
		return
	}
	px, py := d.physical(x, y)
	d.buf.SetIndex(px, py, d.code(pixel.RGBModel.Convert(c).(pixel.RGB)))
}

func (d *indexedDisplay) Draw(m *image.Paletted) error {
	var (
		b    = m.Bounds()
		size = d.Bounds().Size()
	)
	if b.Size() != size {
		return fmt.Errorf("%w: image is %s, display is %s", ErrBounds, b.Size(), size)
	}

	codes := make([]uint8, len(m.Palette))
	for i, c := range m.Palette {
		codes[i] = d.code(pixel.RGBModel.Convert(c).(pixel.RGB))
	}

	for y := 0; y < size.Y; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+size.X]
		for x, i := range row {
			code := d.white
			if int(i) < len(codes) {
				code = codes[i]
			}
			px, py := d.physical(x, y)
			d.buf.SetIndex(px, py, code)
		}
	}
	return nil
}

// code returns the panel color code of c. Source colors map to their first slot, then
// panel colors to theirs, anything else to the nearest panel color. Only usable slots are
// considered, the lowest slot wins ties.
func (d *indexedDisplay) code(c pixel.RGB) uint8 {
	for _, slot := range d.slots {
		if d.source.At(slot) == c {
			return uint8(slot)
		}
	}
	for _, slot := range d.slots {
		if d.panel.At(slot) == c {
			return uint8(slot)
		}
	}

	var (
		best     = d.slots[0]
		bestDist = int32(1<<31 - 1)
	)
	for _, slot := range d.slots {
		v := d.panel.At(slot)
		dr := int32(c.R) - int32(v.R)
		dg := int32(c.G) - int32(v.G)
		db := int32(c.B) - int32(v.B)
		if dist := dr*dr + dg*dg + db*db; dist < bestDist {
			best, bestDist = slot, dist
		}
	}
	return uint8(best)
}
