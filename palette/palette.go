// Package palette canonicalizes display palettes.
//
// A palette is an ordered list of slots. Slots may repeat a color on purpose, for example
// when a panel reserves a color code that must keep its position. Nearest color searches
// work on the distinct colors; the mapping back to slots is kept so output can be rendered
// in slot order.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/BeatGlow/epd/pixel"
)

// MaxColors is the maximum number of distinct colors, indices are stored as bytes.
const MaxColors = 256

// Errors
var (
	ErrInvalidPalette  = errors.New("palette: invalid palette")
	ErrPaletteMismatch = errors.New("palette: palette size mismatch")
)

// Palette is an immutable, indexed set of colors.
type Palette struct {
	colors   []pixel.RGB // per slot
	index    []int       // slot to distinct index
	distinct []pixel.RGB
	slot     []int // distinct index to first slot
	lab      []pixel.Lab
	key      string
}

// New builds a palette from a flat sequence of R, G, B channel values.
func New(flat ...uint8) (*Palette, error) {
	if len(flat) == 0 {
		return nil, fmt.Errorf("%w: no colors", ErrInvalidPalette)
	}
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("%w: %d channel values is not a multiple of 3", ErrInvalidPalette, len(flat))
	}

	colors := make([]pixel.RGB, len(flat)/3)
	for i := range colors {
		colors[i] = pixel.RGB{R: flat[i*3], G: flat[i*3+1], B: flat[i*3+2]}
	}
	return FromRGB(colors...)
}

// FromRGB builds a palette from a list of slot colors.
func FromRGB(colors ...pixel.RGB) (*Palette, error) {
	if len(colors) == 0 {
		return nil, fmt.Errorf("%w: no colors", ErrInvalidPalette)
	}

	p := &Palette{
		colors: append([]pixel.RGB(nil), colors...),
		index:  make([]int, len(colors)),
	}

	seen := make(map[pixel.RGB]int, len(colors))
	for i, c := range colors {
		j, ok := seen[c]
		if !ok {
			j = len(p.distinct)
			seen[c] = j
			p.distinct = append(p.distinct, c)
			p.slot = append(p.slot, i)
		}
		p.index[i] = j
	}
	if len(p.distinct) > MaxColors {
		return nil, fmt.Errorf("%w: %d distinct colors, at most %d are supported", ErrInvalidPalette, len(p.distinct), MaxColors)
	}

	p.lab = make([]pixel.Lab, len(p.distinct))
	for i, c := range p.distinct {
		p.lab[i] = pixel.ToLab(c)
	}

	var b strings.Builder
	for _, c := range p.colors {
		fmt.Fprintf(&b, "%02x%02x%02x", c.R, c.G, c.B)
	}
	p.key = b.String()

	return p, nil
}

// FromPalette builds a palette from a [color.Palette], dropping alpha.
func FromPalette(p color.Palette) (*Palette, error) {
	colors := make([]pixel.RGB, len(p))
	for i, c := range p {
		colors[i] = pixel.RGBModel.Convert(c).(pixel.RGB)
	}
	return FromRGB(colors...)
}

// Len is the number of slots, including duplicates.
func (p *Palette) Len() int {
	return len(p.colors)
}

// At returns the color of a slot.
func (p *Palette) At(slot int) pixel.RGB {
	return p.colors[slot]
}

// Colors returns a copy of the slot colors.
func (p *Palette) Colors() []pixel.RGB {
	return append([]pixel.RGB(nil), p.colors...)
}

// Distinct returns the distinct colors in order of first appearance.
//
// The returned slice must not be modified.
func (p *Palette) Distinct() []pixel.RGB {
	return p.distinct
}

// Lab returns the CIE L*a*b* value of each distinct color.
//
// The returned slice must not be modified.
func (p *Palette) Lab() []pixel.Lab {
	return p.lab
}

// Index returns the distinct color index of a slot.
func (p *Palette) Index(slot int) int {
	return p.index[slot]
}

// Slot returns the first slot holding a distinct color.
func (p *Palette) Slot(index int) int {
	return p.slot[index]
}

// Key identifies the palette: palettes with the same slots in the same order have equal keys.
func (p *Palette) Key() string {
	return p.key
}

// Flat returns the slot colors as a flat R, G, B sequence.
func (p *Palette) Flat() []uint8 {
	flat := make([]uint8, 0, len(p.colors)*3)
	for _, c := range p.colors {
		flat = append(flat, c.R, c.G, c.B)
	}
	return flat
}

// ColorPalette returns the distinct colors as a [color.Palette].
func (p *Palette) ColorPalette() color.Palette {
	cp := make(color.Palette, len(p.distinct))
	for i, c := range p.distinct {
		cp[i] = c
	}
	return cp
}

// Nearest returns the index of the distinct color closest to c in RGB space, the
// lowest index wins ties.
func (p *Palette) Nearest(c pixel.RGB) int {
	var (
		best     int
		bestDist = int32(1<<31 - 1)
	)
	for i, v := range p.distinct {
		dr := int32(c.R) - int32(v.R)
		dg := int32(c.G) - int32(v.G)
		db := int32(c.B) - int32(v.B)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (p *Palette) String() string {
	var b strings.Builder
	b.WriteString("palette[")
	for i, c := range p.colors {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "#%02x%02x%02x", c.R, c.G, c.B)
	}
	b.WriteByte(']')
	return b.String()
}
