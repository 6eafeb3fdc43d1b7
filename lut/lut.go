// Package lut implements nearest palette color lookup tables.
//
// A table covers the RGB cube with a grid of 2^bits samples per channel and stores the
// nearest palette color of each grid point. Building a table costs one distance evaluation
// per grid point and palette color, so tables are cached per palette, see [Cache].
package lut

import (
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BeatGlow/epd/pixel"
)

// DefaultBits is the default number of bits per channel, 5 bits gives a 32768 entry table.
const DefaultBits = 5

// Errors
var (
	ErrInvalidBits = errors.New("lut: bits per channel must be between 1 and 8")
	ErrNoColors    = errors.New("lut: no palette colors")
	ErrSpace       = errors.New("lut: unknown color space")
)

// Space is the color space distances are measured in.
type Space uint8

// Supported color spaces.
const (
	RGB        Space = iota // sRGB channel values
	Perceptual              // CIE L*a*b*
)

func (s Space) String() string {
	switch s {
	case RGB:
		return "rgb"
	case Perceptual:
		return "lab"
	default:
		return fmt.Sprintf("space(%d)", uint8(s))
	}
}

// ParseSpace parses a color space name.
func ParseSpace(name string) (Space, error) {
	switch strings.ToLower(name) {
	case "", "rgb":
		return RGB, nil
	case "lab", "perceptual":
		return Perceptual, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrSpace, name)
	}
}

// Table maps quantized colors to the nearest palette index. It is immutable.
type Table struct {
	space Space
	bits  uint
	index []uint8
}

// Build a table for the colors, measuring distances in space.
//
// Grid value q maps to the channel sample q·255/(2^bits-1). The lowest index wins ties.
func Build(colors []pixel.RGB, space Space, bits int) (*Table, error) {
	if bits < 1 || bits > 8 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidBits, bits)
	}
	if len(colors) == 0 {
		return nil, ErrNoColors
	}
	if len(colors) > 256 {
		return nil, fmt.Errorf("lut: %d colors don't fit a byte index", len(colors))
	}

	var (
		n       = 1 << bits
		samples = make([]float64, n)
		t       = &Table{
			space: space,
			bits:  uint(bits),
			index: make([]uint8, n*n*n),
		}
		start = time.Now()
	)
	for q := range samples {
		samples[q] = float64(q) * 255 / float64(n-1)
	}

	switch space {
	case RGB:
		pal := make([][3]float64, len(colors))
		for i, c := range colors {
			pal[i] = [3]float64{float64(c.R), float64(c.G), float64(c.B)}
		}
		for i := range t.index {
			r, g, b := samples[i>>(2*bits)], samples[i>>bits&(n-1)], samples[i&(n-1)]
			t.index[i] = nearest(len(pal), func(j int) float64 {
				dr, dg, db := r-pal[j][0], g-pal[j][1], b-pal[j][2]
				return dr*dr + dg*dg + db*db
			})
		}

	case Perceptual:
		pal := make([]pixel.Lab, len(colors))
		for i, c := range colors {
			pal[i] = pixel.ToLab(c)
		}
		for i := range t.index {
			v := pixel.LabFromFloat(samples[i>>(2*bits)], samples[i>>bits&(n-1)], samples[i&(n-1)])
			t.index[i] = nearest(len(pal), func(j int) float64 {
				return v.Distance2(pal[j])
			})
		}

	default:
		return nil, fmt.Errorf("%w %d", ErrSpace, space)
	}

	log.WithFields(log.Fields{
		"space":   space,
		"bits":    bits,
		"colors":  len(colors),
		"entries": len(t.index),
		"took":    time.Since(start),
	}).Debug("lut: built table")
	return t, nil
}

func nearest(n int, dist func(int) float64) uint8 {
	best, bestDist := 0, dist(0)
	for j := 1; j < n; j++ {
		if d := dist(j); d < bestDist {
			best, bestDist = j, d
		}
	}
	return uint8(best)
}

// Lookup returns the palette index nearest to the 8-bit color.
func (t *Table) Lookup(r, g, b uint8) uint8 {
	shift := 8 - t.bits
	return t.index[uint(r>>shift)<<(2*t.bits)|uint(g>>shift)<<t.bits|uint(b>>shift)]
}

// Space the table distances were measured in.
func (t *Table) Space() Space {
	return t.space
}

// Bits per channel of the grid.
func (t *Table) Bits() int {
	return int(t.bits)
}

// Len is the number of grid points.
func (t *Table) Len() int {
	return len(t.index)
}
