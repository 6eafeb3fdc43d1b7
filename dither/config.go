package dither

import (
	"fmt"

	"github.com/BeatGlow/epd/lut"
	"github.com/BeatGlow/epd/palette"
)

// Config is the dither configuration.
type Config struct {
	// Serpentine scans odd rows right to left.
	Serpentine bool

	// Space is the color space for nearest color search and error diffusion.
	Space lut.Space

	// LockNeutrals forces near-gray pixels at the extremes of the lightness range to the
	// white and black palette colors.
	LockNeutrals bool

	// NeutralThreshold is the largest spread between channels (RGB) or the largest
	// chroma (perceptual) for which a pixel counts as neutral.
	NeutralThreshold float64

	// WhiteLock is the minimum channel value (RGB) or L* (perceptual) to lock to white.
	WhiteLock float64

	// BlackLock is the maximum channel value (RGB) or L* (perceptual) to lock to black.
	BlackLock float64

	// WhiteIndex is the distinct palette index of white.
	WhiteIndex int

	// BlackIndex is the distinct palette index of black.
	BlackIndex int

	// Bits per channel of the lookup table, 0 uses [lut.DefaultBits].
	Bits int

	// Cache for lookup tables, nil uses [lut.Default].
	Cache *lut.Cache
}

// DefaultConfig dithers in RGB space.
var DefaultConfig = Config{
	Serpentine:       true,
	Space:            lut.RGB,
	LockNeutrals:     true,
	NeutralThreshold: 10,
	WhiteLock:        240,
	BlackLock:        35,
	WhiteIndex:       1,
	BlackIndex:       0,
	Bits:             lut.DefaultBits,
}

// DefaultPerceptualConfig dithers in CIE L*a*b* space.
var DefaultPerceptualConfig = Config{
	Serpentine:       true,
	Space:            lut.Perceptual,
	LockNeutrals:     true,
	NeutralThreshold: 10,
	WhiteLock:        92,
	BlackLock:        18,
	WhiteIndex:       1,
	BlackIndex:       0,
	Bits:             lut.DefaultBits,
}

// Validate checks the configuration against a palette.
func (config *Config) Validate(p *palette.Palette) error {
	if p == nil {
		return fmt.Errorf("%w: nil palette", palette.ErrInvalidPalette)
	}
	if config.Space != lut.RGB && config.Space != lut.Perceptual {
		return fmt.Errorf("%w %d", lut.ErrSpace, config.Space)
	}
	if config.Bits != 0 && (config.Bits < 1 || config.Bits > 8) {
		return fmt.Errorf("%w, got %d", lut.ErrInvalidBits, config.Bits)
	}
	if config.LockNeutrals {
		n := len(p.Distinct())
		if config.WhiteIndex < 0 || config.WhiteIndex >= n {
			return fmt.Errorf("%w: white index %d out of range [0,%d)", palette.ErrInvalidPalette, config.WhiteIndex, n)
		}
		if config.BlackIndex < 0 || config.BlackIndex >= n {
			return fmt.Errorf("%w: black index %d out of range [0,%d)", palette.ErrInvalidPalette, config.BlackIndex, n)
		}
	}
	return nil
}

func (config *Config) bits() int {
	if config.Bits == 0 {
		return lut.DefaultBits
	}
	return config.Bits
}

func (config *Config) cache() *lut.Cache {
	if config.Cache == nil {
		return lut.Default
	}
	return config.Cache
}
