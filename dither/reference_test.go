package dither

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/epd/lut"
	"github.com/BeatGlow/epd/palette"
	"github.com/BeatGlow/epd/pixel"
)

// atkinsonKernel lists the recipients of a pixel as (dx, dy), dx is mirrored on right to
// left rows.
var atkinsonKernel = [6][2]int{{1, 0}, {2, 0}, {-1, 1}, {0, 1}, {1, 1}, {0, 2}}

// referenceStats counts what a reference run went through.
type referenceStats struct {
	overflow int // pixels whose accumulated value left the channel range
	locked   int // pixels forced to white or black
}

// referenceRGB is a plain two dimensional rendition of the RGB diffusion.
func referenceRGB(m *pixel.RGBImage, p *palette.Palette, config Config) ([]uint8, referenceStats) {
	var (
		w, h  = m.Rect.Dx(), m.Rect.Dy()
		pal   = p.Distinct()
		buf   = make([][][3]int, h)
		out   = make([]uint8, w*h)
		stats referenceStats
	)
	table, err := lut.Build(pal, lut.RGB, config.Bits)
	if err != nil {
		panic(err)
	}
	for y := range buf {
		buf[y] = make([][3]int, w)
		for x := range buf[y] {
			c := m.RGBAt(x, y)
			buf[y][x] = [3]int{int(c.R), int(c.G), int(c.B)}
		}
	}

	for y := 0; y < h; y++ {
		for n := 0; n < w; n++ {
			x, dir := n, 1
			if config.Serpentine && y%2 == 1 {
				x, dir = w-1-n, -1
			}

			var v [3]int
			for c := range v {
				v[c] = min(max(buf[y][x][c], 0), 255)
				if v[c] != buf[y][x][c] {
					stats.overflow++
				}
			}

			lo, hi := min(v[0], v[1], v[2]), max(v[0], v[1], v[2])
			index := -1
			if config.LockNeutrals && float64(hi-lo) <= config.NeutralThreshold {
				if float64(lo) >= config.WhiteLock {
					index = config.WhiteIndex
				} else if float64(hi) <= config.BlackLock {
					index = config.BlackIndex
				}
			}
			if index >= 0 {
				stats.locked++
			} else {
				index = int(table.Lookup(uint8(v[0]), uint8(v[1]), uint8(v[2])))
			}
			out[y*w+x] = uint8(index)

			chosen := [3]int{int(pal[index].R), int(pal[index].G), int(pal[index].B)}
			for _, k := range atkinsonKernel {
				nx, ny := x+k[0]*dir, y+k[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				for c := range v {
					buf[ny][nx][c] += int(math.Round(float64(v[c]-chosen[c]) / 8))
				}
			}
		}
	}
	return out, stats
}

// referenceLab is a plain two dimensional rendition of the perceptual diffusion.
func referenceLab(m *pixel.RGBImage, p *palette.Palette, config Config) ([]uint8, referenceStats) {
	var (
		w, h  = m.Rect.Dx(), m.Rect.Dy()
		pal   = p.Lab()
		buf   = make([][]pixel.Lab, h)
		out   = make([]uint8, w*h)
		stats referenceStats
	)
	for y := range buf {
		buf[y] = make([]pixel.Lab, w)
		for x := range buf[y] {
			buf[y][x] = pixel.ToLab(m.RGBAt(x, y))
		}
	}

	for y := 0; y < h; y++ {
		for n := 0; n < w; n++ {
			x, dir := n, 1
			if config.Serpentine && y%2 == 1 {
				x, dir = w-1-n, -1
			}

			raw := buf[y][x]
			v := pixel.Lab{
				L: math.Min(math.Max(raw.L, 0), 100),
				A: math.Min(math.Max(raw.A, -128), 127),
				B: math.Min(math.Max(raw.B, -128), 127),
			}
			if v != raw {
				stats.overflow++
			}

			index := -1
			if config.LockNeutrals && math.Hypot(v.A, v.B) <= config.NeutralThreshold {
				if v.L >= config.WhiteLock {
					index = config.WhiteIndex
				} else if v.L <= config.BlackLock {
					index = config.BlackIndex
				}
			}
			if index >= 0 {
				stats.locked++
			} else {
				best := math.Inf(1)
				for j, c := range pal {
					d := (v.L-c.L)*(v.L-c.L) + (v.A-c.A)*(v.A-c.A) + (v.B-c.B)*(v.B-c.B)
					if d < best {
						index, best = j, d
					}
				}
			}
			out[y*w+x] = uint8(index)

			c := pal[index]
			for _, k := range atkinsonKernel {
				nx, ny := x+k[0]*dir, y+k[1]
				if nx < 0 || nx >= w || ny >= h {
					continue
				}
				buf[ny][nx].L += (v.L - c.L) / 8
				buf[ny][nx].A += (v.A - c.A) / 8
				buf[ny][nx].B += (v.B - c.B) / 8
			}
		}
	}
	return out, stats
}

// goldenImage is a random image with near-neutral patches: light and dark grays that
// lock, mid grays that don't, and pure white that pushes values over range.
func goldenImage(seed int64) *pixel.RGBImage {
	m := randomImage(seed, 53, 41)
	patches := []struct {
		x, y int
		c    pixel.RGB
	}{
		{3, 2, pixel.RGB{R: 245, G: 247, B: 246}},
		{20, 10, pixel.RGB{R: 20, G: 22, B: 21}},
		{35, 25, pixel.RGB{R: 128, G: 130, B: 127}},
		{8, 30, pixel.RGB{R: 252, G: 250, B: 255}},
		{44, 4, pixel.RGB{R: 5, G: 0, B: 8}},
		{24, 32, pixel.RGB{R: 255, G: 255, B: 255}},
	}
	for _, patch := range patches {
		for y := patch.y; y < patch.y+8; y++ {
			for x := patch.x; x < patch.x+8; x++ {
				m.SetRGB(x, y, patch.c)
			}
		}
	}

	// Pure white next to a light tint: errors of both signs meet at the top of the range.
	for y := 12; y < 20; y++ {
		for x := 42; x < 52; x++ {
			if (x+y)%2 == 0 {
				m.SetRGB(x, y, pixel.RGB{R: 255, G: 255, B: 255})
			} else {
				m.SetRGB(x, y, pixel.RGB{R: 255, G: 228, B: 225})
			}
		}
	}
	return m
}

func TestDitherGoldenRGB(t *testing.T) {
	p := palette.Spectra6()
	raster := DefaultConfig
	raster.Serpentine = false

	for name, config := range map[string]Config{"serpentine": DefaultConfig, "raster": raster} {
		t.Run(name, func(t *testing.T) {
			var total referenceStats
			for seed := int64(1); seed <= 10; seed++ {
				m := goldenImage(seed)
				want, stats := referenceRGB(m, p, config)
				total.overflow += stats.overflow
				total.locked += stats.locked

				out, err := Dither(m, p, &config)
				require.NoError(t, err)
				assert.Equal(t, want, out.Pix, "seed %d", seed)
			}
			require.Positive(t, total.overflow, "the images must push values out of range")
			require.Positive(t, total.locked, "the images must hit the neutral lock")
		})
	}
}

func TestDitherGoldenLab(t *testing.T) {
	p := palette.Spectra6()
	raster := DefaultPerceptualConfig
	raster.Serpentine = false

	for name, config := range map[string]Config{"serpentine": DefaultPerceptualConfig, "raster": raster} {
		t.Run(name, func(t *testing.T) {
			var total referenceStats
			for seed := int64(1); seed <= 5; seed++ {
				m := goldenImage(seed)
				want, stats := referenceLab(m, p, config)
				total.overflow += stats.overflow
				total.locked += stats.locked

				out, err := Dither(m, p, &config)
				require.NoError(t, err)
				assert.Equal(t, want, out.Pix, "seed %d", seed)
			}
			require.Positive(t, total.overflow, "the images must push values out of range")
			require.Positive(t, total.locked, "the images must hit the neutral lock")
		})
	}
}
