package dither

import (
	"image"
	"image/color"

	"github.com/BeatGlow/epd/lut"
	"github.com/BeatGlow/epd/pixel"
)

// space is the working representation of one dither call. It owns the working buffer.
type space interface {
	// visit clamps the accumulated value of pixel i, picks its palette index and keeps
	// the error share for the following diffuse calls.
	visit(i int) uint8

	// diffuse adds the current error share to pixel i.
	diffuse(i int)
}

type rgbSpace struct {
	buf   [][3]int32
	pal   []pixel.RGB
	table *lut.Table
	share [3]int32

	lock                    bool
	threshold, white, black float64
	whiteIndex, blackIndex  uint8
}

func newRGBSpace(m image.Image, pal []pixel.RGB, table *lut.Table, config *Config) *rgbSpace {
	s := &rgbSpace{
		buf:        make([][3]int32, m.Bounds().Dx()*m.Bounds().Dy()),
		pal:        pal,
		table:      table,
		lock:       config.LockNeutrals,
		threshold:  config.NeutralThreshold,
		white:      config.WhiteLock,
		black:      config.BlackLock,
		whiteIndex: uint8(config.WhiteIndex),
		blackIndex: uint8(config.BlackIndex),
	}
	eachPixel(m, func(i int, c pixel.RGB) {
		s.buf[i] = [3]int32{int32(c.R), int32(c.G), int32(c.B)}
	})
	return s
}

func (s *rgbSpace) visit(i int) uint8 {
	v := s.buf[i]
	r, g, b := clamp8(v[0]), clamp8(v[1]), clamp8(v[2])

	index := s.nearest(r, g, b)
	c := s.pal[index]
	s.share = [3]int32{
		div8(r - int32(c.R)),
		div8(g - int32(c.G)),
		div8(b - int32(c.B)),
	}
	return index
}

func (s *rgbSpace) nearest(r, g, b int32) uint8 {
	if s.lock {
		lo, hi := min(r, g, b), max(r, g, b)
		if float64(hi-lo) <= s.threshold {
			if float64(lo) >= s.white {
				return s.whiteIndex
			}
			if float64(hi) <= s.black {
				return s.blackIndex
			}
		}
	}
	return s.table.Lookup(uint8(r), uint8(g), uint8(b))
}

func (s *rgbSpace) diffuse(i int) {
	v := &s.buf[i]
	v[0] += s.share[0]
	v[1] += s.share[1]
	v[2] += s.share[2]
}

// labSpace diffuses in CIE L*a*b*. The error share is the exact float division by 8, no
// rounding is applied; only the RGB space rounds its shares.
type labSpace struct {
	buf   []pixel.Lab
	pal   []pixel.Lab
	share pixel.Lab

	lock                    bool
	threshold, white, black float64
	whiteIndex, blackIndex  uint8
}

func newLabSpace(m image.Image, pal []pixel.Lab, config *Config) *labSpace {
	s := &labSpace{
		buf:        make([]pixel.Lab, m.Bounds().Dx()*m.Bounds().Dy()),
		pal:        pal,
		lock:       config.LockNeutrals,
		threshold:  config.NeutralThreshold,
		white:      config.WhiteLock,
		black:      config.BlackLock,
		whiteIndex: uint8(config.WhiteIndex),
		blackIndex: uint8(config.BlackIndex),
	}
	eachPixel(m, func(i int, c pixel.RGB) {
		s.buf[i] = pixel.ToLab(c)
	})
	return s
}

func (s *labSpace) visit(i int) uint8 {
	v := clampLab(s.buf[i])

	index := s.nearest(v)
	c := s.pal[index]
	s.share = pixel.Lab{
		L: (v.L - c.L) / 8,
		A: (v.A - c.A) / 8,
		B: (v.B - c.B) / 8,
	}
	return index
}

func (s *labSpace) nearest(v pixel.Lab) uint8 {
	if s.lock && v.Chroma() <= s.threshold {
		if v.L >= s.white {
			return s.whiteIndex
		}
		if v.L <= s.black {
			return s.blackIndex
		}
	}

	best, bestDist := 0, v.Distance2(s.pal[0])
	for j := 1; j < len(s.pal); j++ {
		if d := v.Distance2(s.pal[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return uint8(best)
}

func (s *labSpace) diffuse(i int) {
	v := &s.buf[i]
	v.L += s.share.L
	v.A += s.share.A
	v.B += s.share.B
}

// eachPixel calls fn for every pixel of m in row-major order, i counts from 0.
func eachPixel(m image.Image, fn func(i int, c pixel.RGB)) {
	var (
		b = m.Bounds()
		w = b.Dx()
		h = b.Dy()
	)
	switch m := m.(type) {
	case *pixel.RGBImage:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				fn(y*w+x, m.RGBAt(b.Min.X+x, b.Min.Y+y))
			}
		}

	case *image.NRGBA:
		for y := 0; y < h; y++ {
			o := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				s := m.Pix[o+x*4 : o+x*4+3 : o+x*4+3]
				fn(y*w+x, pixel.RGB{R: s[0], G: s[1], B: s[2]})
			}
		}

	case *image.RGBA:
		for y := 0; y < h; y++ {
			o := m.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < w; x++ {
				s := m.Pix[o+x*4 : o+x*4+4 : o+x*4+4]
				if s[3] == 0xff {
					fn(y*w+x, pixel.RGB{R: s[0], G: s[1], B: s[2]})
				} else {
					fn(y*w+x, pixel.RGBModel.Convert(color.RGBA{R: s[0], G: s[1], B: s[2], A: s[3]}).(pixel.RGB))
				}
			}
		}

	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				fn(y*w+x, pixel.RGBModel.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(pixel.RGB))
			}
		}
	}
}

func clamp8(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func clampLab(v pixel.Lab) pixel.Lab {
	return pixel.Lab{
		L: clampf(v.L, 0, 100),
		A: clampf(v.A, -128, 127),
		B: clampf(v.B, -128, 127),
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// div8 divides by 8, rounding half away from zero so positive and negative errors
// diffuse alike.
func div8(v int32) int32 {
	if v >= 0 {
		return (v + 4) / 8
	}
	return -((-v + 4) / 8)
}
