package pixel

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Models for the color types in this package.
var (
	RGBModel color.Model = color.ModelFunc(rgbModel)
	LabModel color.Model = color.ModelFunc(labModel)
)

// RGB represents an opaque 24-bit RGB color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	return r, g, b, 0xffff
}

func rgbModel(c color.Color) color.Color {
	switch c := c.(type) {
	case RGB:
		return c
	case Lab:
		r, g, b := colorful.Lab(c.L/100, c.A/100, c.B/100).Clamped().RGB255()
		return RGB{R: r, G: g, B: b}
	}

	// Alpha is dropped, not composited: a half transparent red stays red.
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// Lab represents a CIE L*a*b* color relative to the D65 white point.
//
// L is in [0, 100], A and B are roughly in [-128, 127].
type Lab struct {
	L, A, B float64
}

func (c Lab) RGBA() (r, g, b, a uint32) {
	return colorful.Lab(c.L/100, c.A/100, c.B/100).Clamped().RGBA()
}

// Chroma is the distance of the color to the neutral (gray) axis.
func (c Lab) Chroma() float64 {
	return math.Hypot(c.A, c.B)
}

// Distance2 is the squared Euclidean distance between two colors.
func (c Lab) Distance2(o Lab) float64 {
	dl := c.L - o.L
	da := c.A - o.A
	db := c.B - o.B
	return dl*dl + da*da + db*db
}

func labModel(c color.Color) color.Color {
	switch c := c.(type) {
	case Lab:
		return c
	case RGB:
		return ToLab(c)
	}
	return ToLab(rgbModel(c).(RGB))
}

// ToLab converts an sRGB color to CIE L*a*b*.
func ToLab(c RGB) Lab {
	return LabFromFloat(float64(c.R), float64(c.G), float64(c.B))
}

// LabFromFloat converts sRGB channel values on the 0-255 scale to CIE L*a*b*.
//
// The channel values don't need to be integral, which is what the lookup table
// grid samples need.
func LabFromFloat(r, g, b float64) Lab {
	l, a, bb := colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Lab()
	return Lab{L: l * 100, A: a * 100, B: bb * 100}
}
