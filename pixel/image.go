package pixel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ErrBufferSize is returned if a pixel buffer doesn't match the image dimensions.
var ErrBufferSize = errors.New("pixel: buffer size does not match image dimensions")

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by most image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	for i := range p.Pix {
		p.Pix[i] = 0x00
	}
}

func makeBuffer(w, h, stride, size int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, size),
		Stride: stride,
	}
}

// RGBImage is a 24-bits per pixel packed RGB image, three bytes per pixel in R, G, B order.
type RGBImage struct {
	Buffer
}

func NewRGBImage(w, h int) *RGBImage {
	return &RGBImage{
		Buffer: makeBuffer(w, h, w*3, w*3*h),
	}
}

// FromRGB wraps a packed RGB buffer of w×h pixels without copying it.
func FromRGB(w, h int, pix []byte) (*RGBImage, error) {
	if w < 0 || h < 0 || len(pix) != w*h*3 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d pixels", ErrBufferSize, len(pix), w, h)
	}
	return &RGBImage{
		Buffer: Buffer{
			Rect:   image.Rect(0, 0, w, h),
			Pix:    pix,
			Stride: w * 3,
		},
	}, nil
}

func (p *RGBImage) ColorModel() color.Model {
	return RGBModel
}

func (p *RGBImage) PixOffset(x, y int) int {
	return y*p.Stride + x*3
}

func (p *RGBImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}
	return p.RGBAt(x, y)
}

// RGBAt returns the pixel at (x, y), the zero color if it is out of bounds.
func (p *RGBImage) RGBAt(x, y int) RGB {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return RGB{}
	}

	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return RGB{R: s[0], G: s[1], B: s[2]}
}

func (p *RGBImage) Set(x, y int, c color.Color) {
	p.SetRGB(x, y, rgbModel(c).(RGB))
}

// SetRGB sets the pixel at (x, y).
func (p *RGBImage) SetRGB(x, y int, c RGB) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	s[0], s[1], s[2] = c.R, c.G, c.B
}

func (p *RGBImage) Fill(c color.Color) {
	v := rgbModel(c).(RGB)
	for i, l := 0, len(p.Pix); i+2 < l; i += 3 {
		p.Pix[i+0] = v.R
		p.Pix[i+1] = v.G
		p.Pix[i+2] = v.B
	}
}

// Index4Image is a 4-bits per pixel palette-indexed image.
//
// Two pixels share one byte, the left pixel in the high nibble. This is the RAM layout of
// most multi-color e-paper panels, where the index is the color code sent to the panel.
type Index4Image struct {
	Buffer

	// Palette maps indices to colors, it holds at most 16 colors.
	Palette color.Palette
}

func NewIndex4Image(w, h int, p color.Palette) *Index4Image {
	if len(p) > 16 {
		p = p[:16]
	}
	return &Index4Image{
		Buffer:  makeBuffer(w, h, (w+1)/2, h*((w+1)/2)),
		Palette: p,
	}
}

func (p *Index4Image) ColorModel() color.Model {
	return p.Palette
}

func (p *Index4Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	i := int(p.IndexAt(x, y))
	if i >= len(p.Palette) {
		return color.Transparent
	}
	return p.Palette[i]
}

// IndexAt returns the palette index at (x, y).
func (p *Index4Image) IndexAt(x, y int) uint8 {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return 0
	}

	index := y*p.Stride + x>>1
	if x%2 == 0 {
		return p.Pix[index] >> 4
	}
	return p.Pix[index] & 0xf
}

func (p *Index4Image) Set(x, y int, c color.Color) {
	if len(p.Palette) == 0 {
		return
	}
	p.SetIndex(x, y, uint8(p.Palette.Index(c)))
}

// SetIndex sets the palette index at (x, y).
func (p *Index4Image) SetIndex(x, y int, index uint8) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	offset := y*p.Stride + x>>1
	index &= 0xf
	if x%2 == 0 {
		p.Pix[offset] = (p.Pix[offset] & 0x0f) | index<<4
	} else {
		p.Pix[offset] = (p.Pix[offset] & 0xf0) | index
	}
}

func (p *Index4Image) Fill(c color.Color) {
	if len(p.Palette) == 0 {
		return
	}
	p.FillIndex(uint8(p.Palette.Index(c)))
}

// FillIndex sets all pixels to one palette index.
func (p *Index4Image) FillIndex(index uint8) {
	value := index & 0xf
	value |= value << 4
	for i := range p.Pix {
		p.Pix[i] = value
	}
}

// Interface checks.
var (
	_ Image = (*RGBImage)(nil)
	_ Image = (*Index4Image)(nil)
)
