// Package epd contains drivers for multi-color e-paper panels.
package epd

import (
	"errors"
	"image"
	"image/color"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/epd/palette"
)

var debug bool

func init() {
	debug = os.Getenv("EPD_DEBUG") != ""
}

// Errors
var (
	ErrBounds      = errors.New("epd: image does not match display bounds")
	ErrBusyTimeout = errors.New("epd: timeout waiting for the panel")
	ErrSize        = errors.New("epd: invalid display size")
)

// Rotation defines pixel rotation.
type Rotation uint8

// Supported rotations.
const (
	NoRotation Rotation = iota
	Rotate90            // Rotate 90° clock wise
	Rotate180           // Rotate 180°
	Rotate270           // Rotate 270° clock wise
)

func (r Rotation) String() string {
	switch r % 4 {
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return "0°"
	}
}

// Display is an e-paper display.
//
// Drawing only changes the frame buffer, the panel is updated by Refresh.
type Display interface {
	// Close the display driver, the panel is put to sleep first.
	Close() error

	// Clear the display buffer to white.
	Clear()

	// At returns the color of the pixel at (x, y).
	At(x, y int) color.Color

	// Set the pixel color at (x, y).
	Set(x, y int, c color.Color)

	// Bounds is the display bounding box (dimensions), after rotation.
	Bounds() image.Rectangle

	// ColorModel used by the display.
	ColorModel() color.Model

	// Draw copies a paletted image into the display buffer.
	//
	// The image must have the size of the display. A color of the source palette resolves to
	// its first source slot, a panel color to its panel slot, any other color to the nearest
	// panel color. Reserved slots are never used.
	Draw(*image.Paletted) error

	// Refresh uploads the frame buffer and redraws the panel.
	Refresh() error

	// Sleep puts the panel in deep sleep. The next Refresh wakes it up.
	Sleep() error
}

// Config is the display configuration.
type Config struct {
	// Width of the display in pixels.
	Width int

	// Height of the display in pixels.
	Height int

	// Rotation of the display.
	Rotation Rotation

	// Palette is the panel palette, the slot of a color is the code sent to the panel.
	// Nil uses [palette.Spectra6Panel].
	Palette *palette.Palette

	// Source is the palette images are dithered to, slot for slot with Palette. Slots that
	// repeat an earlier Source color are reserved and never written. Nil uses
	// [palette.Spectra6] with the default panel palette, and Palette otherwise.
	Source *palette.Palette

	// Dual splits the panel columns over two controllers.
	Dual bool

	// BusyTimeout bounds every wait for the panel.
	BusyTimeout time.Duration

	// Power pin, optional.
	Power gpio.PinOut
}

type baseDisplay struct {
	c        Conn
	width    int
	height   int
	rotation Rotation
}

func (d *baseDisplay) data(data ...byte) error {
	return d.c.Data(data...)
}

func (d *baseDisplay) command(command byte, data ...byte) error {
	return d.c.Command(command, data...)
}

func (d *baseDisplay) commands(commands ...[]byte) (err error) {
	for _, command := range commands {
		if err = d.c.Command(command[0], command[1:]...); err != nil {
			return
		}
	}
	return
}

func (d *baseDisplay) Bounds() image.Rectangle {
	if d.rotation&1 == 1 {
		return image.Rect(0, 0, d.height, d.width)
	}
	return image.Rect(0, 0, d.width, d.height)
}

// physical maps display coordinates to panel coordinates.
func (d *baseDisplay) physical(x, y int) (int, int) {
	switch d.rotation & 3 {
	case Rotate90:
		return d.width - 1 - y, x
	case Rotate180:
		return d.width - 1 - x, d.height - 1 - y
	case Rotate270:
		return y, d.height - 1 - x
	default:
		return x, y
	}
}
