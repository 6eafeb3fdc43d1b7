// Package config loads the TOML configuration of the epd command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/pelletier/go-toml"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/BeatGlow/epd"
	"github.com/BeatGlow/epd/dither"
	"github.com/BeatGlow/epd/lut"
	"github.com/BeatGlow/epd/palette"
)

// Errors
var (
	ErrInvalid = errors.New("config: invalid value")
	ErrPin     = errors.New("config: unknown GPIO pin")
)

// Config holds the configuration data from configuration files or flags.
type Config struct {
	Main    Main    `toml:"main"`
	Dither  Dither  `toml:"dither"`
	Palette Palette `toml:"palette"`
	Prepare Prepare `toml:"prepare"`
	Panel   Panel   `toml:"panel"`
}

type Main struct {
	LogLevel string `toml:"log_level"`
	Jobs     int    `toml:"jobs"`
}

// Dither settings. Zero thresholds use the defaults of the color space.
type Dither struct {
	Space            string  `toml:"space"`
	Diffuse          bool    `toml:"diffuse"`
	Serpentine       bool    `toml:"serpentine"`
	LockNeutrals     bool    `toml:"lock_neutrals"`
	NeutralThreshold float64 `toml:"neutral_threshold"`
	WhiteLock        float64 `toml:"white_lock"`
	BlackLock        float64 `toml:"black_lock"`
	WhiteIndex       int     `toml:"white_index"`
	BlackIndex       int     `toml:"black_index"`
	LUTBits          int     `toml:"lut_bits"`
}

// Palette settings, as flat R, G, B lists. Empty lists use the Spectra 6 palettes.
type Palette struct {
	Processing []int `toml:"processing"`
	Panel      []int `toml:"panel"`
}

// Prepare settings for decoded images.
type Prepare struct {
	Enhance      bool    `toml:"enhance"`
	AutoContrast float64 `toml:"auto_contrast"`
	Brightness   float64 `toml:"brightness"`
	Contrast     float64 `toml:"contrast"`
	Vibrance     float64 `toml:"vibrance"`
	Saturation   float64 `toml:"saturation"`
	Gamma        float64 `toml:"gamma"`
	Sharpen      bool    `toml:"sharpen"`
}

// Panel settings.
type Panel struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	Rotation    int    `toml:"rotation"`
	Dual        bool   `toml:"dual"`
	BusyTimeout string `toml:"busy_timeout"`
	SPIBus      int    `toml:"spi_bus"`
	SPIDevice   int    `toml:"spi_device"`
	SPISpeed    int    `toml:"spi_speed"`
	ResetPin    string `toml:"reset_pin"`
	DCPin       string `toml:"dc_pin"`
	BusyPin     string `toml:"busy_pin"`
	CEPin       string `toml:"ce_pin"`
	CE2Pin      string `toml:"ce2_pin"`
	PowerPin    string `toml:"power_pin"`
}

// Default returns the default configuration values, a configuration file is decoded on top
// of them.
func Default() Config {
	return Config{
		Main: Main{
			LogLevel: "info",
			Jobs:     runtime.NumCPU(),
		},
		Dither: Dither{
			Space:        "rgb",
			Diffuse:      true,
			Serpentine:   true,
			LockNeutrals: true,
			WhiteIndex:   dither.DefaultConfig.WhiteIndex,
			BlackIndex:   dither.DefaultConfig.BlackIndex,
			LUTBits:      lut.DefaultBits,
		},
		Prepare: Prepare{
			Enhance:      false,
			AutoContrast: 2,
			Brightness:   5,
			Contrast:     10,
			Vibrance:     0.35,
			Saturation:   15,
			Gamma:        1.25,
			Sharpen:      true,
		},
		Panel: Panel{
			Width:       1200,
			Height:      1600,
			Dual:        true,
			BusyTimeout: "60s",
			SPISpeed:    int(epd.DefaultSPIConfig.SpeedHz),
			ResetPin:    "GPIO17",
			DCPin:       "GPIO25",
			BusyPin:     "GPIO24",
			CEPin:       "GPIO8",
			CE2Pin:      "GPIO7",
		},
	}
}

// Load reads the configuration file, an empty filename returns the defaults.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return &c, nil
	}

	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if err = Decode(fd, &c); err != nil {
		return nil, fmt.Errorf("config: error loading %s: %w", filename, err)
	}
	return &c, nil
}

// Decode a TOML document on top of c.
func Decode(r io.Reader, c *Config) error {
	dec := toml.NewDecoder(r)
	return dec.Decode(c)
}

// Write the configuration as TOML.
func Write(w io.Writer, c *Config) error {
	enc := toml.NewEncoder(w).
		ArraysWithOneElementPerLine(true).
		Indentation("  ").
		Order(toml.OrderPreserve)
	return enc.Encode(*c)
}

// DitherConfig returns the dither configuration. The lock indices are checked against the
// processing palette.
func (c *Config) DitherConfig() (*dither.Config, error) {
	space, err := lut.ParseSpace(c.Dither.Space)
	if err != nil {
		return nil, err
	}

	config := new(dither.Config)
	if space == lut.Perceptual {
		*config = dither.DefaultPerceptualConfig
	} else {
		*config = dither.DefaultConfig
	}
	config.Serpentine = c.Dither.Serpentine
	config.LockNeutrals = c.Dither.LockNeutrals
	config.WhiteIndex = c.Dither.WhiteIndex
	config.BlackIndex = c.Dither.BlackIndex
	config.Bits = c.Dither.LUTBits
	if c.Dither.NeutralThreshold != 0 {
		config.NeutralThreshold = c.Dither.NeutralThreshold
	}
	if c.Dither.WhiteLock != 0 {
		config.WhiteLock = c.Dither.WhiteLock
	}
	if c.Dither.BlackLock != 0 {
		config.BlackLock = c.Dither.BlackLock
	}

	processing, _, err := c.Palettes()
	if err != nil {
		return nil, err
	}
	if err = config.Validate(processing); err != nil {
		return nil, err
	}
	return config, nil
}

// Palettes returns the processing and panel palettes.
func (c *Config) Palettes() (processing, panel *palette.Palette, err error) {
	if processing, err = parsePalette(c.Palette.Processing, palette.Spectra6); err != nil {
		return nil, nil, fmt.Errorf("processing palette: %w", err)
	}
	if panel, err = parsePalette(c.Palette.Panel, palette.Spectra6Panel); err != nil {
		return nil, nil, fmt.Errorf("panel palette: %w", err)
	}
	return
}

func parsePalette(values []int, fallback func() *palette.Palette) (*palette.Palette, error) {
	if len(values) == 0 {
		return fallback(), nil
	}
	flat := make([]uint8, len(values))
	for i, v := range values {
		if v < 0 || v > 0xff {
			return nil, fmt.Errorf("%w: channel value %d out of range", palette.ErrInvalidPalette, v)
		}
		flat[i] = uint8(v)
	}
	return palette.New(flat...)
}

// Rotation returns the panel rotation.
func (c *Config) Rotation() (epd.Rotation, error) {
	switch c.Panel.Rotation {
	case 0:
		return epd.NoRotation, nil
	case 90:
		return epd.Rotate90, nil
	case 180:
		return epd.Rotate180, nil
	case 270:
		return epd.Rotate270, nil
	default:
		return 0, fmt.Errorf("%w: rotation %d, expected 0, 90, 180 or 270", ErrInvalid, c.Panel.Rotation)
	}
}

// DisplayConfig returns the display configuration. GPIO pins are looked up by name, the
// host drivers must be initialized.
func (c *Config) DisplayConfig() (*epd.Config, error) {
	rotation, err := c.Rotation()
	if err != nil {
		return nil, err
	}
	processing, panel, err := c.Palettes()
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if c.Panel.BusyTimeout != "" {
		if timeout, err = time.ParseDuration(c.Panel.BusyTimeout); err != nil {
			return nil, fmt.Errorf("%w: busy timeout: %w", ErrInvalid, err)
		}
	}

	config := &epd.Config{
		Width:       c.Panel.Width,
		Height:      c.Panel.Height,
		Rotation:    rotation,
		Palette:     panel,
		Source:      processing,
		Dual:        c.Panel.Dual,
		BusyTimeout: timeout,
	}
	if c.Panel.PowerPin != "" {
		if config.Power, err = pin(c.Panel.PowerPin); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// SPIConfig returns the SPI bus configuration. GPIO pins are looked up by name, the host
// drivers must be initialized.
func (c *Config) SPIConfig() (*epd.SPIConfig, error) {
	config := new(epd.SPIConfig)
	*config = epd.DefaultSPIConfig
	config.Bus = c.Panel.SPIBus
	config.Device = c.Panel.SPIDevice
	config.SpeedHz = uint32(c.Panel.SPISpeed)

	var err error
	for _, x := range []struct {
		name string
		set  func(gpio.PinIO)
	}{
		{c.Panel.ResetPin, func(p gpio.PinIO) { config.Reset = p }},
		{c.Panel.DCPin, func(p gpio.PinIO) { config.DC = p }},
		{c.Panel.BusyPin, func(p gpio.PinIO) { config.Busy = p }},
		{c.Panel.CEPin, func(p gpio.PinIO) { config.CE = p }},
		{c.Panel.CE2Pin, func(p gpio.PinIO) { config.CE2 = p }},
	} {
		if x.name == "" {
			continue
		}
		var p gpio.PinIO
		if p, err = pin(x.name); err != nil {
			return nil, err
		}
		x.set(p)
	}
	return config, nil
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w %q", ErrPin, name)
	}
	return p, nil
}
