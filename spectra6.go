package epd

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"

	"github.com/BeatGlow/epd/conn"
)

const (
	spectra6DefaultWidth       = 1200
	spectra6DefaultHeight      = 1600
	spectra6DefaultBusyTimeout = 60 * time.Second
	spectra6BusyPoll           = 10 * time.Millisecond
	spectra6BatchSize          = 4096
)

// Commands (UC8179 family).
const (
	spectra6PSR             = 0x00 // Panel Setting
	spectra6PWR             = 0x01 // Power Setting
	spectra6POF             = 0x02 // Power Off
	spectra6PON             = 0x04 // Power On
	spectra6BTSTN           = 0x05 // Booster Soft Start, negative
	spectra6BTSTP           = 0x06 // Booster Soft Start, positive
	spectra6DSLP            = 0x07 // Deep Sleep
	spectra6DTM             = 0x10 // Data Start Transmission
	spectra6DRF             = 0x12 // Display Refresh
	spectra6CDI             = 0x50 // VCOM and Data Interval Setting
	spectra6TCON            = 0x60 // TCON Setting
	spectra6TRES            = 0x61 // Resolution Setting
	spectra6ANTM            = 0x74
	spectra6AGID            = 0x86
	spectra6BuckBoostVDDN   = 0xB0
	spectra6TFTVCOMPower    = 0xB1
	spectra6EnableBuffer    = 0xB6
	spectra6BoostVDDPEnable = 0xB7
	spectra6CCSET           = 0xE0
	spectra6PWS             = 0xE3
	spectra6CMDH            = 0xF0
)

// spectra6DeepSleepCheck is the check code of the deep sleep command.
const spectra6DeepSleepCheck = 0xA5

type spectra6 struct {
	indexedDisplay
	dual        bool
	busyTimeout time.Duration
	power       gpio.PinOut
	asleep      bool
}

// Spectra6 drives a Spectra 6 color e-paper panel.
//
// The frame buffer holds panel color codes, which are the slots of the panel palette: black,
// white, yellow, red, an unused code, blue and green.
func Spectra6(c Conn, config *Config) (Display, error) {
	if spi, ok := c.(SPI); ok {
		spi.SetDataLow(false)
		if err := spi.SetMode(conn.SPIMode0); err != nil {
			return nil, err
		}
	}

	if config == nil {
		config = &Config{Dual: true}
	}

	d := &spectra6{
		indexedDisplay: indexedDisplay{
			baseDisplay: baseDisplay{c: c},
		},
	}

	if err := d.init(config); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *spectra6) Close() error {
	if !d.asleep {
		if err := d.Sleep(); err != nil {
			_ = d.c.Close()
			return err
		}
	}
	if d.power != nil {
		if err := d.power.Out(gpio.Low); err != nil {
			_ = d.c.Close()
			return err
		}
	}
	return d.c.Close()
}

func (d *spectra6) String() string {
	bounds := d.Bounds()
	return fmt.Sprintf("Spectra6 %dx%d", bounds.Dx(), bounds.Dy())
}

func (d *spectra6) init(config *Config) (err error) {
	if config.Width == 0 {
		config.Width = spectra6DefaultWidth
	}
	if config.Height == 0 {
		config.Height = spectra6DefaultHeight
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = spectra6DefaultBusyTimeout
	}

	if config.Width < 0 || config.Height < 0 || config.Width%2 != 0 {
		return fmt.Errorf("%w %dx%d, width must be even", ErrSize, config.Width, config.Height)
	}
	if config.Dual && config.Width%4 != 0 {
		return fmt.Errorf("%w %dx%d, width must be a multiple of 4 for two controllers", ErrSize, config.Width, config.Height)
	}

	// init base
	if err = d.indexedDisplay.init(config); err != nil {
		return
	}
	d.dual = config.Dual
	d.busyTimeout = config.BusyTimeout
	d.power = config.Power

	if d.power != nil {
		if err = d.power.Out(gpio.High); err != nil {
			return
		}
	}

	return d.setup()
}

// setup resets the controllers and loads the panel settings.
func (d *spectra6) setup() (err error) {
	// reset the device.
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	time.Sleep(30 * time.Millisecond)
	if err = d.c.Reset(gpio.Low); err != nil {
		return
	}
	time.Sleep(30 * time.Millisecond)
	if err = d.c.Reset(gpio.High); err != nil {
		return
	}
	time.Sleep(30 * time.Millisecond)
	if err = d.wait(); err != nil {
		return
	}

	// Resolution per controller.
	w, h := d.width, d.height
	if d.dual {
		w /= 2
	}

	if err = d.c.Select(ChipPrimary); err != nil {
		return
	}
	if err = d.command(spectra6ANTM, 0xC0, 0x1C, 0x1C, 0xCC, 0xCC, 0xCC, 0x15, 0x15, 0x55); err != nil {
		return
	}

	tres := []byte{spectra6TRES, byte(w >> 8), byte(w), byte(h >> 8), byte(h)}
	if err = d.c.Select(ChipAll); err != nil {
		return
	}
	if err = d.commands(
		[]byte{spectra6CMDH, 0x49, 0x55, 0x13, 0x5D, 0x05, 0x10}, // Vendor command
		[]byte{spectra6PSR, 0xDF, 0x69},                          // Panel Setting
		[]byte{spectra6CDI, 0xF7},                                // VCOM and Data Interval: white border
		[]byte{spectra6TCON, 0x03, 0x03},                         // Gate/source non-overlap
		[]byte{spectra6AGID, 0x10},                               // Gate ID
		[]byte{spectra6PWS, 0x22},                                // Power Saving
		[]byte{spectra6CCSET, 0x01},                              // Cascade setting
		tres,                                                     // Resolution
	); err != nil {
		return
	}

	if err = d.c.Select(ChipPrimary); err != nil {
		return
	}
	if err = d.commands(
		[]byte{spectra6PWR, 0x0F, 0x00, 0x28, 0x2C, 0x28, 0x38}, // Power Setting
		[]byte{spectra6EnableBuffer, 0x07},                      // Enable buffer
		[]byte{spectra6BTSTP, 0xE8, 0x28},                       // Booster Soft Start, positive
		[]byte{spectra6BoostVDDPEnable, 0x01},                   // Boost VDDP
		[]byte{spectra6BTSTN, 0xE8, 0x28},                       // Booster Soft Start, negative
		[]byte{spectra6BuckBoostVDDN, 0x01},                     // Buck boost VDDN
		[]byte{spectra6TFTVCOMPower, 0x02},                      // TFT VCOM power
	); err != nil {
		return
	}

	d.asleep = false
	return d.c.Select(ChipAll)
}

// wait blocks while the panel reports busy.
func (d *spectra6) wait() error {
	start := time.Now()
	for d.c.Busy() {
		if time.Since(start) > d.busyTimeout {
			return fmt.Errorf("%w after %s", ErrBusyTimeout, d.busyTimeout)
		}
		time.Sleep(spectra6BusyPoll)
	}
	if debug {
		log.WithField("took", time.Since(start)).Debug("epd: panel ready")
	}
	return nil
}

// Refresh uploads the frame buffer and redraws the panel using the internal frame buffer.
func (d *spectra6) Refresh() (err error) {
	if d.asleep {
		if err = d.setup(); err != nil {
			return
		}
	}

	start := time.Now()
	if d.dual {
		half := d.buf.Stride / 2
		if err = d.upload(ChipPrimary, 0, half); err != nil {
			return
		}
		if err = d.upload(ChipSecondary, half, half); err != nil {
			return
		}
	} else if err = d.upload(ChipAll, 0, d.buf.Stride); err != nil {
		return
	}

	if err = d.c.Select(ChipAll); err != nil {
		return
	}
	if err = d.command(spectra6PON); err != nil {
		return
	}
	if err = d.wait(); err != nil {
		return
	}
	if err = d.command(spectra6DRF, 0x00); err != nil {
		return
	}
	if err = d.wait(); err != nil {
		return
	}
	if err = d.command(spectra6POF, 0x00); err != nil {
		return
	}
	if err = d.wait(); err != nil {
		return
	}

	log.WithFields(log.Fields{
		"display": d.String(),
		"took":    time.Since(start),
	}).Debug("epd: refreshed")
	return nil
}

// upload sends n bytes of every frame buffer row, starting at offset, to the selected
// controllers.
func (d *spectra6) upload(chip Chip, offset, n int) error {
	if err := d.c.Select(chip); err != nil {
		return err
	}
	if err := d.command(spectra6DTM); err != nil {
		return err
	}

	pix := d.buf.Pix
	if offset != 0 || n != d.buf.Stride {
		pix = make([]byte, 0, n*d.height)
		for y := 0; y < d.height; y++ {
			o := y*d.buf.Stride + offset
			pix = append(pix, d.buf.Pix[o:o+n]...)
		}
	}

	for i, l := 0, len(pix); i < l; i += spectra6BatchSize {
		j := min(i+spectra6BatchSize, l)
		if err := d.data(pix[i:j]...); err != nil {
			return err
		}
	}
	return nil
}

func (d *spectra6) Sleep() error {
	if d.asleep {
		return nil
	}
	if err := d.c.Select(ChipAll); err != nil {
		return err
	}
	if err := d.command(spectra6DSLP, spectra6DeepSleepCheck); err != nil {
		return err
	}
	d.asleep = true
	return nil
}
