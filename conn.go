package epd

import (
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/BeatGlow/epd/conn"
)

// Conn errors.
var (
	ErrResetPin = errors.New("epd: reset GPIO pin is invalid")
	ErrDCPin    = errors.New("epd: data/command (DC) GPIO pin is invalid")
	ErrBusyPin  = errors.New("epd: busy GPIO pin is invalid")
	ErrChip     = errors.New("epd: chip select is not available")
)

// Chip selects the panel controllers addressed by commands and data.
type Chip uint8

// Chips.
const (
	ChipAll Chip = iota
	ChipPrimary
	ChipSecondary
)

func (c Chip) String() string {
	switch c {
	case ChipPrimary:
		return "primary"
	case ChipSecondary:
		return "secondary"
	default:
		return "all"
	}
}

// Conn is the connection interface for communicating with hardware.
type Conn interface {
	String() string

	// Close the connection.
	Close() error

	// Reset sets the reset pin to the provided level.
	Reset(gpio.Level) error

	// Busy reports if the panel is busy.
	Busy() bool

	// Select the controllers for the following commands.
	Select(Chip) error

	// Command sends a command byte with optional arguments.
	Command(byte, ...byte) error

	// Data sends data bytes.
	Data(...byte) error
}

type SPI interface {
	Conn

	// SetDataLow changes the data/command direction behaviour.
	SetDataLow(bool)

	// SetMode requests a SPI mode.
	SetMode(mode conn.SPIMode) error

	// SetMaxSpeed requests a SPI speed.
	SetMaxSpeed(hz int) error
}

// SPIConfig describes the SPI bus configuration.
type SPIConfig struct {
	Bus       int
	Device    int
	Mode      uint8
	SpeedHz   uint32
	DataLow   bool
	BatchSize uint
	Reset     gpio.PinOut
	DC        gpio.PinOut
	Busy      gpio.PinIn

	// BusyLevel is the level of the busy pin while the panel is busy.
	BusyLevel gpio.Level

	// CE is the chip select of the primary controller, CE2 of the secondary controller.
	CE  gpio.PinOut
	CE2 gpio.PinOut
}

// DefaultSPIConfig are the default configuration values.
var DefaultSPIConfig = SPIConfig{
	Bus:       0,
	Device:    0,
	Mode:      0,
	SpeedHz:   4_000_000,
	BatchSize: 4096,
	Reset:     gpioreg.ByName("GPIO17"),
	DC:        gpioreg.ByName("GPIO25"),
	Busy:      gpioreg.ByName("GPIO24"),
	BusyLevel: gpio.Low,
}

// ValidSPISpeeds are common valid SPI bus speeds.
var ValidSPISpeeds = []uint32{
	500_000,
	1_000_000,
	2_000_000,
	4_000_000,
	8_000_000,
	10_000_000,
	16_000_000,
	20_000_000,
}

// spiBus is the part of [conn.SPI] used by spiConn.
type spiBus interface {
	io.Writer
	Close() error
	String() string
	SetMode(conn.SPIMode) error
	SetMaxSpeed(int) error
}

type spiConn struct {
	bus       spiBus
	reset     gpio.PinOut
	dc        gpio.PinOut
	dcLevel   gpio.Level
	busy      gpio.PinIn
	busyLevel gpio.Level
	cs        [2]gpio.PinOut
	chip      Chip
	dataLow   bool
	batchSize uint
}

func OpenSPI(config *SPIConfig) (Conn, error) {
	if config == nil {
		config = new(SPIConfig)
		*config = DefaultSPIConfig
	}

	if config.Reset == nil || config.Reset == gpio.INVALID {
		return nil, ErrResetPin
	}
	if config.DC == nil || config.DC == gpio.INVALID {
		return nil, ErrDCPin
	}
	if config.Busy == nil || config.Busy == gpio.INVALID {
		return nil, ErrBusyPin
	}

	if config.SpeedHz == 0 {
		config.SpeedHz = DefaultSPIConfig.SpeedHz
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultSPIConfig.BatchSize
	}

	var valid bool
	for _, speed := range ValidSPISpeeds {
		if valid = speed == config.SpeedHz; valid {
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("epd: invalid SPI speed %s", physic.Frequency(config.SpeedHz)*physic.Hertz)
	}

	if err := config.Busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}

	// DC starts in command mode, matching the initial level of spiConn.
	if err := config.DC.Out(gpio.Low); err != nil {
		return nil, err
	}
	for _, pin := range []gpio.PinOut{config.CE, config.CE2} {
		if pin == nil {
			continue
		}
		if err := pin.Out(gpio.High); err != nil {
			return nil, err
		}
	}

	c, err := conn.OpenSPI(config.Bus, config.Device)
	if err != nil {
		return nil, err
	}
	if err = c.Configure(conn.SPIMode(config.Mode), 8, int(config.SpeedHz)); err != nil {
		_ = c.Close()
		return nil, err
	}

	return newSPIConn(c, config), nil
}

func newSPIConn(bus spiBus, config *SPIConfig) *spiConn {
	batchSize := config.BatchSize
	if batchSize == 0 {
		batchSize = DefaultSPIConfig.BatchSize
	}
	return &spiConn{
		bus:       bus,
		batchSize: batchSize,
		dataLow:   config.DataLow,
		reset:     config.Reset,
		dc:        config.DC,
		busy:      config.Busy,
		busyLevel: config.BusyLevel,
		cs:        [2]gpio.PinOut{config.CE, config.CE2},
	}
}

func (c *spiConn) String() string {
	return fmt.Sprintf("SPI bus %s", c.bus)
}

func (c *spiConn) Close() error {
	return c.bus.Close()
}

func (c *spiConn) Reset(level gpio.Level) error {
	return c.reset.Out(level)
}

func (c *spiConn) Busy() bool {
	return c.busy.Read() == c.busyLevel
}

func (c *spiConn) Select(chip Chip) error {
	switch chip {
	case ChipAll, ChipPrimary:
	case ChipSecondary:
		if c.cs[1] == nil {
			return fmt.Errorf("%w: %s", ErrChip, chip)
		}
	default:
		return fmt.Errorf("%w: %d", ErrChip, chip)
	}
	c.chip = chip
	return nil
}

func (c *spiConn) updateDC(level gpio.Level) error {
	if c.dcLevel != level {
		if err := c.dc.Out(level); err != nil {
			return err
		}
		c.dcLevel = level
	}
	return nil
}

func (c *spiConn) updateCS(level gpio.Level) error {
	for i, pin := range c.cs {
		if pin == nil {
			continue
		}
		if level == gpio.Low && !c.selected(i) {
			continue
		}
		if err := pin.Out(level); err != nil {
			return err
		}
	}
	return nil
}

func (c *spiConn) selected(i int) bool {
	switch c.chip {
	case ChipPrimary:
		return i == 0
	case ChipSecondary:
		return i == 1
	default:
		return true
	}
}

func (c *spiConn) Command(cmnd byte, data ...byte) (err error) {
	if debug {
		log.WithFields(log.Fields{
			"command": fmt.Sprintf("%#02x", cmnd),
			"chip":    c.chip,
			"size":    len(data),
		}).Debug("epd: command")
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	if err = c.updateDC(gpio.Level(c.dataLow)); err != nil {
		return
	}
	if _, err = c.bus.Write([]byte{cmnd}); err != nil {
		return
	}
	if len(data) > 0 {
		if err = c.updateDC(gpio.Level(!c.dataLow)); err != nil {
			return
		}
		if err = c.writeChunked(data); err != nil {
			return
		}
	}
	if err = c.updateCS(gpio.High); err != nil {
		return
	}
	return
}

func (c *spiConn) Data(data ...byte) (err error) {
	if len(data) == 0 {
		return
	}
	if err = c.updateDC(gpio.Level(!c.dataLow)); err != nil {
		return
	}
	if err = c.updateCS(gpio.Low); err != nil {
		return
	}
	if err = c.writeChunked(data); err != nil {
		return
	}
	if err = c.updateCS(gpio.High); err != nil {
		return
	}
	return
}

func (c *spiConn) writeChunked(data []byte) (err error) {
	if len(data) < int(c.batchSize) {
		_, err = c.bus.Write(data)
		return
	}

	if debug {
		log.WithFields(log.Fields{
			"size":   len(data),
			"chunks": (len(data) + int(c.batchSize) - 1) / int(c.batchSize),
		}).Debug("epd: chunked write")
	}
	buffer := data
	for len(buffer) > 0 {
		n := min(len(buffer), int(c.batchSize))
		if _, err = c.bus.Write(buffer[:n]); err != nil {
			return
		}
		buffer = buffer[n:]
	}
	return
}

func (c *spiConn) SetDataLow(v bool) {
	c.dataLow = v
}

func (c *spiConn) SetMode(mode conn.SPIMode) error {
	return c.bus.SetMode(mode)
}

func (c *spiConn) SetMaxSpeed(hz int) error {
	return c.bus.SetMaxSpeed(hz)
}
