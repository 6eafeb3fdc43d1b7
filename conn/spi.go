// Package conn implements the Linux spidev transport.
package conn

import (
	"fmt"
	"os"

	"github.com/BeatGlow/epd/internal/ioctl"
)

// Definitions from <spi/spidev.h>
const (
	spiCPHA = 0x01
	spiCPOL = 0x02
)

type SPIMode uint8

const (
	SPIMode0 SPIMode = (0 | 0)             //nolint:staticcheck
	SPIMode1 SPIMode = (0 | spiCPHA)       //nolint:staticcheck
	SPIMode2 SPIMode = (spiCPOL | 0)       //nolint:staticcheck
	SPIMode3 SPIMode = (spiCPOL | spiCPHA) //nolint:staticcheck
)

const (
	spiIOCMode        = 0x6b01
	spiIOCBitsPerWord = 0x6b03
	spiIOCMaxSpeedHz  = 0x6b04
)

// spiDevPath is the prefix of the spidev device nodes, followed by "<bus>.<device>".
const spiDevPath = "/dev/spidev"

// SPI is an open spidev device node.
type SPI struct {
	f           *os.File
	fd          uintptr
	mode        SPIMode
	bitsPerWord uint8
	maxSpeedHz  uint32
}

// OpenSPI opens /dev/spidev<bus>.<device> and reads its current settings. Panels with their
// own chip select GPIOs can use any device of the bus.
func OpenSPI(bus, device int) (*SPI, error) {
	spidev := fmt.Sprintf("%s%d.%d", spiDevPath, bus, device)
	f, err := os.OpenFile(spidev, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	c := &SPI{
		f:  f,
		fd: f.Fd(),
	}
	for _, x := range []struct {
		cmd uintptr
		ptr any
	}{
		{spiIOCMode, &c.mode},
		{spiIOCBitsPerWord, &c.bitsPerWord},
		{spiIOCMaxSpeedHz, &c.maxSpeedHz},
	} {
		if err = ioctl.Do(c.fd, ioctl.Pointer(ioctl.Read, x.ptr, x.cmd), x.ptr); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("conn: %s: %w", spidev, err)
		}
	}

	return c, nil
}

// Configure sets mode, word size and clock speed in one go.
func (c *SPI) Configure(mode SPIMode, bits uint8, hz int) error {
	if err := c.SetMode(mode); err != nil {
		return err
	}
	if err := c.SetBitsPerWord(bits); err != nil {
		return err
	}
	return c.SetMaxSpeed(hz)
}

func (c *SPI) Close() error {
	return c.f.Close()
}

func (c *SPI) String() string {
	return fmt.Sprintf("spidev mode=%d bits=%d speed=%dHz", c.mode, c.bitsPerWord, c.maxSpeedHz)
}

// SetMode sets the clock polarity and phase, and reads it back to verify.
func (c *SPI) SetMode(mode SPIMode) error {
	mode &= 0x0f

	if err := ioctl.Do(c.fd, ioctl.Pointer(ioctl.Write, &mode, spiIOCMode), &mode); err != nil {
		return err
	}

	var test SPIMode
	if err := ioctl.Do(c.fd, ioctl.Pointer(ioctl.Read, &test, spiIOCMode), &test); err != nil {
		return err
	}

	if test != mode {
		return fmt.Errorf("conn: SPI attempted to set mode %#02x, but mode %#02x is in use", mode, test)
	}

	c.mode = mode
	return nil
}

// SetBitsPerWord sets the word size of transfers, panel controllers use 8.
func (c *SPI) SetBitsPerWord(bits uint8) error {
	if bits < 8 || bits > 32 {
		return fmt.Errorf("conn: SPI bits per word need to be 8 or more and 32 or less, got %d", bits)
	}

	if c.bitsPerWord != bits {
		if err := ioctl.Do(c.fd, ioctl.Pointer(ioctl.Write, &bits, spiIOCBitsPerWord), &bits); err != nil {
			return err
		}
		c.bitsPerWord = bits
	}

	return nil
}

// SetMaxSpeed sets the clock speed in Hz, negative values are ignored.
func (c *SPI) SetMaxSpeed(v int) error {
	if v < 0 {
		return nil
	}

	u := uint32(v)
	if c.maxSpeedHz != u {
		if err := ioctl.Do(c.fd, ioctl.Pointer(ioctl.Write, &u, spiIOCMaxSpeedHz), &u); err != nil {
			return err
		}
		c.maxSpeedHz = u
	}

	return nil
}

// Write sends b in a single half-duplex transfer.
func (c *SPI) Write(b []byte) (n int, err error) {
	return c.f.Write(b)
}
