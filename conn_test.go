package epd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/BeatGlow/epd/conn"
)

type testWrite struct {
	data []byte
	dc   gpio.Level
	cs   [2]gpio.Level
}

type testBus struct {
	dc     *gpiotest.Pin
	cs     [2]*gpiotest.Pin
	writes []testWrite
	closed bool
}

func (b *testBus) Write(p []byte) (int, error) {
	w := testWrite{
		data: append([]byte(nil), p...),
		dc:   b.dc.Read(),
	}
	for i, pin := range b.cs {
		if pin != nil {
			w.cs[i] = pin.Read()
		}
	}
	b.writes = append(b.writes, w)
	return len(p), nil
}

func (b *testBus) Close() error {
	b.closed = true
	return nil
}

func (b *testBus) String() string             { return "test" }
func (b *testBus) SetMode(conn.SPIMode) error { return nil }
func (b *testBus) SetMaxSpeed(int) error      { return nil }

func newTestSPIConn(dual bool, batchSize uint) (*spiConn, *testBus, *gpiotest.Pin) {
	var (
		busy = &gpiotest.Pin{N: "BUSY", L: gpio.High}
		bus  = &testBus{
			dc: &gpiotest.Pin{N: "DC", L: gpio.Low},
			cs: [2]*gpiotest.Pin{{N: "CE0", L: gpio.High}},
		}
		config = &SPIConfig{
			BatchSize: batchSize,
			Reset:     &gpiotest.Pin{N: "RST"},
			DC:        bus.dc,
			Busy:      busy,
			BusyLevel: gpio.Low,
			CE:        bus.cs[0],
		}
	)
	if dual {
		bus.cs[1] = &gpiotest.Pin{N: "CE1", L: gpio.High}
		config.CE2 = bus.cs[1]
	}
	return newSPIConn(bus, config), bus, busy
}

func TestSPIConnCommand(t *testing.T) {
	c, bus, _ := newTestSPIConn(false, 0)

	require.NoError(t, c.Command(0x61, 0x04, 0xb0))
	require.Len(t, bus.writes, 2)

	assert.Equal(t, []byte{0x61}, bus.writes[0].data)
	assert.Equal(t, gpio.Low, bus.writes[0].dc, "command is sent with DC low")
	assert.Equal(t, gpio.Low, bus.writes[0].cs[0])

	assert.Equal(t, []byte{0x04, 0xb0}, bus.writes[1].data)
	assert.Equal(t, gpio.High, bus.writes[1].dc, "arguments are sent with DC high")
	assert.Equal(t, gpio.Low, bus.writes[1].cs[0])

	assert.Equal(t, gpio.High, bus.cs[0].Read(), "chip select is released")

	require.NoError(t, c.Data(0x01, 0x02))
	require.Len(t, bus.writes, 3)
	assert.Equal(t, gpio.High, bus.writes[2].dc)

	// Empty data is not sent.
	require.NoError(t, c.Data())
	assert.Len(t, bus.writes, 3)
}

func TestSPIConnSelect(t *testing.T) {
	c, bus, _ := newTestSPIConn(true, 0)

	tests := []struct {
		chip Chip
		want [2]gpio.Level
	}{
		{ChipAll, [2]gpio.Level{gpio.Low, gpio.Low}},
		{ChipPrimary, [2]gpio.Level{gpio.Low, gpio.High}},
		{ChipSecondary, [2]gpio.Level{gpio.High, gpio.Low}},
	}
	for _, x := range tests {
		t.Run(x.chip.String(), func(t *testing.T) {
			bus.writes = nil
			require.NoError(t, c.Select(x.chip))
			require.NoError(t, c.Command(0x10))
			require.Len(t, bus.writes, 1)
			assert.Equal(t, x.want, bus.writes[0].cs)
			assert.Equal(t, gpio.High, bus.cs[0].Read())
			assert.Equal(t, gpio.High, bus.cs[1].Read())
		})
	}

	assert.ErrorIs(t, c.Select(Chip(7)), ErrChip)
}

func TestSPIConnSelectSingle(t *testing.T) {
	c, _, _ := newTestSPIConn(false, 0)
	assert.NoError(t, c.Select(ChipAll))
	assert.NoError(t, c.Select(ChipPrimary))
	assert.ErrorIs(t, c.Select(ChipSecondary), ErrChip)
}

func TestSPIConnChunked(t *testing.T) {
	c, bus, _ := newTestSPIConn(false, 4)

	data := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	require.NoError(t, c.Data(data...))

	var sizes []int
	for _, w := range bus.writes {
		sizes = append(sizes, len(w.data))
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
	assert.Equal(t, []byte{8, 9}, bus.writes[2].data)
}

func TestSPIConnBusy(t *testing.T) {
	c, _, busy := newTestSPIConn(false, 0)
	assert.False(t, c.Busy())
	require.NoError(t, busy.Out(gpio.Low))
	assert.True(t, c.Busy())
}

func TestSPIConnClose(t *testing.T) {
	c, bus, _ := newTestSPIConn(false, 0)
	assert.Equal(t, "SPI bus test", c.String())
	require.NoError(t, c.Close())
	assert.True(t, bus.closed)
}

func TestOpenSPIPins(t *testing.T) {
	tests := []struct {
		name   string
		config SPIConfig
		want   error
	}{
		{"reset", SPIConfig{}, ErrResetPin},
		{"dc", SPIConfig{Reset: &gpiotest.Pin{}}, ErrDCPin},
		{"busy", SPIConfig{Reset: &gpiotest.Pin{}, DC: &gpiotest.Pin{}}, ErrBusyPin},
	}
	for _, x := range tests {
		t.Run(x.name, func(t *testing.T) {
			_, err := OpenSPI(&x.config)
			assert.ErrorIs(t, err, x.want)
		})
	}

	_, err := OpenSPI(&SPIConfig{
		Reset:   &gpiotest.Pin{},
		DC:      &gpiotest.Pin{},
		Busy:    &gpiotest.Pin{},
		SpeedHz: 3_000_000,
	})
	assert.ErrorContains(t, err, "invalid SPI speed")
}

func TestOpenSPIPinLevels(t *testing.T) {
	var (
		dc = &gpiotest.Pin{N: "DC", L: gpio.High}
		ce = &gpiotest.Pin{N: "CE", L: gpio.Low}
	)
	_, err := OpenSPI(&SPIConfig{
		Bus:     99,
		Device:  99,
		Reset:   &gpiotest.Pin{},
		DC:      dc,
		Busy:    &gpiotest.Pin{},
		CE:      ce,
		SpeedHz: 4_000_000,
	})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, gpio.Low, dc.Read(), "DC is an output in command mode")
	assert.Equal(t, gpio.High, ce.Read(), "chip select is released")
}
