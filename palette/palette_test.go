package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/epd/pixel"
)

func TestNew(t *testing.T) {
	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name string
			flat []uint8
		}{
			{"empty", nil},
			{"short", []uint8{0, 0}},
			{"partial", []uint8{0, 0, 0, 255}},
		}
		for _, x := range tests {
			t.Run(x.name, func(t *testing.T) {
				p, err := New(x.flat...)
				assert.Nil(t, p)
				assert.ErrorIs(t, err, ErrInvalidPalette)
			})
		}
	})

	t.Run("too many colors", func(t *testing.T) {
		flat := make([]uint8, 0, (MaxColors+1)*3)
		for i := 0; i <= MaxColors; i++ {
			flat = append(flat, uint8(i), uint8(i>>8), 0)
		}
		_, err := New(flat...)
		assert.ErrorIs(t, err, ErrInvalidPalette)
	})

	t.Run("spectra6", func(t *testing.T) {
		p, err := New(
			0, 0, 0,
			255, 255, 255,
			255, 255, 0,
			255, 0, 0,
			0, 0, 0,
			0, 0, 255,
			0, 255, 0,
		)
		require.NoError(t, err)

		assert.Equal(t, 7, p.Len())
		assert.Equal(t, []pixel.RGB{
			{R: 0, G: 0, B: 0},
			{R: 255, G: 255, B: 255},
			{R: 255, G: 255, B: 0},
			{R: 255, G: 0, B: 0},
			{R: 0, G: 0, B: 255},
			{R: 0, G: 255, B: 0},
		}, p.Distinct())
		assert.Equal(t, p.Index(0), p.Index(4))
		assert.Equal(t, 0, p.Index(4))
		assert.Equal(t, 4, p.Index(5))
		assert.Equal(t, 5, p.Index(6))
		assert.Equal(t, 0, p.Slot(0))
		assert.Equal(t, 5, p.Slot(4))
		assert.Equal(t, 6, p.Slot(5))
		assert.Len(t, p.Lab(), 6)
		assert.InDelta(t, 100, p.Lab()[1].L, 0.01)
		assert.Len(t, p.ColorPalette(), 6)
	})
}

func TestPaletteKey(t *testing.T) {
	a, err := New(0, 0, 0, 255, 255, 255)
	require.NoError(t, err)
	b, err := New(0, 0, 0, 255, 255, 255)
	require.NoError(t, err)
	c, err := New(255, 255, 255, 0, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.Equal(t, []uint8{0, 0, 0, 255, 255, 255}, a.Flat())
}

func TestNearest(t *testing.T) {
	p := Spectra6()
	tests := []struct {
		c    pixel.RGB
		want int
	}{
		{pixel.RGB{R: 10, G: 10, B: 10}, 0},
		{pixel.RGB{R: 240, G: 240, B: 240}, 1},
		{pixel.RGB{R: 200, G: 30, B: 20}, 3},
		{pixel.RGB{R: 20, G: 200, B: 30}, 5},
		{pixel.RGB{R: 30, G: 40, B: 220}, 4},
	}
	for _, x := range tests {
		assert.Equal(t, x.want, p.Nearest(x.c), "nearest of %v", x.c)
	}
}

func TestNearestTieBreak(t *testing.T) {
	p, err := New(0, 0, 0, 20, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Nearest(pixel.RGB{R: 10, G: 10, B: 10}))
}

func TestSpectra6Layouts(t *testing.T) {
	a, b := Spectra6(), Spectra6Panel()
	assert.Equal(t, a.Len(), b.Len())
	assert.Equal(t, a.Index(Spectra6Black), a.Index(Spectra6Unused))
	assert.Equal(t, pixel.RGB{R: 0, G: 0, B: 255}, a.At(Spectra6Blue))
}
