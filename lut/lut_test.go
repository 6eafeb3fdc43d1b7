package lut

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/epd/palette"
	"github.com/BeatGlow/epd/pixel"
)

func bruteForceRGB(colors []pixel.RGB, r, g, b float64) uint8 {
	return nearest(len(colors), func(j int) float64 {
		dr := r - float64(colors[j].R)
		dg := g - float64(colors[j].G)
		db := b - float64(colors[j].B)
		return dr*dr + dg*dg + db*db
	})
}

func gridSample(v uint8, bits int) float64 {
	q := v >> (8 - bits)
	return float64(q) * 255 / float64(int(1)<<bits-1)
}

func TestBuildErrors(t *testing.T) {
	colors := palette.Spectra6().Distinct()
	for _, bits := range []int{-1, 0, 9} {
		_, err := Build(colors, RGB, bits)
		assert.ErrorIs(t, err, ErrInvalidBits, "bits=%d", bits)
	}

	_, err := Build(nil, RGB, DefaultBits)
	assert.ErrorIs(t, err, ErrNoColors)

	_, err = Build(colors, Space(7), DefaultBits)
	assert.ErrorIs(t, err, ErrSpace)
}

func TestTableSize(t *testing.T) {
	colors := palette.Spectra6().Distinct()
	for _, bits := range []int{1, 3, 5} {
		tab, err := Build(colors, RGB, bits)
		require.NoError(t, err)
		assert.Equal(t, 1<<(3*bits), tab.Len())
		assert.Equal(t, bits, tab.Bits())
		assert.Equal(t, RGB, tab.Space())
	}
}

func TestLookupExactColors(t *testing.T) {
	p := palette.Spectra6()
	for _, space := range []Space{RGB, Perceptual} {
		t.Run(space.String(), func(t *testing.T) {
			tab, err := Build(p.Distinct(), space, DefaultBits)
			require.NoError(t, err)
			for i, c := range p.Distinct() {
				assert.EqualValues(t, i, tab.Lookup(c.R, c.G, c.B), "color %v", c)
			}
		})
	}
}

func TestLookupMatchesBruteForce(t *testing.T) {
	colors := []pixel.RGB{
		{R: 0, G: 0, B: 0},
		{R: 255, G: 255, B: 255},
		{R: 255, G: 255, B: 0},
		{R: 255, G: 0, B: 0},
		{R: 0, G: 0, B: 255},
		{R: 0, G: 255, B: 0},
		{R: 128, G: 64, B: 32},
	}
	rnd := rand.New(rand.NewSource(1))

	for _, bits := range []int{4, 5, 6} {
		tab, err := Build(colors, RGB, bits)
		require.NoError(t, err)

		for n := 0; n < 2000; n++ {
			r, g, b := uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256))

			// The table is exact on its grid.
			want := bruteForceRGB(colors, gridSample(r, bits), gridSample(g, bits), gridSample(b, bits))
			got := tab.Lookup(r, g, b)
			require.Equal(t, want, got, "bits=%d color=(%d,%d,%d)", bits, r, g, b)

			// Off the grid the error is bounded by the quantization step.
			exact := bruteForceRGB(colors, float64(r), float64(g), float64(b))
			if got != exact {
				step := 255 / float64(int(1)<<bits-1)
				dist := func(i uint8) float64 {
					c := colors[i]
					dr := float64(r) - float64(c.R)
					dg := float64(g) - float64(c.G)
					db := float64(b) - float64(c.B)
					return dr*dr + dg*dg + db*db
				}
				// The grid sample is at most one step per channel away from the color.
				delta := math.Sqrt(3) * step
				bound := 4*delta*math.Sqrt(dist(exact)) + 4*delta*delta
				assert.LessOrEqual(t, dist(got)-dist(exact), bound)
			}
		}
	}
}

func TestPerceptualTable(t *testing.T) {
	colors := palette.Spectra6().Distinct()
	tab, err := Build(colors, Perceptual, DefaultBits)
	require.NoError(t, err)
	assert.Equal(t, Perceptual, tab.Space())

	lab := make([]pixel.Lab, len(colors))
	for i, c := range colors {
		lab[i] = pixel.ToLab(c)
	}
	rnd := rand.New(rand.NewSource(2))
	for n := 0; n < 500; n++ {
		r, g, b := uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256))
		v := pixel.LabFromFloat(gridSample(r, DefaultBits), gridSample(g, DefaultBits), gridSample(b, DefaultBits))
		want := nearest(len(lab), func(j int) float64 { return v.Distance2(lab[j]) })
		require.Equal(t, want, tab.Lookup(r, g, b))
	}
}

func TestParseSpace(t *testing.T) {
	tests := []struct {
		name string
		want Space
	}{
		{"", RGB},
		{"rgb", RGB},
		{"RGB", RGB},
		{"lab", Perceptual},
		{"perceptual", Perceptual},
	}
	for _, x := range tests {
		s, err := ParseSpace(x.name)
		require.NoError(t, err)
		assert.Equal(t, x.want, s)
	}

	_, err := ParseSpace("hsv")
	assert.ErrorIs(t, err, ErrSpace)
}
