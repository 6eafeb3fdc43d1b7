package lut

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BeatGlow/epd/palette"
)

func TestCacheReuse(t *testing.T) {
	c := NewCache(4)

	a, err := c.Get(palette.Spectra6(), RGB, DefaultBits)
	require.NoError(t, err)
	b, err := c.Get(palette.Spectra6(), RGB, DefaultBits)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, c.Len())

	// Space and bits are part of the key.
	l, err := c.Get(palette.Spectra6(), Perceptual, DefaultBits)
	require.NoError(t, err)
	assert.NotSame(t, a, l)
	s, err := c.Get(palette.Spectra6(), RGB, 4)
	require.NoError(t, err)
	assert.NotSame(t, a, s)
	assert.Equal(t, 3, c.Len())
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(2)

	p1, _ := palette.New(0, 0, 0, 255, 255, 255)
	p2, _ := palette.New(0, 0, 0, 255, 0, 0)
	p3, _ := palette.New(0, 0, 0, 0, 0, 255)

	t1, err := c.Get(p1, RGB, 3)
	require.NoError(t, err)
	_, err = c.Get(p2, RGB, 3)
	require.NoError(t, err)

	// Touch p1 so p2 becomes the least recently used.
	again, err := c.Get(p1, RGB, 3)
	require.NoError(t, err)
	assert.Same(t, t1, again)

	_, err = c.Get(p3, RGB, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	again, err = c.Get(p1, RGB, 3)
	require.NoError(t, err)
	assert.Same(t, t1, again, "recently used table should survive")
}

func TestCacheConcurrentBuild(t *testing.T) {
	c := NewCache(DefaultCacheSize)
	p := palette.Spectra6()

	var (
		wg     sync.WaitGroup
		tables = make([]*Table, 16)
	)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tab, err := c.Get(p, RGB, DefaultBits)
			if err == nil {
				tables[i] = tab
			}
		}(i)
	}
	wg.Wait()

	for _, tab := range tables {
		require.NotNil(t, tab)
		assert.Same(t, tables[0], tab)
	}
	assert.Equal(t, 1, c.Len())
}

func TestCacheErrors(t *testing.T) {
	c := NewCache(1)
	_, err := c.Get(nil, RGB, DefaultBits)
	assert.ErrorIs(t, err, ErrNoColors)

	_, err = c.Get(palette.Spectra6(), RGB, 0)
	assert.ErrorIs(t, err, ErrInvalidBits)
	assert.Equal(t, 0, c.Len())
}
