package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BeatGlow/epd"
	"github.com/BeatGlow/epd/dither"
	"github.com/BeatGlow/epd/internal/config"
	"github.com/BeatGlow/epd/internal/prepare"
	"github.com/BeatGlow/epd/palette"
)

// pipeline turns photos into images for the panel.
type pipeline struct {
	processing *palette.Palette
	panel      *palette.Palette
	dither     *dither.Config
	diffuse    bool
	enhance    bool
	options    prepare.Options

	// Logical size of the panel, after rotation.
	width, height int
}

func newPipeline(c *config.Config) (*pipeline, error) {
	processing, panel, err := c.Palettes()
	if err != nil {
		return nil, err
	}
	if processing.Len() != panel.Len() {
		return nil, fmt.Errorf("%w: %d processing slots, %d panel slots",
			palette.ErrPaletteMismatch, processing.Len(), panel.Len())
	}
	ditherConfig, err := c.DitherConfig()
	if err != nil {
		return nil, err
	}
	rotation, err := c.Rotation()
	if err != nil {
		return nil, err
	}
	if c.Panel.Width <= 0 || c.Panel.Height <= 0 {
		return nil, fmt.Errorf("%w: panel size %dx%d", config.ErrInvalid, c.Panel.Width, c.Panel.Height)
	}

	p := &pipeline{
		processing: processing,
		panel:      panel,
		dither:     ditherConfig,
		diffuse:    c.Dither.Diffuse,
		enhance:    c.Prepare.Enhance,
		options: prepare.Options{
			AutoContrast: c.Prepare.AutoContrast,
			Brightness:   c.Prepare.Brightness,
			Contrast:     c.Prepare.Contrast,
			Vibrance:     c.Prepare.Vibrance,
			Saturation:   c.Prepare.Saturation,
			Gamma:        c.Prepare.Gamma,
			Sharpen:      c.Prepare.Sharpen,
		},
		width:  c.Panel.Width,
		height: c.Panel.Height,
	}
	if rotation == epd.Rotate90 || rotation == epd.Rotate270 {
		p.width, p.height = p.height, p.width
	}
	return p, nil
}

// process reduces m to the processing palette at the logical panel size.
func (p *pipeline) process(m image.Image) (*dither.Image, error) {
	now := time.Now()
	if p.enhance {
		m = prepare.Enhance(m, p.options)
	}
	fitted := prepare.Fit(m, p.width, p.height)

	var (
		out *dither.Image
		err error
	)
	if p.diffuse {
		out, err = dither.Dither(fitted, p.processing, p.dither)
	} else {
		out, err = dither.Quantize(fitted, p.processing, p.dither)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"size":    out.Rect.Size(),
		"space":   p.dither.Space,
		"diffuse": p.diffuse,
		"took":    time.Since(now),
	}).Debug("processed image")
	return out, nil
}

// preview replaces the processing colors of m with the colors the panel shows.
func (p *pipeline) preview(m *dither.Image) (*image.Paletted, error) {
	return palette.Remap(m.Paletted, p.processing, p.panel)
}

// processFile processes an image file and writes the result as PNG.
func (p *pipeline) processFile(src, dst string, preview bool) error {
	m, err := prepare.Open(src)
	if err != nil {
		return err
	}
	out, err := p.process(m)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}

	result := out.Paletted
	if preview {
		if result, err = p.preview(out); err != nil {
			return err
		}
	}
	return writePNG(dst, result)
}

func writePNG(filename string, m image.Image) (err error) {
	fd, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fd.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(fd, m)
}
