package main

import (
	"errors"
	"fmt"
	"image"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/epd"
	"github.com/BeatGlow/epd/internal/prepare"
	"github.com/BeatGlow/epd/palette"
)

var showCmd = &cobra.Command{
	Use:   "show [INPUT]",
	Short: "Show an image on the panel, or a test pattern without input",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var showFlags struct {
	clear bool
}

func init() {
	addDitherFlags(showCmd)
	showCmd.Flags().BoolVar(&showFlags.clear, "clear", false, "Clear the panel to white")
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) (err error) {
	applyDitherFlags()
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	// Prepare the frame before touching the panel, processing can take a while.
	var frame *image.Paletted
	switch {
	case showFlags.clear:
	case len(args) == 0:
		frame = testPattern(p.width, p.height, p.processing)
	default:
		m, err := prepare.Open(args[0])
		if err != nil {
			return err
		}
		out, err := p.process(m)
		if err != nil {
			return err
		}
		frame = out.Paletted
	}

	if _, err = host.Init(); err != nil {
		return err
	}
	spiConfig, err := cfg.SPIConfig()
	if err != nil {
		return err
	}
	displayConfig, err := cfg.DisplayConfig()
	if err != nil {
		return err
	}
	c, err := epd.OpenSPI(spiConfig)
	if err != nil {
		return err
	}
	display, err := epd.Spectra6(c, displayConfig)
	if err != nil {
		_ = c.Close()
		return err
	}
	defer func() {
		err = errors.Join(err, display.Close())
	}()

	log.WithFields(log.Fields{
		"display": display,
		"size":    display.Bounds().Size(),
	}).Info("display ready")

	if frame != nil {
		if err = display.Draw(frame); err != nil {
			return err
		}
	}
	if err = display.Refresh(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	log.Info("display refreshed")
	return nil
}

// testPattern draws a vertical bar for each usable slot of p, inside a one pixel border of
// the first slot color. Slots repeating an earlier color are reserved and left out.
func testPattern(width, height int, p *palette.Palette) *image.Paletted {
	var slots []int
	for slot := 0; slot < p.Len(); slot++ {
		if p.Slot(p.Index(slot)) == slot {
			slots = append(slots, slot)
		}
	}

	m := image.NewPaletted(image.Rect(0, 0, width, height), p.ColorPalette())
	border := uint8(p.Index(slots[0]))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x == 0 || y == 0 || x == width-1 || y == height-1 {
				m.SetColorIndex(x, y, border)
				continue
			}
			m.SetColorIndex(x, y, uint8(p.Index(slots[x*len(slots)/width])))
		}
	}
	return m
}
