package main

import (
	"fmt"
	"image"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BeatGlow/epd/palette"
)

var remapCmd = &cobra.Command{
	Use:   "remap INPUT OUTPUT",
	Short: "Replace the processing colors of a dithered PNG with the panel colors",
	Args:  cobra.ExactArgs(2),
	RunE:  runRemap,
}

func init() {
	rootCmd.AddCommand(remapCmd)
}

func runRemap(_ *cobra.Command, args []string) error {
	processing, panel, err := cfg.Palettes()
	if err != nil {
		return err
	}

	fd, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer fd.Close()

	m, _, err := image.Decode(fd)
	if err != nil {
		return err
	}
	paletted, ok := m.(*image.Paletted)
	if !ok {
		return fmt.Errorf("%s: expected a paletted image, got %T", args[0], m)
	}

	out, err := palette.Remap(paletted, processing, panel)
	if err != nil {
		return err
	}
	if err = writePNG(args[1], out); err != nil {
		return err
	}
	log.WithField("output", args[1]).Info("image remapped")
	return nil
}
