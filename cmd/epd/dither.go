package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ditherCmd = &cobra.Command{
	Use:   "dither INPUT OUTPUT",
	Short: "Dither an image to a PNG file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDither,
}

var ditherFlags struct {
	space     string
	preview   bool
	noDiffuse bool
}

func init() {
	addDitherFlags(ditherCmd)
	ditherCmd.Flags().BoolVarP(&ditherFlags.preview, "preview", "p", false, "Write the colors the panel shows")
	rootCmd.AddCommand(ditherCmd)
}

func addDitherFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ditherFlags.space, "space", "", "Color space, rgb or lab")
	cmd.Flags().BoolVar(&ditherFlags.noDiffuse, "no-diffuse", false, "Map to the nearest colors without error diffusion")
}

// applyDitherFlags copies the dither flags into the configuration.
func applyDitherFlags() {
	if ditherFlags.space != "" {
		cfg.Dither.Space = ditherFlags.space
	}
	if ditherFlags.noDiffuse {
		cfg.Dither.Diffuse = false
	}
}

func runDither(_ *cobra.Command, args []string) error {
	applyDitherFlags()
	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	if err = p.processFile(args[0], args[1], ditherFlags.preview); err != nil {
		return err
	}
	log.WithField("output", args[1]).Info("image dithered")
	return nil
}
