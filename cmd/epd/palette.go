package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BeatGlow/epd/internal/config"
)

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Print the processing and panel palettes",
	Args:  cobra.NoArgs,
	RunE:  runPalette,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return config.Write(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(paletteCmd, configCmd)
}

func runPalette(cmd *cobra.Command, _ []string) error {
	processing, panel, err := cfg.Palettes()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tPROCESSING\tPANEL\tINDEX")
	for slot := 0; slot < processing.Len(); slot++ {
		var shown string
		if slot < panel.Len() {
			c := panel.At(slot)
			shown = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
		}
		c := processing.At(slot)
		fmt.Fprintf(w, "%d\t#%02x%02x%02x\t%s\t%d\n", slot, c.R, c.G, c.B, shown, processing.Index(slot))
	}
	if err = w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d distinct processing colors, %d distinct panel colors\n",
		len(processing.Distinct()), len(panel.Distinct()))
	return nil
}
