package main

import (
	"github.com/mattn/go-colorable"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BeatGlow/epd/internal/config"
)

var rootCmd = &cobra.Command{
	Use:               "epd",
	Short:             "Dither photos for color e-paper panels",
	PersistentPreRunE: persistentPreRun,
	SilenceUsage:      true,
}

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c",
		"", "Configuration file",
	)
	rootCmd.PersistentFlags().StringVarP(
		&logLevel, "level", "l",
		"", "Log level",
	)
}

func persistentPreRun(_ *cobra.Command, _ []string) (err error) {
	if cfg, err = config.Load(configPath); err != nil {
		return
	}
	if logLevel != "" {
		cfg.Main.LogLevel = logLevel
	}

	// Setup logger
	lvl, err := log.ParseLevel(cfg.Main.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetOutput(colorable.NewColorableStderr())
	log.WithField("log_level", lvl).Debug()
	return nil
}
