// Command epd dithers photos for color e-paper panels and shows them.
package main

import (
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatal()
	}
}
