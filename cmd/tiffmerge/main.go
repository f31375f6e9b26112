package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"tiffmerge/pkg/logging"
)

func main() {
	logging.ConfigureRuntime()

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("tiffmerge failed")
		os.Exit(1)
	}
}
