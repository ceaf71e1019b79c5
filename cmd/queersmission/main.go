// Copyright (c) 2025, libertypi and the queersmission contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/libertypi/queersmission/pkg/errkind"
)

func main() {
	setupLogging()

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		if errkind.IsSetup(err) {
			log.Error().Err(err).Msg("setup error")
			os.Exit(1)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func setupLogging() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	switch os.Getenv("QM_LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
