package main

import (
	"os"

	"mathquiz-service/internal/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("mathquiz exited")
		os.Exit(1)
	}
}
