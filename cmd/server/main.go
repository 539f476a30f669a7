package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	app.MustInitDB()
	app.InitStripe()
	app.MustInitServices()

	router, err := app.NewRouter()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize router")
	}
	if err := router.Run("0.0.0.0:8080"); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
