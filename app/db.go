package app

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/gabbezeira/handtrap-api/app/config"
)

var db *sql.DB

// MustInitDB initializes the global db and exits on error. Handlers and
// stores treat a nil db as "no backing store" so unit tests can run without
// Postgres.
func MustInitDB() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
		cfg.DB.Name,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}

	if err := d.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	log.Info().Msg("connected to Postgres")
	db = d
}
