package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/noah-isme/backend-pedidos/internal/db"
	"github.com/noah-isme/backend-pedidos/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(obs.LogConfig{Format: "console", Level: "info"})

	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version")
		flag.PrintDefaults()
	}
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	switch flag.Arg(0) {
	case "up":
		if err := db.Migrate(dbURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate up")
		}
		logger.Info().Msg("migrations applied")
	case "down":
		if err := db.Rollback(dbURL, *steps); err != nil {
			logger.Fatal().Err(err).Msg("migrate down")
		}
		logger.Info().Int("steps", *steps).Msg("migrations rolled back")
	case "version":
		version, dirty, err := db.Version(dbURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("read version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema version")
	default:
		flag.Usage()
		os.Exit(2)
	}
}
