// Command loader ingests a seed CSV into the MySQL-backed catalogue.
//
//	loader [-reset] [file.csv]
//
// The file defaults to SEED_CSV.  With -reset the catalogue is emptied
// first, which reproduces a fresh initialisation.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/loader"
	"github.com/iliyamo/cinema-booking/internal/logging"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

func main() {
	_ = godotenv.Load()
	reset := flag.Bool("reset", false, "empty the catalogue before loading")
	flag.Parse()

	cfg, err := config.LoadDB()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("loader")

	path := cfg.SeedCSV
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		log.Fatal().Msg("no seed file: pass a path or set SEED_CSV")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg, logging.Component("database"))
	if err != nil {
		log.Fatal().Err(err).Msg("mysql unavailable")
	}
	defer db.Close()

	s, err := repository.OpenStore(ctx, db, logging.Component("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("restore failed")
	}
	if *reset {
		if err := s.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("reset failed")
		}
	}

	sum, err := loader.IngestFile(ctx, s, path, log)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("ingest failed")
	}
	log.Info().Str("file", path).Interface("summary", sum).Msg("done")
}
