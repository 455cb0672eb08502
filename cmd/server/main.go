package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-booking/internal/config"
	"github.com/iliyamo/cinema-booking/internal/database"
	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/loader"
	"github.com/iliyamo/cinema-booking/internal/logging"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/query"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/recommend"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/router"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store ----
	var db *sql.DB
	s := store.New(store.WithLogger(logging.Component("store")))
	if cfg.StoreBackend == config.BackendMySQL {
		db, err = database.Open(ctx, cfg, logging.Component("database"))
		if err != nil {
			log.Fatal().Err(err).Msg("mysql unavailable")
		}
		defer db.Close()
		if s, err = repository.OpenStore(ctx, db, logging.Component("store")); err != nil {
			log.Fatal().Err(err).Msg("restore failed")
		}
	}

	var seed handler.Seeder
	if cfg.SeedCSV != "" {
		seedLog := logging.Component("loader")
		seed = func(ctx context.Context) (loader.Summary, error) {
			return loader.IngestFile(ctx, s, cfg.SeedCSV, seedLog)
		}
		if s.Counts().Movies == 0 {
			if _, err := seed(ctx); err != nil {
				log.Fatal().Err(err).Str("file", cfg.SeedCSV).Msg("seed failed")
			}
		}
	}

	// ---- Redis (optional) ----
	var rdb *redis.Client
	cacheCfg, rateCfg := config.LoadCacheConfig(), config.LoadRateLimitConfig()
	if cacheCfg.Enabled || rateCfg.Enabled {
		if rdb, err = config.NewRedisClient(ctx, config.LoadRedisConfig()); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, cache and rate limit disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// ---- Events ----
	var (
		events  service.Events = service.NopEvents{}
		breaker handler.BreakerState
	)
	brokerCfg := config.LoadBrokerConfig()
	if brokerCfg.Enabled {
		pub := service.NewPublisher(brokerCfg, logging.Component("publisher"))
		defer pub.Close()
		events, breaker = pub, pub

		var sink queue.Sink = queue.LogSink{Log: logging.Component("activity")}
		if db != nil {
			sink = repository.NewActivityRepo(db)
		}
		go func() {
			err := queue.StartActivityConsumer(ctx, brokerCfg.URL, brokerCfg.Queue, sink, logging.Component("consumer"))
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("activity consumer stopped")
			}
		}()
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logging.Component("http")))

	deps := router.Deps{
		JWTSecret: cfg.JWTSecret,
		Auth:      handler.NewAuthHandler(cfg),
		Catalog:   handler.NewCatalogHandler(s, events, seed, logging.Component("catalog")),
		Query:     handler.NewQueryHandler(query.New(s), recommend.NewEngine(s, logging.Component("recommend")), logging.Component("query")),
		Breaker:   breaker,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: rateCfg,
		Log:       logging.Component("http"),
	}
	if db != nil {
		deps.Activity = handler.NewActivityHandler(repository.NewActivityRepo(db), logging.Component("activity"))
	}
	router.Register(e, deps)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("backend", cfg.StoreBackend).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
