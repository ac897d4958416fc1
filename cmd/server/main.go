// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/courtbook/courtbook/internal/availability"
	"github.com/courtbook/courtbook/internal/cache"
	"github.com/courtbook/courtbook/internal/config"
	"github.com/courtbook/courtbook/internal/db"
	"github.com/courtbook/courtbook/internal/events"
	"github.com/courtbook/courtbook/internal/scheduler"
	"github.com/courtbook/courtbook/internal/store"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config/config.yaml"
}

// newSnapshotCache builds the configured snapshot cache, or nil for "none".
func newSnapshotCache(cfg *config.Config) (availability.SnapshotCache, func(), error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	switch cfg.Cache.Driver {
	case "", "none":
		return nil, func() {}, nil
	case "memory":
		return availability.NewMemorySnapshotCache(ttl, nil), func() {}, nil
	case "redis":
		redisCache := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, ttl)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisCache.Ping(pingCtx); err != nil {
			redisCache.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return redisCache, func() { redisCache.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	bus := events.NewBus()
	st := store.New(database, bus)

	snapshotCache, closeCache, err := newSnapshotCache(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot cache")
	}
	defer closeCache()

	engineOpts := []availability.Option{
		availability.WithDebounce(time.Duration(cfg.Availability.DebounceMS) * time.Millisecond),
	}
	if snapshotCache != nil {
		engineOpts = append(engineOpts, availability.WithSnapshotCache(snapshotCache))
	}
	engine, err := availability.New(availability.Providers{
		Templates: st,
		Groups:    st,
		Occupancy: st,
		Changes:   st,
	}, engineOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build availability engine")
	}

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if cfg.Jobs.CompletionSweepCron != "" {
		if err := scheduler.RegisterCompletionSweep(st, cfg.Jobs.CompletionSweepCron); err != nil {
			log.Fatal().Err(err).Msg("Failed to register completion sweep")
		}
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	server := newServer(cfg, engine, st)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("env", cfg.App.Environment).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
