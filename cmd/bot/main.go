// Package main is the entry point for the turtle pet bot.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"turtle-bot/internal/bot"
	"turtle-bot/internal/config"
	"turtle-bot/internal/leaderboard"
	"turtle-bot/internal/pkg/db"
	"turtle-bot/internal/pkg/lock"
	"turtle-bot/internal/pkg/metrics"
	"turtle-bot/internal/repository"
	"turtle-bot/internal/service"
	"turtle-bot/internal/shop"
	"turtle-bot/internal/store"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("storage", cfg.Storage.Driver).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, closeGateway, err := openGateway(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeGateway()

	m := metrics.New()

	petService := service.NewPetService(
		store.NewPetStore(),
		leaderboard.New(),
		shop.Default(),
		gateway,
		lock.NewUserLock(),
		cfg.Pet,
	)
	petService.SetMetrics(m)

	if err := petService.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore pet state")
	}

	metricsServer := startMetrics(cfg.Metrics.Addr, m)

	telegramBot, err := bot.New(&bot.Dependencies{
		Config:     cfg,
		PetService: petService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start(ctx)
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	cancel()

	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to stop metrics server")
		}
	}
	log.Info().Msg("Bot stopped gracefully")
}

// openGateway opens the configured persistence gateway and returns its closer.
func openGateway(ctx context.Context, cfg *config.Config) (service.Gateway, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Running database migrations...")
		if err := repository.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		closer := func() {
			pool.Close()
			log.Info().Msg("PostgreSQL connection pool closed")
		}
		return repository.NewPostgresRepository(pool), closer, nil

	default:
		repo, err := repository.NewFileRepository(cfg.Storage.Dir, cfg.Storage.Format)
		if err != nil {
			return nil, nil, err
		}
		log.Info().
			Str("pets", repo.PetsPath()).
			Str("leaderboard", repo.LeaderboardPath()).
			Msg("Using file storage")
		return repo, func() {}, nil
	}
}

// startMetrics serves /metrics on addr. An empty addr disables it.
func startMetrics(addr string, m *metrics.Metrics) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}
