package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smarttrip/internal/api"
	"smarttrip/internal/config"
	"smarttrip/internal/core"
	"smarttrip/internal/domain/repository"
	"smarttrip/internal/logging"
	"smarttrip/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.Logger()
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logging.Logger()

	store, err := repository.NewPostgresStore(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	geocoder := repository.NewNominatimClient(cfg.Geocoder.Endpoint, cfg.Geocoder.Timeout)
	placeSource := repository.NewOverpassRepository(cfg.Overpass.Endpoint, cfg.Overpass.Timeout, geocoder)
	demo := repository.NewDemoCatalog()

	learner := core.LearnerConfig{
		GlobalRate:  cfg.Learning.GlobalRate,
		SessionRate: cfg.Learning.SessionRate,
		L2:          cfg.Learning.L2,
	}

	service := core.NewRecommender(
		placeSource,
		geocoder,
		demo,
		store,
		store,
		store,
		learner,
		logging.With().Str("component", "recommender").Logger(),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	handler := api.NewHandler(service, m, logging.With().Str("component", "api").Logger())
	router := api.NewRouter(handler, m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), log)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
