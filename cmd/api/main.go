package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/adapter/repo"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/billing"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/http/handlers"
	httpapi "github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/http/httpapi"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra/geoip"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/middleware"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/realtime"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/realtime/bus"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	jobs := repo.NewJobRepository(runner, logger)
	assets := repo.NewAssetRepository(runner)
	processor := billing.NewProcessor(runner, cfg.BillingSecret, billing.DefaultAppliers(), logger)
	hub := realtime.NewHub(logger)

	// Worker processes publish through Redis; the forwarder feeds the local
	// SSE subscribers. The API still works without Redis on a single node.
	if cfg.RedisAddr != "" {
		redisBus, err := bus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisBus.Close()
		if err := redisBus.StartForwarder(ctx, func(msg domain.ProgressMessage) {
			hub.Publish(ctx, msg)
		}); err != nil {
			logger.Fatal().Err(err).Msg("failed to subscribe redis channel")
		}
	}

	var lookup middleware.CountryLookup
	if cfg.GeoIPDBPath != "" {
		resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("geoip database unavailable, locale falls back to headers")
		} else {
			lookup = resolver.CountryCode
		}
	}

	app := &handlers.App{
		Jobs:    jobs,
		Assets:  assets,
		Billing: processor,
		Hub:     hub,
		Logger:  logger,
	}

	router := httpapi.NewRouter(app, cfg, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
