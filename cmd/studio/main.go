package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"caslastudio/internal/catalog"
	"caslastudio/internal/http/handlers"
	httpapi "caslastudio/internal/http/httpapi"
	"caslastudio/internal/imagegen"
	"caslastudio/internal/infra"
	"caslastudio/internal/infra/geoip"
	"caslastudio/internal/studio"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	switch {
	case errors.Is(err, infra.ErrNoDatabase):
		dbpool = nil
	case err != nil:
		logger.Fatal().Err(err).Msg("failed to connect database")
	default:
		defer dbpool.Close()
	}

	products, err := catalog.New(catalogSource(cfg, dbpool, logger), cfg.CatalogCacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build product catalog")
	}
	defer products.Close()

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()

	client := imagegen.NewClient(imagegen.Options{
		BaseURL: cfg.GenerationBaseURL,
		Timeout: cfg.GenerationTimeout,
	})
	sessions := studio.NewRegistry(client, studio.NewBuilder(cfg.GenerationAPIKey), nil, logger)
	go sessions.RunJanitor(ctx, time.Minute, cfg.SessionIdleTTL)

	app := handlers.NewApp(sessions, products, logger, cfg.MaxUploadBytes)
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   resolver.Lookup(),
		SubmitPerMinute: cfg.RateLimitPerMin,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router, logger)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("generation_url", client.BaseURL()).
			Msg("studio api listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Int("sessions", sessions.Len()).Msg("server stopped")
}

// catalogSource prefers the database, then a JSON file, then the built-in
// product line.
func catalogSource(cfg *infra.Config, pool *pgxpool.Pool, logger zerolog.Logger) catalog.Source {
	switch {
	case pool != nil:
		return catalog.NewPostgresSource(infra.NewSQLRunner(pool, logger))
	case cfg.CatalogFile != "":
		return catalog.FileSource{Path: cfg.CatalogFile}
	}
	return nil
}
