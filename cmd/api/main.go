package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shelfscan/internal/app"
	"shelfscan/internal/config"
	apphttp "shelfscan/internal/http"
	"shelfscan/internal/httpx"
	"shelfscan/internal/platform/logging"

	"github.com/rs/zerolog"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		l := logging.New(logging.Config{Format: "console"})
		l.Fatal().Err(err).Msg("cannot load configuration")
	}
	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "shelfscan-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot build application")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}()

	rateLimit := httpx.NewRateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	defer rateLimit.Close()

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Scans:          apphttp.NewScanHandler(a.Service, cfg.OpenAI.APIKey, cfg.Server.MaxUploadBytes, logging.Component(logger, "http")),
		Books:          apphttp.NewBookHandler(a.Library, a.Service),
		Ready:          func() bool { return cfg.OpenAI.APIKey != "" },
		Logger:         logger,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		EnableHSTS:     os.Getenv("ENABLE_HSTS") == "true",
		RateLimit:      rateLimit,
	})

	// Scans wait on the vision model, so writes get a long deadline.
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if err := serve(ctx, httpServer, logger); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func serve(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
