package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/cholera-map-dashboard/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/cholera-map-dashboard/internal/adapter/http"
	"github.com/couchcryptid/cholera-map-dashboard/internal/config"
	"github.com/couchcryptid/cholera-map-dashboard/internal/dashboard"
	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
	"github.com/couchcryptid/cholera-map-dashboard/internal/observability"
	"github.com/couchcryptid/cholera-map-dashboard/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	presenter, err := dashboard.New()
	if err != nil {
		logger.Error("failed to build presenter", "error", err)
		os.Exit(1)
	}

	loader := csvfile.NewLoader(logger)
	p := pipeline.New(loader, pipeline.Sources{
		DeathsPath: cfg.DeathsPath,
		PumpsPath:  cfg.PumpsPath,
	}, logger, metrics, domain.WithTileURL(cfg.TileURL))

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, presenter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm-up run so /readyz reflects the input files before the first page load.
	if _, err := p.Run(ctx); err != nil {
		logger.Warn("warm-up run failed; dashboard will report the error on each page load", "error", err)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
