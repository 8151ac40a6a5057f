// Package main is the entry point for the stopfinder server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/randytsao24/stopfinder/internal/api"
	"github.com/randytsao24/stopfinder/internal/config"
	"github.com/randytsao24/stopfinder/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps := service.NewComponents(cfg, logger)
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the building directory so the first route request does not pay for a scrape
	go func() {
		if _, err := deps.Directory.GetOrRefresh(ctx); err != nil {
			logger.Warn("initial directory load failed", "error", err)
		}
	}()

	router := api.NewRouter(cfg, deps.Planner, deps.Transit, deps.Alerts, deps.Directory)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stopfinder server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"url", fmt.Sprintf("http://localhost:%s", cfg.Port),
			"cache_file", cfg.CacheFile,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
