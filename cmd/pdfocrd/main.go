// pdfocrd serves the searchable PDF service over HTTP.
//
// Usage:
//
//	pdfocrd [-config searchpdf.yaml] [-env .env]
//
// Configuration is read from the optional YAML file, then the .env file,
// then the environment (PORT, HOST, STORAGE_ROOT, OCR_ENGINE, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gardar/searchpdf/pkg/config"
	"github.com/gardar/searchpdf/pkg/health"
	"github.com/gardar/searchpdf/pkg/pipeline"
	"github.com/gardar/searchpdf/pkg/server"
	"github.com/gardar/searchpdf/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	envFile := flag.String("env", ".env", "Path to a .env file, ignored when missing")
	flag.Parse()

	if err := run(*configPath, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "pdfocrd:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.Server.StaticDir, 0o755); err != nil {
		return fmt.Errorf("create static directory: %w", err)
	}
	store, err := storage.New(cfg.Storage.Root, cfg.Storage.Retention, logger)
	if err != nil {
		return err
	}

	checker := health.NewChecker(logger)
	if report := checker.Check(ctx); !report.Healthy() {
		logger.Warn("missing dependencies", "missing", report.Missing)
	} else {
		logger.Info("all dependencies available")
	}
	logger.Info("storage ready", "upload_dir", store.UploadDir, "output_dir", store.OutputDir)
	if n := store.Cleanup(); n > 0 {
		logger.Info("startup cleanup", "removed", n)
	}

	built, err := pipeline.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer built.Close()
	built.OwnsInput = true

	srv := server.New(server.Options{
		Store:          store,
		Processor:      built,
		Checker:        checker,
		StaticDir:      cfg.Server.StaticDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Workers:        cfg.Server.Workers,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "engine", cfg.OCR.Engine, "workers", cfg.Server.Workers)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
