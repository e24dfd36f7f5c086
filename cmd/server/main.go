package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/api"
	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/database"
	"github.com/cityzn/cityzn-backend-go/internal/handler"
	"github.com/cityzn/cityzn-backend-go/internal/logger"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/middleware"
	"github.com/cityzn/cityzn-backend-go/internal/service"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path}, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()

	datasets, err := service.NewDatasetService(db, cfg, m, zl)
	if err != nil {
		return err
	}
	features, err := service.NewFeatureService(db, cfg, m, zl)
	if err != nil {
		return err
	}
	datasets.OnBuilt = features.Invalidate

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
	defer limiter.Stop()

	router := api.SetupRouter(cfg, api.Dependencies{
		Runs:     handler.NewRunHandler(datasets, ctx),
		Dataset:  handler.NewDatasetHandler(datasets, features),
		Features: handler.NewFeatureHandler(features),
		Limiter:  limiter,
		Metrics:  m,
		Log:      zl,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", cfg.Server.Port))
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

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// ctx is done, so a running build stops at its next checkpoint
	datasets.Wait()
	return nil
}
