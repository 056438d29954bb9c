package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cohortlens/internal/config"
	"github.com/kailas-cloud/cohortlens/internal/db"
	dbFile "github.com/kailas-cloud/cohortlens/internal/db/file"
	dbRedis "github.com/kailas-cloud/cohortlens/internal/db/redis"
	"github.com/kailas-cloud/cohortlens/internal/domain/feature"
	"github.com/kailas-cloud/cohortlens/internal/domain/theme"
	logpkg "github.com/kailas-cloud/cohortlens/internal/logger"
	"github.com/kailas-cloud/cohortlens/internal/metrics"
	"github.com/kailas-cloud/cohortlens/internal/repository/artifact"
	chiTransport "github.com/kailas-cloud/cohortlens/internal/transport/chi"
	analysisuc "github.com/kailas-cloud/cohortlens/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/cohortlens/internal/usecase/health"
	"github.com/kailas-cloud/cohortlens/internal/usecase/models"
	traininguc "github.com/kailas-cloud/cohortlens/internal/usecase/training"
	"github.com/kailas-cloud/cohortlens/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cohortlens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register model metrics explicitly (no init())
	metrics.RegisterModelMetrics()

	table := feature.DefaultTable()
	groups := theme.DefaultGroups()
	logger.Info("Reference table loaded",
		zap.String("feature_version", table.Version()),
		zap.Strings("themes", groups.Names()),
	)

	repo := artifact.New(store, cfg.Storage.KeyPrefix)
	registry := models.New(repo, table.Version(), logger).
		WithFixtureBootstrap(cfg.Model.Bootstrap())

	// Warm the model context; requests retry lazily if this fails.
	if _, err := registry.Reload(ctx); err != nil {
		logger.Warn("Models not loaded at startup", zap.Error(err))
	}

	analysisSvc, err := analysisuc.New(table, groups, registry, logger)
	if err != nil {
		logger.Fatal("Failed to create analysis service", zap.Error(err))
	}
	trainingSvc := traininguc.New(table, groups, repo, registry, logger).
		WithDefaults(trainingDefaults(cfg.Model))
	healthSvc := healthuc.New(store, registry)

	server := chiTransport.NewServer(analysisSvc, trainingSvc, registry, healthSvc, logger).
		WithLimits(cfg.HTTP.MaxBodyBytes, cfg.Analysis.MaxBatchRows)
	r := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Addrs,
			Password:   cfg.Password,
			Standalone: cfg.Standalone,
		})
	case config.DriverFile:
		return dbFile.NewStore(dbFile.Config{Dir: cfg.Dir})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func trainingDefaults(m config.ModelConfig) traininguc.Defaults {
	return traininguc.Defaults{
		AcademicK:      m.AcademicK,
		PersonaK:       m.PersonaK,
		Precision:      m.Precision,
		MaxIterations:  m.MaxIterations,
		Seed:           m.Seed,
		AcademicLabels: m.AcademicLabels,
	}
}
