// Package main provides the entry point for the OncoGuide HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/api"
	"github.com/oncoguide-server/internal/cache"
	"github.com/oncoguide-server/internal/config"
	"github.com/oncoguide-server/internal/database"
	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/history"
	"github.com/oncoguide-server/internal/knowledge"
	"github.com/oncoguide-server/internal/service"
	"github.com/oncoguide-server/pkg/treatment"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	configManager, err := config.NewManager()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configManager.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	cfg := configManager.GetConfig()

	configureLogger(logger, cfg.Logging)

	kb, err := knowledge.LoadEmbedded(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load guideline knowledge base")
	}
	logger.WithFields(logrus.Fields{
		"dataset_version": kb.Version(),
		"combinations":    kb.Len(),
	}).Info("Guideline knowledge base loaded")

	matcher, err := service.NewMatcher(treatment.DefaultSynonyms(), cfg.Cache.MaxItems, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create treatment matcher")
	}
	consultation := service.NewConsultationService(logger, kb, matcher, service.NewInputValidator())

	store, err := newHistoryStore(configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create history store")
	}
	defer store.Close()

	var results *cache.ResultCache
	if cfg.Cache.Enabled {
		results, err = cache.NewResultCache(cfg.Cache, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create result cache")
		}
		defer results.Close()
	}

	server := api.NewServer(cfg, logger, consultation, kb, store, results)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("OncoGuide server stopped")
}

// newHistoryStore builds the configured history backend. SQLite is the
// standalone default; postgres deployments run migrations first.
func newHistoryStore(configManager *config.Manager, logger *logrus.Logger) (history.Store, error) {
	cfg := configManager.GetConfig()

	switch cfg.History.Backend {
	case "postgres":
		databaseURL := database.URL(&cfg.Database)

		runner, err := database.NewMigrationRunner(databaseURL, cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, err
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			return nil, err
		}
		if err := runner.Close(); err != nil {
			return nil, err
		}

		return history.NewPostgresStoreFromURL(databaseURL)
	default:
		return history.NewSQLiteStore(cfg.History.SQLitePath)
	}
}

func configureLogger(logger *logrus.Logger, cfg domain.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
}
