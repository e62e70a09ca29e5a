package repository

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oncoguide-server/internal/database"
	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/knowledge"
)

func setupRepository(t *testing.T) (*GuidelineRepository, *logrus.Logger) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("oncoguide_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := &domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "oncoguide_test",
		Username:        "testuser",
		Password:        "testpass",
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}
	t.Cleanup(db.Close)

	runner, err := database.NewMigrationRunner(database.URL(config), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}
	if err := runner.Up(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewGuidelineRepository(db.Pool, logger), logger
}

func TestGuidelineRepositoryRoundTrip(t *testing.T) {
	repo, logger := setupRepository(t)
	ctx := context.Background()

	embedded, err := knowledge.LoadEmbedded(logger)
	if err != nil {
		t.Fatalf("Failed to load embedded dataset: %v", err)
	}

	if err := repo.Seed(ctx, embedded); err != nil {
		t.Fatalf("Failed to seed guidelines: %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count guidelines: %v", err)
	}
	if count != int64(embedded.Len()) {
		t.Errorf("Expected %d stored entries, got %d", embedded.Len(), count)
	}

	entry, err := repo.Get(ctx, domain.BREAST, "II")
	if err != nil {
		t.Fatalf("Failed to get guideline entry: %v", err)
	}
	if entry.RecommendedTreatments[0] != "Chemotherapy" {
		t.Errorf("Unexpected first-line treatment: %s", entry.RecommendedTreatments[0])
	}

	if _, err := repo.Get(ctx, domain.COLORECTAL, "VII"); err == nil {
		t.Error("Expected an error for an uncurated combination")
	}

	snapshot, err := repo.LoadSnapshot(ctx, logger)
	if err != nil {
		t.Fatalf("Failed to load snapshot from storage: %v", err)
	}
	if snapshot.Len() != embedded.Len() {
		t.Errorf("Expected snapshot with %d entries, got %d", embedded.Len(), snapshot.Len())
	}
	if snapshot.Version() != embedded.Version() {
		t.Errorf("Expected version %s, got %s", embedded.Version(), snapshot.Version())
	}
}
