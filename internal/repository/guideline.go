// Package repository provides PostgreSQL persistence for curated guideline
// entries. Server deployments can curate guidelines in the database instead
// of shipping a new binary; the repository hands the loader the same
// validated entry set the embedded dataset would.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/domain"
	"github.com/oncoguide-server/internal/knowledge"
)

// GuidelineRepository handles guideline entry persistence.
type GuidelineRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewGuidelineRepository creates a new guideline repository.
func NewGuidelineRepository(db *pgxpool.Pool, logger *logrus.Logger) *GuidelineRepository {
	return &GuidelineRepository{
		db:  db,
		log: logger,
	}
}

// Upsert stores or replaces one guideline entry. The entry is validated
// before it touches the database; a broken entry never lands in storage.
func (r *GuidelineRepository) Upsert(ctx context.Context, version string, entry *domain.GuidelineEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validating guideline entry: %w", err)
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding guideline entry: %w", err)
	}

	query := `
		INSERT INTO guidelines (cancer_type, stage, dataset_version, entry_json, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (cancer_type, stage) DO UPDATE SET
			dataset_version = EXCLUDED.dataset_version,
			entry_json = EXCLUDED.entry_json,
			updated_at = NOW()`

	_, err = r.db.Exec(ctx, query,
		entry.CancerType.String(),
		entry.Stage,
		version,
		payload,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"entry_key": entry.Key(),
			"error":     err,
		}).Error("Failed to upsert guideline entry")
		return fmt.Errorf("upserting guideline entry: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"entry_key":       entry.Key(),
		"dataset_version": version,
	}).Info("Guideline entry stored")

	return nil
}

// Seed loads a full snapshot into the database, replacing entries that
// already exist for the same (cancer type, stage).
func (r *GuidelineRepository) Seed(ctx context.Context, snapshot *knowledge.Snapshot) error {
	for _, entry := range snapshot.Entries() {
		if err := r.Upsert(ctx, snapshot.Version(), entry); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves one guideline entry.
func (r *GuidelineRepository) Get(ctx context.Context, cancerType domain.CancerType, stage string) (*domain.GuidelineEntry, error) {
	query := `SELECT entry_json FROM guidelines WHERE cancer_type = $1 AND stage = $2`

	var payload []byte
	err := r.db.QueryRow(ctx, query, cancerType.String(), stage).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewUnknownCombinationError(cancerType, stage)
		}
		return nil, fmt.Errorf("getting guideline entry: %w", err)
	}

	entry := &domain.GuidelineEntry{}
	if err := json.Unmarshal(payload, entry); err != nil {
		return nil, fmt.Errorf("decoding guideline entry: %w", err)
	}
	return entry, nil
}

// LoadSnapshot reads all stored entries and builds a validated snapshot.
// The dataset version is taken from the stored rows; mixed versions mean a
// half-finished curation pass and are rejected.
func (r *GuidelineRepository) LoadSnapshot(ctx context.Context, logger *logrus.Logger) (*knowledge.Snapshot, error) {
	rows, err := r.db.Query(ctx, `SELECT dataset_version, entry_json FROM guidelines`)
	if err != nil {
		return nil, fmt.Errorf("querying guidelines: %w", err)
	}
	defer rows.Close()

	var version string
	var entries []*domain.GuidelineEntry
	for rows.Next() {
		var rowVersion string
		var payload []byte
		if err := rows.Scan(&rowVersion, &payload); err != nil {
			return nil, fmt.Errorf("scanning guideline row: %w", err)
		}
		if version == "" {
			version = rowVersion
		} else if version != rowVersion {
			return nil, domain.NewMalformedKnowledgeBaseError("",
				fmt.Sprintf("mixed dataset versions in storage: %s and %s", version, rowVersion))
		}

		entry := &domain.GuidelineEntry{}
		if err := json.Unmarshal(payload, entry); err != nil {
			return nil, fmt.Errorf("decoding guideline entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading guideline rows: %w", err)
	}

	return knowledge.New(version, entries, logger)
}

// Count returns the number of stored guideline entries.
func (r *GuidelineRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM guidelines`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting guidelines: %w", err)
	}
	return count, nil
}
