package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/oncoguide-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the database and schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL history store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores a consultation record.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	if record.ConsultationID == "" {
		return fmt.Errorf("consultation ID is required")
	}
	if record.Result == nil {
		return fmt.Errorf("result payload is required")
	}

	resultJSON, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to encode result payload: %w", err)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO consultations (
			consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = s.db.QueryRowContext(ctx, query,
		record.ConsultationID,
		record.UserID,
		record.CancerType,
		record.Stage,
		record.ProposedTreatment,
		record.Alignment,
		string(resultJSON),
		record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves a record by consultation ID.
func (s *PostgresStore) Get(ctx context.Context, consultationID string) (*Record, error) {
	query := `
		SELECT id, consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		FROM consultations
		WHERE consultation_id = $1
		LIMIT 1
	`

	record := &Record{}
	var resultJSON string

	err := s.db.QueryRowContext(ctx, query, consultationID).Scan(
		&record.ID, &record.ConsultationID, &record.UserID,
		&record.CancerType, &record.Stage, &record.ProposedTreatment,
		&record.Alignment, &resultJSON, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	result := &domain.ConsultationResult{}
	if err := json.Unmarshal([]byte(resultJSON), result); err != nil {
		return nil, fmt.Errorf("failed to decode result payload: %w", err)
	}
	record.Result = result
	return record, nil
}

// List returns records in reverse chronological order with pagination.
func (s *PostgresStore) List(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		FROM consultations
	`
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, userID, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		record := &Record{}
		var resultJSON string

		err := rows.Scan(
			&record.ID, &record.ConsultationID, &record.UserID,
			&record.CancerType, &record.Stage, &record.ProposedTreatment,
			&record.Alignment, &resultJSON, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		payload := &domain.ConsultationResult{}
		if err := json.Unmarshal([]byte(resultJSON), payload); err != nil {
			return nil, fmt.Errorf("failed to decode result payload: %w", err)
		}
		record.Result = payload
		result = append(result, record)
	}

	return result, rows.Err()
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	var err error
	if userID != "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM consultations WHERE user_id = $1", userID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM consultations").Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Delete removes a record by consultation ID.
func (s *PostgresStore) Delete(ctx context.Context, consultationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM consultations WHERE consultation_id = $1", consultationID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON exports all records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", pgMaxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports records from a JSON reader.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, record := range export.Records {
		existing, err := s.Get(ctx, record.ConsultationID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		record.ID = 0
		if err := s.Save(ctx, record); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
