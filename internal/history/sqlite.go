package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/oncoguide-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite history store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS consultations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		consultation_id TEXT NOT NULL UNIQUE,
		user_id TEXT DEFAULT '',
		cancer_type TEXT NOT NULL,
		stage TEXT NOT NULL,
		proposed_treatment TEXT NOT NULL,
		alignment TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_consultations_user_id ON consultations(user_id);
	CREATE INDEX IF NOT EXISTS idx_consultations_cancer_type ON consultations(cancer_type);
	CREATE INDEX IF NOT EXISTS idx_consultations_created_at ON consultations(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record, decoding the result payload.
func scanRecord(s scanner) (*Record, error) {
	record := &Record{}
	var resultJSON string

	err := s.Scan(
		&record.ID, &record.ConsultationID, &record.UserID,
		&record.CancerType, &record.Stage, &record.ProposedTreatment,
		&record.Alignment, &resultJSON, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	result := &domain.ConsultationResult{}
	if err := json.Unmarshal([]byte(resultJSON), result); err != nil {
		return nil, fmt.Errorf("failed to decode result payload: %w", err)
	}
	record.Result = result
	return record, nil
}

// Save stores a consultation record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
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

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO consultations (
			consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ConsultationID,
		record.UserID,
		record.CancerType,
		record.Stage,
		record.ProposedTreatment,
		record.Alignment,
		string(resultJSON),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id

	return nil
}

// Get retrieves a record by consultation ID.
func (s *SQLiteStore) Get(ctx context.Context, consultationID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		FROM consultations
		WHERE consultation_id = ?
		LIMIT 1
	`, consultationID)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// List returns records in reverse chronological order with pagination.
func (s *SQLiteStore) List(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, consultation_id, user_id, cancer_type, stage,
			proposed_treatment, alignment, result_json, created_at
		FROM consultations
	`
	args := []interface{}{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context, userID string) (int64, error) {
	var count int64
	var err error
	if userID != "" {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM consultations WHERE user_id = ?", userID).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM consultations").Scan(&count)
	}
	return count, err
}

// Delete removes a record by consultation ID.
func (s *SQLiteStore) Delete(ctx context.Context, consultationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM consultations WHERE consultation_id = ?", consultationID)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, "", maxExportLimit, 0)
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
