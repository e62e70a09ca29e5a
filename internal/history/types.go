// Package history provides persistent storage for completed consultation
// results, keyed by consultation ID and queryable per user. Two backends
// exist: SQLite for standalone operation and PostgreSQL for server
// deployments.
package history

import (
	"context"
	"io"
	"time"

	"github.com/oncoguide-server/internal/domain"
)

// Record is one stored consultation. The full result travels as a JSON
// payload; the indexed columns exist for listing and filtering without
// deserializing every row.
type Record struct {
	ID                int64                      `json:"id,omitempty"`
	ConsultationID    string                     `json:"consultation_id"`
	UserID            string                     `json:"user_id,omitempty"`
	CancerType        string                     `json:"cancer_type"`
	Stage             string                     `json:"stage"`
	ProposedTreatment string                     `json:"proposed_treatment"`
	Alignment         string                     `json:"alignment"`
	Result            *domain.ConsultationResult `json:"result"`
	CreatedAt         time.Time                  `json:"created_at"`
}

// NewRecord builds a Record from a consultation result.
func NewRecord(userID string, result *domain.ConsultationResult) *Record {
	return &Record{
		ConsultationID:    result.ConsultationID,
		UserID:            userID,
		CancerType:        result.CancerType.String(),
		Stage:             result.Stage,
		ProposedTreatment: result.ProposedTreatment,
		Alignment:         result.Alignment.String(),
		Result:            result,
		CreatedAt:         result.CreatedAt,
	}
}

// Store defines the interface for consultation history storage.
type Store interface {
	// Save stores a consultation record. Saving the same consultation ID
	// twice is an error; results are immutable.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by consultation ID. Returns nil when no
	// record exists.
	Get(ctx context.Context, consultationID string) (*Record, error)

	// List returns records in reverse chronological order with pagination.
	// An empty userID lists across all users.
	List(ctx context.Context, userID string, limit, offset int) ([]*Record, error)

	// Count returns the number of stored records for a user, or all
	// records when userID is empty.
	Count(ctx context.Context, userID string) (int64, error)

	// Delete removes a record by consultation ID.
	Delete(ctx context.Context, consultationID string) error

	// ExportJSON exports all records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports records from a JSON reader, skipping consultation
	// IDs that already exist. Returns the number imported and skipped.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
