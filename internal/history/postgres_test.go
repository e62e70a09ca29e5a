package history

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoguide-server/internal/domain"
)

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	record := NewRecord("user-1", testResult("c-001"))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO consultations")).
		WithArgs(
			record.ConsultationID, record.UserID, record.CancerType,
			record.Stage, record.ProposedTreatment, record.Alignment,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, store.Save(ctx, record))
	assert.Equal(t, int64(7), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveWithoutResult(t *testing.T) {
	store, _ := setupMockStore(t)

	err := store.Save(context.Background(), &Record{ConsultationID: "c-001"})
	assert.Error(t, err)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	result := testResult("c-001")
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "consultation_id", "user_id", "cancer_type", "stage",
		"proposed_treatment", "alignment", "result_json", "created_at",
	}).AddRow(
		int64(1), "c-001", "user-1", "BREAST", "II",
		"Chemotherapy", "ALIGNED", string(payload), time.Now(),
	)

	mock.ExpectQuery("SELECT (.+) FROM consultations").
		WithArgs("c-001").
		WillReturnRows(rows)

	got, err := store.Get(ctx, "c-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-001", got.ConsultationID)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.ALIGNED, got.Result.Alignment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM consultations").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "consultation_id", "user_id", "cancer_type", "stage",
			"proposed_treatment", "alignment", "result_json", "created_at",
		}))

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_Count(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM consultations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("DELETE FROM consultations").
		WithArgs("c-001").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Delete(context.Background(), "c-001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
