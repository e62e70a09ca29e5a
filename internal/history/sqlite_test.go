package history

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncoguide-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func testResult(consultationID string) *domain.ConsultationResult {
	return &domain.ConsultationResult{
		ConsultationID:             consultationID,
		CreatedAt:                  time.Now().UTC().Truncate(time.Second),
		CancerType:                 domain.BREAST,
		CancerDisplayName:          "Breast Cancer",
		Stage:                      "II",
		ProposedTreatment:          "Chemotherapy",
		Symptoms:                   []string{"breast lump"},
		Alignment:                  domain.ALIGNED,
		AlignmentMessage:           domain.ALIGNED.ClinicalMessage(),
		NormalizedTreatment:        "Chemotherapy",
		MatchedGuidelineTreatments: []string{"Chemotherapy", "Surgery"},
		RequiredTests:              []string{"ER/PR", "HER2"},
		Risks:                      []string{"Nausea", "Fatigue"},
		Alternatives:               []string{},
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	record := NewRecord("user-1", testResult("c-001"))

	require.NoError(t, store.Save(ctx, record))
	assert.NotZero(t, record.ID)

	got, err := store.Get(ctx, "c-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "BREAST", got.CancerType)
	assert.Equal(t, "ALIGNED", got.Alignment)
	require.NotNil(t, got.Result)
	assert.Equal(t, domain.ALIGNED, got.Result.Alignment)
	assert.Equal(t, []string{"Nausea", "Fatigue"}, got.Result.Risks)
}

func TestSQLiteStore_SaveDuplicate(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, NewRecord("user-1", testResult("c-001"))))

	// Results are immutable; a second insert with the same ID must fail.
	err := store.Save(ctx, NewRecord("user-1", testResult("c-001")))
	assert.Error(t, err)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i, id := range []string{"c-001", "c-002", "c-003"} {
		result := testResult(id)
		result.CreatedAt = result.CreatedAt.Add(time.Duration(i) * time.Minute)
		userID := "user-1"
		if i == 2 {
			userID = "user-2"
		}
		require.NoError(t, store.Save(ctx, NewRecord(userID, result)))
	}

	all, err := store.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c-003", all[0].ConsultationID, "newest first")

	mine, err := store.List(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	total, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	perUser, err := store.Count(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), perUser)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, NewRecord("user-1", testResult("c-001"))))
	require.NoError(t, store.Delete(ctx, "c-001"))

	got, err := store.Get(ctx, "c-001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ExportImportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, NewRecord("user-1", testResult("c-001"))))
	require.NoError(t, store.Save(ctx, NewRecord("user-1", testResult("c-002"))))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))
	assert.Contains(t, buf.String(), "c-001")

	// Import into a fresh store; re-import into the same store skips all.
	fresh := createTestStore(t)
	defer fresh.Close()

	imported, skipped, err := fresh.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, imported)
	assert.Equal(t, 0, skipped)

	imported, skipped, err = fresh.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 2, skipped)
}
