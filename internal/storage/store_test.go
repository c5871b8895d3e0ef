package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobload/internal/report"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(ts time.Time, name string) RunRecord {
	return RunRecord{
		ID:        uuid.New().String(),
		Timestamp: ts,
		RunName:   name,
		Host:      "http://localhost:8080",
		Users:     20,
		Row: report.ResultRow{
			Timestamp:      ts,
			PartitionCount: 16,
			WorkerCount:    4,
			TotalSubmitted: 100,
			Successful:     95,
			Failed:         5,
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)

	rec := record(time.Now(), "partition-scaling")
	require.NoError(t, store.Save(rec))

	got, err := store.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.RunName, got.RunName)
	assert.Equal(t, rec.Row.TotalSubmitted, got.Row.TotalSubmitted)
	assert.Equal(t, 16, got.Row.PartitionCount)
}

func TestGetUnknownID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	oldest := record(base.Add(-2*time.Hour), "run-oldest")
	middle := record(base.Add(-time.Hour), "run-middle")
	newest := record(base, "run-newest")

	// Insert out of order; key layout should still sort them.
	require.NoError(t, store.Save(middle))
	require.NoError(t, store.Save(newest))
	require.NoError(t, store.Save(oldest))

	records, err := store.List()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run-newest", records[0].RunName)
	assert.Equal(t, "run-middle", records[1].RunName)
	assert.Equal(t, "run-oldest", records[2].RunName)
}

func TestListEmptyStore(t *testing.T) {
	store := newTestStore(t)

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}
