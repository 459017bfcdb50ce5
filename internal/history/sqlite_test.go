package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texsync/internal/config"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func job(id string, started time.Time, docs ...DocumentRecord) JobRecord {
	failures := 0
	for _, d := range docs {
		if !d.Success {
			failures++
		}
	}
	return JobRecord{
		JobID:          id,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Minute),
		TotalDocuments: len(docs),
		FailureCount:   failures,
		Status:         "SUCCESS",
		Documents:      docs,
	}
}

func TestSQLiteStore_SaveAndList(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveJob(ctx, job("job-1", base,
		DocumentRecord{DocumentID: "d1", Title: "acme_report_p1_draft", Success: true, Fingerprint: "fp1"},
		DocumentRecord{DocumentID: "d2", Success: false, Stage: "xelatex_first_pass", Message: "The compilation failed."},
	)))
	require.NoError(t, store.SaveJob(ctx, job("job-2", base.Add(time.Hour))))

	jobs, err := store.RecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-2", jobs[0].JobID)
	assert.Equal(t, "job-1", jobs[1].JobID)
	assert.True(t, jobs[1].StartedAt.Equal(base))

	require.Len(t, jobs[1].Documents, 2)
	assert.Equal(t, "acme_report_p1_draft", jobs[1].Documents[0].Title)
	assert.False(t, jobs[1].Documents[1].Success)
	assert.Equal(t, "xelatex_first_pass", jobs[1].Documents[1].Stage)
	assert.Equal(t, 1, jobs[1].FailureCount)

	limited, err := store.RecentJobs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteStore_Fingerprints(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	_, ok, err := store.Fingerprint(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveJob(ctx, job("job-1", time.Now(),
		DocumentRecord{DocumentID: "d1", Success: true, Fingerprint: "fp1"},
		DocumentRecord{DocumentID: "d2", Success: false, Fingerprint: "fp2"},
	)))

	fp, ok, err := store.Fingerprint(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fp1", fp)

	_, ok, err = store.Fingerprint(ctx, "d2")
	require.NoError(t, err)
	assert.False(t, ok, "failed documents must not record a fingerprint")

	require.NoError(t, store.SaveJob(ctx, job("job-2", time.Now(),
		DocumentRecord{DocumentID: "d1", Success: true, Fingerprint: "fp1b"},
	)))
	fp, _, err = store.Fingerprint(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "fp1b", fp)
}

func TestSQLiteStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveJob(context.Background(), job("job-1", time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	jobs, err := reopened.RecentJobs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].JobID)
}

func TestOpen_SelectsBackend(t *testing.T) {
	store, err := Open(context.Background(), config.HistoryConfig{Backend: config.HistoryNone})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, store)

	store, err = Open(context.Background(), config.HistoryConfig{
		Backend: config.HistorySQLite,
		Path:    filepath.Join(t.TempDir(), "h.db"),
	})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.IsType(t, &SQLiteStore{}, store)
}
