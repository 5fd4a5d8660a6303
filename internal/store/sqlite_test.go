package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/community-ingest/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// clock returns a now func that advances one minute per call.
func clock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func TestSQLite_CreateAndFinishRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "extract", "/tmp/out")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "extract", got.Stage)
	assert.Equal(t, "/tmp/out", got.OutputDir)
	assert.Nil(t, got.FinishedAt)
	assert.Nil(t, got.Stats)

	stats := map[string]int{"events": 3}
	require.NoError(t, st.FinishRun(ctx, run.ID, stats, nil))

	got, err = st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSucceeded, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Empty(t, got.Error)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(got.Stats, &decoded))
	assert.Equal(t, 3, decoded["events"])
}

func TestSQLite_FinishRunFailed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "process", "")
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, run.ID, nil, errors.New("messages file missing")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "messages file missing", got.Error)
}

func TestSQLite_RunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = st.FinishRun(ctx, "missing", nil, nil)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	st.now = clock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var ids []string
	for _, stage := range []string{"extract", "process", "generate", "process"} {
		r, err := st.CreateRun(ctx, stage, "")
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, st.FinishRun(ctx, ids[1], nil, nil))

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, ids[3], runs[0].ID, "newest first")

	runs, err = st.ListRuns(ctx, RunFilter{Stage: "process"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = st.ListRuns(ctx, RunFilter{Status: model.RunStatusSucceeded})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ids[1], runs[0].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
