package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRun records a complete run and returns its ID.
func writeRun(t *testing.T, w *AuditWriter, runType RunType, replacements int) RunID {
	t.Helper()
	runID, err := w.StartRun(runType, "1.0.0", "test-host")
	require.NoError(t, err)
	for i := 0; i < replacements; i++ {
		require.NoError(t, w.RecordReplace("a.json", "/initial_controller", "NY_A_CTR", "ZNY 26 Lancaster"))
	}
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{
		FilesScanned: 1, FilesChanged: 1, Replacements: replacements,
	}))
	return runID
}

func TestListRunsOldestFirst(t *testing.T) {
	w, cfg := newTestWriter(t)
	first := writeRun(t, w, RunTypeReplace, 1)
	second := writeRun(t, w, RunTypeWatch, 2)

	runs, err := NewAuditReader(cfg.LogDirectory).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, first, runs[0].RunID)
	assert.Equal(t, RunTypeReplace, runs[0].RunType)
	assert.Equal(t, RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].Summary.Replacements)
	assert.Equal(t, "1.0.0", runs[0].AppVersion)
	assert.Equal(t, "test-host", runs[0].MachineID)
	require.NotNil(t, runs[0].EndTime)

	assert.Equal(t, second, runs[1].RunID)
	assert.Equal(t, RunTypeWatch, runs[1].RunType)
	assert.Equal(t, 2, runs[1].Summary.Replacements)
}

func TestRunWithoutEndIsInProgress(t *testing.T) {
	w, cfg := newTestWriter(t)
	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)
	require.NoError(t, w.RecordReplace("a.json", "/f", "x", "y"))

	runs, err := NewAuditReader(cfg.LogDirectory).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, RunStatusInProgress, runs[0].Status)
	assert.Nil(t, runs[0].EndTime)
}

func TestGetLatestRun(t *testing.T) {
	w, cfg := newTestWriter(t)
	writeRun(t, w, RunTypeReplace, 1)
	latest := writeRun(t, w, RunTypeReplace, 3)

	run, err := NewAuditReader(cfg.LogDirectory).GetLatestRun()
	require.NoError(t, err)
	assert.Equal(t, latest, run.RunID)
}

func TestGetRunNotFound(t *testing.T) {
	_, cfg := newTestWriter(t)

	_, err := NewAuditReader(cfg.LogDirectory).GetRun("no-such-run")
	assert.Error(t, err)
}

func TestReplacementsForRunKeepsOrder(t *testing.T) {
	w, cfg := newTestWriter(t)
	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)
	require.NoError(t, w.RecordReplace("a.json", "/p1", "A", "B"))
	require.NoError(t, w.RecordFileError("bad.json", "READ_ERROR", "boom"))
	require.NoError(t, w.RecordReplace("b.json", "/p2", "C", "D"))
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{}))

	events, err := NewAuditReader(cfg.LogDirectory).ReplacementsForRun(runID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/p1", events[0].Pointer)
	assert.Equal(t, "/p2", events[1].Pointer)
}

func TestUndoRunInfoCarriesTarget(t *testing.T) {
	w, cfg := newTestWriter(t)
	target := writeRun(t, w, RunTypeReplace, 1)

	undoID, err := w.StartUndoRun("1.0.0", "host", target)
	require.NoError(t, err)
	require.NoError(t, w.EndRun(undoID, RunStatusCompleted, RunSummary{}))

	runs, err := NewAuditReader(cfg.LogDirectory).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	undo := runs[1]
	assert.Equal(t, RunTypeUndo, undo.RunType)
	require.NotNil(t, undo.UndoTargetID)
	assert.Equal(t, target, *undo.UndoTargetID)
}

func TestCheckIntegrity(t *testing.T) {
	w, cfg := newTestWriter(t)
	writeRun(t, w, RunTypeReplace, 1)
	require.NoError(t, w.Close())

	t.Run("valid log", func(t *testing.T) {
		result := CheckIntegrity(w.LogPath())
		assert.Equal(t, IntegrityOK, result.Status)
		assert.Equal(t, 4, result.TotalLines)
	})

	t.Run("missing file", func(t *testing.T) {
		result := CheckIntegrity(filepath.Join(cfg.LogDirectory, "nope.jsonl"))
		assert.Equal(t, IntegrityMissing, result.Status)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(cfg.LogDirectory, "empty.jsonl")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		result := CheckIntegrity(path)
		assert.Equal(t, IntegrityEmpty, result.Status)
	})

	t.Run("truncated last line", func(t *testing.T) {
		data, err := os.ReadFile(w.LogPath())
		require.NoError(t, err)
		truncated := filepath.Join(cfg.LogDirectory, "truncated.jsonl")
		require.NoError(t, os.WriteFile(truncated, data[:len(data)-20], 0o644))

		result := CheckIntegrity(truncated)
		assert.Equal(t, IntegrityCorrupt, result.Status)
		assert.Equal(t, 4, result.ErrorLine)
	})
}

func TestCheckAllIntegrity(t *testing.T) {
	w, cfg := newTestWriter(t)
	writeRun(t, w, RunTypeReplace, 1)

	results, err := NewAuditReader(cfg.LogDirectory).CheckAllIntegrity()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, IntegrityOK, results[0].Status)
}
