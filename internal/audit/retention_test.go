package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSegment fabricates a rotated segment holding one completed run whose
// events (and file mtime) are age old.
func writeSegment(t *testing.T, dir, name string, age time.Duration) RunID {
	t.Helper()
	runID := GenerateRunID()
	ts := time.Now().UTC().Add(-age)

	var lines []byte
	for _, event := range []AuditEvent{
		{
			Timestamp: ts,
			RunID:     runID,
			EventType: EventRunStart,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"runType": string(RunTypeReplace), "appVersion": "1.0.0", "machineId": "host"},
		},
		{
			Timestamp: ts,
			RunID:     runID,
			EventType: EventReplace,
			Status:    StatusSuccess,
			File:      "a.json",
			Pointer:   "/initial_controller",
			OldValue:  "NY_A_CTR",
			NewValue:  "ZNY 26 Lancaster",
		},
		{
			Timestamp: ts,
			RunID:     runID,
			EventType: EventRunEnd,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"status": string(RunStatusCompleted), "filesScanned": "1", "filesChanged": "1", "replacements": "1", "readErrors": "0", "conflicts": "0"},
		},
	} {
		data, err := event.MarshalJSONLine()
		require.NoError(t, err)
		lines = append(lines, data...)
		lines = append(lines, '\n')
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, lines, 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return runID
}

func TestPruneNoopWhenLimitsUnset(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 0
	cfg.RetentionRuns = 0
	writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20200101-000000-001.jsonl", 100*24*time.Hour)

	result, err := NewRetentionManager(cfg).Prune(nil)
	require.NoError(t, err)
	assert.Empty(t, result.PrunedSegments)
}

func TestPruneDayBasedRetention(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 30
	cfg.MinRetentionDays = 7

	oldRun := writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20200101-000000-001.jsonl", 60*24*time.Hour)
	writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20990101-000000-001.jsonl", 24*time.Hour)

	result, err := NewRetentionManager(cfg).Prune(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"scenariotool-audit-20200101-000000-001.jsonl"}, result.PrunedSegments)
	assert.Equal(t, []RunID{oldRun}, result.PrunedRuns)
	assert.Greater(t, result.TotalBytesFreed, int64(0))

	// The recent segment survives.
	segments, err := DiscoverSegments(cfg.LogDirectory)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenariotool-audit-20990101-000000-001.jsonl"}, segments)
}

func TestPruneMinRetentionGuard(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 1
	cfg.MinRetentionDays = 7

	// Older than RetentionDays but younger than MinRetentionDays: kept.
	writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20250101-000000-001.jsonl", 3*24*time.Hour)

	result, err := NewRetentionManager(cfg).Prune(nil)
	require.NoError(t, err)
	assert.Empty(t, result.PrunedSegments)
}

func TestPruneRunCountRetention(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 0
	cfg.RetentionRuns = 1
	cfg.MinRetentionDays = 1

	old1 := writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20200101-000000-001.jsonl", 40*24*time.Hour)
	writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20200102-000000-001.jsonl", 30*24*time.Hour)

	result, err := NewRetentionManager(cfg).Prune(nil)
	require.NoError(t, err)

	// Only the newest run is retained; the oldest segment is fully expired.
	require.Len(t, result.PrunedSegments, 1)
	assert.Equal(t, "scenariotool-audit-20200101-000000-001.jsonl", result.PrunedSegments[0])
	assert.Equal(t, []RunID{old1}, result.PrunedRuns)
}

func TestPruneWritesRetentionEvent(t *testing.T) {
	cfg := testConfig(t)
	cfg.RetentionDays = 30
	cfg.MinRetentionDays = 7
	writeSegment(t, cfg.LogDirectory, "scenariotool-audit-20200101-000000-001.jsonl", 60*24*time.Hour)

	w, err := NewAuditWriter(cfg)
	require.NoError(t, err)
	defer w.Close()

	result, err := w.CheckAndPruneRetention()
	require.NoError(t, err)
	require.Len(t, result.PrunedSegments, 1)

	events := readLogLines(t, w.LogPath())
	var pruneEvents int
	for _, e := range events {
		if e.EventType == EventRetentionPrune {
			pruneEvents++
			assert.Equal(t, "scenariotool-audit-20200101-000000-001.jsonl", e.Metadata["prunedSegment"])
			assert.Equal(t, "1", e.Metadata["prunedRunCount"])
		}
	}
	assert.Equal(t, 1, pruneEvents)
}
