package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) AuditConfig {
	t.Helper()
	cfg := DefaultAuditConfig()
	cfg.LogDirectory = t.TempDir()
	return cfg
}

func newTestWriter(t *testing.T) (*AuditWriter, AuditConfig) {
	t.Helper()
	cfg := testConfig(t)
	w, err := NewAuditWriter(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, cfg
}

func readLogLines(t *testing.T, logPath string) []AuditEvent {
	t.Helper()
	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, err := UnmarshalJSONLine([]byte(line))
		require.NoError(t, err, "line: %s", line)
		events = append(events, *event)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestNewAuditWriterInitializesLog(t *testing.T) {
	w, cfg := newTestWriter(t)

	assert.Equal(t, filepath.Join(cfg.LogDirectory, LogFileName), w.LogPath())

	events := readLogLines(t, w.LogPath())
	require.Len(t, events, 1)
	assert.Equal(t, EventLogInitialized, events[0].EventType)
	assert.Empty(t, events[0].RunID)
}

func TestRunLifecycle(t *testing.T) {
	w, _ := newTestWriter(t)

	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "test-host")
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	require.NotNil(t, w.CurrentRunID())

	require.NoError(t, w.RecordReplace("a.json", "/initial_controller", "NY_A_CTR", "ZNY 26 Lancaster"))
	require.NoError(t, w.RecordFileError("bad.json", "READ_ERROR", "invalid JSON"))

	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{
		FilesScanned: 2, FilesChanged: 1, Replacements: 1, ReadErrors: 1,
	}))
	assert.Nil(t, w.CurrentRunID())

	events := readLogLines(t, w.LogPath())
	require.Len(t, events, 5) // LOG_INITIALIZED + RUN_START + REPLACE + FILE_ERROR + RUN_END

	start := events[1]
	assert.Equal(t, EventRunStart, start.EventType)
	assert.Equal(t, runID, start.RunID)
	assert.Equal(t, "1.0.0", start.Metadata["appVersion"])
	assert.Equal(t, string(RunTypeReplace), start.Metadata["runType"])

	replace := events[2]
	assert.Equal(t, EventReplace, replace.EventType)
	assert.Equal(t, "a.json", replace.File)
	assert.Equal(t, "/initial_controller", replace.Pointer)
	assert.Equal(t, "NY_A_CTR", replace.OldValue)
	assert.Equal(t, "ZNY 26 Lancaster", replace.NewValue)

	fileErr := events[3]
	assert.Equal(t, EventFileError, fileErr.EventType)
	assert.Equal(t, StatusFailure, fileErr.Status)
	require.NotNil(t, fileErr.ErrorDetails)
	assert.Equal(t, "READ_ERROR", fileErr.ErrorDetails.ErrorType)

	end := events[4]
	assert.Equal(t, EventRunEnd, end.EventType)
	assert.Equal(t, string(RunStatusCompleted), end.Metadata["status"])
	assert.Equal(t, "1", end.Metadata["replacements"])
	assert.Equal(t, "1", end.Metadata["readErrors"])
}

func TestRecordRequiresActiveRun(t *testing.T) {
	w, _ := newTestWriter(t)

	assert.Error(t, w.RecordReplace("a.json", "/f", "x", "y"))
	assert.Error(t, w.RecordFileError("a.json", "READ_ERROR", "boom"))
	assert.Error(t, w.RecordUndoReplace("a.json", "/f", "x", "y"))
	assert.Error(t, w.RecordUndoConflict("a.json", "/f", "x", "y"))
}

func TestStartUndoRunRecordsTarget(t *testing.T) {
	w, _ := newTestWriter(t)

	target := GenerateRunID()
	runID, err := w.StartUndoRun("1.0.0", "test-host", target)
	require.NoError(t, err)

	require.NoError(t, w.RecordUndoConflict("a.json", "/f", "expected", "found"))

	events := readLogLines(t, w.LogPath())
	start := events[1]
	assert.Equal(t, string(RunTypeUndo), start.Metadata["runType"])
	assert.Equal(t, string(target), start.Metadata["undoTargetId"])
	assert.Equal(t, runID, start.RunID)

	conflict := events[2]
	assert.Equal(t, EventUndoConflict, conflict.EventType)
	assert.Equal(t, StatusSkipped, conflict.Status)
}

func TestReopenExistingLogAppends(t *testing.T) {
	cfg := testConfig(t)

	w1, err := NewAuditWriter(cfg)
	require.NoError(t, err)
	runID, err := w1.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)
	require.NoError(t, w1.EndRun(runID, RunStatusCompleted, RunSummary{}))
	require.NoError(t, w1.Close())

	w2, err := NewAuditWriter(cfg)
	require.NoError(t, err)
	defer w2.Close()
	_, err = w2.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)

	events := readLogLines(t, w2.LogPath())
	// No second LOG_INITIALIZED on reopen.
	initCount := 0
	for _, e := range events {
		if e.EventType == EventLogInitialized {
			initCount++
		}
	}
	assert.Equal(t, 1, initCount)
	require.Len(t, events, 4)
}

func TestRotationOnSizeThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.RotationSize = 512 // tiny threshold to force rotation

	w, err := NewAuditWriter(cfg)
	require.NoError(t, err)
	defer w.Close()

	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, w.RecordReplace("a.json", "/initial_controller", "NY_A_CTR", "ZNY 26 Lancaster"))
	}
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{Replacements: 20}))

	segments, err := DiscoverSegments(cfg.LogDirectory)
	require.NoError(t, err)
	require.NotEmpty(t, segments, "expected at least one rotated segment")

	// The active log plus segments still hold every event.
	reader := NewAuditReader(cfg.LogDirectory)
	events, err := reader.ReplacementsForRun(runID)
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestRecordReplaceConcurrentWithEndRun(t *testing.T) {
	w, _ := newTestWriter(t)

	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				file := fmt.Sprintf("scenario_%d_%d.json", g, i)
				err := w.RecordReplace(file, "/initial_controller", "NY_B_CTR", "ZNY 56 Kennedy")
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{
		Replacements: writers * perWriter,
	}))

	// After the run is closed, recording fails instead of writing an
	// event with a stale run ID.
	err = w.RecordReplace("late.json", "/initial_controller", "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active run")

	events := readLogLines(t, w.LogPath())
	var replaces int
	for _, event := range events {
		if event.EventType == EventReplace {
			replaces++
			assert.Equal(t, runID, event.RunID)
		}
	}
	assert.Equal(t, writers*perWriter, replaces)
}
