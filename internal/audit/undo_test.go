package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUndoPlanReversesEventOrder(t *testing.T) {
	w, cfg := newTestWriter(t)
	runID, err := w.StartRun(RunTypeReplace, "1.0.0", "host")
	require.NoError(t, err)
	require.NoError(t, w.RecordReplace("a.json", "/p1", "OLD1", "NEW1"))
	require.NoError(t, w.RecordReplace("b.json", "/p2", "OLD2", "NEW2"))
	require.NoError(t, w.RecordReplace("a.json", "/p3", "OLD3", "NEW3"))
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{Replacements: 3}))

	plan, err := NewAuditReader(cfg.LogDirectory).BuildUndoPlan(runID)
	require.NoError(t, err)

	assert.Equal(t, runID, plan.TargetRunID)
	require.Len(t, plan.Steps, 3)

	// Later rewrites are reverted first; From is what the run wrote.
	assert.Equal(t, UndoStep{File: "a.json", Pointer: "/p3", From: "NEW3", To: "OLD3"}, plan.Steps[0])
	assert.Equal(t, UndoStep{File: "b.json", Pointer: "/p2", From: "NEW2", To: "OLD2"}, plan.Steps[1])
	assert.Equal(t, UndoStep{File: "a.json", Pointer: "/p1", From: "NEW1", To: "OLD1"}, plan.Steps[2])

	assert.Equal(t, []string{"a.json", "b.json"}, plan.Files())
	steps := plan.StepsForFile("a.json")
	require.Len(t, steps, 2)
	assert.Equal(t, "/p3", steps[0].Pointer)
	assert.Equal(t, "/p1", steps[1].Pointer)
}

func TestBuildUndoPlanRejectsUndoRuns(t *testing.T) {
	w, cfg := newTestWriter(t)
	target := writeRun(t, w, RunTypeReplace, 1)

	undoID, err := w.StartUndoRun("1.0.0", "host", target)
	require.NoError(t, err)
	require.NoError(t, w.RecordUndoReplace("a.json", "/p", "NEW", "OLD"))
	require.NoError(t, w.EndRun(undoID, RunStatusCompleted, RunSummary{}))

	_, err = NewAuditReader(cfg.LogDirectory).BuildUndoPlan(undoID)
	assert.Error(t, err)
}

func TestBuildUndoPlanRejectsRunsWithoutReplacements(t *testing.T) {
	w, cfg := newTestWriter(t)
	runID := writeRun(t, w, RunTypeReplace, 0)

	_, err := NewAuditReader(cfg.LogDirectory).BuildUndoPlan(runID)
	assert.Error(t, err)
}

func TestBuildUndoPlanLatestSkipsUndoRuns(t *testing.T) {
	w, cfg := newTestWriter(t)
	target := writeRun(t, w, RunTypeReplace, 2)

	undoID, err := w.StartUndoRun("1.0.0", "host", target)
	require.NoError(t, err)
	require.NoError(t, w.RecordUndoReplace("a.json", "/p", "NEW", "OLD"))
	require.NoError(t, w.EndRun(undoID, RunStatusCompleted, RunSummary{}))

	plan, err := NewAuditReader(cfg.LogDirectory).BuildUndoPlanLatest()
	require.NoError(t, err)
	assert.Equal(t, target, plan.TargetRunID)
	assert.Len(t, plan.Steps, 2)
}

func TestBuildUndoPlanLatestNoRuns(t *testing.T) {
	_, cfg := newTestWriter(t)

	_, err := NewAuditReader(cfg.LogDirectory).BuildUndoPlanLatest()
	assert.Error(t, err)
}
