package audit

import (
	"fmt"
	"sort"
)

// UndoStep restores one rewritten field: the field at Pointer inside File is
// expected to currently hold From (what the target run wrote) and is set
// back to To (what it held before).
type UndoStep struct {
	File    string
	Pointer string
	From    string
	To      string
}

// UndoPlan is the full set of restorations needed to revert a run. Steps
// are ordered reverse-chronologically relative to the target run's events.
type UndoPlan struct {
	TargetRunID RunID
	Steps       []UndoStep
}

// Files returns the scenario files touched by the plan, sorted by name.
func (p *UndoPlan) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, step := range p.Steps {
		if !seen[step.File] {
			seen[step.File] = true
			files = append(files, step.File)
		}
	}
	sort.Strings(files)
	return files
}

// StepsForFile returns the plan's steps for one file, preserving plan order.
func (p *UndoPlan) StepsForFile(file string) []UndoStep {
	var steps []UndoStep
	for _, step := range p.Steps {
		if step.File == file {
			steps = append(steps, step)
		}
	}
	return steps
}

// BuildUndoPlan builds the restoration plan for a specific run from its
// recorded REPLACE events. UNDO runs cannot themselves be undone; undoing
// an undo is just re-running replace.
func (r *AuditReader) BuildUndoPlan(runID RunID) (*UndoPlan, error) {
	events, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		if event.EventType == EventRunStart && event.Metadata["runType"] == string(RunTypeUndo) {
			return nil, fmt.Errorf("cannot undo an UNDO run: %s", runID)
		}
	}

	plan := &UndoPlan{TargetRunID: runID}
	// Reverse chronological order: later rewrites are reverted first.
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if event.EventType != EventReplace {
			continue
		}
		plan.Steps = append(plan.Steps, UndoStep{
			File:    event.File,
			Pointer: event.Pointer,
			From:    event.NewValue,
			To:      event.OldValue,
		})
	}

	if len(plan.Steps) == 0 {
		return nil, fmt.Errorf("run %s recorded no replacements to undo", runID)
	}

	return plan, nil
}

// BuildUndoPlanLatest builds the restoration plan for the most recent
// non-UNDO run.
func (r *AuditReader) BuildUndoPlanLatest() (*UndoPlan, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}

	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].RunType == RunTypeUndo {
			continue
		}
		return r.BuildUndoPlan(runs[i].RunID)
	}

	return nil, fmt.Errorf("no replace runs found to undo")
}
