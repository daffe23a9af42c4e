package orchestrator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"scenariotool/internal/audit"
	"scenariotool/internal/jsontree"
)

// UndoReport summarizes an undo run.
type UndoReport struct {
	TargetRunID  audit.RunID
	UndoRunID    audit.RunID
	StepsPlanned int
	Applied      int
	Conflicts    int
	FilesChanged int
	ReadErrors   int
}

// Undo reverses the replacements of a previous run by replaying its change
// records backwards. Each field is verified to still hold the value the
// run wrote; fields that were edited since are reported as conflicts and
// left alone. An empty runID targets the most recent replace or watch run.
func (s *Session) Undo(runID audit.RunID) (*UndoReport, error) {
	if s.writer == nil {
		return nil, fmt.Errorf("undo requires the audit log (dry-run session)")
	}

	reader := audit.NewAuditReader(s.cfg.Audit.LogDirectory)

	var plan *audit.UndoPlan
	var err error
	if runID == "" {
		plan, err = reader.BuildUndoPlanLatest()
	} else {
		plan, err = reader.BuildUndoPlan(runID)
	}
	if err != nil {
		return nil, err
	}

	undoRunID, err := s.writer.StartUndoRun(s.appVersion, s.machineID, plan.TargetRunID)
	if err != nil {
		return nil, fmt.Errorf("failed to start audit run: %w", err)
	}

	report := &UndoReport{
		TargetRunID:  plan.TargetRunID,
		UndoRunID:    undoRunID,
		StepsPlanned: len(plan.Steps),
	}

	s.out.Info("Undoing run %s (%d replacements)", plan.TargetRunID, len(plan.Steps))

	for _, file := range plan.Files() {
		s.undoFile(file, plan.StepsForFile(file), report)
	}

	status := audit.RunStatusCompleted
	summary := audit.RunSummary{
		FilesScanned: len(plan.Files()),
		FilesChanged: report.FilesChanged,
		Replacements: report.Applied,
		ReadErrors:   report.ReadErrors,
		Conflicts:    report.Conflicts,
	}
	if err := s.writer.EndRun(undoRunID, status, summary); err != nil {
		s.logger.Warn("failed to end audit run", zap.Error(err))
	}

	s.out.Info("\nReverted %d of %d replacements (%d conflicts)",
		report.Applied, report.StepsPlanned, report.Conflicts)
	return report, nil
}

// undoFile applies the undo steps for one scenario file. Steps that no
// longer match are skipped as conflicts; the file is written only when at
// least one step applied.
func (s *Session) undoFile(file string, steps []audit.UndoStep, report *UndoReport) {
	doc, err := s.store.ReadDocument(file)
	if err != nil {
		report.ReadErrors++
		s.out.Info("%s: read error %v", file, err)
		if aerr := s.writer.RecordFileError(file, "READ_ERROR", err.Error()); aerr != nil {
			s.logger.Warn("failed to audit file error", zap.Error(aerr))
		}
		return
	}

	applied := 0
	for _, step := range steps {
		err := jsontree.SetByPointer(doc, step.Pointer, step.From, step.To)
		if err != nil {
			report.Conflicts++
			found := ""
			var perr *jsontree.PointerError
			if errors.As(err, &perr) {
				found = perr.Found
			}
			s.out.Info("%s: conflict at %s (expected '%s', found '%s')",
				file, step.Pointer, step.From, found)
			if aerr := s.writer.RecordUndoConflict(file, step.Pointer, step.From, found); aerr != nil {
				s.logger.Warn("failed to audit undo conflict", zap.Error(aerr))
			}
			continue
		}
		applied++
		if aerr := s.writer.RecordUndoReplace(file, step.Pointer, step.From, step.To); aerr != nil {
			s.logger.Warn("failed to audit undo", zap.Error(aerr))
		}
	}

	if applied == 0 {
		return
	}

	if err := s.store.WriteDocument(file, doc); err != nil {
		report.ReadErrors++
		s.out.Error("%s: write error %v", file, err)
		if aerr := s.writer.RecordFileError(file, "WRITE_ERROR", err.Error()); aerr != nil {
			s.logger.Warn("failed to audit file error", zap.Error(aerr))
		}
		return
	}
	report.Applied += applied
	report.FilesChanged++
	s.out.Info("%s: reverted %d replacements", file, applied)
}
