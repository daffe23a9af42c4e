package orchestrator

import (
	"fmt"

	"scenariotool/internal/jsontree"
)

// Status analyzes pending replacements without modifying anything. Every
// scenario file is read and rewritten in memory; the planned changes are
// reported grouped per file. Nothing is written and nothing is audited.
func (s *Session) Status() (*RunReport, error) {
	s.out.Info("Loaded %d legacy -> standard mappings", s.rmap.Len())

	names, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	report := &RunReport{DryRun: true}
	for _, name := range names {
		report.FilesScanned++

		doc, err := s.store.ReadDocument(name)
		if err != nil {
			report.ReadErrors++
			report.Files = append(report.Files, FileResult{Name: name, Err: err})
			s.out.Info("%s: read error %v", name, err)
			continue
		}

		rec := &jsontree.ChangeRecorder{}
		jsontree.RewriteField(doc, ControllerField, s.rmap, rec)
		if rec.Len() == 0 {
			continue
		}

		changes := rec.Changes()
		report.FilesChanged++
		report.TotalReplacements += len(changes)
		report.Files = append(report.Files, FileResult{
			Name:         name,
			Replacements: len(changes),
			Changes:      changes,
		})

		s.out.Info("%s: %d pending replacements", name, len(changes))
		for _, c := range changes {
			report.addPair(c.Old, c.New)
			s.out.Verbose("  %s: '%s' -> '%s'", c.Path, c.Old, c.New)
		}
	}

	s.out.Info("\nTotal: %d pending replacements in %d of %d files",
		report.TotalReplacements, report.FilesChanged, report.FilesScanned)
	for _, pair := range report.Pairs {
		s.out.Info("  '%s' -> '%s'", pair.Old, pair.New)
	}
	return report, nil
}
