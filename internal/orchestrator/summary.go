package orchestrator

import (
	"scenariotool/internal/audit"
	"scenariotool/internal/jsontree"
)

// FileResult records the outcome for one scenario file.
type FileResult struct {
	Name         string
	Replacements int
	Changes      []jsontree.Change
	Err          error
}

// PairChange is a unique (old, new) replacement pair in first-seen order.
type PairChange struct {
	Old string
	New string
}

// RunReport accumulates the results of a replace or status run.
type RunReport struct {
	RunID             audit.RunID
	DryRun            bool
	FilesScanned      int
	FilesChanged      int
	TotalReplacements int
	ReadErrors        int
	Files             []FileResult
	Pairs             []PairChange

	seenPairs map[PairChange]struct{}
}

// addPair records a replacement pair, keeping only the first occurrence.
func (r *RunReport) addPair(old, updated string) {
	if r.seenPairs == nil {
		r.seenPairs = make(map[PairChange]struct{})
	}
	pair := PairChange{Old: old, New: updated}
	if _, seen := r.seenPairs[pair]; seen {
		return
	}
	r.seenPairs[pair] = struct{}{}
	r.Pairs = append(r.Pairs, pair)
}

// HasReadErrors reports whether any file failed to read or write.
func (r *RunReport) HasReadErrors() bool {
	return r.ReadErrors > 0
}

func (r *RunReport) auditSummary() audit.RunSummary {
	return audit.RunSummary{
		FilesScanned: r.FilesScanned,
		FilesChanged: r.FilesChanged,
		Replacements: r.TotalReplacements,
		ReadErrors:   r.ReadErrors,
	}
}

// printReport writes the total line and the unique replacement pairs, in
// first-seen order, matching the per-file lines already printed.
func (s *Session) printReport(r *RunReport) {
	s.out.Info("\nTotal: %d replacements", r.TotalReplacements)
	for _, pair := range r.Pairs {
		s.out.Info("  '%s' -> '%s'", pair.Old, pair.New)
	}
}
