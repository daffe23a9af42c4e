package audit

import (
	"fmt"
	"sort"
	"time"
)

// AuditStats contains aggregate metrics across audit runs.
type AuditStats struct {
	TotalReplacements int
	TotalFilesChanged int
	TotalReadErrors   int
	TotalRuns         int // REPLACE and WATCH runs
	TotalUndos        int
	ByPair            map[string]int // "'old' -> 'new'" counts (top N)
	FirstRun          time.Time
	LastRun           time.Time
}

// StatsOptions configures stats aggregation.
type StatsOptions struct {
	Since *time.Time // Filter to runs starting at or after this time
	TopN  int        // Number of top replacement pairs to keep (0 = all)
}

// PairKey formats a replacement pair the way run reports print them.
func PairKey(oldValue, newValue string) string {
	return fmt.Sprintf("'%s' -> '%s'", oldValue, newValue)
}

// AggregateStats computes metrics across all audit logs in the directory.
func AggregateStats(logDir string, opts StatsOptions) (*AuditStats, error) {
	reader := NewAuditReader(logDir)

	runs, err := reader.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	stats := &AuditStats{
		ByPair: make(map[string]int),
	}
	pairCounts := make(map[string]int)

	for _, run := range runs {
		if opts.Since != nil && run.StartTime.Before(*opts.Since) {
			continue
		}

		if run.RunType == RunTypeUndo {
			stats.TotalUndos++
		} else {
			stats.TotalRuns++
		}

		if stats.FirstRun.IsZero() || run.StartTime.Before(stats.FirstRun) {
			stats.FirstRun = run.StartTime
		}
		if stats.LastRun.IsZero() || run.StartTime.After(stats.LastRun) {
			stats.LastRun = run.StartTime
		}

		stats.TotalReplacements += run.Summary.Replacements
		stats.TotalFilesChanged += run.Summary.FilesChanged
		stats.TotalReadErrors += run.Summary.ReadErrors

		events, err := reader.ReplacementsForRun(run.RunID)
		if err != nil {
			continue // degraded run record; totals above still count
		}
		for _, event := range events {
			pairCounts[PairKey(event.OldValue, event.NewValue)]++
		}
	}

	stats.ByPair = filterTopN(pairCounts, opts.TopN)
	return stats, nil
}

// filterTopN keeps the n highest counts (all when n <= 0). Ties break by key
// so the selection is deterministic.
func filterTopN(counts map[string]int, n int) map[string]int {
	if n <= 0 || len(counts) <= n {
		out := make(map[string]int, len(counts))
		for k, v := range counts {
			out[k] = v
		}
		return out
	}

	type kv struct {
		key   string
		count int
	}
	sorted := make([]kv, 0, len(counts))
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].key < sorted[j].key
	})

	out := make(map[string]int, n)
	for _, entry := range sorted[:n] {
		out[entry.key] = entry.count
	}
	return out
}

// SortedPairs returns the ByPair entries ordered by descending count, ties
// broken by key.
func (s *AuditStats) SortedPairs() []struct {
	Pair  string
	Count int
} {
	type pc = struct {
		Pair  string
		Count int
	}
	out := make([]pc, 0, len(s.ByPair))
	for k, v := range s.ByPair {
		out = append(out, pc{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pair < out[j].Pair
	})
	return out
}
