package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RetentionManager prunes rotated log segments that exceed the configured
// retention limits. The active log is never pruned, and segments holding
// runs younger than MinRetentionDays are always kept.
type RetentionManager struct {
	config AuditConfig
	reader *AuditReader
}

// NewRetentionManager creates a new RetentionManager with the given configuration.
func NewRetentionManager(config AuditConfig) *RetentionManager {
	return &RetentionManager{
		config: config,
		reader: NewAuditReader(config.LogDirectory),
	}
}

// segmentRunInfo describes a rotated segment and the runs it holds.
type segmentRunInfo struct {
	Filename     string
	FilePath     string
	Size         int64
	ModTime      time.Time
	RunIDs       []RunID
	NewestRunAge time.Duration
}

// PruneResult contains the result of a pruning operation.
type PruneResult struct {
	PrunedSegments  []string
	PrunedRuns      []RunID
	TotalBytesFreed int64
}

// checkRetention returns the segments that exceed the retention limits.
func (rm *RetentionManager) checkRetention() ([]segmentRunInfo, error) {
	if rm.config.RetentionDays == 0 && rm.config.RetentionRuns == 0 {
		return nil, nil
	}

	segments, err := rm.segmentInfos()
	if err != nil {
		return nil, fmt.Errorf("failed to get segment info: %w", err)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	now := time.Now()
	minRetentionDays := rm.config.MinRetentionDays
	if minRetentionDays == 0 {
		minRetentionDays = 7
	}
	minRetention := time.Duration(minRetentionDays) * 24 * time.Hour

	pruneSet := make(map[string]segmentRunInfo)

	if rm.config.RetentionDays > 0 {
		retention := time.Duration(rm.config.RetentionDays) * 24 * time.Hour
		for _, seg := range segments {
			if now.Sub(seg.ModTime) <= retention {
				continue
			}
			if seg.NewestRunAge < minRetention {
				continue
			}
			pruneSet[seg.Filename] = seg
		}
	}

	if rm.config.RetentionRuns > 0 {
		runs, err := rm.reader.ListRuns()
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) > rm.config.RetentionRuns {
			sort.Slice(runs, func(i, j int) bool {
				return runs[i].StartTime.Before(runs[j].StartTime)
			})

			expired := make(map[RunID]bool)
			for _, run := range runs[:len(runs)-rm.config.RetentionRuns] {
				if now.Sub(run.StartTime) >= minRetention {
					expired[run.RunID] = true
				}
			}

			// A segment is prunable only when every run it holds is expired.
			for _, seg := range segments {
				if len(seg.RunIDs) == 0 || seg.NewestRunAge < minRetention {
					continue
				}
				allExpired := true
				for _, runID := range seg.RunIDs {
					if !expired[runID] {
						allExpired = false
						break
					}
				}
				if allExpired {
					pruneSet[seg.Filename] = seg
				}
			}
		}
	}

	toPrune := make([]segmentRunInfo, 0, len(pruneSet))
	for _, seg := range pruneSet {
		toPrune = append(toPrune, seg)
	}
	sort.Slice(toPrune, func(i, j int) bool {
		return toPrune[i].Filename < toPrune[j].Filename
	})
	return toPrune, nil
}

// Prune removes segments that exceed retention limits, recording a
// RETENTION_PRUNE event for each before deletion.
func (rm *RetentionManager) Prune(writer *AuditWriter) (*PruneResult, error) {
	toPrune, err := rm.checkRetention()
	if err != nil {
		return nil, err
	}

	result := &PruneResult{
		PrunedSegments: []string{},
		PrunedRuns:     []RunID{},
	}
	if len(toPrune) == 0 {
		return result, nil
	}

	for _, seg := range toPrune {
		if writer != nil {
			event := CreateRetentionPruneEvent(seg.Filename, seg.RunIDs)
			if err := writer.WriteEvent(event); err != nil {
				return result, fmt.Errorf("failed to write RETENTION_PRUNE event: %w", err)
			}
		}

		if err := os.Remove(seg.FilePath); err != nil {
			return result, fmt.Errorf("failed to remove segment %s: %w", seg.Filename, err)
		}

		result.PrunedSegments = append(result.PrunedSegments, seg.Filename)
		result.PrunedRuns = append(result.PrunedRuns, seg.RunIDs...)
		result.TotalBytesFreed += seg.Size
	}

	if err := rm.updateIndexAfterPrune(result.PrunedSegments); err != nil {
		// The segments are already deleted; the index can be rebuilt.
		fmt.Fprintf(os.Stderr, "warning: failed to update index after prune: %v\n", err)
	}

	return result, nil
}

// segmentInfos collects metadata about all rotated segments. The active log
// is excluded.
func (rm *RetentionManager) segmentInfos() ([]segmentRunInfo, error) {
	names, err := DiscoverSegments(rm.config.LogDirectory)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var infos []segmentRunInfo

	for _, name := range names {
		filePath := filepath.Join(rm.config.LogDirectory, name)
		info, err := os.Stat(filePath)
		if err != nil {
			continue
		}

		seg := segmentRunInfo{
			Filename: name,
			FilePath: filePath,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		}

		events, err := readEventsFromFile(filePath)
		if err != nil {
			// Unreadable segment: include it with no run info so day-based
			// retention can still reap it.
			infos = append(infos, seg)
			continue
		}

		seen := make(map[RunID]bool)
		var newestRun time.Time
		for _, event := range events {
			if event.RunID == "" {
				continue
			}
			if !seen[event.RunID] {
				seen[event.RunID] = true
				seg.RunIDs = append(seg.RunIDs, event.RunID)
			}
			if event.EventType == EventRunStart && event.Timestamp.After(newestRun) {
				newestRun = event.Timestamp
			}
		}
		if !newestRun.IsZero() {
			seg.NewestRunAge = now.Sub(newestRun)
		}

		infos = append(infos, seg)
	}

	return infos, nil
}

// updateIndexAfterPrune removes pruned segments from the rotation index.
func (rm *RetentionManager) updateIndexAfterPrune(prunedSegments []string) error {
	index, err := LoadIndex(rm.config.LogDirectory)
	if err != nil {
		return nil // no index to update
	}

	pruned := make(map[string]bool)
	for _, seg := range prunedSegments {
		pruned[seg] = true
	}

	var remaining []SegmentInfo
	for _, seg := range index.Segments {
		if !pruned[seg.Filename] {
			remaining = append(remaining, seg)
		}
	}
	index.Segments = remaining
	index.LastUpdated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	indexPath := filepath.Join(rm.config.LogDirectory, IndexFileName)
	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// CreateRetentionPruneEvent creates a RETENTION_PRUNE system event.
func CreateRetentionPruneEvent(filename string, prunedRunIDs []RunID) AuditEvent {
	return AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     "",
		EventType: EventRetentionPrune,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"prunedSegment":  filename,
			"prunedRunCount": fmt.Sprintf("%d", len(prunedRunIDs)),
		},
	}
}
