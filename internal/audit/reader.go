package audit

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// IntegrityStatus represents the result of a log integrity check.
type IntegrityStatus string

const (
	// IntegrityOK indicates the log file is valid and complete.
	IntegrityOK IntegrityStatus = "OK"
	// IntegrityMissing indicates the log file does not exist.
	IntegrityMissing IntegrityStatus = "MISSING"
	// IntegrityCorrupt indicates the log file has corruption (e.g., truncated last line).
	IntegrityCorrupt IntegrityStatus = "CORRUPT"
	// IntegrityEmpty indicates the log file exists but is empty.
	IntegrityEmpty IntegrityStatus = "EMPTY"
)

// LogIntegrityResult contains the result of a log integrity check.
type LogIntegrityResult struct {
	Status       IntegrityStatus
	FilePath     string
	TotalLines   int
	ErrorMessage string
	ErrorLine    int // 0 if N/A
}

// AuditReader reads and parses audit events from log files, transparently
// handling rotated segments.
type AuditReader struct {
	logDir string
}

// NewAuditReader creates a new AuditReader for the given log directory.
func NewAuditReader(logDir string) *AuditReader {
	return &AuditReader{logDir: logDir}
}

// ListRuns returns all runs with summary information, oldest first.
func (r *AuditReader) ListRuns() ([]RunInfo, error) {
	events, err := r.readAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return extractRunInfos(events), nil
}

// GetRun returns all events for a specific run.
func (r *AuditReader) GetRun(runID RunID) ([]AuditEvent, error) {
	events, err := r.readAllEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	var runEvents []AuditEvent
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}

	if len(runEvents) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	return runEvents, nil
}

// GetLatestRun returns the most recent run by start timestamp.
func (r *AuditReader) GetLatestRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no runs found")
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})

	return &runs[0], nil
}

// ReplacementsForRun returns the REPLACE events of a run, in the order they
// were written.
func (r *AuditReader) ReplacementsForRun(runID RunID) ([]AuditEvent, error) {
	events, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var replacements []AuditEvent
	for _, event := range events {
		if event.EventType == EventReplace {
			replacements = append(replacements, event)
		}
	}
	return replacements, nil
}

// CheckIntegrity validates a single log file, detecting truncated or
// malformed lines. An interrupted write leaves a partial last line; that is
// reported as CORRUPT with the offending line number.
func CheckIntegrity(filePath string) *LogIntegrityResult {
	result := &LogIntegrityResult{FilePath: filePath}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Status = IntegrityMissing
			result.ErrorMessage = "log file does not exist"
			return result
		}
		result.Status = IntegrityCorrupt
		result.ErrorMessage = err.Error()
		return result
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if _, err := UnmarshalJSONLine(line); err != nil {
			result.Status = IntegrityCorrupt
			result.ErrorLine = lineNum
			result.ErrorMessage = fmt.Sprintf("unparseable line %d: %s", lineNum, err.Error())
			return result
		}
		result.TotalLines++
	}
	if err := scanner.Err(); err != nil {
		result.Status = IntegrityCorrupt
		result.ErrorMessage = err.Error()
		return result
	}

	if result.TotalLines == 0 {
		result.Status = IntegrityEmpty
		return result
	}

	result.Status = IntegrityOK
	return result
}

// CheckAllIntegrity validates every log file, segments included.
func (r *AuditReader) CheckAllIntegrity() ([]*LogIntegrityResult, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get log files: %w", err)
	}

	results := make([]*LogIntegrityResult, 0, len(logFiles))
	for _, logFile := range logFiles {
		results = append(results, CheckIntegrity(logFile))
	}
	return results, nil
}

// readAllEvents reads all events from all log segments in chronological order.
func (r *AuditReader) readAllEvents() ([]AuditEvent, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get log files: %w", err)
	}

	if len(logFiles) == 0 {
		return []AuditEvent{}, nil
	}

	var allEvents []AuditEvent
	for _, logFile := range logFiles {
		events, err := readEventsFromFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read events from %s: %w", logFile, err)
		}
		allEvents = append(allEvents, events...)
	}

	return allEvents, nil
}

// readEventsFromFile reads all events from a single log file.
func readEventsFromFile(filePath string) ([]AuditEvent, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		event, err := UnmarshalJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		events = append(events, *event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}

	return events, nil
}

// extractRunInfos groups events by run and builds RunInfo records, sorted
// by start time (oldest first). System events with no run ID are skipped.
func extractRunInfos(events []AuditEvent) []RunInfo {
	runEvents := make(map[RunID][]AuditEvent)
	var order []RunID
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		if _, seen := runEvents[event.RunID]; !seen {
			order = append(order, event.RunID)
		}
		runEvents[event.RunID] = append(runEvents[event.RunID], event)
	}

	runs := make([]RunInfo, 0, len(order))
	for _, runID := range order {
		runs = append(runs, buildRunInfo(runID, runEvents[runID]))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})

	return runs
}

// buildRunInfo reconstructs a RunInfo from a run's events. A run without a
// RUN_END event is reported as IN_PROGRESS (typically an interrupted run).
func buildRunInfo(runID RunID, events []AuditEvent) RunInfo {
	info := RunInfo{
		RunID:   runID,
		Status:  RunStatusInProgress,
		RunType: RunTypeReplace,
	}

	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			info.AppVersion = event.Metadata["appVersion"]
			info.MachineID = event.Metadata["machineId"]
			if rt := event.Metadata["runType"]; rt != "" {
				info.RunType = RunType(rt)
			}
			if target := event.Metadata["undoTargetId"]; target != "" {
				targetID := RunID(target)
				info.UndoTargetID = &targetID
			}
		case EventRunEnd:
			endTime := event.Timestamp
			info.EndTime = &endTime
			if status := event.Metadata["status"]; status != "" {
				info.Status = RunStatus(status)
			} else {
				info.Status = RunStatusCompleted
			}
			info.Summary = RunSummary{
				FilesScanned: atoiOrZero(event.Metadata["filesScanned"]),
				FilesChanged: atoiOrZero(event.Metadata["filesChanged"]),
				Replacements: atoiOrZero(event.Metadata["replacements"]),
				ReadErrors:   atoiOrZero(event.Metadata["readErrors"]),
				Conflicts:    atoiOrZero(event.Metadata["conflicts"]),
			}
		}
	}

	return info
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
