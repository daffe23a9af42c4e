package audit

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditWriter handles all write operations to the audit log.
// It implements append-only semantics with fail-fast behavior: every event
// is flushed and synced before the write is considered complete.
type AuditWriter struct {
	mu              sync.Mutex
	file            *os.File
	writer          *bufio.Writer
	logPath         string
	currentRun      *RunID
	config          AuditConfig
	rotationManager *RotationManager
}

// NewAuditWriter creates a new AuditWriter with the given configuration.
// It creates the log directory if it doesn't exist and opens the log file
// for appending. A brand-new log gets a LOG_INITIALIZED event.
func NewAuditWriter(config AuditConfig) (*AuditWriter, error) {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(config.LogDirectory, LogFileName)

	isNewLog := false
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		isNewLog = true
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	w := &AuditWriter{
		file:            file,
		writer:          bufio.NewWriter(file),
		logPath:         logPath,
		config:          config,
		rotationManager: NewRotationManager(config),
	}

	if isNewLog {
		if err := w.writeLogInitialized(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}

	return w, nil
}

// GenerateRunID generates a new UUID v4 Run ID.
func GenerateRunID() RunID {
	return RunID(uuid.NewString())
}

// StartRun initializes a new run of the given type and writes the RUN_START
// event. It returns the generated Run ID.
func (w *AuditWriter) StartRun(runType RunType, appVersion, machineID string) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := GenerateRunID()

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"appVersion": appVersion,
			"machineId":  machineID,
			"runType":    string(runType),
		},
	}

	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// StartUndoRun initializes a new UNDO run targeting a previous run.
func (w *AuditWriter) StartUndoRun(appVersion, machineID string, targetRunID RunID) (RunID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	runID := GenerateRunID()

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"appVersion":   appVersion,
			"machineId":    machineID,
			"runType":      string(RunTypeUndo),
			"undoTargetId": string(targetRunID),
		},
	}

	if err := w.writeEventLocked(event); err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// WriteEvent writes a single audit event to the log, failing fast if the
// write cannot be completed.
func (w *AuditWriter) WriteEvent(event AuditEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.writeEventLocked(event)
}

// writeEventLocked marshals the event, appends it as a JSON line, and
// flushes and syncs to disk. It checks for rotation after writing.
func (w *AuditWriter) writeEventLocked(event AuditEvent) error {
	data, err := event.MarshalJSONLine()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := w.appendLine(data); err != nil {
		return err
	}

	// ROTATION events skip the check to avoid recursing into rotation.
	if event.EventType != EventRotation {
		if err := w.checkAndRotate(); err != nil {
			return fmt.Errorf("failed to check/perform rotation: %w", err)
		}
	}

	return nil
}

// appendLine writes a marshaled JSON line followed by a newline, then
// flushes and syncs.
func (w *AuditWriter) appendLine(data []byte) error {
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := w.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}
	return nil
}

// checkAndRotate checks if rotation is needed and performs it if so.
func (w *AuditWriter) checkAndRotate() error {
	needsRotation, err := w.rotationManager.NeedsRotation(w.logPath)
	if err != nil {
		return err
	}
	if !needsRotation {
		return nil
	}

	// Generate the rotated filename once so the ROTATION event and the
	// rename agree.
	rotatedFilename := w.rotationManager.GenerateRotatedFilename()

	var runID RunID
	if w.currentRun != nil {
		runID = *w.currentRun
	}
	rotationEvent := CreateRotationEvent(runID, filepath.Base(w.logPath), rotatedFilename)

	data, err := rotationEvent.MarshalJSONLine()
	if err != nil {
		return fmt.Errorf("failed to marshal rotation event: %w", err)
	}
	if err := w.appendLine(data); err != nil {
		return err
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file for rotation: %w", err)
	}

	if _, err := w.rotationManager.RotateWithFilename(w.logPath, rotatedFilename); err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}

	file, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log file after rotation: %w", err)
	}

	w.file = file
	w.writer = bufio.NewWriter(file)

	return nil
}

// EndRun records the run completion status and summary.
func (w *AuditWriter) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    runStatusToOperationStatus(status),
		Metadata: map[string]string{
			"status":       string(status),
			"filesScanned": fmt.Sprintf("%d", summary.FilesScanned),
			"filesChanged": fmt.Sprintf("%d", summary.FilesChanged),
			"replacements": fmt.Sprintf("%d", summary.Replacements),
			"readErrors":   fmt.Sprintf("%d", summary.ReadErrors),
			"conflicts":    fmt.Sprintf("%d", summary.Conflicts),
		},
	}

	if err := w.writeEventLocked(event); err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

func runStatusToOperationStatus(status RunStatus) OperationStatus {
	switch status {
	case RunStatusFailed, RunStatusInterrupted:
		return StatusFailure
	default:
		return StatusSuccess
	}
}

// Close flushes any buffered data and closes the audit log file.
func (w *AuditWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}

// CurrentRunID returns the current run ID, or nil if no run is active.
func (w *AuditWriter) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// LogPath returns the path to the current audit log file.
func (w *AuditWriter) LogPath() string {
	return w.logPath
}

// recordRunEvent stamps event with the active run ID and writes it. The run
// check and the write happen under one lock so a concurrent EndRun cannot
// slip between them. startHint names the call that opens the required run.
func (w *AuditWriter) recordRunEvent(event AuditEvent, startHint string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return fmt.Errorf("no active run: call %s first", startHint)
	}
	event.RunID = *w.currentRun

	return w.writeEventLocked(event)
}

// RecordReplace records a REPLACE event for a rewritten field.
func (w *AuditWriter) RecordReplace(file, pointer, oldValue, newValue string) error {
	return w.recordRunEvent(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventReplace,
		Status:    StatusSuccess,
		File:      file,
		Pointer:   pointer,
		OldValue:  oldValue,
		NewValue:  newValue,
	}, "StartRun")
}

// RecordFileError records a FILE_ERROR event when a scenario file could not
// be read. The batch continues past these.
func (w *AuditWriter) RecordFileError(file, errType, errMsg string) error {
	return w.recordRunEvent(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventFileError,
		Status:    StatusFailure,
		File:      file,
		ErrorDetails: &ErrorDetails{
			ErrorType:    errType,
			ErrorMessage: errMsg,
			Operation:    "read",
		},
	}, "StartRun")
}

// RecordUndoReplace records an UNDO_REPLACE event for a restored field.
func (w *AuditWriter) RecordUndoReplace(file, pointer, fromValue, toValue string) error {
	return w.recordRunEvent(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventUndoReplace,
		Status:    StatusSuccess,
		File:      file,
		Pointer:   pointer,
		OldValue:  fromValue,
		NewValue:  toValue,
	}, "StartUndoRun")
}

// RecordUndoConflict records an UNDO_CONFLICT event for a field whose
// current value no longer matches what the target run wrote. The field is
// left untouched.
func (w *AuditWriter) RecordUndoConflict(file, pointer, expected, found string) error {
	return w.recordRunEvent(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventUndoConflict,
		Status:    StatusSkipped,
		File:      file,
		Pointer:   pointer,
		OldValue:  expected,
		NewValue:  found,
		Metadata: map[string]string{
			"reason": "field value changed since target run",
		},
	}, "StartUndoRun")
}

// writeLogInitialized writes a LOG_INITIALIZED event when a new log file is
// created. System events carry no run ID.
func (w *AuditWriter) writeLogInitialized() error {
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		RunID:     "",
		EventType: EventLogInitialized,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			"logPath": w.logPath,
		},
	}

	data, err := event.MarshalJSONLine()
	if err != nil {
		return fmt.Errorf("failed to marshal LOG_INITIALIZED event: %w", err)
	}
	return w.appendLine(data)
}

// CheckAndPruneRetention checks retention limits and prunes old segments if
// needed. This should be called on startup to enforce retention policies.
func (w *AuditWriter) CheckAndPruneRetention() (*PruneResult, error) {
	rm := NewRetentionManager(w.config)
	return rm.Prune(w)
}

// GetConfig returns the audit configuration.
func (w *AuditWriter) GetConfig() AuditConfig {
	return w.config
}
