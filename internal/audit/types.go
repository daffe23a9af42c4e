// Package audit provides the append-only event trail for scenariotool
// replacement runs. Every rewritten field is recorded with enough detail to
// report on it later and to undo it.
package audit

import "time"

// RunID is a unique identifier for each program execution, in UUID v4 format.
type RunID string

// LogFileName is the active audit log file inside the log directory.
const LogFileName = "scenariotool-audit.jsonl"

// IndexFileName tracks rotated log segments.
const IndexFileName = "scenariotool-audit-index.json"

// EventType represents the type of audit event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// Replacement events
	EventReplace   EventType = "REPLACE"
	EventFileError EventType = "FILE_ERROR"

	// Undo events
	EventUndoReplace  EventType = "UNDO_REPLACE"
	EventUndoConflict EventType = "UNDO_CONFLICT"

	// System events
	EventRotation       EventType = "ROTATION"
	EventRetentionPrune EventType = "RETENTION_PRUNE"
	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
	StatusSkipped OperationStatus = "SKIPPED"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress  RunStatus = "IN_PROGRESS"
	RunStatusCompleted   RunStatus = "COMPLETED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
)

// RunType represents the type of run.
type RunType string

const (
	RunTypeReplace RunType = "REPLACE"
	RunTypeWatch   RunType = "WATCH"
	RunTypeUndo    RunType = "UNDO"
)

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// AuditEvent represents a single audit record.
// For REPLACE and UNDO_* events, File names the scenario file and Pointer is
// the RFC 6901 JSON Pointer of the rewritten field inside it.
type AuditEvent struct {
	Timestamp    time.Time         `json:"timestamp"` // ISO 8601 format
	RunID        RunID             `json:"runId"`
	EventType    EventType         `json:"eventType"`
	Status       OperationStatus   `json:"status"`
	File         string            `json:"file,omitempty"`
	Pointer      string            `json:"pointer,omitempty"`
	OldValue     string            `json:"oldValue,omitempty"`
	NewValue     string            `json:"newValue,omitempty"`
	ErrorDetails *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	FilesScanned int `json:"filesScanned"`
	FilesChanged int `json:"filesChanged"`
	Replacements int `json:"replacements"`
	ReadErrors   int `json:"readErrors"`
	Conflicts    int `json:"conflicts"`
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID        RunID      `json:"runId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Status       RunStatus  `json:"status"`
	RunType      RunType    `json:"runType"`
	AppVersion   string     `json:"appVersion"`
	MachineID    string     `json:"machineId"`
	Summary      RunSummary `json:"summary"`
	UndoTargetID *RunID     `json:"undoTargetId,omitempty"` // For UNDO runs
}

// AuditConfig holds configuration for the audit system.
type AuditConfig struct {
	LogDirectory     string `json:"logDirectory"`
	RotationSize     int64  `json:"rotationSizeBytes"` // Rotate when file exceeds this size
	RetentionDays    int    `json:"retentionDays"`     // 0 = unlimited
	RetentionRuns    int    `json:"retentionRuns"`     // 0 = unlimited
	MinRetentionDays int    `json:"minRetentionDays"`  // Default: 7
}

// DefaultAuditConfig returns an AuditConfig with sensible defaults.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		LogDirectory:     ".scenariotool/audit",
		RotationSize:     10 * 1024 * 1024, // 10MB
		RetentionDays:    30,
		RetentionRuns:    0, // Unlimited
		MinRetentionDays: 7,
	}
}
