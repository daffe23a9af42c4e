package audit

import (
	"encoding/json"
	"time"
)

// ISO8601Format is the time format used for audit event timestamps.
const ISO8601Format = time.RFC3339

// eventJSON is the internal representation for JSON marshaling/unmarshaling.
// It uses pointers for optional string fields so that omitempty behaves
// correctly even for legitimately empty values.
type eventJSON struct {
	Timestamp    string            `json:"timestamp"`
	RunID        RunID             `json:"runId"`
	EventType    EventType         `json:"eventType"`
	Status       OperationStatus   `json:"status"`
	File         *string           `json:"file,omitempty"`
	Pointer      *string           `json:"pointer,omitempty"`
	OldValue     *string           `json:"oldValue,omitempty"`
	NewValue     *string           `json:"newValue,omitempty"`
	ErrorDetails *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// MarshalJSON implements json.Marshaler for AuditEvent, formatting the
// timestamp as ISO 8601 and omitting unset optional fields.
func (e AuditEvent) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp:    e.Timestamp.Format(ISO8601Format),
		RunID:        e.RunID,
		EventType:    e.EventType,
		Status:       e.Status,
		ErrorDetails: e.ErrorDetails,
		Metadata:     e.Metadata,
	}

	if e.File != "" {
		ej.File = &e.File
	}
	if e.Pointer != "" {
		ej.Pointer = &e.Pointer
	}
	if e.OldValue != "" {
		ej.OldValue = &e.OldValue
	}
	if e.NewValue != "" {
		ej.NewValue = &e.NewValue
	}

	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for AuditEvent.
func (e *AuditEvent) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(ISO8601Format, ej.Timestamp)
	if err != nil {
		return err
	}

	e.Timestamp = t
	e.RunID = ej.RunID
	e.EventType = ej.EventType
	e.Status = ej.Status
	e.ErrorDetails = ej.ErrorDetails
	e.Metadata = ej.Metadata

	if ej.File != nil {
		e.File = *ej.File
	}
	if ej.Pointer != nil {
		e.Pointer = *ej.Pointer
	}
	if ej.OldValue != nil {
		e.OldValue = *ej.OldValue
	}
	if ej.NewValue != nil {
		e.NewValue = *ej.NewValue
	}

	return nil
}

// MarshalJSONLine marshals an AuditEvent to a JSON line (no trailing newline).
func (e AuditEvent) MarshalJSONLine() ([]byte, error) {
	return e.MarshalJSON()
}

// UnmarshalJSONLine unmarshals a JSON line into an AuditEvent.
func UnmarshalJSONLine(data []byte) (*AuditEvent, error) {
	var e AuditEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
