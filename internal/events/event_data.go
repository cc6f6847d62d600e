package events

import (
	"encoding/json"
	"time"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// FileChange describes one dataset file whose fingerprint changed
type FileChange struct {
	Table   string    `json:"table"`
	File    string    `json:"file"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Removed bool      `json:"removed,omitempty"`
}

// DatasetUpdatedData contains data for DatasetUpdated events
type DatasetUpdatedData struct {
	Changes []FileChange `json:"changes"`
}

// EventType returns the event type for DatasetUpdatedData
func (d *DatasetUpdatedData) EventType() EventType {
	return DatasetUpdated
}

// Tables returns the names of the changed tables
func (d *DatasetUpdatedData) Tables() []string {
	out := make([]string, len(d.Changes))
	for i, c := range d.Changes {
		out[i] = c.Table
	}
	return out
}

// SyncStartedData contains data for SyncStarted events
type SyncStartedData struct {
	Source string `json:"source"` // "s3" or "local"
}

// EventType returns the event type for SyncStartedData
func (d *SyncStartedData) EventType() EventType {
	return SyncStarted
}

// SyncCompletedData contains data for SyncCompleted events
type SyncCompletedData struct {
	Source     string `json:"source"`
	Downloaded int    `json:"downloaded"`
	Changed    int    `json:"changed"`
	DurationMs int64  `json:"duration_ms"`
}

// EventType returns the event type for SyncCompletedData
func (d *SyncCompletedData) EventType() EventType {
	return SyncCompleted
}

// SyncFailedData contains data for SyncFailed events
type SyncFailedData struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// EventType returns the event type for SyncFailedData
func (d *SyncFailedData) EventType() EventType {
	return SyncFailed
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GenericEventData is a fallback for events that don't have a specific type
type GenericEventData struct {
	Type EventType              `json:"-"`
	Data map[string]interface{} `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}

// UnmarshalJSON restores the typed Data payload from the event type
func (e *Event) UnmarshalJSON(data []byte) error {
	type Alias Event
	aux := &struct {
		Data json.RawMessage `json:"data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	if len(aux.Data) == 0 || string(aux.Data) == "null" {
		e.Data = nil
		return nil
	}

	var eventData EventData
	switch aux.Type {
	case DatasetUpdated:
		eventData = &DatasetUpdatedData{}
	case SyncStarted:
		eventData = &SyncStartedData{}
	case SyncCompleted:
		eventData = &SyncCompletedData{}
	case SyncFailed:
		eventData = &SyncFailedData{}
	case ErrorOccurred:
		eventData = &ErrorEventData{}
	default:
		eventData = &GenericEventData{Type: aux.Type}
	}

	if err := json.Unmarshal(aux.Data, eventData); err != nil {
		return err
	}
	e.Data = eventData
	return nil
}
