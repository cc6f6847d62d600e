// Package events provides the in-process event bus used to push dataset
// changes to connected clients.
package events

import (
	"time"
)

// EventType represents different event types
type EventType string

const (
	DatasetUpdated EventType = "DATASET_UPDATED"
	SyncStarted    EventType = "SYNC_STARTED"
	SyncCompleted  EventType = "SYNC_COMPLETED"
	SyncFailed     EventType = "SYNC_FAILED"
	ErrorOccurred  EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type a stream client can subscribe to
var AllTypes = []EventType{
	DatasetUpdated,
	SyncStarted,
	SyncCompleted,
	SyncFailed,
	ErrorOccurred,
}

// Event represents a system event
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data,omitempty"`
}
