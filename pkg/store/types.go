package store

import (
	"encoding/json"
	"time"
)

// EventType represents the kind of event.
type EventType string

const (
	EventTypePersonRegistered EventType = "person_registered"
	EventTypeFriendshipAdded  EventType = "friendship_added"
	EventTypePossessionAdded  EventType = "possession_added"
)

// EventID is a unique identifier for an event.
type EventID string

// Event is the envelope for every graph mutation recorded in the journal.
type Event struct {
	EventID       EventID          `json:"event_id"`
	EventType     EventType        `json:"event_type"`
	SchemaVersion int              `json:"schema_version"`
	TsEvent       time.Time        `json:"ts_event"`
	TsIngest      time.Time        `json:"ts_ingest"`
	Source        EventSource      `json:"source"`
	Subject       EventSubject     `json:"subject"`
	Correlation   EventCorrelation `json:"correlation"`
	Payload       json.RawMessage  `json:"payload"`
}

// EventSource describes the origin of the event.
type EventSource struct {
	OriginKind string `json:"origin_kind"` // api, seed, cli, mcp
	OriginID   string `json:"origin_id"`
	WriterID   string `json:"writer_id"` // Always "borrowd"
}

// EventSubject names the people an event is about. Counterpart is only set
// for friendships.
type EventSubject struct {
	Identity    string `json:"identity"`
	Counterpart string `json:"counterpart,omitempty"`
}

// EventCorrelation groups events logically.
type EventCorrelation struct {
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id"`
}

// PersonRegisteredPayload is the payload of EventTypePersonRegistered.
type PersonRegisteredPayload struct {
	Name string `json:"name"`
}

// FriendshipAddedPayload is the payload of EventTypeFriendshipAdded.
type FriendshipAddedPayload struct {
	Person1 string `json:"person1"`
	Person2 string `json:"person2"`
}

// PossessionAddedPayload is the payload of EventTypePossessionAdded.
type PossessionAddedPayload struct {
	Name string `json:"name"`
	Item string `json:"item"`
}

// EventFilter defines filters for querying events.
type EventFilter struct {
	From       time.Time
	To         time.Time
	EventTypes []EventType
	Identity   string
	Limit      int
}

// SentinelUnknown fills correlation fields a writer could not supply.
const SentinelUnknown = "sentinel:unknown"

// WriterID is stamped on every event this process produces.
const WriterID = "borrowd"
