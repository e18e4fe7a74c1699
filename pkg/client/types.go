package client

import (
	"encoding/json"
	"time"
)

// Status represents the health check response.
type Status struct {
	// Status is the health status string (e.g. "ok").
	Status string `json:"status"`
}

// Person is a node of the social graph as served by the daemon.
type Person struct {
	Name        string   `json:"name"`
	Friends     []string `json:"friends"`
	Possessions []string `json:"possessions"`
}

// BorrowPath is a chain of friends ending at someone who holds the item.
type BorrowPath struct {
	// Path starts with the asking person and ends with the holder.
	Path []string `json:"path"`
	// Hops is len(Path)-1; zero when the asker already holds the item.
	Hops int `json:"hops"`
	// Visited is how many people the search examined.
	Visited int `json:"visited"`
	// Cached is set when the daemon served the result from its path cache.
	Cached bool `json:"cached,omitempty"`
}

// Stats summarizes the size of the daemon's graph.
type Stats struct {
	People      int    `json:"people"`
	Friendships int    `json:"friendships"`
	Possessions int    `json:"possessions"`
	Revision    uint64     `json:"revision"`
	LastEventID string     `json:"last_event_id,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// Event is a journaled graph mutation.
type Event struct {
	EventID       string           `json:"event_id"`
	EventType     string           `json:"event_type"`
	SchemaVersion int              `json:"schema_version"`
	TsEvent       time.Time        `json:"ts_event"`
	TsIngest      time.Time        `json:"ts_ingest"`
	Source        EventSource      `json:"source"`
	Subject       EventSubject     `json:"subject"`
	Correlation   EventCorrelation `json:"correlation"`
	Payload       json.RawMessage  `json:"payload"`
}

type EventSource struct {
	OriginKind string `json:"origin_kind"`
	OriginID   string `json:"origin_id"`
	WriterID   string `json:"writer_id"`
}

type EventSubject struct {
	Identity    string `json:"identity"`
	Counterpart string `json:"counterpart,omitempty"`
}

type EventCorrelation struct {
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id"`
}

// EventsOptions narrows Events. Zero values mean no filter.
type EventsOptions struct {
	Limit    int
	Identity string
	Types    []string
}

type mutationResult struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

type errorBody struct {
	Error      string   `json:"error"`
	Reason     string   `json:"reason,omitempty"`
	Parameter  string   `json:"parameter,omitempty"`
	Identities []string `json:"identities,omitempty"`
}
