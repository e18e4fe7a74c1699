package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewPersonRegistered builds the event that registers name.
func NewPersonRegistered(source EventSource, correlationID, name string) (Event, error) {
	return newEvent(EventTypePersonRegistered, source, correlationID,
		EventSubject{Identity: name},
		PersonRegisteredPayload{Name: name})
}

// NewFriendshipAdded builds the event that links person1 and person2.
func NewFriendshipAdded(source EventSource, correlationID, person1, person2 string) (Event, error) {
	return newEvent(EventTypeFriendshipAdded, source, correlationID,
		EventSubject{Identity: person1, Counterpart: person2},
		FriendshipAddedPayload{Person1: person1, Person2: person2})
}

// NewPossessionAdded builds the event that gives item to name.
func NewPossessionAdded(source EventSource, correlationID, name, item string) (Event, error) {
	return newEvent(EventTypePossessionAdded, source, correlationID,
		EventSubject{Identity: name},
		PossessionAddedPayload{Name: name, Item: item})
}

func newEvent(eventType EventType, source EventSource, correlationID string, subject EventSubject, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	if source.WriterID == "" {
		source.WriterID = WriterID
	}
	if correlationID == "" {
		correlationID = SentinelUnknown
	}

	now := time.Now().UTC()
	return Event{
		EventID:       EventID("evt_" + uuid.NewString()),
		EventType:     eventType,
		SchemaVersion: 1,
		TsEvent:       now,
		TsIngest:      now,
		Source:        source,
		Subject:       subject,
		Correlation: EventCorrelation{
			CorrelationID: correlationID,
			CausationID:   SentinelUnknown,
		},
		Payload: data,
	}, nil
}
