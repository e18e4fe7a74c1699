package graph

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rmax-ai/borrowd/pkg/store"
)

// Projection applies graph mutation events to a PersonStore.
type Projection struct {
	people *PersonStore

	mu             sync.RWMutex
	lastEventID    string
	lastIngestTime time.Time
}

// NewProjection creates a projection writing into people.
func NewProjection(people *PersonStore) *Projection {
	return &Projection{people: people}
}

// Store returns the PersonStore the projection writes into.
func (p *Projection) Store() *PersonStore {
	return p.people
}

// Apply updates the graph with a single event. Events the graph rejects
// (unknown people, empty names) return the PersonStore error unchanged so
// callers can match it with errors.As.
func (p *Projection) Apply(event store.Event) error {
	var err error
	switch event.EventType {
	case store.EventTypePersonRegistered:
		err = p.handlePersonRegistered(event)
	case store.EventTypeFriendshipAdded:
		err = p.handleFriendshipAdded(event)
	case store.EventTypePossessionAdded:
		err = p.handlePossessionAdded(event)
	default:
		return fmt.Errorf("unsupported event type %q", event.EventType)
	}
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.lastEventID = string(event.EventID)
	p.lastIngestTime = event.TsIngest
	p.mu.Unlock()
	return nil
}

func (p *Projection) handlePersonRegistered(event store.Event) error {
	var payload store.PersonRegisteredPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}
	return p.people.AddPerson(Identity(payload.Name))
}

func (p *Projection) handleFriendshipAdded(event store.Event) error {
	var payload store.FriendshipAddedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}
	return p.people.AddFriendship(Identity(payload.Person1), Identity(payload.Person2))
}

func (p *Projection) handlePossessionAdded(event store.Event) error {
	var payload store.PossessionAddedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.EventType, err)
	}
	return p.people.AddPossession(Identity(payload.Name), payload.Item)
}

// Replay applies events in order and stops at the first one that fails.
func (p *Projection) Replay(events []*store.Event) error {
	for i, event := range events {
		if event == nil {
			continue
		}
		if err := p.Apply(*event); err != nil {
			return fmt.Errorf("replay event %d (%s): %w", i, event.EventType, err)
		}
	}
	return nil
}

// LastEvent returns the id and ingest time of the last applied event.
func (p *Projection) LastEvent() (string, time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastEventID, p.lastIngestTime
}
