// Package seed loads social graph fixtures from YAML.
//
// A fixture lists people with their friends and possessions:
//
//	people:
//	  - name: Kamil
//	    friends: [Magda, Piotr]
//	  - name: Magda
//	    possessions: [kamera]
//
// Everyone is registered first, then friendships, then possessions, so a
// person may name a friend listed further down. A friend that is never
// listed makes loading fail with a graph.UnknownPersonError.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/borrowd/pkg/graph"
	"github.com/rmax-ai/borrowd/pkg/store"
)

// Fixture is the YAML document root.
type Fixture struct {
	People []PersonEntry `yaml:"people"`
}

// PersonEntry is one entry of the people list.
type PersonEntry struct {
	Name        string   `yaml:"name"`
	Friends     []string `yaml:"friends,omitempty"`
	Possessions []string `yaml:"possessions,omitempty"`
}

// Journal records the events a fixture produced.
type Journal interface {
	AppendEvent(ctx context.Context, event *store.Event) error
}

// Summary counts what a load applied.
type Summary struct {
	People      int
	Friendships int
	Possessions int
	Events      int
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(data []byte) (*Fixture, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, p := range f.People {
		if p.Name == "" {
			return nil, fmt.Errorf("parse fixture: people[%d]: name is required", i)
		}
	}
	return &f, nil
}

// ParseFile reads and decodes the fixture at path.
func ParseFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Events converts the fixture into graph mutation events in load order.
func (f *Fixture) Events(source store.EventSource, correlationID string) ([]*store.Event, error) {
	var events []*store.Event
	add := func(evt store.Event, err error) error {
		if err != nil {
			return err
		}
		events = append(events, &evt)
		return nil
	}

	for _, p := range f.People {
		if err := add(store.NewPersonRegistered(source, correlationID, p.Name)); err != nil {
			return nil, err
		}
	}
	for _, p := range f.People {
		for _, friend := range p.Friends {
			if err := add(store.NewFriendshipAdded(source, correlationID, p.Name, friend)); err != nil {
				return nil, err
			}
		}
	}
	for _, p := range f.People {
		for _, item := range p.Possessions {
			if err := add(store.NewPossessionAdded(source, correlationID, p.Name, item)); err != nil {
				return nil, err
			}
		}
	}
	return events, nil
}

// Apply replays the fixture into proj and, when journal is non-nil, records
// every event. The graph is left partially loaded if an event fails.
func Apply(ctx context.Context, f *Fixture, proj *graph.Projection, journal Journal, source store.EventSource) (Summary, error) {
	before := proj.Store().Stats()

	events, err := f.Events(source, "seed")
	if err != nil {
		return Summary{}, fmt.Errorf("build seed events: %w", err)
	}
	if err := proj.Replay(events); err != nil {
		return Summary{}, err
	}

	if journal != nil {
		for _, evt := range events {
			if err := journal.AppendEvent(ctx, evt); err != nil {
				return Summary{}, fmt.Errorf("journal seed event: %w", err)
			}
		}
	}

	after := proj.Store().Stats()
	return Summary{
		People:      after.People - before.People,
		Friendships: after.Friendships - before.Friendships,
		Possessions: after.Possessions - before.Possessions,
		Events:      len(events),
	}, nil
}
