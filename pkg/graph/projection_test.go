package graph

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/borrowd/pkg/store"
)

var testSource = store.EventSource{OriginKind: "test", OriginID: "projection_test"}

func mustEvent(t *testing.T) func(store.Event, error) *store.Event {
	return func(evt store.Event, err error) *store.Event {
		t.Helper()
		require.NoError(t, err)
		return &evt
	}
}

func TestProjection_Apply_PersonRegistered(t *testing.T) {
	proj := NewProjection(NewPersonStore())

	evt := mustEvent(t)(store.NewPersonRegistered(testSource, "", "Kamil"))
	require.NoError(t, proj.Apply(*evt))

	people := proj.Store().People()
	require.Len(t, people, 1)
	assert.Equal(t, Identity("Kamil"), people[0].Identity)

	id, ts := proj.LastEvent()
	assert.Equal(t, string(evt.EventID), id)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestProjection_Replay(t *testing.T) {
	proj := NewProjection(NewPersonStore())

	events := []*store.Event{
		mustEvent(t)(store.NewPersonRegistered(testSource, "seed", "Magda")),
		mustEvent(t)(store.NewPersonRegistered(testSource, "seed", "Piotr")),
		nil,
		mustEvent(t)(store.NewFriendshipAdded(testSource, "seed", "Magda", "Piotr")),
		mustEvent(t)(store.NewPossessionAdded(testSource, "seed", "Piotr", "statyw")),
	}
	require.NoError(t, proj.Replay(events))

	s := proj.Store()
	assert.True(t, s.AreAcquainted("Piotr", "Magda"))
	p, err := s.GetPerson("Piotr")
	require.NoError(t, err)
	assert.Equal(t, []string{"statyw"}, p.Possessions)
}

func TestProjection_Replay_StopsOnUnknownPerson(t *testing.T) {
	proj := NewProjection(NewPersonStore())

	events := []*store.Event{
		mustEvent(t)(store.NewPersonRegistered(testSource, "", "Nikodem")),
		mustEvent(t)(store.NewFriendshipAdded(testSource, "", "Nikodem", "Mikołaj")),
		mustEvent(t)(store.NewPossessionAdded(testSource, "", "Nikodem", "rower")),
	}
	err := proj.Replay(events)
	require.Error(t, err)

	var unknown *UnknownPersonError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []Identity{"Mikołaj"}, unknown.Identities)

	p, err := proj.Store().GetPerson("Nikodem")
	require.NoError(t, err)
	assert.Empty(t, p.Possessions, "replay must stop at the failing event")
}

func TestProjection_Apply_Rejects(t *testing.T) {
	proj := NewProjection(NewPersonStore())

	err := proj.Apply(store.Event{EventType: "identity_deleted", Payload: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "unsupported event type")

	err = proj.Apply(store.Event{EventType: store.EventTypePersonRegistered, Payload: json.RawMessage(`{`)})
	assert.Error(t, err)

	evt := mustEvent(t)(store.NewPersonRegistered(testSource, "", ""))
	assert.ErrorIs(t, proj.Apply(*evt), ErrEmptyIdentity)

	id, _ := proj.LastEvent()
	assert.Empty(t, id, "failed events are not recorded as applied")
}
