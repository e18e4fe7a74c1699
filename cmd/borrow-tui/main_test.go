package main

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/borrowd/pkg/client"
)

type fakeAPI struct {
	people []client.Person
	events []client.Event
	paths  map[string]client.BorrowPath
	err    error
}

func (f *fakeAPI) People(context.Context) ([]client.Person, error) { return f.people, f.err }

func (f *fakeAPI) Events(context.Context, client.EventsOptions) ([]client.Event, error) {
	return f.events, f.err
}

func (f *fakeAPI) BorrowPath(_ context.Context, name, item string) (client.BorrowPath, error) {
	if p, ok := f.paths[name+"/"+item]; ok {
		return p, nil
	}
	return client.BorrowPath{}, client.ErrNoPath
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		people: []client.Person{
			{Name: "Kamil", Friends: []string{"Magda"}},
			{Name: "Magda", Friends: []string{"Kamil"}, Possessions: []string{"kamera"}},
		},
		events: []client.Event{
			{EventType: "friendship_added", TsEvent: time.Now(), Subject: client.EventSubject{Identity: "Kamil", Counterpart: "Magda"}},
		},
		paths: map[string]client.BorrowPath{
			"Kamil/kamera": {Path: []string{"Kamil", "Magda"}, Hops: 1},
		},
	}
}

func TestModel_FetchData(t *testing.T) {
	api := newFakeAPI()
	m := initialModel(api)

	msg := fetchData(api)()
	updated, _ := m.Update(msg)
	m = updated.(model)

	require.True(t, m.ready)
	assert.NoError(t, m.err)
	assert.Len(t, m.people, 2)

	view := m.View()
	assert.Contains(t, view, "Kamil")
	assert.Contains(t, view, "kamera")
	assert.Contains(t, view, "Online")
	assert.Contains(t, m.viewport.View(), "Kamil & Magda")
}

func TestModel_Offline(t *testing.T) {
	api := &fakeAPI{err: assert.AnError}
	m := initialModel(api)

	updated, _ := m.Update(fetchData(api)())
	m = updated.(model)
	assert.ErrorIs(t, m.err, assert.AnError)
	assert.Contains(t, m.View(), "Offline")
}

func TestModel_BorrowLookup(t *testing.T) {
	api := newFakeAPI()

	tests := []struct {
		query string
		want  string
	}{
		{"Kamil kamera", "Kamil → Magda (1 hops)"},
		{"Magda statyw", "nobody reachable owns it"},
		{"Kamil", "type a name and an item"},
	}
	for _, tt := range tests {
		m := initialModel(api)
		m.input.SetValue(tt.query)

		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		require.NotNil(t, cmd, tt.query)
		m = updated.(model)
		assert.Empty(t, m.input.Value(), "input is cleared after submit")

		updated, _ = m.Update(cmd())
		m = updated.(model)
		assert.True(t, strings.Contains(m.lookup, tt.want), "%q: got %q", tt.query, m.lookup)
	}
}

func TestModel_Quit(t *testing.T) {
	m := initialModel(newFakeAPI())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
