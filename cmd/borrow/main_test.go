package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/borrowd/pkg/api"
	"github.com/rmax-ai/borrowd/pkg/graph"
	"github.com/rmax-ai/borrowd/pkg/store"
)

func newDaemonURL(t *testing.T) string {
	t.Helper()

	journal, err := store.NewStore(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	people := graph.NewPersonStore()
	for _, name := range []graph.Identity{"Kamil", "Magda", "Piotr", "Liliana"} {
		require.NoError(t, people.AddPerson(name))
	}
	require.NoError(t, people.AddFriendship("Kamil", "Magda"))
	require.NoError(t, people.AddFriendship("Magda", "Piotr"))
	require.NoError(t, people.AddPossession("Piotr", "statyw"))

	srv := api.NewServer(graph.NewProjection(people), graph.NewPathFinder(people), journal, nil, "")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--endpoint", url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Queries(t *testing.T) {
	url := newDaemonURL(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"friends", []string{"friends", "Magda"}, "Kamil\nPiotr\n"},
		{"knows", []string{"knows", "Kamil", "Magda"}, "Kamil knows Magda\n"},
		{"does not know", []string{"knows", "Kamil", "Piotr"}, "Kamil does not know Piotr\n"},
		{"path", []string{"path", "Kamil", "statyw"}, "Kamil -> Magda -> Piotr (2 hops)\n"},
		{"borrow alias", []string{"borrow", "Piotr", "statyw"}, "Piotr (0 hops)\n"},
		{"health", []string{"health"}, "ok\n"},
		{"stats", []string{"stats"}, "people=4 friendships=2 possessions=1 revision=7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, url, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCLI_PathNotFound(t *testing.T) {
	url := newDaemonURL(t)

	_, err := run(t, url, "path", "Liliana", "statyw")
	require.Error(t, err)
	assert.Equal(t, "nobody reachable from Liliana owns statyw", err.Error())
}

func TestCLI_People(t *testing.T) {
	url := newDaemonURL(t)

	out, err := run(t, url, "people")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[3], "statyw")

	out, err = run(t, url, "--json", "people", "Piotr")
	require.NoError(t, err)
	var people []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &people))
	require.Len(t, people, 1)
	assert.Equal(t, "Piotr", people[0]["name"])

	_, err = run(t, url, "people", "Zed")
	assert.Error(t, err)
}

func TestCLI_AddAndEvents(t *testing.T) {
	url := newDaemonURL(t)

	out, err := run(t, url, "add", "person", "Ewa")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ok (evt_"))

	_, err = run(t, url, "add", "friendship", "Ewa", "Liliana")
	require.NoError(t, err)
	_, err = run(t, url, "add", "possession", "Liliana", "kamera")
	require.NoError(t, err)

	out, err = run(t, url, "path", "Ewa", "kamera")
	require.NoError(t, err)
	assert.Equal(t, "Ewa -> Liliana (1 hops)\n", out)

	_, err = run(t, url, "add", "friendship", "Ewa", "Zed")
	require.Error(t, err)
	assert.Equal(t, "register first: Zed", err.Error())

	out, err = run(t, url, "--json", "events", "--identity", "Liliana")
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	assert.Len(t, events, 2)

	out, err = run(t, url, "events", "--type", "person_registered")
	require.NoError(t, err)
	assert.Contains(t, out, "person_registered")
	assert.NotContains(t, out, "friendship_added")
}

func TestCLI_Args(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "path", "Kamil")
	assert.Error(t, err)

	_, err = run(t, "http://127.0.0.1:1", "stats", "extra")
	assert.Error(t, err)
}
