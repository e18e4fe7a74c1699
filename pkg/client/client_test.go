package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rmax-ai/borrowd/pkg/api"
	"github.com/rmax-ai/borrowd/pkg/graph"
	"github.com/rmax-ai/borrowd/pkg/store"
)

// newDaemon serves a real API over a slice of the demo graph.
func newDaemon(t *testing.T) *Client {
	t.Helper()

	journal, err := store.NewStore(store.MemoryPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	people := graph.NewPersonStore()
	srv := api.NewServer(graph.NewProjection(people), graph.NewPathFinder(people), journal, nil, "")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL)
	ctx := context.Background()
	for _, name := range []string{"Kamil", "Magda", "Piotr", "Daniel", "Nikodem"} {
		if _, err := c.AddPerson(ctx, name); err != nil {
			t.Fatalf("AddPerson(%s) failed: %v", name, err)
		}
	}
	for _, pair := range [][2]string{{"Kamil", "Magda"}, {"Kamil", "Piotr"}, {"Kamil", "Daniel"}, {"Nikodem", "Daniel"}} {
		if _, err := c.AddFriendship(ctx, pair[0], pair[1]); err != nil {
			t.Fatalf("AddFriendship(%v) failed: %v", pair, err)
		}
	}
	if _, err := c.AddPossession(ctx, "Piotr", "statyw"); err != nil {
		t.Fatalf("AddPossession failed: %v", err)
	}
	return c
}

func TestClient_EndToEnd(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	status, err := c.Ping(ctx)
	if err != nil || status.Status != "ok" {
		t.Fatalf("Ping = %+v, %v", status, err)
	}

	friends, err := c.Friends(ctx, "Kamil")
	if err != nil {
		t.Fatalf("Friends failed: %v", err)
	}
	if want := []string{"Magda", "Piotr", "Daniel"}; !reflect.DeepEqual(friends, want) {
		t.Errorf("Friends = %v, want %v", friends, want)
	}

	knows, err := c.Knows(ctx, "Daniel", "Nikodem")
	if err != nil || !knows {
		t.Errorf("Knows(Daniel, Nikodem) = %v, %v; want true", knows, err)
	}

	path, err := c.BorrowPath(ctx, "Nikodem", "statyw")
	if err != nil {
		t.Fatalf("BorrowPath failed: %v", err)
	}
	if want := []string{"Nikodem", "Daniel", "Kamil", "Piotr"}; !reflect.DeepEqual(path.Path, want) {
		t.Errorf("BorrowPath = %v, want %v", path.Path, want)
	}
	if path.Hops != 3 {
		t.Errorf("Hops = %d, want 3", path.Hops)
	}

	people, err := c.People(ctx)
	if err != nil || len(people) != 5 {
		t.Fatalf("People = %d people, %v", len(people), err)
	}

	p, err := c.Person(ctx, "Piotr")
	if err != nil {
		t.Fatalf("Person failed: %v", err)
	}
	if !reflect.DeepEqual(p.Possessions, []string{"statyw"}) {
		t.Errorf("Possessions = %v", p.Possessions)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.People != 5 || stats.Friendships != 4 || stats.Possessions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	events, err := c.Events(ctx, EventsOptions{Limit: 3})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 3 || events[0].EventType != "possession_added" {
		t.Errorf("unexpected recent events %+v", events)
	}
	if events[0].EventID != stats.LastEventID {
		t.Errorf("newest event %s does not match last applied %s", events[0].EventID, stats.LastEventID)
	}
	if stats.LastEventAt == nil || stats.LastEventAt.Sub(events[0].TsIngest).Abs() > time.Millisecond {
		t.Errorf("last_event_at %v does not match newest ingest time %v", stats.LastEventAt, events[0].TsIngest)
	}

	events, err = c.Events(ctx, EventsOptions{Identity: "Daniel", Types: []string{"friendship_added"}})
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 friendships touching Daniel, got %d", len(events))
	}
}

func TestClient_TypedErrors(t *testing.T) {
	c := newDaemon(t)
	ctx := context.Background()

	if _, err := c.Friends(ctx, "Zed"); !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("Friends(Zed) error = %v, want ErrPersonNotFound", err)
	}
	if _, err := c.Person(ctx, "Zed"); !errors.Is(err, ErrPersonNotFound) {
		t.Errorf("Person(Zed) error = %v, want ErrPersonNotFound", err)
	}
	if _, err := c.BorrowPath(ctx, "Magda", "kamera"); !errors.Is(err, ErrNoPath) {
		t.Errorf("BorrowPath error = %v, want ErrNoPath", err)
	}

	_, err := c.AddFriendship(ctx, "Kamil", "Mikolaj")
	var unknown *UnknownPersonError
	if !errors.As(err, &unknown) {
		t.Fatalf("AddFriendship error = %v, want UnknownPersonError", err)
	}
	if !reflect.DeepEqual(unknown.Names, []string{"Mikolaj"}) {
		t.Errorf("Names = %v", unknown.Names)
	}

	_, err = c.AddPossession(ctx, "Kamil", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("AddPossession with empty item error = %v, want 400 APIError", err)
	}
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"limit", http.StatusServiceUnavailable, `{"error":"search_limit_exceeded"}`, func(err error) bool { return errors.Is(err, ErrSearchLimit) }},
		{"plain text", http.StatusBadGateway, "bad gateway", func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadGateway && apiErr.Code == "bad gateway"
		}},
		{"missing parameter", http.StatusBadRequest, `{"error":"missing_parameter","parameter":"item"}`, func(err error) bool {
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.Reason == "missing item"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := NewClient(ts.URL).BorrowPath(context.Background(), "a", "b")
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

type fixedBackoff time.Duration

func (f fixedBackoff) Next(int) time.Duration { return time.Duration(f) }

func TestClient_WaitReady(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL).WithBackoff(fixedBackoff(time.Millisecond))
	if err := c.WaitReady(context.Background(), 5); err != nil {
		t.Fatalf("WaitReady failed: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 pings, got %d", got)
	}

	calls.Store(-100)
	if err := c.WaitReady(context.Background(), 2); err == nil {
		t.Error("expected WaitReady to give up")
	}
}

func TestClient_WaitReady_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("http://127.0.0.1:1").WithBackoff(fixedBackoff(time.Hour))
	if err := c.WaitReady(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	if c := NewClient(""); c.endpoint != "http://127.0.0.1:8090" {
		t.Errorf("unexpected default endpoint %s", c.endpoint)
	}
	if c := NewClient("http://example:1/"); c.endpoint != "http://example:1" {
		t.Errorf("trailing slash not trimmed: %s", c.endpoint)
	}
}
