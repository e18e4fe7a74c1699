package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrPersonNotFound is returned when the daemon does not know the person.
	ErrPersonNotFound = errors.New("person not found")
	// ErrNoPath is returned when nobody reachable holds the item.
	ErrNoPath = errors.New("no path found")
	// ErrSearchLimit is returned when the daemon gave up on a large search.
	ErrSearchLimit = errors.New("search limit exceeded")
)

// UnknownPersonError lists the names a mutation referenced before they were
// registered.
type UnknownPersonError struct {
	Names []string
}

func (e *UnknownPersonError) Error() string {
	return "unknown person: " + strings.Join(e.Names, ", ")
}

// APIError is any other non-2xx reply.
type APIError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unexpected status %d: %s (%s)", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Code)
}

// Client is the borrowd SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
}

// NewClient creates a new borrowd client.
// endpoint defaults to "http://127.0.0.1:8090" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8090"
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: DefaultBackoff(),
	}
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	if err := c.get(ctx, "/v1/health", nil, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// WaitReady pings the daemon until it answers, sleeping between attempts
// according to the client's backoff strategy.
func (c *Client) WaitReady(ctx context.Context, attempts int) error {
	var lastErr error
	for attempt := 0; attempts <= 0 || attempt < attempts; attempt++ {
		if _, lastErr = c.Ping(ctx); lastErr == nil {
			return nil
		}
		select {
		case <-time.After(c.backoff.Next(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("daemon not ready after %d attempts: %w", attempts, lastErr)
}

// Friends lists the friends of name in the order they were added.
func (c *Client) Friends(ctx context.Context, name string) ([]string, error) {
	var resp struct {
		Friends []string `json:"friends"`
	}
	if err := c.get(ctx, "/v1/friends", url.Values{"name": {name}}, &resp); err != nil {
		return nil, err
	}
	return resp.Friends, nil
}

// Knows reports whether person2 is a friend of person1.
func (c *Client) Knows(ctx context.Context, person1, person2 string) (bool, error) {
	var resp struct {
		Knows bool `json:"knows"`
	}
	if err := c.get(ctx, "/v1/knows", url.Values{"person1": {person1}, "person2": {person2}}, &resp); err != nil {
		return false, err
	}
	return resp.Knows, nil
}

// BorrowPath finds the shortest chain of friends from name to someone holding
// item. It returns ErrNoPath when there is none.
func (c *Client) BorrowPath(ctx context.Context, name, item string) (BorrowPath, error) {
	var path BorrowPath
	if err := c.get(ctx, "/v1/borrow", url.Values{"name": {name}, "item": {item}}, &path); err != nil {
		return BorrowPath{}, err
	}
	return path, nil
}

// People returns everyone in registration order.
func (c *Client) People(ctx context.Context) ([]Person, error) {
	var resp struct {
		People []Person `json:"people"`
	}
	if err := c.get(ctx, "/v1/people", nil, &resp); err != nil {
		return nil, err
	}
	return resp.People, nil
}

// Person returns a single person.
func (c *Client) Person(ctx context.Context, name string) (Person, error) {
	var p Person
	if err := c.get(ctx, "/v1/people/"+url.PathEscape(name), nil, &p); err != nil {
		return Person{}, err
	}
	return p, nil
}

// Stats returns the daemon's graph counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.get(ctx, "/v1/stats", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Events fetches journaled mutations. Without filters the newest come first.
func (c *Client) Events(ctx context.Context, opts EventsOptions) ([]Event, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Identity != "" {
		q.Set("identity", opts.Identity)
	}
	for _, t := range opts.Types {
		q.Add("type", t)
	}

	var events []Event
	if err := c.get(ctx, "/v1/events", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AddPerson registers name. Registering an existing person is a no-op.
// It returns the id of the journaled event.
func (c *Client) AddPerson(ctx context.Context, name string) (string, error) {
	return c.post(ctx, "/v1/people", map[string]string{"name": name})
}

// AddFriendship makes person1 and person2 friends of each other.
func (c *Client) AddFriendship(ctx context.Context, person1, person2 string) (string, error) {
	return c.post(ctx, "/v1/friendships", map[string]string{"person1": person1, "person2": person2})
}

// AddPossession records that name holds item.
func (c *Client) AddPossession(ctx context.Context, name, item string) (string, error) {
	return c.post(ctx, "/v1/possessions", map[string]string{"name": name, "item": item})
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var res mutationResult
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	return res.EventID, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError maps the daemon's {"error": ...} bodies to typed errors.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Code: strings.TrimSpace(string(raw))}
	}

	switch body.Error {
	case "person_not_found":
		return ErrPersonNotFound
	case "no_path_found":
		return ErrNoPath
	case "search_limit_exceeded":
		return ErrSearchLimit
	case "unknown_person":
		return &UnknownPersonError{Names: body.Identities}
	}

	reason := body.Reason
	if reason == "" && body.Parameter != "" {
		reason = "missing " + body.Parameter
	}
	return &APIError{StatusCode: resp.StatusCode, Code: body.Error, Reason: reason}
}
