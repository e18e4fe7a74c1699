package api

import (
	"time"

	"github.com/rmax-ai/borrowd/pkg/graph"
)

// PersonRequest matches the POST /v1/people body.
type PersonRequest struct {
	Name string `json:"name" validate:"required"`
}

// FriendshipRequest matches the POST /v1/friendships body.
type FriendshipRequest struct {
	Person1 string `json:"person1" validate:"required"`
	Person2 string `json:"person2" validate:"required"`
}

// PossessionRequest matches the POST /v1/possessions body.
type PossessionRequest struct {
	Name string `json:"name" validate:"required"`
	Item string `json:"item" validate:"required"`
}

// MutationResponse is returned by every population endpoint.
type MutationResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// FriendsResponse matches GET /v1/friends.
type FriendsResponse struct {
	Friends []graph.Identity `json:"friends"`
}

// KnowsResponse matches GET /v1/knows.
type KnowsResponse struct {
	Knows bool `json:"knows"`
}

// BorrowResponse matches GET /v1/borrow on success.
type BorrowResponse struct {
	Path    graph.Path `json:"path"`
	Hops    int        `json:"hops"`
	Visited int        `json:"visited"`
	Cached  bool       `json:"cached,omitempty"`
}

// PeopleResponse matches GET /v1/people.
type PeopleResponse struct {
	People []graph.Person `json:"people"`
}

// StatsResponse matches GET /v1/stats.
type StatsResponse struct {
	graph.Stats
	LastEventID string     `json:"last_event_id,omitempty"`
	LastEventAt *time.Time `json:"last_event_at,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error      string           `json:"error"`
	Reason     string           `json:"reason,omitempty"`
	Parameter  string           `json:"parameter,omitempty"`
	Identities []graph.Identity `json:"identities,omitempty"`
}
