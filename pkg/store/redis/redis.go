package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rmax-ai/borrowd/pkg/graph"
)

const keyPrefix = "borrowd:path"

// DefaultTTL bounds how long a search outcome is reused.
const DefaultTTL = 5 * time.Minute

// PathCache memoizes search outcomes in Redis. Keys embed the graph revision,
// so any mutation makes older entries unreachable and they age out by TTL.
// Revisions restart at zero with every process, so keys also carry an
// instance id unique to this cache.
type PathCache struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
}

type cachedPath struct {
	Path    []string `json:"path,omitempty"`
	Found   bool     `json:"found"`
	Visited int      `json:"visited"`
}

func NewPathCache(client *redis.Client, ttl time.Duration) *PathCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PathCache{client: client, ttl: ttl, instance: uuid.NewString()}
}

func (c *PathCache) makeKey(revision uint64, start graph.Identity, item string) string {
	return fmt.Sprintf("%s:%s:%d:%q:%q", keyPrefix, c.instance, revision, string(start), item)
}

// Get returns the cached outcome for start/item at revision.
func (c *PathCache) Get(ctx context.Context, revision uint64, start graph.Identity, item string) (*graph.PathResult, bool, error) {
	data, err := c.client.Get(ctx, c.makeKey(revision, start, item)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var cached cachedPath
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, fmt.Errorf("decode cached path: %w", err)
	}

	res := &graph.PathResult{
		Start:   start,
		Item:    item,
		Found:   cached.Found,
		Visited: cached.Visited,
	}
	if cached.Found {
		res.Path = make(graph.Path, len(cached.Path))
		for i, id := range cached.Path {
			res.Path[i] = graph.Identity(id)
		}
	}
	return res, true, nil
}

// Set stores res under the given revision.
func (c *PathCache) Set(ctx context.Context, revision uint64, res *graph.PathResult) error {
	if res == nil {
		return errors.New("nil path result")
	}
	data, err := json.Marshal(cachedPath{
		Path:    res.Path.Strings(),
		Found:   res.Found,
		Visited: res.Visited,
	})
	if err != nil {
		return fmt.Errorf("encode path: %w", err)
	}
	if err := c.client.Set(ctx, c.makeKey(revision, res.Start, res.Item), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
