package graph

import (
	"context"
)

// Viewer gives a search one consistent view of the graph.
type Viewer interface {
	View(fn func(r Reader) error) error
}

// PathFinder finds the closest person holding an item.
type PathFinder struct {
	graph      Viewer
	maxVisited int
}

// Option configures a PathFinder.
type Option func(*PathFinder)

// WithMaxVisited caps how many distinct people a single search may visit.
// Zero or a negative value disables the cap.
func WithMaxVisited(n int) Option {
	return func(f *PathFinder) {
		f.maxVisited = n
	}
}

// NewPathFinder creates a path finder over g.
func NewPathFinder(g Viewer, opts ...Option) *PathFinder {
	f := &PathFinder{graph: g}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FindPathToItem runs a breadth-first search from start and returns the
// shortest chain of friends ending at someone who possesses item.
//
// The goal test fires on the content of each dequeued person, start
// included, so a one-element path means start already holds the item.
// People are marked visited when dequeued; the first dequeue of a person is
// always via a shortest path. Among equally short paths the one following
// friendships in insertion order wins.
//
// An unregistered start yields a result with Found == false and no error.
// Errors are reserved for cancellation and ErrSearchLimit.
func (f *PathFinder) FindPathToItem(ctx context.Context, start Identity, item string) (*PathResult, error) {
	result := &PathResult{
		Start: start,
		Item:  item,
	}
	if item == "" {
		return nil, ErrEmptyItem
	}

	err := f.graph.View(func(r Reader) error {
		if !r.Has(start) {
			return nil
		}

		visited := make(map[Identity]bool)
		queue := []Path{{start}}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}

			path := queue[0]
			queue[0] = nil
			queue = queue[1:]

			current := path[len(path)-1]
			if visited[current] {
				continue
			}
			if f.maxVisited > 0 && len(visited) >= f.maxVisited {
				return ErrSearchLimit
			}
			visited[current] = true
			result.Visited = len(visited)

			if r.Possesses(current, item) {
				result.Path = path
				result.Found = true
				return nil
			}

			r.EachFriend(current, func(friend Identity) {
				if visited[friend] {
					return
				}
				next := make(Path, len(path)+1)
				copy(next, path)
				next[len(path)] = friend
				queue = append(queue, next)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
