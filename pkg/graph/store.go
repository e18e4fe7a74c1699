package graph

import (
	"sync"
)

// Reader is a read-only view of the graph handed to searches.
type Reader interface {
	Has(id Identity) bool
	Possesses(id Identity, item string) bool
	// EachFriend calls fn for every friend of id in insertion order.
	EachFriend(id Identity, fn func(friend Identity))
}

// PersonStore owns people, friendships and possessions.
// Writers are serialized; readers may run concurrently with each other.
type PersonStore struct {
	mu          sync.RWMutex
	people      map[Identity]*person
	order       []Identity
	friendships int
	possessions int
	revision    uint64
}

// NewPersonStore creates an empty graph.
func NewPersonStore() *PersonStore {
	return &PersonStore{
		people: make(map[Identity]*person),
	}
}

// AddPerson registers id. Registering an existing person is a no-op.
func (s *PersonStore) AddPerson(id Identity) error {
	if id == "" {
		return ErrEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.people[id]; exists {
		return nil
	}
	s.people[id] = newPerson(id)
	s.order = append(s.order, id)
	s.revision++
	return nil
}

// AddFriendship links a and b in both directions. Both must already be
// registered; otherwise nothing changes and an UnknownPersonError names
// every missing identity.
func (s *PersonStore) AddFriendship(a, b Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []Identity
	pa, ok := s.people[a]
	if !ok {
		missing = append(missing, a)
	}
	pb, ok := s.people[b]
	if !ok && b != a {
		missing = append(missing, b)
	}
	if len(missing) > 0 {
		return &UnknownPersonError{Identities: missing}
	}

	addedAB := pa.friends.Add(b)
	addedBA := pb.friends.Add(a)
	if addedAB || addedBA {
		s.friendships++
		s.revision++
	}
	return nil
}

// AddPossession records that id holds item.
func (s *PersonStore) AddPossession(id Identity, item string) error {
	if item == "" {
		return ErrEmptyItem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.people[id]
	if !ok {
		return &UnknownPersonError{Identities: []Identity{id}}
	}
	if p.possessions.Add(item) {
		s.possessions++
		s.revision++
	}
	return nil
}

// GetFriends returns the friends of id in the order they were added.
func (s *PersonStore) GetFriends(id Identity) ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[id]
	if !ok {
		return nil, &NotFoundError{Identity: id}
	}
	return p.friends.Items(), nil
}

// AreAcquainted reports whether b is a friend of a. An unknown a is simply
// not acquainted with anyone.
func (s *PersonStore) AreAcquainted(a, b Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[a]
	if !ok {
		return false
	}
	return p.friends.Contains(b)
}

// GetPerson returns a copy of the stored person.
func (s *PersonStore) GetPerson(id Identity) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.people[id]
	if !ok {
		return Person{}, &NotFoundError{Identity: id}
	}
	return p.snapshot(), nil
}

// People returns copies of every person in registration order.
func (s *PersonStore) People() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Person, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.people[id].snapshot())
	}
	return out
}

// Stats returns the current graph size.
func (s *PersonStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		People:      len(s.people),
		Friendships: s.friendships,
		Possessions: s.possessions,
		Revision:    s.revision,
	}
}

// Revision changes whenever a mutation has an effect.
func (s *PersonStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// View runs fn with a consistent read-only view of the graph. No mutation
// can happen until fn returns, so fn must not call back into the store's
// write methods.
func (s *PersonStore) View(fn func(r Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(lockedReader{s})
}

// lockedReader reads the maps directly; View holds the lock.
type lockedReader struct {
	s *PersonStore
}

func (r lockedReader) Has(id Identity) bool {
	_, ok := r.s.people[id]
	return ok
}

func (r lockedReader) Possesses(id Identity, item string) bool {
	p, ok := r.s.people[id]
	return ok && p.possessions.Contains(item)
}

func (r lockedReader) EachFriend(id Identity, fn func(friend Identity)) {
	p, ok := r.s.people[id]
	if !ok {
		return
	}
	p.friends.each(fn)
}
