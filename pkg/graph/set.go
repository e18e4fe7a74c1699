package graph

// orderedSet is a duplicate-free collection that iterates in insertion order.
// Search results depend on friend iteration order, so a plain map is not enough.
type orderedSet[T comparable] struct {
	index map[T]struct{}
	items []T
}

func newOrderedSet[T comparable]() *orderedSet[T] {
	return &orderedSet[T]{index: make(map[T]struct{})}
}

// Add inserts v and reports whether it was absent.
func (s *orderedSet[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) Len() int {
	return len(s.items)
}

// Items returns a copy of the members in insertion order.
func (s *orderedSet[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// each iterates without copying. The caller must not mutate the set meanwhile.
func (s *orderedSet[T]) each(fn func(T)) {
	for _, v := range s.items {
		fn(v)
	}
}
