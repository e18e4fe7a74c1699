package graph

// Identity is the natural key of a person in the graph.
type Identity string

// Person is a single node of the social graph.
type Person struct {
	Identity    Identity   `json:"name"`
	Friends     []Identity `json:"friends"`
	Possessions []string   `json:"possessions"`
}

// Path is a chain of acquaintances. The first element is where the search
// started and the last one is the person holding the item.
type Path []Identity

// Hops returns the number of friendships crossed by the path.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Strings converts the path into plain names for transport encoders.
func (p Path) Strings() []string {
	out := make([]string, len(p))
	for i, id := range p {
		out[i] = string(id)
	}
	return out
}

// Stats summarizes the size of the graph.
type Stats struct {
	People      int    `json:"people"`
	Friendships int    `json:"friendships"`
	Possessions int    `json:"possessions"`
	Revision    uint64 `json:"revision"`
}

// PathResult is the outcome of a borrow-path search.
// Found is false when nobody reachable from Start holds Item.
type PathResult struct {
	Start   Identity `json:"start"`
	Item    string   `json:"item"`
	Path    Path     `json:"path"`
	Found   bool     `json:"found"`
	Visited int      `json:"visited"`
}

// person is the stored representation of a node.
type person struct {
	id          Identity
	friends     *orderedSet[Identity]
	possessions *orderedSet[string]
}

func newPerson(id Identity) *person {
	return &person{
		id:          id,
		friends:     newOrderedSet[Identity](),
		possessions: newOrderedSet[string](),
	}
}

func (p *person) snapshot() Person {
	return Person{
		Identity:    p.id,
		Friends:     p.friends.Items(),
		Possessions: p.possessions.Items(),
	}
}
