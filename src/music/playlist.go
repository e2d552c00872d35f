package music

import (
	"math/rand/v2"
	"sort"
)

// Node is one playlist entry. Next and Prev give the traversal order, which
// is either insertion order or a shuffled order.
type Node struct {
	ID    int
	Path  string
	Entry *FileSystemEntry // set when the node came from the library tree

	next *Node
	prev *Node
}

// Next returns the following node in traversal order.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// Prev returns the preceding node in traversal order.
func (n *Node) Prev() *Node {
	if n == nil {
		return nil
	}
	return n.prev
}

// PlayList is an ordered, doubly linked collection of nodes. It is not safe
// for concurrent use; the control loop owns it.
type PlayList struct {
	head   *Node
	tail   *Node
	count  int
	lastID int
}

// NewPlayList returns an empty playlist.
func NewPlayList() *PlayList {
	return &PlayList{}
}

// Len returns the number of nodes.
func (p *PlayList) Len() int { return p.count }

// Head returns the first node in traversal order.
func (p *PlayList) Head() *Node { return p.head }

// Tail returns the last node in traversal order.
func (p *PlayList) Tail() *Node { return p.tail }

// Append adds a node at the end and returns it.
func (p *PlayList) Append(path string, entry *FileSystemEntry) *Node {
	p.lastID++
	n := &Node{ID: p.lastID, Path: path, Entry: entry}
	p.link(n)
	return n
}

func (p *PlayList) link(n *Node) {
	n.next = nil
	n.prev = p.tail
	if p.tail != nil {
		p.tail.next = n
	} else {
		p.head = n
	}
	p.tail = n
	p.count++
}

// Remove unlinks n. It reports false when n is not part of the playlist.
func (p *PlayList) Remove(n *Node) bool {
	if n == nil || !p.contains(n) {
		return false
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		p.tail = n.prev
	}
	n.next, n.prev = nil, nil
	p.count--
	return true
}

func (p *PlayList) contains(n *Node) bool {
	for c := p.head; c != nil; c = c.next {
		if c == n {
			return true
		}
	}
	return false
}

// Clear drops every node. Ids keep increasing across clears.
func (p *PlayList) Clear() {
	for c := p.head; c != nil; {
		next := c.next
		c.next, c.prev = nil, nil
		c = next
	}
	p.head, p.tail, p.count = nil, nil, 0
}

// Nodes returns the nodes in traversal order.
func (p *PlayList) Nodes() []*Node {
	nodes := make([]*Node, 0, p.count)
	for c := p.head; c != nil; c = c.next {
		nodes = append(nodes, c)
	}
	return nodes
}

// Paths returns the node paths in traversal order.
func (p *PlayList) Paths() []string {
	paths := make([]string, 0, p.count)
	for c := p.head; c != nil; c = c.next {
		paths = append(paths, c.Path)
	}
	return paths
}

// FindByID returns the node with the given id, or nil.
func (p *PlayList) FindByID(id int) *Node {
	for c := p.head; c != nil; c = c.next {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindByPath returns the first node with the given path, or nil.
func (p *PlayList) FindByPath(path string) *Node {
	for c := p.head; c != nil; c = c.next {
		if c.Path == path {
			return c
		}
	}
	return nil
}

// ByNumber returns the node at the 1-based position, or nil.
func (p *PlayList) ByNumber(number int) *Node {
	if number < 1 || number > p.count {
		return nil
	}
	c := p.head
	for i := 1; i < number; i++ {
		c = c.next
	}
	return c
}

// Number returns the 1-based position of n, or 0 if it is not linked.
func (p *PlayList) Number(n *Node) int {
	i := 1
	for c := p.head; c != nil; c = c.next {
		if c == n {
			return i
		}
		i++
	}
	return 0
}

// Relink replaces the traversal order with order, which must hold exactly
// the current nodes.
func (p *PlayList) Relink(order []*Node) {
	p.head, p.tail, p.count = nil, nil, 0
	for _, n := range order {
		p.link(n)
	}
}

// Shuffle randomizes the traversal order. When keep is a node of the
// playlist it is moved to the front so it stays the node being played.
func (p *PlayList) Shuffle(keep *Node, rng *rand.Rand) {
	nodes := p.Nodes()
	order := make([]*Node, 0, len(nodes))
	rest := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == keep {
			order = append(order, n)
			continue
		}
		rest = append(rest, n)
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	p.Relink(append(order, rest...))
}

// Unshuffle restores insertion order.
func (p *PlayList) Unshuffle() {
	nodes := p.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	p.Relink(nodes)
}
