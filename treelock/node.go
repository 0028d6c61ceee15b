// Package treelock implements the per-node reader/writer synchroniser
// and the multi-path acquisition protocol that a concurrent directory
// tree uses to take one or two write locks without deadlocking.
//
// Each Node owns a children map, a parent back-link, and the counters,
// handoff tokens and condition variables that implement a fair,
// priority-handoff reader/writer lock: a node may be read by many
// goroutines at once, written by at most one, and never both at the
// same time except for the single permitted exception where a writer
// of a node also counts as a reader of that same node (see
// bumpReaderLocked's use in StartWrite).
package treelock

import "sync"

// Node is one directory in the tree plus its synchroniser state. The
// zero value is not usable; construct with NewNode.
type Node struct {
	Name     string
	Parent   *Node
	Children map[string]*Node
	height   int

	mu sync.Mutex

	rWaiting, rRunning int
	wWaiting, wRunning int
	rState, wState     int

	readQ  *sync.Cond
	writeQ *sync.Cond
	rPrioQ *sync.Cond
	wPrioQ *sync.Cond
}

// NewNode allocates a node with the given parent (nil for the root)
// and name (the final path component, empty for the root).
func NewNode(parent *Node, name string) *Node {
	n := &Node{
		Name:     name,
		Parent:   parent,
		Children: make(map[string]*Node),
	}
	n.readQ = sync.NewCond(&n.mu)
	n.writeQ = sync.NewCond(&n.mu)
	n.rPrioQ = sync.NewCond(&n.mu)
	n.wPrioQ = sync.NewCond(&n.mu)
	n.height = height(parent) + 1
	return n
}

// height returns a node's height, treating a nil node (the parent of
// the root) as height 0. Reads under the node's mutex so it never
// races a concurrent setHeight by another traverser.
func height(n *Node) int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	h := n.height
	n.mu.Unlock()
	return h
}

// setHeight stamps a freshly traversed child's height from its parent.
// It is idempotent: re-stamping a node already at that height is a
// harmless no-op write. A nil node is never stamped.
func setHeight(n *Node, h int) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.height = h
	n.mu.Unlock()
}

// child looks up the named child of n without taking any additional
// lock beyond the read/write lock the caller already holds on n.
func (n *Node) child(name string) *Node {
	return n.Children[name]
}

// Path reconstructs n's absolute path by walking its parent chain. The
// caller must hold at least a read lock on n (and, transitively, on
// every ancestor); it exists for diagnostics, not for the tree's
// correctness, so it is not part of the locking protocol.
func (n *Node) Path() string {
	if n == nil || n.Parent == nil {
		return "/"
	}
	return n.Parent.Path() + n.Name + "/"
}
