package treelock

import "github.com/concurrency-lab/dirtree/pathutil"

// ReleaseHeldReadLocks releases the read locks held on the ancestor
// chains of n1 and n2 (inclusive), ascending both chains toward the
// root and releasing the deeper node first so a descendant is never
// released after an ancestor it might outlive. When the two chains
// converge on a shared node, its read lock is released exactly once.
//
// ReleaseHeldReadLocks(n, n) releases the chain from n to the root
// exactly once, which is how List releases after a successful lookup.
func ReleaseHeldReadLocks(n1, n2 *Node) {
	for n1 != nil || n2 != nil {
		switch {
		case height(n1) > height(n2):
			n1.ReleaseRead()
			n1 = n1.Parent
		case height(n1) < height(n2):
			n2.ReleaseRead()
			n2 = n2.Parent
		default:
			n1.ReleaseRead()
			if n1 != n2 {
				n2.ReleaseRead()
			}
			n1 = n1.Parent
			n2 = n2.Parent
		}
	}
}

// StartRead acquires read locks on every node from root to the
// destination of path, inclusive. It reports ok=false, having released
// everything it took, if any component along the way does not exist.
func StartRead(root *Node, path string) (dest *Node, ok bool) {
	node := root
	subpath := path
	for {
		component, rest, more := pathutil.Split(subpath)
		if !more {
			break
		}
		node.AcquireRead()
		next := node.child(component)
		if next == nil {
			ReleaseHeldReadLocks(node, node)
			return nil, false
		}
		setHeight(next, height(node)+1)
		node = next
		subpath = rest
	}
	node.AcquireRead()
	return node, true
}

// StartWrite acquires write locks on the destination nodes of pathA
// and pathB (which may coincide), while holding read locks on every
// strict ancestor of each. It is deadlock-free by construction: paths
// are canonically ordered (lexicographically, swapped so pathA <=
// pathB) before descending, so two concurrent StartWrite calls can
// never acquire ancestors in conflicting order.
//
// On success it returns the two destination nodes with their write
// locks (and the ancestor read locks) held, in the same order as the
// pathA/pathB arguments regardless of the internal canonical-order
// swap; callers release them with EndWrite. On failure (a component
// not found) it releases everything it took and returns ok=false.
func StartWrite(root *Node, pathA, pathB string) (nA, nB *Node, ok bool) {
	equalPaths := pathA == pathB
	swapped := pathA > pathB
	if swapped {
		pathA, pathB = pathB, pathA
	}

	node1, node2 := root, root
	sub1, sub2 := pathA, pathB

	for {
		component1, rest1, more := pathutil.Split(sub1)
		if !more {
			break
		}
		node1.AcquireRead()
		next1 := node1.child(component1)
		if next1 == nil {
			ReleaseHeldReadLocks(node1, node1)
			return nil, nil, false
		}
		setHeight(next1, height(node1)+1)

		if node1 == node2 {
			component2, rest2, _ := pathutil.Split(sub2)
			next2 := node2.child(component2)
			if next2 == nil {
				ReleaseHeldReadLocks(node1, node1)
				return nil, nil, false
			}
			setHeight(next2, height(next1))
			node2 = next2
			sub2 = rest2
		}

		node1 = next1
		sub1 = rest1
	}

	node1.AcquireWrite()

	for {
		component2, rest2, more := pathutil.Split(sub2)
		if !more {
			break
		}
		if node2 == node1 {
			node2.bumpReaderLocked()
		} else {
			node2.AcquireRead()
		}
		next2 := node2.child(component2)
		if next2 == nil {
			node1.ReleaseWrite()
			ReleaseHeldReadLocks(node1.Parent, node2)
			return nil, nil, false
		}
		setHeight(next2, height(node2)+1)
		node2 = next2
		sub2 = rest2
	}

	if !equalPaths {
		node2.AcquireWrite()
	}
	if swapped {
		return node2, node1, true
	}
	return node1, node2, true
}

// EndWrite releases the write locks taken by a matching StartWrite
// call and the ancestor read locks accumulated along both paths.
func EndWrite(n1, n2 *Node) {
	n1.ReleaseWrite()
	if n1 != n2 {
		n2.ReleaseWrite()
	}
	ReleaseHeldReadLocks(n1.Parent, n2.Parent)
}
