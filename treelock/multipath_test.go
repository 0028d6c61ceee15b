package treelock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree() *Node {
	root := NewNode(nil, "")
	a := NewNode(root, "a")
	root.Children["a"] = a
	b := NewNode(a, "b")
	a.Children["b"] = b
	return root
}

func assertQuiescent(t *testing.T, n *Node) {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, 0, n.rRunning, "rRunning on %q", n.Path())
	assert.Equal(t, 0, n.wRunning, "wRunning on %q", n.Path())
	assert.Equal(t, 0, n.rState, "rState on %q", n.Path())
	assert.Equal(t, 0, n.wState, "wState on %q", n.Path())
}

func TestStartReadMissing(t *testing.T) {
	root := buildTree()
	_, ok := StartRead(root, "/a/missing/")
	assert.False(t, ok)
	assertQuiescent(t, root)
}

func TestStartReadHoldsAncestorChain(t *testing.T) {
	root := buildTree()
	dest, ok := StartRead(root, "/a/b/")
	require.True(t, ok)
	assert.Equal(t, "b", dest.Name)

	root.mu.Lock()
	assert.Equal(t, 1, root.rRunning)
	root.mu.Unlock()

	ReleaseHeldReadLocks(dest, dest)
	assertQuiescent(t, root)
	assertQuiescent(t, root.Children["a"])
	assertQuiescent(t, dest)
}

func TestStartWritePreservesArgumentOrder(t *testing.T) {
	root := buildTree()

	// "/a/" < "/" is false lexicographically ("/" < "/a/"), so passing
	// (source=/a/, target=/) forces an internal swap; the returned
	// nodes must still line up with the caller's argument order.
	nA, nB, ok := StartWrite(root, "/a/", "/")
	require.True(t, ok)
	assert.Equal(t, "a", nA.Name)
	assert.Same(t, root, nB)
	EndWrite(nA, nB)
	assertQuiescent(t, root)

	nA, nB, ok = StartWrite(root, "/", "/a/")
	require.True(t, ok)
	assert.Same(t, root, nA)
	assert.Equal(t, "a", nB.Name)
	EndWrite(nA, nB)
	assertQuiescent(t, root)
	assertQuiescent(t, root.Children["a"])
}

func TestStartWriteEqualPaths(t *testing.T) {
	root := buildTree()
	nA, nB, ok := StartWrite(root, "/a/", "/a/")
	require.True(t, ok)
	assert.Same(t, nA, nB)
	root.Children["a"].mu.Lock()
	assert.Equal(t, 1, root.Children["a"].wRunning)
	root.Children["a"].mu.Unlock()
	EndWrite(nA, nB)
	assertQuiescent(t, root)
	assertQuiescent(t, root.Children["a"])
}

func TestStartWriteAncestorDescendant(t *testing.T) {
	root := buildTree()
	// "/a/" is a strict ancestor of "/a/b/".
	nA, nB, ok := StartWrite(root, "/a/", "/a/b/")
	require.True(t, ok)
	assert.Equal(t, "a", nA.Name)
	assert.Equal(t, "b", nB.Name)

	a := root.Children["a"]
	a.mu.Lock()
	assert.Equal(t, 1, a.wRunning)
	assert.Equal(t, 1, a.rRunning, "a must count as a reader of itself too")
	a.mu.Unlock()

	EndWrite(nA, nB)
	assertQuiescent(t, root)
	assertQuiescent(t, a)
	assertQuiescent(t, root.Children["a"].Children["b"])
}

func TestStartWriteMissingSecondPath(t *testing.T) {
	root := buildTree()
	_, _, ok := StartWrite(root, "/a/", "/a/missing/")
	assert.False(t, ok)
	assertQuiescent(t, root)
	assertQuiescent(t, root.Children["a"])
}

func TestStartWriteDisjointPaths(t *testing.T) {
	root := buildTree()
	x := NewNode(root, "x")
	root.Children["x"] = x

	nA, nB, ok := StartWrite(root, "/a/", "/x/")
	require.True(t, ok)
	assert.Equal(t, "a", nA.Name)
	assert.Equal(t, "x", nB.Name)
	EndWrite(nA, nB)
	assertQuiescent(t, root)
	assertQuiescent(t, root.Children["a"])
	assertQuiescent(t, x)
}
