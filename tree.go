// Package dirtree implements an in-memory, concurrent hierarchical
// directory tree. Directories are identified by absolute paths of the
// form /a/b/c/ (lowercase components, see package pathutil for the
// exact grammar). List, Create, Remove and Move may be called
// concurrently from any number of goroutines; package treelock
// supplies the per-node reader/writer synchroniser and the two-path
// acquisition protocol that keeps the tree's structure consistent
// while letting disjoint subtrees make progress in parallel.
package dirtree

import (
	"sort"
	"strings"

	"github.com/concurrency-lab/dirtree/log"
	"github.com/concurrency-lab/dirtree/pathutil"
	"github.com/concurrency-lab/dirtree/treelock"
)

// Tree owns the root directory of a concurrent tree. The zero value is
// not usable; construct one with New.
type Tree struct {
	root *treelock.Node
	log  log.Log
}

// New returns a fresh tree containing only the root directory, logging
// nothing.
func New() *Tree {
	return &Tree{root: treelock.NewNode(nil, ""), log: log.NoLog{}}
}

// NewWithLog returns a fresh tree that reports calls, lock traffic and
// mutations through l.
func NewWithLog(l log.Log) *Tree {
	return &Tree{root: treelock.NewNode(nil, ""), log: l}
}

// List returns the comma-joined names of path's immediate children, in
// unspecified order. ok is false when path is malformed or does not
// exist.
func (t *Tree) List(path string) (names string, ok bool) {
	cookie := t.log.Call("List", log.M{"path": path})
	defer func() { t.log.Return("List", cookie, log.M{"names": names, "ok": ok}) }()

	if !pathutil.Valid(path) {
		return "", false
	}
	t.log.Logf(log.TopicLock, "read-lock chain to %s", path)
	dest, found := treelock.StartRead(t.root, path)
	if !found {
		return "", false
	}
	defer treelock.ReleaseHeldReadLocks(dest, dest)

	children := make([]string, 0, len(dest.Children))
	for name := range dest.Children {
		children = append(children, name)
	}
	sort.Strings(children)
	return strings.Join(children, ","), true
}

// Create makes a new, empty directory at path. path's parent must
// already exist and path itself must not.
func (t *Tree) Create(path string) (err error) {
	cookie := t.log.Call("Create", log.M{"path": path})
	defer func() { t.log.Return("Create", cookie, log.M{"err": err}) }()

	if !pathutil.Valid(path) {
		return ErrInvalid
	}
	parent, name, hasParent := pathutil.SplitParent(path)
	if !hasParent {
		// path == "/"
		return ErrExist
	}

	t.log.Logf(log.TopicLock, "write-lock %s", parent)
	parentNode, _, found := treelock.StartWrite(t.root, parent, parent)
	if !found {
		return ErrNotExist
	}
	defer treelock.EndWrite(parentNode, parentNode)

	if _, exists := parentNode.Children[name]; exists {
		return ErrExist
	}
	parentNode.Children[name] = treelock.NewNode(parentNode, name)
	t.log.Logf(log.TopicMutation, "created %s", path)
	return nil
}

// Remove deletes the empty directory at path.
func (t *Tree) Remove(path string) (err error) {
	cookie := t.log.Call("Remove", log.M{"path": path})
	defer func() { t.log.Return("Remove", cookie, log.M{"err": err}) }()

	if !pathutil.Valid(path) {
		return ErrInvalid
	}
	if path == pathutil.Root {
		return ErrBusy
	}
	parent, name, _ := pathutil.SplitParent(path)

	t.log.Logf(log.TopicLock, "write-lock %s", parent)
	parentNode, _, found := treelock.StartWrite(t.root, parent, parent)
	if !found {
		return ErrNotExist
	}
	defer treelock.EndWrite(parentNode, parentNode)

	target, exists := parentNode.Children[name]
	if !exists {
		return ErrNotExist
	}
	if len(target.Children) != 0 {
		return ErrNotEmpty
	}
	delete(parentNode.Children, name)
	t.log.Logf(log.TopicMutation, "removed %s", path)
	return nil
}

// Move relocates the directory at source to target, which must not yet
// exist. Moving a directory into itself or one of its own descendants
// is rejected with ErrCycle. Moving a path onto itself is a no-op.
func (t *Tree) Move(source, target string) (err error) {
	cookie := t.log.Call("Move", log.M{"source": source, "target": target})
	defer func() { t.log.Return("Move", cookie, log.M{"err": err}) }()

	if source == pathutil.Root {
		return ErrBusy
	}
	if target == pathutil.Root {
		return ErrExist
	}
	if !pathutil.Valid(source) || !pathutil.Valid(target) {
		return ErrInvalid
	}

	sourceParentPath, sourceName, _ := pathutil.SplitParent(source)
	targetParentPath, targetName, _ := pathutil.SplitParent(target)

	t.log.Logf(log.TopicLock, "write-lock %s and %s", sourceParentPath, targetParentPath)
	sourceParent, targetParent, found := treelock.StartWrite(t.root, sourceParentPath, targetParentPath)
	if !found {
		return ErrNotExist
	}
	defer treelock.EndWrite(sourceParent, targetParent)

	moving, exists := sourceParent.Children[sourceName]
	if !exists {
		return ErrNotExist
	}
	if source == target {
		return nil
	}
	if strings.HasPrefix(target, source) {
		// target is a strict descendant of source: moving source
		// there would disconnect it from the tree.
		return ErrCycle
	}
	if _, exists := targetParent.Children[targetName]; exists {
		return ErrExist
	}

	delete(sourceParent.Children, sourceName)
	moving.Parent = targetParent
	moving.Name = targetName
	targetParent.Children[targetName] = moving
	t.log.Logf(log.TopicMutation, "moved %s to %s", source, target)
	return nil
}
