package dirtree

import (
	"golang.org/x/sys/unix"
)

// Sentinel errors returned by Tree's operations. Each is the POSIX
// errno golang.org/x/sys/unix defines for the matching condition, so
// callers may compare with errors.Is against either the named
// sentinel below or the unix.Errno it is set to.
var (
	// ErrInvalid is returned when a path fails pathutil.Valid.
	ErrInvalid = unix.EINVAL

	// ErrExist is returned by Create when the target already exists,
	// by Move when the target already exists, and by both when the
	// target path is "/".
	ErrExist = unix.EEXIST

	// ErrNotExist is returned when an intermediate or final path
	// component does not exist.
	ErrNotExist = unix.ENOENT

	// ErrNotEmpty is returned by Remove when the directory has
	// children.
	ErrNotEmpty = unix.ENOTEMPTY

	// ErrBusy is returned by Remove and Move when asked to operate
	// on the root directory itself.
	ErrBusy = unix.EBUSY
)

// cycleError is returned by Move when the target is a strict
// descendant of the source, which would disconnect the tree. It is
// deliberately distinct from ErrExist and from every POSIX errno so
// callers can tell a would-be cycle apart from an ordinary conflict.
type cycleError struct{}

func (cycleError) Error() string {
	return "dirtree: move would create a cycle"
}

// ErrCycle is returned by Move when target is a strict descendant of
// source.
var ErrCycle error = cycleError{}
