package vfs

import "errors"

// Failure conditions a Backend may report. The FUSE adapter translates
// these to POSIX error codes; backends wrap them freely with context,
// the adapter matches with errors.Is.
var (
	// ErrNotFound: the path names no entry.
	ErrNotFound = errors.New("resource not found")

	// ErrDirectoryExpected: a directory operation hit a regular file.
	ErrDirectoryExpected = errors.New("directory expected")

	// ErrFileExpected: a file operation hit a directory.
	ErrFileExpected = errors.New("file expected")

	// ErrNotEmpty: directory removal on a non-empty directory.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrRemoveRoot: attempt to remove the backend root.
	ErrRemoveRoot = errors.New("cannot remove root directory")

	// ErrReadOnly: the backend forbids mutation.
	ErrReadOnly = errors.New("backend is read-only")

	// ErrExists: directory creation where one already exists.
	ErrExists = errors.New("directory already exists")

	// ErrDestinationExists: move destination occupied and overwrite
	// semantics do not apply.
	ErrDestinationExists = errors.New("destination exists")

	// ErrNotSupported: the backend does not implement the operation.
	ErrNotSupported = errors.New("operation not supported")
)
