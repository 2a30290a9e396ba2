// Package vfs defines the capability interface consumed by the FUSE
// adapter. A Backend owns the actual storage; the adapter only ever talks
// to it through this interface and maps its error conditions onto POSIX
// codes at the operation boundary.
package vfs

import (
	"io"
	"os"
	"time"
)

// ResourceKind classifies a backend entry. Only directories and regular
// files are modeled; anything else is Unknown and callers must treat its
// metadata as "present but unsupported kind".
type ResourceKind int

const (
	KindUnknown ResourceKind = iota
	KindFile
	KindDirectory
)

// Info is the metadata a backend reports for a single entry. Zero time
// values mean "unknown"; Size is 0 when the backend cannot report one.
type Info struct {
	Kind     ResourceKind
	Size     int64
	Accessed time.Time
	Created  time.Time
	Modified time.Time
}

// IsDir reports whether the entry is a directory.
func (i *Info) IsDir() bool { return i.Kind == KindDirectory }

// InfoUpdate carries the metadata fields a SetInfo call may change.
// Nil fields are left untouched.
type InfoUpdate struct {
	Mode *os.FileMode
	UID  *uint32
	GID  *uint32
}

// Backend is the abstract virtual filesystem underneath a mount session.
// Paths are opaque absolute keys into the backend namespace; the adapter
// performs no canonicalization of its own.
//
// Implementations signal failure conditions with the sentinel errors in
// this package (possibly wrapped); the adapter matches them with
// errors.Is. Any other error is mapped to EIO.
type Backend interface {
	// Exists reports whether path names an entry.
	Exists(path string) bool

	// GetInfo returns metadata for path, or ErrNotFound.
	GetInfo(path string) (*Info, error)

	// SetInfo applies the non-nil fields of update to path.
	SetInfo(path string, update InfoUpdate) error

	// List returns the child names of the directory at path, in
	// backend-defined order, without "." and "..".
	List(path string) ([]string, error)

	// OpenRead opens path for seek+read access.
	OpenRead(path string) (io.ReadSeekCloser, error)

	// OpenWrite opens path for writing, creating it if absent and
	// truncating it otherwise.
	OpenWrite(path string) (io.WriteCloser, error)

	// Create ensures a regular file exists at path. With wipe set any
	// existing contents are discarded; without it an existing file is
	// left as is.
	Create(path string, wipe bool) error

	// Remove deletes the regular file at path.
	Remove(path string) error

	// RemoveDir deletes the empty directory at path.
	RemoveDir(path string) error

	// MakeDir creates a directory at path. The parent must exist.
	MakeDir(path string) error

	// Move renames src to dst. With overwrite set an existing dst of a
	// compatible kind is replaced; without it an existing dst is
	// ErrDestinationExists.
	Move(src, dst string, overwrite bool) error

	// SetTimes sets access and modification times on path.
	SetTimes(path string, atime, mtime time.Time) error

	// Lock acquires the backend's exclusive mutation lock and returns
	// the release. Callers hold it across compound mutating sequences:
	//
	//	defer b.Lock()()
	Lock() (release func())

	// Close releases the backend. Called once, at unmount.
	Close() error
}
