package fuse

import (
	"errors"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// errno maps a backend failure condition onto a negated POSIX error
// code. The mapping is total: every backend failure that reaches the
// transport boundary becomes exactly one errno, and anything outside
// the known vocabulary fails closed as EIO rather than crossing the
// boundary unmapped.
func errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, vfs.ErrNotFound):
		return -fuse.ENOENT
	case errors.Is(err, vfs.ErrDirectoryExpected):
		return -fuse.ENOTDIR
	case errors.Is(err, vfs.ErrFileExpected):
		return -fuse.EISDIR
	case errors.Is(err, vfs.ErrNotEmpty):
		return -fuse.ENOTEMPTY
	case errors.Is(err, vfs.ErrRemoveRoot):
		return -fuse.EACCES
	case errors.Is(err, vfs.ErrReadOnly):
		return -fuse.EROFS
	case errors.Is(err, vfs.ErrExists):
		return -fuse.EEXIST
	case errors.Is(err, vfs.ErrDestinationExists):
		return -fuse.EEXIST
	case errors.Is(err, vfs.ErrNotSupported):
		return -fuse.ENOSYS
	default:
		return -fuse.EIO
	}
}
