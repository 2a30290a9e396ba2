package fuse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

func TestErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"not found", vfs.ErrNotFound, -fuse.ENOENT},
		{"directory expected", vfs.ErrDirectoryExpected, -fuse.ENOTDIR},
		{"file expected", vfs.ErrFileExpected, -fuse.EISDIR},
		{"not empty", vfs.ErrNotEmpty, -fuse.ENOTEMPTY},
		{"remove root", vfs.ErrRemoveRoot, -fuse.EACCES},
		{"read only", vfs.ErrReadOnly, -fuse.EROFS},
		{"directory exists", vfs.ErrExists, -fuse.EEXIST},
		{"destination exists", vfs.ErrDestinationExists, -fuse.EEXIST},
		{"not supported", vfs.ErrNotSupported, -fuse.ENOSYS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errno(tt.err))
		})
	}
}

// Wrapped conditions map the same as bare ones; backends add context
// freely.
func TestErrnoWrapped(t *testing.T) {
	err := fmt.Errorf("removedir /d: %w", vfs.ErrNotEmpty)
	assert.Equal(t, -fuse.ENOTEMPTY, errno(err))

	err = fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", vfs.ErrNotFound))
	assert.Equal(t, -fuse.ENOENT, errno(err))
}

// Anything outside the known vocabulary fails closed as EIO instead of
// crossing the transport boundary unmapped.
func TestErrnoUnknownFailsClosed(t *testing.T) {
	assert.Equal(t, -fuse.EIO, errno(errors.New("backend exploded")))
}
