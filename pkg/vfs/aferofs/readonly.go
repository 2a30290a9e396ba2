package aferofs

import (
	"fmt"
	"io"
	"time"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// ReadOnly wraps a backend and rejects every mutation with
// vfs.ErrReadOnly. The read surface delegates unchanged.
type ReadOnly struct {
	inner vfs.Backend
}

// NewReadOnly wraps inner in a read-only view.
func NewReadOnly(inner vfs.Backend) *ReadOnly {
	return &ReadOnly{inner: inner}
}

func (b *ReadOnly) Exists(path string) bool                    { return b.inner.Exists(path) }
func (b *ReadOnly) GetInfo(path string) (*vfs.Info, error)     { return b.inner.GetInfo(path) }
func (b *ReadOnly) List(path string) ([]string, error)         { return b.inner.List(path) }
func (b *ReadOnly) OpenRead(path string) (io.ReadSeekCloser, error) {
	return b.inner.OpenRead(path)
}
func (b *ReadOnly) Lock() (release func()) { return b.inner.Lock() }
func (b *ReadOnly) Close() error           { return b.inner.Close() }

func (b *ReadOnly) SetInfo(path string, update vfs.InfoUpdate) error {
	return fmt.Errorf("setinfo %s: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) OpenWrite(path string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("open %s for write: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) Create(path string, wipe bool) error {
	return fmt.Errorf("create %s: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) Remove(path string) error {
	return fmt.Errorf("remove %s: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) RemoveDir(path string) error {
	return fmt.Errorf("removedir %s: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) MakeDir(path string) error {
	return fmt.Errorf("makedir %s: %w", path, vfs.ErrReadOnly)
}

func (b *ReadOnly) Move(src, dst string, overwrite bool) error {
	return fmt.Errorf("move %s: %w", src, vfs.ErrReadOnly)
}

func (b *ReadOnly) SetTimes(path string, atime, mtime time.Time) error {
	return fmt.Errorf("settimes %s: %w", path, vfs.ErrReadOnly)
}
