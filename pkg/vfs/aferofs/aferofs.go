// Package aferofs adapts an afero.Fs to the vfs.Backend capability set.
// It is the read-write backend family: the local directory variant wraps
// a BasePathFs over the host filesystem, the memory variant wraps a
// MemMapFs. Read-only stores wrap either with NewReadOnly.
package aferofs

import (
	"fmt"
	"io"
	"os"
	gopath "path"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// Fs implements vfs.Backend on top of an afero filesystem.
type Fs struct {
	fs   afero.Fs
	mu   sync.Mutex
	name string
}

// New wraps an afero filesystem as a backend. The name is used in error
// context only.
func New(afs afero.Fs, name string) *Fs {
	return &Fs{fs: afs, name: name}
}

// NewDir returns a backend rooted at the given host directory. The root
// must exist; failure to open the backend is fatal to the mount.
func NewDir(root string) (*Fs, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open backend %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open backend %s: not a directory", root)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), root), nil
}

// NewMem returns an empty in-memory backend.
func NewMem() *Fs {
	return New(afero.NewMemMapFs(), "mem")
}

func (b *Fs) Exists(path string) bool {
	ok, err := afero.Exists(b.fs, path)
	return err == nil && ok
}

func (b *Fs) GetInfo(path string) (*vfs.Info, error) {
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("getinfo %s: %w", path, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("getinfo %s: %w", path, err)
	}
	return infoFromStat(fi), nil
}

func infoFromStat(fi os.FileInfo) *vfs.Info {
	info := &vfs.Info{
		Size:     fi.Size(),
		Modified: fi.ModTime(),
	}
	switch {
	case fi.IsDir():
		info.Kind = vfs.KindDirectory
	case fi.Mode().IsRegular():
		info.Kind = vfs.KindFile
	}
	return info
}

func (b *Fs) SetInfo(path string, update vfs.InfoUpdate) error {
	if !b.Exists(path) {
		return fmt.Errorf("setinfo %s: %w", path, vfs.ErrNotFound)
	}
	if update.Mode != nil {
		if err := b.fs.Chmod(path, *update.Mode); err != nil {
			return fmt.Errorf("chmod %s: %w", path, err)
		}
	}
	if update.UID != nil || update.GID != nil {
		uid, gid := -1, -1
		if update.UID != nil {
			uid = int(*update.UID)
		}
		if update.GID != nil {
			gid = int(*update.GID)
		}
		if err := b.fs.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	return nil
}

func (b *Fs) List(path string) ([]string, error) {
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("listdir %s: %w", path, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("listdir %s: %w", path, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("listdir %s: %w", path, vfs.ErrDirectoryExpected)
	}
	f, err := b.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("listdir %s: %w", path, err)
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("listdir %s: %w", path, err)
	}
	return names, nil
}

func (b *Fs) OpenRead(path string) (io.ReadSeekCloser, error) {
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("openbin %s: %w", path, vfs.ErrNotFound)
		}
		return nil, fmt.Errorf("openbin %s: %w", path, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("openbin %s: %w", path, vfs.ErrFileExpected)
	}
	f, err := b.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("openbin %s: %w", path, err)
	}
	return f, nil
}

func (b *Fs) OpenWrite(path string) (io.WriteCloser, error) {
	f, err := b.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s for write: %w", path, err)
	}
	return f, nil
}

func (b *Fs) Create(path string, wipe bool) error {
	if fi, err := b.fs.Stat(path); err == nil {
		if fi.IsDir() {
			return fmt.Errorf("create %s: %w", path, vfs.ErrFileExpected)
		}
		if !wipe {
			return nil
		}
	}
	f, err := b.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return f.Close()
}

func (b *Fs) Remove(path string) error {
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, vfs.ErrNotFound)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	if fi.IsDir() {
		return fmt.Errorf("remove %s: %w", path, vfs.ErrFileExpected)
	}
	if err := b.fs.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (b *Fs) RemoveDir(path string) error {
	if path == "/" || path == "" {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrRemoveRoot)
	}
	fi, err := b.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("removedir %s: %w", path, vfs.ErrNotFound)
		}
		return fmt.Errorf("removedir %s: %w", path, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrDirectoryExpected)
	}
	names, err := b.List(path)
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return fmt.Errorf("removedir %s: %w", path, vfs.ErrNotEmpty)
	}
	if err := b.fs.Remove(path); err != nil {
		return fmt.Errorf("removedir %s: %w", path, err)
	}
	return nil
}

func (b *Fs) MakeDir(path string) error {
	if b.Exists(path) {
		return fmt.Errorf("makedir %s: %w", path, vfs.ErrExists)
	}
	if parent := gopath.Dir(path); parent != path && !b.Exists(parent) {
		return fmt.Errorf("makedir %s: parent: %w", path, vfs.ErrNotFound)
	}
	if err := b.fs.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("makedir %s: %w", path, vfs.ErrExists)
		}
		return fmt.Errorf("makedir %s: %w", path, err)
	}
	return nil
}

func (b *Fs) Move(src, dst string, overwrite bool) error {
	srcInfo, err := b.fs.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("move %s: %w", src, vfs.ErrNotFound)
		}
		return fmt.Errorf("move %s: %w", src, err)
	}
	if dstInfo, err := b.fs.Stat(dst); err == nil {
		if !overwrite {
			return fmt.Errorf("move %s -> %s: %w", src, dst, vfs.ErrDestinationExists)
		}
		// Overwrite applies only between entries of the same kind.
		// A file landing on a directory, or a directory landing on a
		// file, is a type mismatch.
		if dstInfo.IsDir() != srcInfo.IsDir() {
			return fmt.Errorf("move %s -> %s: %w", src, dst, vfs.ErrFileExpected)
		}
		if dstInfo.IsDir() {
			if err := b.RemoveDir(dst); err != nil {
				return err
			}
		} else if err := b.fs.Remove(dst); err != nil {
			return fmt.Errorf("move %s -> %s: %w", src, dst, err)
		}
	}
	if err := b.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	return nil
}

func (b *Fs) SetTimes(path string, atime, mtime time.Time) error {
	if !b.Exists(path) {
		return fmt.Errorf("settimes %s: %w", path, vfs.ErrNotFound)
	}
	if err := b.fs.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("settimes %s: %w", path, err)
	}
	return nil
}

func (b *Fs) Lock() (release func()) {
	b.mu.Lock()
	return b.mu.Unlock
}

func (b *Fs) Close() error { return nil }
