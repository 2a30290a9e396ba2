// Package fuse implements the translation layer between kernel
// filesystem requests and a vfs.Backend: attribute synthesis, POSIX
// error mapping, owner checking, directory enumeration and the locking
// discipline around compound mutations.
package fuse

import (
	"io"
	"log"
	"os"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// OperationRecorder receives one record per dispatched operation.
type OperationRecorder interface {
	RecordOperation(op string, duration time.Duration, success bool)
}

// Config represents filesystem behavior configuration.
type Config struct {
	// UID and GID are the mount session's owner identity. Every
	// attribute record reports these, never backend ownership.
	UID uint32
	GID uint32

	// Debug enables per-call logging.
	Debug bool
}

// FileSystem adapts a vfs.Backend to the FUSE callback surface. It is
// stateless across calls: the only session state is the backend handle
// and the owner identity fixed at mount time.
//
// Operations not implemented here (symlink, link, xattr, statfs, fsync,
// flush and friends) fall through to FileSystemBase and report ENOSYS,
// which is the deliberate capability set of this adapter.
type FileSystem struct {
	fuse.FileSystemBase

	backend vfs.Backend
	uid     uint32
	gid     uint32
	debug   bool
	metrics OperationRecorder

	// getcontext reports the calling principal. fuse.Getcontext is
	// only valid during a dispatched operation, so tests swap this
	// out.
	getcontext func() (uid, gid uint32, pid int)
}

// NewFileSystem creates the adapter for one mount session. The backend
// is owned by the returned filesystem and closed at unmount.
func NewFileSystem(backend vfs.Backend, config *Config, metrics OperationRecorder) *FileSystem {
	if config == nil {
		config = &Config{
			UID: uint32(os.Getuid()),
			GID: uint32(os.Getgid()),
		}
	}
	return &FileSystem{
		backend:    backend,
		uid:        config.UID,
		gid:        config.GID,
		debug:      config.Debug,
		metrics:    metrics,
		getcontext: fuse.Getcontext,
	}
}

func (f *FileSystem) observe(op, path string, start time.Time, errc *int) {
	if f.metrics != nil {
		f.metrics.RecordOperation(op, time.Since(start), *errc >= 0)
	}
	if f.debug {
		log.Printf("%s %s: %d", op, path, *errc)
	}
}

// Destroy closes the backend handle. The session is over.
func (f *FileSystem) Destroy() {
	if err := f.backend.Close(); err != nil {
		log.Printf("close backend: %v", err)
	}
}

// Access grants access iff the path exists and the caller is the mount
// owner. The whole filesystem is single-owner; there is no per-entry
// ACL evaluation.
func (f *FileSystem) Access(path string, mask uint32) (errc int) {
	defer f.observe("access", path, time.Now(), &errc)

	uid, _, _ := f.getcontext()
	if f.backend.Exists(path) && uid == f.uid {
		return 0
	}
	return -fuse.EACCES
}

func (f *FileSystem) Getattr(path string, stat *fuse.Stat_t, fh uint64) (errc int) {
	defer f.observe("getattr", path, time.Now(), &errc)

	info, err := f.backend.GetInfo(path)
	if err != nil {
		return errno(err)
	}
	fillStat(stat, info, f.uid, f.gid)
	return 0
}

func (f *FileSystem) Readdir(path string,
	fill func(name string, stat *fuse.Stat_t, ofst int64) bool,
	ofst int64, fh uint64) (errc int) {
	defer f.observe("readdir", path, time.Now(), &errc)

	fill(".", nil, 0)
	fill("..", nil, 0)

	names, err := f.backend.List(path)
	if err != nil {
		return errno(err)
	}
	for _, name := range names {
		if !fill(name, nil, 0) {
			break
		}
	}
	return 0
}

// Mknod creates a regular file and applies the requested mode. The two
// steps run under the backend's exclusive lock so no other mutation
// observes the half-applied sequence; a failure mid-sequence leaves
// whatever the backend left behind.
func (f *FileSystem) Mknod(path string, mode uint32, dev uint64) (errc int) {
	defer f.observe("mknod", path, time.Now(), &errc)

	if mode&fuse.S_IFMT != 0 && mode&fuse.S_IFMT != fuse.S_IFREG {
		return -fuse.ENOSYS
	}

	defer f.backend.Lock()()
	if err := f.backend.Create(path, false); err != nil {
		return errno(err)
	}
	return f.chmod(path, mode)
}

// Mkdir is makedir-then-chmod under the backend lock, same discipline
// as Mknod.
func (f *FileSystem) Mkdir(path string, mode uint32) (errc int) {
	defer f.observe("mkdir", path, time.Now(), &errc)

	defer f.backend.Lock()()
	if err := f.backend.MakeDir(path); err != nil {
		return errno(err)
	}
	return f.chmod(path, mode)
}

func (f *FileSystem) Unlink(path string) (errc int) {
	defer f.observe("unlink", path, time.Now(), &errc)

	return errno(f.backend.Remove(path))
}

func (f *FileSystem) Rmdir(path string) (errc int) {
	defer f.observe("rmdir", path, time.Now(), &errc)

	return errno(f.backend.RemoveDir(path))
}

// Rename moves with overwrite enabled. EEXIST surfaces only when the
// backend reports a collision that overwrite semantics cannot resolve.
func (f *FileSystem) Rename(oldpath, newpath string) (errc int) {
	defer f.observe("rename", oldpath, time.Now(), &errc)

	return errno(f.backend.Move(oldpath, newpath, true))
}

func (f *FileSystem) Chmod(path string, mode uint32) (errc int) {
	defer f.observe("chmod", path, time.Now(), &errc)

	return f.chmod(path, mode)
}

func (f *FileSystem) chmod(path string, mode uint32) int {
	m := os.FileMode(mode & 0o7777)
	return errno(f.backend.SetInfo(path, vfs.InfoUpdate{Mode: &m}))
}

func (f *FileSystem) Chown(path string, uid, gid uint32) (errc int) {
	defer f.observe("chown", path, time.Now(), &errc)

	var update vfs.InfoUpdate
	if uid != ^uint32(0) {
		update.UID = &uid
	}
	if gid != ^uint32(0) {
		update.GID = &gid
	}
	return errno(f.backend.SetInfo(path, update))
}

func (f *FileSystem) Utimens(path string, tmsp []fuse.Timespec) (errc int) {
	defer f.observe("utimens", path, time.Now(), &errc)

	var atime, mtime time.Time
	if len(tmsp) >= 2 {
		atime, mtime = tmsp[0].Time(), tmsp[1].Time()
	} else {
		now := time.Now()
		atime, mtime = now, now
	}
	return errno(f.backend.SetTimes(path, atime, mtime))
}

func (f *FileSystem) Open(path string, flags int) (errc int, fh uint64) {
	defer f.observe("open", path, time.Now(), &errc)

	if !f.backend.Exists(path) {
		return -fuse.ENOENT, ^uint64(0)
	}
	return 0, 0
}

func (f *FileSystem) Create(path string, flags int, mode uint32) (errc int, fh uint64) {
	defer f.observe("create", path, time.Now(), &errc)

	w, err := f.backend.OpenWrite(path)
	if err != nil {
		return errno(err), ^uint64(0)
	}
	if err := w.Close(); err != nil {
		return errno(err), ^uint64(0)
	}
	return 0, 0
}

// Read opens the backend stream, seeks to the requested offset and
// returns however many bytes were available. Short reads at EOF are
// results, not errors.
func (f *FileSystem) Read(path string, buff []byte, ofst int64, fh uint64) (n int) {
	defer f.observe("read", path, time.Now(), &n)

	r, err := f.backend.OpenRead(path)
	if err != nil {
		return errno(err)
	}
	defer r.Close()

	if _, err := r.Seek(ofst, io.SeekStart); err != nil {
		return -fuse.EIO
	}
	n, err = io.ReadFull(r, buff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return -fuse.EIO
	}
	return n
}

// Write is unsupported in this adapter variant.
func (f *FileSystem) Write(path string, buff []byte, ofst int64, fh uint64) (errc int) {
	defer f.observe("write", path, time.Now(), &errc)

	return -fuse.ENOSYS
}

// Truncate recreates the resource with its contents wiped. With the
// write path unsupported this leaves an empty resource; a
// truncate-then-write workflow cannot succeed end to end here.
func (f *FileSystem) Truncate(path string, size int64, fh uint64) (errc int) {
	defer f.observe("truncate", path, time.Now(), &errc)

	return errno(f.backend.Create(path, true))
}
