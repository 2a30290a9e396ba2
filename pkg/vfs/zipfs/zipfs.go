// Package zipfs exposes a ZIP archive as a read-only vfs.Backend. This
// is the read-mostly variant the adapter ships with: every mutation
// reports the backend read-only, which the FUSE layer surfaces as EROFS.
package zipfs

import (
	"archive/zip"
	"fmt"
	"io"
	gopath "path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	azip "github.com/spf13/afero/zipfs"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// Fs is a ZIP archive backend. Archives routinely carry entries like
// d/x.txt without an explicit d/ record, so existence, metadata and
// listings are served from an index built over every entry's parent
// chain rather than from the archive's own directory records. File
// contents still come out of afero's zipfs, which handles
// decompression and seeking.
type Fs struct {
	name  string
	data  afero.Fs
	files map[string]*zip.File
	dirs  map[string]map[string]bool
	mu    sync.Mutex
	rc    *zip.ReadCloser
}

// Open opens the archive at the given host path.
func Open(archive string) (*Fs, error) {
	rc, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", archive, err)
	}
	b := New(&rc.Reader, archive)
	b.rc = rc
	return b, nil
}

// New wraps an already-open zip reader, for archives that do not live on
// the host filesystem.
func New(r *zip.Reader, name string) *Fs {
	b := &Fs{
		name:  name,
		data:  azip.New(r),
		files: make(map[string]*zip.File),
		dirs:  map[string]map[string]bool{"/": {}},
	}
	for _, f := range r.File {
		key := normalize(f.Name)
		if key == "/" {
			continue
		}
		if f.FileInfo().IsDir() {
			b.addDir(key)
			continue
		}
		b.files[key] = f
		parent := gopath.Dir(key)
		b.addDir(parent)
		b.dirs[parent][gopath.Base(key)] = true
	}
	return b
}

func normalize(name string) string {
	return gopath.Clean("/" + strings.Trim(name, "/"))
}

// addDir registers dir and every ancestor up to the root, linking each
// into its parent's child set.
func (b *Fs) addDir(dir string) {
	for dir != "/" {
		if b.dirs[dir] == nil {
			b.dirs[dir] = make(map[string]bool)
		}
		parent := gopath.Dir(dir)
		if b.dirs[parent] == nil {
			b.dirs[parent] = make(map[string]bool)
		}
		b.dirs[parent][gopath.Base(dir)] = true
		dir = parent
	}
}

func (b *Fs) Exists(path string) bool {
	key := normalize(path)
	if _, ok := b.files[key]; ok {
		return true
	}
	_, ok := b.dirs[key]
	return ok
}

func (b *Fs) GetInfo(path string) (*vfs.Info, error) {
	key := normalize(path)
	if f, ok := b.files[key]; ok {
		return &vfs.Info{
			Kind:     vfs.KindFile,
			Size:     f.FileInfo().Size(),
			Modified: f.Modified,
		}, nil
	}
	if _, ok := b.dirs[key]; ok {
		return &vfs.Info{Kind: vfs.KindDirectory}, nil
	}
	return nil, fmt.Errorf("getinfo %s: %w", path, vfs.ErrNotFound)
}

func (b *Fs) List(path string) ([]string, error) {
	key := normalize(path)
	children, ok := b.dirs[key]
	if !ok {
		if _, isFile := b.files[key]; isFile {
			return nil, fmt.Errorf("list %s: %w", path, vfs.ErrDirectoryExpected)
		}
		return nil, fmt.Errorf("list %s: %w", path, vfs.ErrNotFound)
	}
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Fs) OpenRead(path string) (io.ReadSeekCloser, error) {
	key := normalize(path)
	if _, ok := b.files[key]; !ok {
		if _, isDir := b.dirs[key]; isDir {
			return nil, fmt.Errorf("open %s: %w", path, vfs.ErrFileExpected)
		}
		return nil, fmt.Errorf("open %s: %w", path, vfs.ErrNotFound)
	}
	f, err := b.data.Open(key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func (b *Fs) Lock() (release func()) {
	b.mu.Lock()
	return b.mu.Unlock
}

func (b *Fs) Close() error {
	if b.rc != nil {
		return b.rc.Close()
	}
	return nil
}

func (b *Fs) SetInfo(path string, update vfs.InfoUpdate) error {
	return fmt.Errorf("setinfo %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) OpenWrite(path string) (io.WriteCloser, error) {
	return nil, fmt.Errorf("open %s for write: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) Create(path string, wipe bool) error {
	return fmt.Errorf("create %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) Remove(path string) error {
	return fmt.Errorf("remove %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) RemoveDir(path string) error {
	return fmt.Errorf("removedir %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) MakeDir(path string) error {
	return fmt.Errorf("makedir %s: %w", path, vfs.ErrReadOnly)
}

func (b *Fs) Move(src, dst string, overwrite bool) error {
	return fmt.Errorf("move %s: %w", src, vfs.ErrReadOnly)
}

func (b *Fs) SetTimes(path string, atime, mtime time.Time) error {
	return fmt.Errorf("settimes %s: %w", path, vfs.ErrReadOnly)
}
