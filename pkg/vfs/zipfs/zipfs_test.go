package zipfs

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

func newArchive(t *testing.T) *Fs {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range map[string]string{
		"a.txt":   "abcd",
		"d/x.txt": "inner",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return New(zr, "test.zip")
}

func TestArchiveReads(t *testing.T) {
	b := newArchive(t)

	assert.True(t, b.Exists("/a.txt"))
	assert.True(t, b.Exists("/d"))
	assert.False(t, b.Exists("/missing"))

	info, err := b.GetInfo("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, vfs.KindFile, info.Kind)
	assert.Equal(t, int64(4), info.Size)

	info, err = b.GetInfo("/d")
	require.NoError(t, err)
	assert.Equal(t, vfs.KindDirectory, info.Kind)

	names, err := b.List("/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "d"}, names)
}

// Archives routinely omit directory records: an entry d/e/x.txt implies
// d and d/e without either appearing in the archive. Every ancestor
// must still resolve as a directory and show up in its parent's
// listing.
func TestImplicitDirectories(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("d/e/x.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("inner"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	b := New(zr, "nested.zip")

	assert.True(t, b.Exists("/"))
	assert.True(t, b.Exists("/d"))
	assert.True(t, b.Exists("/d/e"))

	for _, dir := range []string{"/d", "/d/e"} {
		info, err := b.GetInfo(dir)
		require.NoError(t, err, dir)
		assert.Equal(t, vfs.KindDirectory, info.Kind, dir)
	}

	names, err := b.List("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, names)

	names, err = b.List("/d")
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, names)

	names, err = b.List("/d/e")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.txt"}, names)

	r, err := b.OpenRead("/d/e/x.txt")
	require.NoError(t, err)
	defer r.Close()
	contents, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "inner", string(contents))
}

func TestArchiveKindMismatches(t *testing.T) {
	b := newArchive(t)

	_, err := b.List("/a.txt")
	assert.ErrorIs(t, err, vfs.ErrDirectoryExpected)

	_, err = b.OpenRead("/d")
	assert.ErrorIs(t, err, vfs.ErrFileExpected)

	_, err = b.List("/missing")
	assert.ErrorIs(t, err, vfs.ErrNotFound)

	_, err = b.GetInfo("/missing")
	assert.ErrorIs(t, err, vfs.ErrNotFound)
}

func TestArchiveOpenRead(t *testing.T) {
	b := newArchive(t)

	r, err := b.OpenRead("/a.txt")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Seek(1, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "bc", string(buf))
}

// The archive variant is read-mostly: every mutation reports the
// backend read-only, which the adapter surfaces as EROFS.
func TestArchiveIsReadOnly(t *testing.T) {
	b := newArchive(t)

	assert.ErrorIs(t, b.Create("/new.txt", false), vfs.ErrReadOnly)
	assert.ErrorIs(t, b.Remove("/a.txt"), vfs.ErrReadOnly)
	assert.ErrorIs(t, b.RemoveDir("/d"), vfs.ErrReadOnly)
	assert.ErrorIs(t, b.MakeDir("/sub"), vfs.ErrReadOnly)
	assert.ErrorIs(t, b.Move("/a.txt", "/b.txt", true), vfs.ErrReadOnly)
	_, err := b.OpenWrite("/a.txt")
	assert.ErrorIs(t, err, vfs.ErrReadOnly)
}

func TestOpenMissingArchive(t *testing.T) {
	_, err := Open("/no/such/archive.zip")
	require.Error(t, err)
}
