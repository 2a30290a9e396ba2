package fuse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

func TestFillStatFile(t *testing.T) {
	modified := time.Unix(1700000000, 0)
	info := &vfs.Info{Kind: vfs.KindFile, Size: 42, Modified: modified}

	var stat fuse.Stat_t
	fillStat(&stat, info, 1000, 1000)

	assert.Equal(t, uint32(fuse.S_IFREG|0o644), stat.Mode)
	assert.Equal(t, uint32(1), stat.Nlink)
	assert.Equal(t, int64(42), stat.Size)
	assert.Equal(t, int64(1700000000), stat.Mtim.Sec)
	assert.Equal(t, uint32(1000), stat.Uid)
	assert.Equal(t, uint32(1000), stat.Gid)
}

func TestFillStatDirectory(t *testing.T) {
	info := &vfs.Info{Kind: vfs.KindDirectory}

	var stat fuse.Stat_t
	fillStat(&stat, info, 500, 600)

	assert.Equal(t, uint32(fuse.S_IFDIR|0o755), stat.Mode)
	assert.Equal(t, uint32(2), stat.Nlink)
	assert.Equal(t, uint32(500), stat.Uid)
	assert.Equal(t, uint32(600), stat.Gid)
}

// Unknown timestamps are epoch 0 and an unknown size is 0; neither is
// an error.
func TestFillStatUnknownFields(t *testing.T) {
	info := &vfs.Info{Kind: vfs.KindFile}

	var stat fuse.Stat_t
	fillStat(&stat, info, 0, 0)

	assert.Equal(t, fuse.Timespec{}, stat.Atim)
	assert.Equal(t, fuse.Timespec{}, stat.Ctim)
	assert.Equal(t, fuse.Timespec{}, stat.Mtim)
	assert.Equal(t, int64(0), stat.Size)
}

// Kinds other than file and directory leave mode and nlink unset; the
// record still carries timestamps and size.
func TestFillStatUnsupportedKind(t *testing.T) {
	info := &vfs.Info{Kind: vfs.KindUnknown, Size: 7}

	var stat fuse.Stat_t
	fillStat(&stat, info, 1000, 1000)

	assert.Equal(t, uint32(0), stat.Mode)
	assert.Equal(t, uint32(0), stat.Nlink)
	assert.Equal(t, int64(7), stat.Size)
}
