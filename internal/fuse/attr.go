package fuse

import (
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/fusevfs/fusevfs/pkg/vfs"
)

// fillStat synthesizes a POSIX attribute record from backend metadata.
// Permission bits are the fixed 0755/0644 masks and uid/gid are always
// the mount session's, regardless of what the backend would report.
// A chmod is forwarded to the backend but never read back out through
// here; only the resource kind and the timestamps come from the backend.
//
// Unknown timestamps become epoch 0 and an unknown size becomes 0.
// For kinds other than file and directory, mode and nlink are left
// unset: the record still proves existence, the caller decides what an
// unsupported kind means for its operation.
func fillStat(stat *fuse.Stat_t, info *vfs.Info, uid, gid uint32) {
	stat.Atim = timespec(info.Accessed)
	stat.Ctim = timespec(info.Created)
	stat.Mtim = timespec(info.Modified)
	stat.Size = info.Size
	stat.Uid = uid
	stat.Gid = gid

	switch info.Kind {
	case vfs.KindDirectory:
		stat.Nlink = 2
		stat.Mode = fuse.S_IFDIR | 0o755
	case vfs.KindFile:
		stat.Nlink = 1
		stat.Mode = fuse.S_IFREG | 0o644
	}
}

func timespec(t time.Time) fuse.Timespec {
	if t.IsZero() {
		return fuse.Timespec{}
	}
	return fuse.NewTimespec(t)
}
