// Package adapter wires one mount session together: it opens the
// backend named by the storage URI, builds the FUSE translation layer
// on top of it and serves the mount.
package adapter

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/fusevfs/fusevfs/internal/config"
	"github.com/fusevfs/fusevfs/internal/fuse"
	"github.com/fusevfs/fusevfs/internal/metrics"
	"github.com/fusevfs/fusevfs/pkg/vfs"
	"github.com/fusevfs/fusevfs/pkg/vfs/aferofs"
	"github.com/fusevfs/fusevfs/pkg/vfs/s3fs"
	"github.com/fusevfs/fusevfs/pkg/vfs/zipfs"
)

// Adapter represents one mount session: one backend handle, one FUSE
// filesystem, one mountpoint, for the process lifetime.
type Adapter struct {
	storageURI string
	mountPoint string
	config     *config.Configuration

	backend   vfs.Backend
	collector *metrics.Collector
	mount     *fuse.MountManager
}

// New creates an adapter instance. The storage URI and configuration
// are validated here; the backend is not opened until Start.
func New(storageURI, mountPoint string, cfg *config.Configuration) (*Adapter, error) {
	if err := validateStorageURI(storageURI); err != nil {
		return nil, fmt.Errorf("invalid storage URI: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Adapter{
		storageURI: storageURI,
		mountPoint: mountPoint,
		config:     cfg,
	}, nil
}

// Start opens the backend, starts the metrics endpoint and serves the
// mount in the foreground until unmounted.
func (a *Adapter) Start(ctx context.Context) error {
	log.Printf("storage URI: %s", a.storageURI)
	log.Printf("mount point: %s", a.mountPoint)

	backend, err := openBackend(ctx, a.storageURI)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	a.backend = backend

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   a.config.Metrics.Enabled,
		Port:      a.config.Metrics.Port,
		Path:      a.config.Metrics.Path,
		Namespace: a.config.Metrics.Namespace,
	})
	if err != nil {
		a.closeBackend()
		return fmt.Errorf("create metrics collector: %w", err)
	}
	if err := collector.Start(); err != nil {
		a.closeBackend()
		return fmt.Errorf("start metrics collector: %w", err)
	}
	a.collector = collector

	uid, gid := a.config.Mount.UID, a.config.Mount.GID
	if uid < 0 {
		uid = os.Getuid()
	}
	if gid < 0 {
		gid = os.Getgid()
	}

	filesystem := fuse.NewFileSystem(backend, &fuse.Config{
		UID:   uint32(uid),
		GID:   uint32(gid),
		Debug: a.config.Global.Debug,
	}, collector)

	a.mount = fuse.NewMountManager(filesystem, &fuse.MountConfig{
		MountPoint: a.mountPoint,
		FSName:     a.config.Mount.FSName,
		Subtype:    a.config.Mount.Subtype,
		ReadOnly:   a.config.Mount.ReadOnly,
		AllowOther: a.config.Mount.AllowOther,
		Debug:      a.config.Global.Debug,
	})

	// Blocks until unmount. On a served session the filesystem's
	// Destroy callback closes the backend; if the mount never starts,
	// Destroy never runs and the handle is closed here.
	if err := a.mount.Mount(); err != nil {
		a.closeBackend()
		return err
	}
	return nil
}

func (a *Adapter) closeBackend() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Close(); err != nil {
		log.Printf("close backend: %v", err)
	}
	a.backend = nil
}

// Stop unmounts the filesystem and tears the session down.
func (a *Adapter) Stop(ctx context.Context) error {
	if a.mount != nil && a.mount.IsMounted() {
		if err := a.mount.Unmount(); err != nil {
			return err
		}
	}
	if a.collector != nil {
		if err := a.collector.Stop(ctx); err != nil {
			log.Printf("stop metrics collector: %v", err)
		}
	}
	return nil
}

// validateStorageURI validates the storage URI format.
func validateStorageURI(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("failed to parse URI: %w", err)
	}

	switch parsed.Scheme {
	case "", "dir", "file":
		if parsed.Path == "" && parsed.Opaque == "" {
			return fmt.Errorf("directory URI must include a path")
		}
	case "zip":
		if parsed.Path == "" {
			return fmt.Errorf("zip URI must include an archive path")
		}
	case "s3":
		if parsed.Host == "" {
			return fmt.Errorf("s3 URI must include bucket name")
		}
	case "mem":
	default:
		return fmt.Errorf("unsupported storage scheme: %s (supported: dir, zip, s3, mem)", parsed.Scheme)
	}
	return nil
}

// openBackend opens the backend named by the URI. Failure to open is
// fatal to the mount; there is no reopening or pooling afterwards.
// A variable so tests can substitute a backend.
var openBackend = func(ctx context.Context, uri string) (vfs.Backend, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URI: %w", err)
	}

	switch parsed.Scheme {
	case "", "dir", "file":
		root := parsed.Path
		if root == "" {
			root = parsed.Opaque
		}
		b, err := aferofs.NewDir(root)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "zip":
		b, err := zipfs.Open(parsed.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "mem":
		return aferofs.NewMem(), nil
	case "s3":
		b, err := s3fs.New(ctx, s3fs.Config{
			Bucket:         parsed.Host,
			Prefix:         strings.TrimPrefix(parsed.Path, "/"),
			Region:         os.Getenv("AWS_REGION"),
			Endpoint:       os.Getenv("FUSEVFS_S3_ENDPOINT"),
			ForcePathStyle: os.Getenv("FUSEVFS_S3_PATH_STYLE") == "true",
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", parsed.Scheme)
	}
}
