package fuse

import (
	"fmt"
	"log"
	"os"

	"github.com/winfsp/cgofuse/fuse"
)

// MountConfig contains mount-specific configuration.
type MountConfig struct {
	MountPoint string `yaml:"mount_point"`
	FSName     string `yaml:"fsname"`
	Subtype    string `yaml:"subtype"`
	ReadOnly   bool   `yaml:"read_only"`
	AllowOther bool   `yaml:"allow_other"`
	Debug      bool   `yaml:"debug"`
}

// MountManager owns the FUSE host for one mount session.
type MountManager struct {
	filesystem *FileSystem
	config     *MountConfig
	host       *fuse.FileSystemHost
	mounted    bool
}

// NewMountManager creates a mount manager for the given filesystem.
func NewMountManager(filesystem *FileSystem, config *MountConfig) *MountManager {
	if config == nil {
		config = &MountConfig{
			FSName:  "fusevfs",
			Subtype: "vfs",
		}
	}
	return &MountManager{
		filesystem: filesystem,
		config:     config,
	}
}

// Mount mounts the filesystem and serves it in the foreground until the
// mountpoint is unmounted. Calls arrive one at a time and block on the
// adapter's return.
func (m *MountManager) Mount() error {
	if m.mounted {
		return fmt.Errorf("filesystem is already mounted")
	}
	if err := m.validateMountPoint(); err != nil {
		return fmt.Errorf("invalid mount point: %w", err)
	}

	m.host = fuse.NewFileSystemHost(m.filesystem)
	m.mounted = true

	log.Printf("mounting at %s", m.config.MountPoint)
	if !m.host.Mount(m.config.MountPoint, m.buildOptions()) {
		m.mounted = false
		return fmt.Errorf("mount at %s failed", m.config.MountPoint)
	}

	m.mounted = false
	log.Printf("unmounted from %s", m.config.MountPoint)
	return nil
}

// Unmount requests unmount; the blocked Mount call returns once the
// kernel lets go.
func (m *MountManager) Unmount() error {
	if !m.mounted || m.host == nil {
		return fmt.Errorf("filesystem is not mounted")
	}
	if !m.host.Unmount() {
		return fmt.Errorf("unmount of %s failed", m.config.MountPoint)
	}
	return nil
}

// IsMounted reports whether the filesystem is currently mounted.
func (m *MountManager) IsMounted() bool { return m.mounted }

func (m *MountManager) validateMountPoint() error {
	if m.config.MountPoint == "" {
		return fmt.Errorf("mount point cannot be empty")
	}
	info, err := os.Stat(m.config.MountPoint)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("mount point does not exist: %s", m.config.MountPoint)
		}
		return fmt.Errorf("cannot access mount point: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount point is not a directory: %s", m.config.MountPoint)
	}
	return nil
}

func (m *MountManager) buildOptions() []string {
	options := []string{}
	if m.config.FSName != "" {
		options = append(options, "-o", "fsname="+m.config.FSName)
	}
	if m.config.Subtype != "" {
		options = append(options, "-o", "subtype="+m.config.Subtype)
	}
	if m.config.ReadOnly {
		options = append(options, "-o", "ro")
	}
	if m.config.AllowOther {
		options = append(options, "-o", "allow_other")
	}
	if m.config.Debug {
		options = append(options, "-d")
	}
	return options
}
