package onewire

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the subset of a filesystem needed to discover and read sensors.
type FS interface {
	// ReadFile reads the whole file at the path, relative to the devices
	// directory.
	ReadFile(name string) ([]byte, error)
	// ListDirEntries will list all files, directories, symlinks, and other
	// entries inside the devices directory, non-recursively.
	ListDirEntries() ([]fs.DirEntry, error)
}

// NewFS creates a filesystem that will use the given directory as the devices
// directory.
func NewFS(dir string) FS {
	return osFS{dir: dir}
}

type osFS struct {
	dir string
}

func (fs osFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(fs.dir, name))
}

func (fs osFS) ListDirEntries() ([]fs.DirEntry, error) {
	return os.ReadDir(fs.dir)
}
