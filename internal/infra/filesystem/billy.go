// Package filesystem adapts go-billy filesystems to the scanner's FileSystem
// port. The OS-backed filesystem is used for real scans; memfs backs tests.
package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
)

var _ domain.FileSystem = (*FS)(nil)

// FS exposes a billy.Filesystem as a domain.FileSystem.
type FS struct {
	fs billy.Filesystem
}

// New wraps an arbitrary billy filesystem.
func New(fs billy.Filesystem) *FS {
	return &FS{fs: fs}
}

// NewOS returns a filesystem rooted at "/" so absolute host paths resolve
// unchanged.
func NewOS() *FS {
	return New(osfs.New("/"))
}

// List enumerates dir's immediate regular files (with sizes) and
// subdirectories in name order. Symlinks, devices, sockets and pipes are
// ignored. Any failure is returned as the listing's skip reason.
func (f *FS) List(_ context.Context, dir string) domain.Listing {
	listing := domain.Listing{Dir: dir}

	entries, err := f.fs.ReadDir(dir)
	if err != nil {
		listing.SkipReason = &domain.EnumerationError{Dir: dir, Err: err}
		return listing
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		child := filepath.Join(dir, e.Name())
		switch mode := e.Mode(); {
		case mode.IsDir():
			listing.Subdirs = append(listing.Subdirs, child)
		case mode.IsRegular():
			listing.Files = append(listing.Files, domain.NewWorkItem(child, e.Size()))
		}
	}
	return listing
}

// Open opens path read-only.
func (f *FS) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return f.fs.OpenFile(name, os.O_RDONLY, 0)
}
