package scanning

import (
	"context"
	"io"
)

// Listing is the outcome of enumerating a single directory. Exactly one of
// the two shapes is meaningful: either the directory's immediate regular files
// and subdirectories, or a non-nil SkipReason explaining why the directory
// could not be enumerated.
type Listing struct {
	Dir        string
	Files      []WorkItem
	Subdirs    []string
	SkipReason error
}

// Skipped reports whether the directory could not be enumerated.
func (l Listing) Skipped() bool { return l.SkipReason != nil }

// FileSystem is the capability the scanner consumes from storage: list the
// immediate children of a directory and stream the bytes of a file.
type FileSystem interface {
	// List enumerates the immediate children of dir. Failures are reported in
	// Listing.SkipReason rather than as a separate error.
	List(ctx context.Context, dir string) Listing
	// Open opens path for shared, sequential reading.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FindingReporter receives findings as they are produced. Implementations must
// be safe for concurrent use by multiple workers.
type FindingReporter interface {
	Report(ctx context.Context, f Finding) error
}

// FileScanner scans one work item and returns the number of bytes read.
type FileScanner interface {
	Scan(ctx context.Context, item WorkItem) (int64, error)
}
