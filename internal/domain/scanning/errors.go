package scanning

import (
	"errors"
	"fmt"
)

// ErrRootUnavailable is returned when the walk cannot enumerate its starting
// directory. It is the only enumeration failure that aborts a run.
var ErrRootUnavailable = errors.New("scan root unavailable")

// EnumerationError describes a directory that could not be listed
// (permissions, transient I/O, concurrent deletion).
type EnumerationError struct {
	Dir string
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate %s: %v", e.Dir, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// FileOp names the step of a file scan that failed.
type FileOp string

const (
	FileOpOpen FileOp = "open"
	FileOpRead FileOp = "read"
)

// FileError describes a claimed file that could not be opened or read. It
// abandons that file only.
type FileError struct {
	Path string
	Op   FileOp
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
