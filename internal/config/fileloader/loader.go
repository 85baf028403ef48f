package fileloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/drivescan/internal/config"
)

var _ config.Loader = (*FileLoader)(nil)

// FileLoader loads pattern definitions from a YAML file. It implements the
// Loader interface to provide file-based pattern management.
type FileLoader struct {
	fs   billy.Filesystem
	path string
}

// NewFileLoader creates a FileLoader reading path from the host filesystem.
// Relative paths resolve against the working directory.
func NewFileLoader(path string) *FileLoader {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return NewFileLoaderFS(osfs.New("/"), path)
}

// NewFileLoaderFS creates a FileLoader reading path from fs.
func NewFileLoaderFS(fs billy.Filesystem, path string) *FileLoader {
	return &FileLoader{fs: fs, path: path}
}

// Load reads and parses the pattern file. Unknown keys are rejected so a
// misspelled field does not silently drop a pattern.
func (l *FileLoader) Load(ctx context.Context) (*config.PatternFile, error) {
	data, err := util.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns file: %w", err)
	}

	var file config.PatternFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse patterns file %s: %w", l.path, err)
	}

	return &file, nil
}
