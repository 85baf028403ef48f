package scanning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/internal/infra/filesystem"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

func drain(c *Catalog) []string {
	var paths []string
	for {
		item, _, ok := c.Claim()
		if !ok {
			return paths
		}
		paths = append(paths, item.Path)
	}
}

func TestWalker_Discover(t *testing.T) {
	tree := map[string]string{
		"/scan/z.txt":          "z",
		"/scan/a.txt":          "aaa",
		"/scan/d1/b.txt":       "bb",
		"/scan/d1/d3/c.txt":    "c",
		"/scan/d2/e.txt":       "eeee",
		"/scan/d2/big.bin":     "0123456789",
		"/scan/d2/empty-dir/":  "",
		"/scan/d1/d3/deep.txt": "",
	}

	tests := []struct {
		name        string
		capacity    int
		maxFileSize int64
		wantPaths   []string
		wantTrunc   bool
		wantDirs    int64
		wantFiles   int64
		wantBytes   int64
	}{
		{
			name:        "breadth first, files before subdirectories",
			capacity:    100,
			maxFileSize: 1 << 20,
			wantPaths: []string{
				"/scan/a.txt", "/scan/z.txt",
				"/scan/d1/b.txt",
				"/scan/d2/big.bin", "/scan/d2/e.txt",
				"/scan/d1/d3/c.txt", "/scan/d1/d3/deep.txt",
			},
			wantDirs:  5,
			wantFiles: 7,
			wantBytes: 21,
		},
		{
			name:        "files above the size limit are skipped",
			capacity:    100,
			maxFileSize: 4,
			wantPaths: []string{
				"/scan/a.txt", "/scan/z.txt",
				"/scan/d1/b.txt",
				"/scan/d2/e.txt",
				"/scan/d1/d3/c.txt", "/scan/d1/d3/deep.txt",
			},
			wantDirs:  5,
			wantFiles: 6,
			wantBytes: 11,
		},
		{
			name:        "capacity stops the walk mid-directory",
			capacity:    1,
			maxFileSize: 1 << 20,
			wantPaths:   []string{"/scan/a.txt"},
			wantTrunc:   true,
			wantDirs:    1,
			wantFiles:   1,
			wantBytes:   3,
		},
		{
			name:        "capacity reached in a subdirectory",
			capacity:    4,
			maxFileSize: 1 << 20,
			wantPaths:   []string{"/scan/a.txt", "/scan/z.txt", "/scan/d1/b.txt", "/scan/d2/big.bin"},
			wantTrunc:   true,
			wantDirs:    4,
			wantFiles:   4,
			wantBytes:   16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewCatalog(tt.capacity)
			w := NewWalker(filesystem.New(newTree(t, tree)), catalog, tt.maxFileSize,
				logger.Noop(), newTestTracer(), newTestMetrics(t))

			result, err := w.Discover(context.Background(), "/scan")
			require.NoError(t, err)

			assert.Equal(t, tt.wantTrunc, result.Truncated)
			assert.LessOrEqual(t, catalog.Enqueued(), tt.capacity)

			counters := catalog.Counters()
			assert.Equal(t, tt.wantDirs, counters.DirectoriesVisited)
			assert.Equal(t, tt.wantFiles, counters.FilesVisited)
			assert.Equal(t, tt.wantBytes, counters.BytesVisited)
			assert.Equal(t, tt.wantPaths, drain(catalog))
		})
	}
}

func TestWalker_EmptyTree(t *testing.T) {
	catalog := NewCatalog(10)
	w := NewWalker(filesystem.New(newTree(t, map[string]string{"/scan/": ""})), catalog, 0,
		logger.Noop(), newTestTracer(), newTestMetrics(t))

	result, err := w.Discover(context.Background(), "/scan")
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	assert.Zero(t, catalog.Len())
	assert.EqualValues(t, 1, catalog.Counters().DirectoriesVisited)
}

func TestWalker_RootUnavailable(t *testing.T) {
	catalog := NewCatalog(10)
	w := NewWalker(filesystem.New(newTree(t, map[string]string{"/other/a": "a"})), catalog, 0,
		logger.Noop(), newTestTracer(), newTestMetrics(t))

	_, err := w.Discover(context.Background(), "/scan")
	require.ErrorIs(t, err, domain.ErrRootUnavailable)

	var enumErr *domain.EnumerationError
	require.ErrorAs(t, err, &enumErr)
	assert.Equal(t, "/scan", enumErr.Dir)
	assert.Zero(t, catalog.Len())
}

func TestWalker_UnreadableSubdirectoryDoesNotStopSiblings(t *testing.T) {
	fsys := newDenyFS(t, map[string]string{
		"/scan/a/1.txt":        "1",
		"/scan/locked/2.txt":   "2",
		"/scan/locked/x/3.txt": "3",
		"/scan/z/4.txt":        "4",
	}, "/scan/locked")

	catalog := NewCatalog(10)
	w := NewWalker(fsys, catalog, 0, logger.Noop(), newTestTracer(), newTestMetrics(t))

	result, err := w.Discover(context.Background(), "/scan")
	require.NoError(t, err)
	assert.False(t, result.Truncated)

	assert.Equal(t, []string{"/scan/a/1.txt", "/scan/z/4.txt"}, drain(catalog))
	counters := catalog.Counters()
	assert.EqualValues(t, 1, counters.DirectoriesSkipped)
	assert.EqualValues(t, 4, counters.DirectoriesVisited)
}

func TestWalker_FullCatalogTruncation(t *testing.T) {
	tests := []struct {
		name      string
		tree      map[string]string
		capacity  int
		wantTrunc bool
	}{
		{
			name:     "flat tree filled by its last file",
			tree:     map[string]string{"/scan/a": "1", "/scan/b": "2", "/scan/c": "3"},
			capacity: 3,
		},
		{
			name:     "filled by the last file of the last directory",
			tree:     map[string]string{"/scan/a": "1", "/scan/sub/b": "2"},
			capacity: 2,
		},
		{
			name:     "only oversize files remain",
			tree:     map[string]string{"/scan/a": "1", "/scan/b": "0123456789"},
			capacity: 1,
		},
		{
			name:      "eligible file remains",
			tree:      map[string]string{"/scan/a": "1", "/scan/b": "2"},
			capacity:  1,
			wantTrunc: true,
		},
		{
			name:      "unvisited directory remains",
			tree:      map[string]string{"/scan/a": "1", "/scan/sub/": ""},
			capacity:  1,
			wantTrunc: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewCatalog(tt.capacity)
			w := NewWalker(filesystem.New(newTree(t, tt.tree)), catalog, 4,
				logger.Noop(), newTestTracer(), newTestMetrics(t))

			result, err := w.Discover(context.Background(), "/scan")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrunc, result.Truncated)
			assert.Equal(t, tt.capacity, catalog.Enqueued())
		})
	}
}
