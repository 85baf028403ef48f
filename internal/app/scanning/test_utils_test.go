package scanning

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/internal/infra/filesystem"
)

func newTestMetrics(t *testing.T) PoolMetrics {
	t.Helper()
	m, err := NewScanMetrics(noop.NewMeterProvider())
	require.NoError(t, err)
	return m
}

func newTestTracer() trace.Tracer { return tracenoop.NewTracerProvider().Tracer("test") }

// newTree builds an in-memory tree from path -> content. Paths ending in "/"
// create empty directories.
func newTree(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	mem := memfs.New()
	for name, content := range files {
		if strings.HasSuffix(name, "/") {
			require.NoError(t, mem.MkdirAll(strings.TrimSuffix(name, "/"), 0o755))
			continue
		}
		require.NoError(t, util.WriteFile(mem, name, []byte(content), 0o644))
	}
	return mem
}

// denyFS refuses to list the configured directories, as a permission failure
// would.
type denyFS struct {
	domain.FileSystem
	denied map[string]bool
}

func newDenyFS(t *testing.T, files map[string]string, denied ...string) *denyFS {
	t.Helper()
	d := &denyFS{FileSystem: filesystem.New(newTree(t, files)), denied: make(map[string]bool)}
	for _, dir := range denied {
		d.denied[dir] = true
	}
	return d
}

func (d *denyFS) List(ctx context.Context, dir string) domain.Listing {
	if d.denied[dir] {
		return domain.Listing{Dir: dir, SkipReason: &domain.EnumerationError{Dir: dir, Err: fs.ErrPermission}}
	}
	return d.FileSystem.List(ctx, dir)
}

func (d *denyFS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if d.denied[path] {
		return nil, fs.ErrPermission
	}
	return d.FileSystem.Open(ctx, path)
}

// mockFileScanner implements domain.FileScanner for testing.
type mockFileScanner struct{ mock.Mock }

func (m *mockFileScanner) Scan(ctx context.Context, item domain.WorkItem) (int64, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(int64), args.Error(1)
}

var errBoom = errors.New("boom")
