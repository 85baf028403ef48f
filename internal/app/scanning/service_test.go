package scanning_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/ahrav/drivescan/internal/app/scanning"
	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/internal/infra/filesystem"
	"github.com/ahrav/drivescan/internal/infra/reporter"
	"github.com/ahrav/drivescan/internal/infra/scanner"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

type harness struct {
	runID    uuid.UUID
	fs       domain.FileSystem
	reporter *reporter.Memory
	metrics  scanning.PoolMetrics
	factory  scanning.ScannerFactory
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()

	mem := memfs.New()
	for name, content := range files {
		if strings.HasSuffix(name, "/") {
			require.NoError(t, mem.MkdirAll(strings.TrimSuffix(name, "/"), 0o755))
			continue
		}
		require.NoError(t, util.WriteFile(mem, name, []byte(content), 0o644))
	}

	classifier, err := domain.NewClassifier(domain.DefaultSeparator)
	require.NoError(t, err)
	ssn, err := domain.NewPatternTemplate(domain.PatternSSNExpanded, domain.BuiltinShapes[domain.PatternSSNExpanded], classifier)
	require.NoError(t, err)
	metrics, err := scanning.NewScanMetrics(noop.NewMeterProvider())
	require.NoError(t, err)

	h := &harness{
		runID:    uuid.New(),
		fs:       filesystem.New(mem),
		reporter: reporter.NewMemory(),
		metrics:  metrics,
	}
	h.factory = func(r domain.FindingReporter) (domain.FileScanner, error) {
		return scanner.NewWindowScanner(
			h.runID, scanner.Config{ChunkSize: 64, OverlapSize: 32}, classifier,
			[]domain.PatternTemplate{ssn}, h.fs, r, nil,
			logger.Noop(), tracenoop.NewTracerProvider().Tracer("test"), h.metrics,
		)
	}
	return h
}

func (h *harness) service(cfg scanning.ServiceConfig) *scanning.Service {
	return scanning.NewService(h.runID, cfg, h.fs, h.reporter, h.factory,
		logger.Noop(), tracenoop.NewTracerProvider().Tracer("test"), h.metrics)
}

func findingLines(r *reporter.Memory) []string {
	var lines []string
	for _, f := range r.Findings() {
		lines = append(lines, f.String())
	}
	sort.Strings(lines)
	return lines
}

func corpus() map[string]string {
	files := map[string]string{
		"/scan/readme.txt":          "no numbers here",
		"/scan/hr/employees.csv":    "name,ssn\nalice,123-45-6789\nbob,987-65-4321\n",
		"/scan/hr/archive/old.txt":  strings.Repeat("padding ", 20) + "555-12-3456" + strings.Repeat(" tail", 30),
		"/scan/logs/app.log":        "id 12-345-6789 is not an ssn; 000-00-0000 is",
		"/scan/logs/empty.log":      "",
		"/scan/logs/nested/x/y.txt": "ssn:111-22-3333,ssn:444-55-6666\n",
	}
	for i := range 40 {
		files[fmt.Sprintf("/scan/bulk/f%02d.txt", i)] = fmt.Sprintf("row %d: 200-%02d-%04d\n", i, i, i)
	}
	return files
}

func TestService_Run(t *testing.T) {
	h := newHarness(t, corpus())

	summary, err := h.service(scanning.ServiceConfig{Workers: 4}).Run(context.Background(), "/scan")
	require.NoError(t, err)

	assert.Equal(t, h.runID, summary.RunID)
	assert.Equal(t, 4, summary.Workers)
	assert.False(t, summary.Truncated)
	assert.EqualValues(t, 46, summary.FilesVisited)
	assert.EqualValues(t, 46, summary.FilesProcessed)
	assert.Equal(t, summary.BytesVisited, summary.BytesRead)
	assert.EqualValues(t, 7, summary.DirectoriesVisited)
	assert.Zero(t, summary.Failures)
	assert.EqualValues(t, 46, summary.Findings)
	assert.Len(t, h.reporter.Findings(), 46)

	lines := findingLines(h.reporter)
	assert.Contains(t, lines, "/scan/hr/employees.csv: 123-45-6789")
	assert.Contains(t, lines, "/scan/hr/archive/old.txt: 555-12-3456")
	assert.Contains(t, lines, "/scan/logs/app.log: 000-00-0000")
	assert.Contains(t, lines, "/scan/logs/nested/x/y.txt: 444-55-6666")
	for _, f := range h.reporter.Findings() {
		assert.Equal(t, h.runID, f.RunID)
	}
}

func TestService_WorkerCountDoesNotChangeResults(t *testing.T) {
	files := corpus()

	single := newHarness(t, files)
	one, err := single.service(scanning.ServiceConfig{Workers: 1}).Run(context.Background(), "/scan")
	require.NoError(t, err)

	many := newHarness(t, files)
	n, err := many.service(scanning.ServiceConfig{Workers: 16}).Run(context.Background(), "/scan")
	require.NoError(t, err)

	assert.Equal(t, one.FilesProcessed, n.FilesProcessed)
	assert.Equal(t, one.BytesRead, n.BytesRead)
	assert.Equal(t, findingLines(single.reporter), findingLines(many.reporter))
}

func TestService_CapacityTruncatesRun(t *testing.T) {
	h := newHarness(t, corpus())

	summary, err := h.service(scanning.ServiceConfig{Workers: 3, Capacity: 5}).Run(context.Background(), "/scan")
	require.NoError(t, err)

	assert.True(t, summary.Truncated)
	assert.EqualValues(t, 5, summary.FilesProcessed)
}

func TestService_EmptyTree(t *testing.T) {
	h := newHarness(t, map[string]string{"/scan/a/": "", "/scan/b/c/": ""})

	summary, err := h.service(scanning.ServiceConfig{Workers: 2}).Run(context.Background(), "/scan")
	require.NoError(t, err)
	assert.Zero(t, summary.FilesProcessed)
	assert.Zero(t, summary.Findings)
	assert.EqualValues(t, 4, summary.DirectoriesVisited)
	assert.False(t, summary.Truncated)
}

func TestService_RootUnavailable(t *testing.T) {
	h := newHarness(t, map[string]string{"/other/a.txt": "x"})

	_, err := h.service(scanning.ServiceConfig{}).Run(context.Background(), "/scan")
	assert.ErrorIs(t, err, domain.ErrRootUnavailable)
	assert.Empty(t, h.reporter.Findings())
}

func TestService_ScannerFactoryFailure(t *testing.T) {
	h := newHarness(t, corpus())
	errGeometry := errors.New("bad geometry")
	h.factory = func(domain.FindingReporter) (domain.FileScanner, error) { return nil, errGeometry }

	_, err := h.service(scanning.ServiceConfig{Workers: 2}).Run(context.Background(), "/scan")
	assert.ErrorIs(t, err, errGeometry)
}

func TestSummary_Bandwidth(t *testing.T) {
	s := scanning.Summary{Workers: 4}
	assert.Zero(t, s.Bandwidth(), "zero duration yields zero bandwidth")

	s.BytesVisited = 2 << 30
	s.TotalDuration = 2_000_000_000
	assert.InDelta(t, 1.0, s.Bandwidth(), 1e-9)
	assert.InDelta(t, 0.25, s.BandwidthPerWorker(), 1e-9)
	assert.InDelta(t, 2.0, s.GB(), 1e-9)
}
