// Package scanning runs a drive scan: a capped breadth-first discovery walk
// that fills a work catalog, followed by a fixed pool of workers that stream
// every catalogued file through a content scanner.
package scanning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 10

// Phase names used for timing metrics.
const (
	PhaseDiscovery = "discovery"
	PhaseScan      = "scan"
)

// ScannerFactory builds the FileScanner owned by one worker. Every scanner a
// run creates reports through the same reporter.
type ScannerFactory func(reporter domain.FindingReporter) (domain.FileScanner, error)

// ServiceConfig sizes a run.
type ServiceConfig struct {
	Workers          int
	Capacity         int
	MaxFileSize      int64
	ProgressInterval int
}

// Summary is the outcome of a completed run.
type Summary struct {
	RunID   uuid.UUID
	Root    string
	Workers int

	Counters
	Truncated bool

	DiscoveryDuration time.Duration
	ScanDuration      time.Duration
	TotalDuration     time.Duration
}

const bytesPerGB = 1 << 30

// GB returns the discovered byte total in GiB.
func (s Summary) GB() float64 { return float64(s.BytesVisited) / bytesPerGB }

// Bandwidth returns GiB per second over the whole run.
func (s Summary) Bandwidth() float64 {
	secs := s.TotalDuration.Seconds()
	if secs <= 0 {
		return 0
	}
	return s.GB() / secs
}

// BandwidthPerWorker returns Bandwidth divided across the workers.
func (s Summary) BandwidthPerWorker() float64 {
	if s.Workers == 0 {
		return 0
	}
	return s.Bandwidth() / float64(s.Workers)
}

// Service orchestrates the two phases of a scan.
type Service struct {
	runID      uuid.UUID
	cfg        ServiceConfig
	fs         domain.FileSystem
	reporter   domain.FindingReporter
	newScanner ScannerFactory

	baseLogger *logger.Logger
	logger     *logger.Logger
	tracer     trace.Tracer
	metrics    PoolMetrics
}

// NewService creates a Service. Zero-valued config fields take their defaults.
func NewService(
	runID uuid.UUID,
	cfg ServiceConfig,
	fs domain.FileSystem,
	reporter domain.FindingReporter,
	newScanner ScannerFactory,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics PoolMetrics,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Service{
		runID:      runID,
		cfg:        cfg,
		fs:         fs,
		reporter:   reporter,
		newScanner: newScanner,
		baseLogger: logger.With("run_id", runID.String()),
		logger:     logger.With("component", "scan_service", "run_id", runID.String()),
		tracer:     tracer,
		metrics:    metrics,
	}
}

// Run scans everything under root. The walk completes before any worker
// starts, and Run returns only after every worker has exited. Per-directory
// and per-file failures are counted in the summary; only an unreadable root
// or a scanner construction failure fails the run.
func (s *Service) Run(ctx context.Context, root string) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "scan_service.run",
		trace.WithAttributes(
			attribute.String("run_id", s.runID.String()),
			attribute.String("root", root),
			attribute.Int("num_workers", s.cfg.Workers),
		))
	defer span.End()

	summary := Summary{RunID: s.runID, Root: root, Workers: s.cfg.Workers}
	catalog := NewCatalog(s.cfg.Capacity)
	reporter := &countingReporter{next: s.reporter, catalog: catalog}

	scanners := make([]domain.FileScanner, 0, s.cfg.Workers)
	for range s.cfg.Workers {
		sc, err := s.newScanner(reporter)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create scanner")
			return summary, fmt.Errorf("failed to create scanner: %w", err)
		}
		scanners = append(scanners, sc)
	}

	s.logger.Info(ctx, "Starting scan", "root", root, "workers", s.cfg.Workers, "capacity", catalog.Capacity())
	start := time.Now()

	walker := NewWalker(s.fs, catalog, s.cfg.MaxFileSize, s.baseLogger, s.tracer, s.metrics)
	result, err := walker.Discover(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "discovery failed")
		return summary, fmt.Errorf("failed to discover files: %w", err)
	}
	discovered := time.Now()
	summary.DiscoveryDuration = discovered.Sub(start)
	summary.Truncated = result.Truncated
	s.metrics.ObservePhase(ctx, PhaseDiscovery, summary.DiscoveryDuration)
	span.AddEvent("discovery_complete", trace.WithAttributes(
		attribute.Int("files_enqueued", catalog.Enqueued()),
		attribute.Bool("truncated", result.Truncated),
	))

	NewWorkerPool(catalog, scanners, s.cfg.ProgressInterval, s.baseLogger, s.tracer, s.metrics).Run(ctx)

	summary.ScanDuration = time.Since(discovered)
	summary.TotalDuration = time.Since(start)
	summary.Counters = catalog.Counters()
	s.metrics.ObservePhase(ctx, PhaseScan, summary.ScanDuration)

	s.logger.Info(ctx, "Scan complete",
		"directories", summary.DirectoriesVisited,
		"files", summary.FilesProcessed,
		"findings", summary.Findings,
		"failures", summary.Failures,
		"truncated", summary.Truncated,
		"duration", summary.TotalDuration.String(),
	)
	span.SetAttributes(
		attribute.Int64("files_processed", summary.FilesProcessed),
		attribute.Int64("findings", summary.Findings),
		attribute.Int64("failures", summary.Failures),
	)
	span.SetStatus(codes.Ok, "scan complete")
	return summary, nil
}

// countingReporter tallies findings on the catalog before forwarding them.
type countingReporter struct {
	next    domain.FindingReporter
	catalog *Catalog
}

func (r *countingReporter) Report(ctx context.Context, f domain.Finding) error {
	if err := r.next.Report(ctx, f); err != nil {
		return err
	}
	r.catalog.recordFinding()
	return nil
}
