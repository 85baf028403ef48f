package scanning

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScannerMetrics defines metrics operations needed by the file scanner.
type ScannerMetrics interface {
	ObserveFileSize(ctx context.Context, bytes int64)
	IncFindings(ctx context.Context, pattern string)
}

// PoolMetrics defines metrics operations needed by the discovery walk and
// the worker pool.
type PoolMetrics interface {
	ScannerMetrics

	IncDirectoriesSkipped(ctx context.Context)
	IncFilesEnqueued(ctx context.Context)
	IncFilesProcessed(ctx context.Context)
	IncFileErrors(ctx context.Context, op string)
	SetActiveWorkers(ctx context.Context, delta int)
	TrackFile(ctx context.Context, f func() error) error
	ObservePhase(ctx context.Context, phase string, d time.Duration)
}

// scanMetrics implements PoolMetrics.
type scanMetrics struct {
	// Discovery metrics
	dirsSkipped   metric.Int64Counter
	filesEnqueued metric.Int64Counter

	// Worker metrics
	filesProcessed metric.Int64Counter
	fileErrors     metric.Int64Counter
	activeWorkers  metric.Int64UpDownCounter
	activeFiles    metric.Int64UpDownCounter
	fileScanTime   metric.Float64Histogram
	phaseTime      metric.Float64Histogram

	// Content metrics
	fileSize metric.Int64Histogram
	findings metric.Int64Counter
}

const namespace = "drivescan"

// NewScanMetrics creates the scan metric instruments on mp.
func NewScanMetrics(mp metric.MeterProvider) (*scanMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	m := new(scanMetrics)
	var err error

	if m.dirsSkipped, err = meter.Int64Counter(
		"directories_skipped_total",
		metric.WithDescription("Total number of directories that could not be enumerated"),
	); err != nil {
		return nil, err
	}

	if m.filesEnqueued, err = meter.Int64Counter(
		"files_enqueued_total",
		metric.WithDescription("Total number of files added to the work catalog"),
	); err != nil {
		return nil, err
	}

	if m.filesProcessed, err = meter.Int64Counter(
		"files_processed_total",
		metric.WithDescription("Total number of files claimed by workers"),
	); err != nil {
		return nil, err
	}

	if m.fileErrors, err = meter.Int64Counter(
		"file_errors_total",
		metric.WithDescription("Total number of files abandoned because of open or read errors"),
	); err != nil {
		return nil, err
	}

	if m.activeWorkers, err = meter.Int64UpDownCounter(
		"active_workers",
		metric.WithDescription("Number of running workers"),
	); err != nil {
		return nil, err
	}

	if m.activeFiles, err = meter.Int64UpDownCounter(
		"active_files",
		metric.WithDescription("Number of files currently being scanned"),
	); err != nil {
		return nil, err
	}

	if m.fileScanTime, err = meter.Float64Histogram(
		"file_scan_duration_seconds",
		metric.WithDescription("Time taken to scan each file"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.phaseTime, err = meter.Float64Histogram(
		"phase_duration_seconds",
		metric.WithDescription("Time taken by the discovery and scan phases"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.fileSize, err = meter.Int64Histogram(
		"file_size_bytes",
		metric.WithDescription("Bytes read per scanned file"),
		metric.WithUnit("bytes"),
	); err != nil {
		return nil, err
	}

	if m.findings, err = meter.Int64Counter(
		"findings_total",
		metric.WithDescription("Total number of pattern occurrences reported"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *scanMetrics) IncDirectoriesSkipped(ctx context.Context) { m.dirsSkipped.Add(ctx, 1) }

func (m *scanMetrics) IncFilesEnqueued(ctx context.Context) { m.filesEnqueued.Add(ctx, 1) }

func (m *scanMetrics) IncFilesProcessed(ctx context.Context) { m.filesProcessed.Add(ctx, 1) }

func (m *scanMetrics) IncFileErrors(ctx context.Context, op string) {
	m.fileErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *scanMetrics) SetActiveWorkers(ctx context.Context, delta int) {
	m.activeWorkers.Add(ctx, int64(delta))
}

func (m *scanMetrics) TrackFile(ctx context.Context, f func() error) error {
	m.activeFiles.Add(ctx, 1)
	defer m.activeFiles.Add(ctx, -1)

	start := time.Now()
	err := f()
	m.fileScanTime.Record(ctx, time.Since(start).Seconds())
	return err
}

func (m *scanMetrics) ObservePhase(ctx context.Context, phase string, d time.Duration) {
	m.phaseTime.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("phase", phase)))
}

func (m *scanMetrics) ObserveFileSize(ctx context.Context, bytes int64) {
	m.fileSize.Record(ctx, bytes)
}

func (m *scanMetrics) IncFindings(ctx context.Context, pattern string) {
	m.findings.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", pattern)))
}
