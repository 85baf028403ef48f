package scanning

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

// DefaultProgressInterval is how many claimed files pass between progress logs.
const DefaultProgressInterval = 100

// WorkerPool drains a Catalog with a fixed set of workers, each owning one
// FileScanner. The catalog must be fully populated before Run is called:
// a worker exits as soon as it finds the catalog empty.
type WorkerPool struct {
	catalog          *Catalog
	scanners         []domain.FileScanner
	progressInterval int

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics PoolMetrics
}

// NewWorkerPool creates a pool with one worker per scanner.
func NewWorkerPool(
	catalog *Catalog,
	scanners []domain.FileScanner,
	progressInterval int,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics PoolMetrics,
) *WorkerPool {
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}
	return &WorkerPool{
		catalog:          catalog,
		scanners:         scanners,
		progressInterval: progressInterval,
		logger:           logger.With("component", "worker_pool", "num_workers", len(scanners)),
		tracer:           tracer,
		metrics:          metrics,
	}
}

// Run starts every worker and blocks until all of them have exited.
func (p *WorkerPool) Run(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "worker_pool.run",
		trace.WithAttributes(
			attribute.Int("num_workers", len(p.scanners)),
			attribute.Int("queued", p.catalog.Len()),
		))
	defer span.End()

	p.logger.Info(ctx, "Starting workers", "queued", p.catalog.Len())

	var wg sync.WaitGroup
	wg.Add(len(p.scanners))
	for i, scanner := range p.scanners {
		go func(workerID int, scanner domain.FileScanner) {
			defer wg.Done()
			p.metrics.SetActiveWorkers(ctx, 1)
			defer p.metrics.SetActiveWorkers(ctx, -1)
			p.workerLoop(ctx, workerID, scanner)
		}(i, scanner)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("processed", p.catalog.Processed()))
	span.SetStatus(codes.Ok, "workers joined")
	p.logger.Info(ctx, "All workers finished", "processed", p.catalog.Processed())
}

func (p *WorkerPool) workerLoop(ctx context.Context, workerID int, scanner domain.FileScanner) {
	workerLogger := logger.NewLoggerContext(p.logger.With("worker_id", workerID))
	workerLogger.Debug(ctx, "Worker starting up")

	for {
		item, processed, ok := p.catalog.Claim()
		if !ok {
			workerLogger.Debug(ctx, "Worker stopped - catalog empty")
			return
		}
		p.metrics.IncFilesProcessed(ctx)

		if processed%p.progressInterval == 0 {
			total := p.catalog.Enqueued()
			workerLogger.Info(ctx, "Scan progress",
				"processed", processed,
				"total", total,
				"percent", float64(processed)*100/float64(total),
			)
		}

		p.scanFile(ctx, scanner, item, workerLogger)
	}
}

// scanFile scans one item. Failures, including a panic inside the scanner,
// are logged and counted against the file only.
func (p *WorkerPool) scanFile(
	ctx context.Context,
	scanner domain.FileScanner,
	item domain.WorkItem,
	workerLogger *logger.LoggerContext,
) {
	var bytesRead int64
	err := p.metrics.TrackFile(ctx, func() (scanErr error) {
		defer func() {
			if r := recover(); r != nil {
				scanErr = fmt.Errorf("panic scanning %s: %v", item.Path, r)
			}
		}()
		bytesRead, scanErr = scanner.Scan(ctx, item)
		return scanErr
	})
	p.catalog.recordScan(bytesRead, err != nil)
	if err == nil {
		return
	}

	op := "scan"
	var fileErr *domain.FileError
	if errors.As(err, &fileErr) {
		op = string(fileErr.Op)
	}
	p.metrics.IncFileErrors(ctx, op)
	workerLogger.Warn(ctx, "Failed to scan file",
		"path", item.Path,
		"op", op,
		"bytes_read", bytesRead,
		"error", err,
	)
}
