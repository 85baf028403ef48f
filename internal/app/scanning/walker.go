package scanning

import (
	"context"
	"fmt"

	"github.com/eapache/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

// DefaultMaxFileSize is the largest file, in bytes, that discovery enqueues.
const DefaultMaxFileSize int64 = 1 << 30

// WalkResult describes how discovery ended.
type WalkResult struct {
	// Truncated is set when the catalog filled up while eligible files or
	// unvisited directories remained under the root.
	Truncated bool
}

// Walker performs the breadth-first discovery walk that fills a Catalog.
type Walker struct {
	fs          domain.FileSystem
	catalog     *Catalog
	maxFileSize int64

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics PoolMetrics
}

// NewWalker creates a Walker. A non-positive maxFileSize selects
// DefaultMaxFileSize.
func NewWalker(
	fs domain.FileSystem,
	catalog *Catalog,
	maxFileSize int64,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics PoolMetrics,
) *Walker {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Walker{
		fs:          fs,
		catalog:     catalog,
		maxFileSize: maxFileSize,
		logger:      logger.With("component", "walker"),
		tracer:      tracer,
		metrics:     metrics,
	}
}

// Discover walks root level by level. Each directory's eligible files are
// enqueued in listing order before its subdirectories are queued for later.
// Unreadable directories other than the root are skipped. The walk stops the
// moment the catalog reaches capacity, even partway through a directory.
func (w *Walker) Discover(ctx context.Context, root string) (WalkResult, error) {
	ctx, span := w.tracer.Start(ctx, "walker.discover",
		trace.WithAttributes(
			attribute.String("root", root),
			attribute.Int("capacity", w.catalog.Capacity()),
			attribute.Int64("max_file_size", w.maxFileSize),
		))
	defer span.End()

	logCtx := logger.NewLoggerContext(w.logger.With("root", root))

	pending := queue.New()
	pending.Add(root)
	w.catalog.recordDirectory()

	var result WalkResult
	for pending.Length() > 0 {
		dir := pending.Remove().(string)

		listing := w.fs.List(ctx, dir)
		if listing.Skipped() {
			if dir == root {
				span.RecordError(listing.SkipReason)
				span.SetStatus(codes.Error, "root unavailable")
				return result, fmt.Errorf("%w: %w", domain.ErrRootUnavailable, listing.SkipReason)
			}
			w.catalog.recordSkippedDirectory()
			w.metrics.IncDirectoriesSkipped(ctx)
			logCtx.Debug(ctx, "Skipping directory", "dir", dir, "reason", listing.SkipReason)
			continue
		}

		for i, item := range listing.Files {
			if item.Size > w.maxFileSize {
				continue
			}
			w.catalog.recordFile(item.Size)
			full := w.catalog.Add(item)
			w.metrics.IncFilesEnqueued(ctx)
			if !full {
				continue
			}

			// A catalog filled by the last file of the walk loses nothing.
			if !w.hasEligible(listing.Files[i+1:]) && len(listing.Subdirs) == 0 && pending.Length() == 0 {
				break
			}
			result.Truncated = true
			logCtx.Add("dir", dir)
			logCtx.Warn(ctx, "Work catalog full, stopping discovery", "capacity", w.catalog.Capacity())
			span.AddEvent("capacity_reached")
			span.SetStatus(codes.Ok, "discovery truncated")
			return result, nil
		}

		for _, sub := range listing.Subdirs {
			pending.Add(sub)
			w.catalog.recordDirectory()
		}
	}

	span.SetAttributes(attribute.Int("files_enqueued", w.catalog.Enqueued()))
	span.SetStatus(codes.Ok, "discovery complete")
	return result, nil
}

func (w *Walker) hasEligible(files []domain.WorkItem) bool {
	for _, f := range files {
		if f.Size <= w.maxFileSize {
			return true
		}
	}
	return false
}
