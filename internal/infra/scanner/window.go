// Package scanner provides the streaming content scanner that searches file
// bytes for pattern templates without loading whole files into memory.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/drivescan/internal/app/scanning"
	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/pkg/common"
	"github.com/ahrav/drivescan/pkg/common/logger"
)

var _ domain.FileScanner = (*WindowScanner)(nil)

// Default window geometry.
const (
	DefaultChunkSize   = 4096
	DefaultOverlapSize = 32
)

// preferredFiller occupies the carried region of a file's first window. The
// filler must classify as OtherSymbol so it can serve as a leading boundary but
// never as content; if the preferred byte is a separator another is chosen.
const preferredFiller = ' '

// ErrPatternExceedsOverlap is returned when a template could straddle more
// than one chunk boundary and therefore be missed.
var ErrPatternExceedsOverlap = errors.New("pattern longer than overlap size")

// Config holds the window geometry.
type Config struct {
	ChunkSize   int
	OverlapSize int
}

// WindowScanner reads a file in fixed-size chunks, carrying the trailing
// OverlapSize bytes of each window into the next so a pattern crossing a chunk
// boundary is still fully contained in some window. A WindowScanner owns its
// buffers and must only be used by one goroutine at a time; create one per
// worker.
type WindowScanner struct {
	runID      uuid.UUID
	chunkSize  int
	overlap    int
	classifier *domain.Classifier
	patterns   []domain.PatternTemplate

	fs       domain.FileSystem
	reporter domain.FindingReporter
	limiter  *common.RateLimiter // nil disables throttling

	filler     byte
	window     []byte
	classified []byte

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics scanning.ScannerMetrics
}

// NewWindowScanner validates the geometry against the templates and allocates
// the scanner's buffers.
func NewWindowScanner(
	runID uuid.UUID,
	cfg Config,
	classifier *domain.Classifier,
	patterns []domain.PatternTemplate,
	fs domain.FileSystem,
	reporter domain.FindingReporter,
	limiter *common.RateLimiter,
	logger *logger.Logger,
	tracer trace.Tracer,
	metrics scanning.ScannerMetrics,
) (*WindowScanner, error) {
	if cfg.ChunkSize <= 0 || cfg.OverlapSize <= 0 {
		return nil, fmt.Errorf("invalid window geometry: chunk=%d overlap=%d", cfg.ChunkSize, cfg.OverlapSize)
	}
	for _, p := range patterns {
		if p.Len() > cfg.OverlapSize {
			return nil, fmt.Errorf("pattern %q (%d bytes, overlap %d): %w",
				p.Name(), p.Len(), cfg.OverlapSize, ErrPatternExceedsOverlap)
		}
	}

	filler, ok := fillerFor(classifier)
	if !ok {
		return nil, errors.New("no byte classifies as other; cannot fill the first window")
	}

	size := cfg.OverlapSize + cfg.ChunkSize
	return &WindowScanner{
		runID:      runID,
		chunkSize:  cfg.ChunkSize,
		overlap:    cfg.OverlapSize,
		classifier: classifier,
		patterns:   patterns,
		fs:         fs,
		reporter:   reporter,
		limiter:    limiter,
		filler:     filler,
		window:     make([]byte, size),
		classified: make([]byte, size),
		logger:     logger.With("component", "window_scanner"),
		tracer:     tracer,
		metrics:    metrics,
	}, nil
}

// Scan streams item through the window and reports every match. It returns
// the total number of bytes read. An open or read failure abandons the file
// and is returned as a *domain.FileError; findings already reported stand.
func (s *WindowScanner) Scan(ctx context.Context, item domain.WorkItem) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "window_scanner.scan",
		trace.WithAttributes(
			attribute.String("path", item.Path),
			attribute.Int64("size", item.Size),
		))
	defer span.End()

	f, err := s.fs.Open(ctx, item.Path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open file")
		return 0, &domain.FileError{Path: item.Path, Op: domain.FileOpOpen, Err: err}
	}
	defer f.Close()

	for i := 0; i < s.overlap; i++ {
		s.window[i] = s.filler
	}

	var (
		total int64
		valid int
		first = true
	)
	chunk := s.window[s.overlap:]
	for {
		if !first {
			copy(s.window[:s.overlap], s.window[valid-s.overlap:valid])
		}

		n, rerr := io.ReadFull(f, chunk)
		if n > 0 && s.limiter != nil {
			// Charge the bytes actually read.
			if err := s.limiter.WaitN(ctx, n); err != nil {
				span.RecordError(err)
				return total, &domain.FileError{Path: item.Path, Op: domain.FileOpRead, Err: err}
			}
		}
		if n > 0 {
			valid = s.overlap + n
			if err := s.scanWindow(ctx, item.Path, total-int64(s.overlap), valid, first); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to report finding")
				return total + int64(n), err
			}
			total += int64(n)
			first = false
		}

		if rerr == io.EOF || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, "failed to read file")
			return total, &domain.FileError{Path: item.Path, Op: domain.FileOpRead, Err: rerr}
		}
	}

	s.metrics.ObserveFileSize(ctx, total)
	span.SetAttributes(attribute.Int64("bytes_read", total))
	span.SetStatus(codes.Ok, "file scanned")
	return total, nil
}

func fillerFor(c *domain.Classifier) (byte, bool) {
	if c.Symbol(preferredFiller) == domain.OtherSymbol {
		return preferredFiller, true
	}
	for b := 0; b < 256; b++ {
		if c.Symbol(byte(b)) == domain.OtherSymbol {
			return byte(b), true
		}
	}
	return 0, false
}

// scanWindow classifies the first valid bytes of the window and reports each
// template hit. base is the file offset of window position zero. In every
// window but the first, hits that lie entirely inside the carried overlap
// were already reported from the previous window and are skipped.
func (s *WindowScanner) scanWindow(ctx context.Context, path string, base int64, valid int, first bool) error {
	raw := s.window[:valid]
	classified := s.classifier.Classify(s.classified, raw)

	var reportErr error
	for _, p := range s.patterns {
		length := p.Len()
		p.ForEachMatch(classified, func(start int) {
			if reportErr != nil {
				return
			}
			if !first && start+length <= s.overlap {
				return
			}

			text := strings.ToValidUTF8(string(raw[start+1:start+length-1]), "\uFFFD")
			finding := domain.Finding{
				RunID:   s.runID,
				Path:    path,
				Pattern: p.Name(),
				Offset:  base + int64(start) + 1,
				Text:    text,
			}
			if err := s.reporter.Report(ctx, finding); err != nil {
				reportErr = fmt.Errorf("report finding in %s: %w", path, err)
				return
			}
			s.metrics.IncFindings(ctx, p.Name())
			s.logger.Debug(ctx, "Pattern matched",
				"path", path,
				"pattern", p.Name(),
				"offset", finding.Offset,
			)
		})
	}
	return reportErr
}
