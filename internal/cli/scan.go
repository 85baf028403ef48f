package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ahrav/drivescan/internal/app/scanning"
	"github.com/ahrav/drivescan/internal/config"
	"github.com/ahrav/drivescan/internal/config/fileloader"
	domain "github.com/ahrav/drivescan/internal/domain/scanning"
	"github.com/ahrav/drivescan/internal/infra/filesystem"
	"github.com/ahrav/drivescan/internal/infra/reporter"
	"github.com/ahrav/drivescan/internal/infra/scanner"
	"github.com/ahrav/drivescan/pkg/common"
	"github.com/ahrav/drivescan/pkg/common/logger"
	"github.com/ahrav/drivescan/pkg/common/otel"
)

const serviceName = "drivescan"

// NewScanCommand creates the scan subcommand. Its flags are bound to v.
func NewScanCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Scan a directory tree",
		Long: `Scan enumerates every regular file under root (default: the current
directory), up to the catalog capacity and skipping files above the size
limit, then scans them concurrently and prints each match.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				v.Set(config.KeyRoot, args[0])
			}
			return runScan(cmd, v)
		},
	}

	flags := cmd.Flags()
	flags.Int("workers", v.GetInt(config.KeyWorkers), "number of concurrent scan workers")
	flags.Int("capacity", v.GetInt(config.KeyCapacity), "maximum number of files to catalog")
	flags.Int64("max-file-size", v.GetInt64(config.KeyMaxFileSize), "skip files larger than this many bytes")
	flags.Int("chunk-size", v.GetInt(config.KeyChunkSize), "bytes read per chunk")
	flags.Int("overlap-size", v.GetInt(config.KeyOverlapSize), "bytes carried between chunks; bounds the longest pattern")
	flags.String("separators", v.GetString(config.KeySeparators), "bytes that match themselves in pattern shapes")
	flags.StringSlice("patterns", v.GetStringSlice(config.KeyPatterns), "built-in patterns to search for")
	flags.String("patterns-file", v.GetString(config.KeyPatternsFile), "YAML file of additional {name, shape} patterns")
	flags.StringP("output", "o", v.GetString(config.KeyOutput), "finding output format (text, json)")
	flags.Int("progress-interval", v.GetInt(config.KeyProgressInterval), "log progress every N files")
	flags.Float64("read-rate-limit", v.GetFloat64(config.KeyReadRateLimit), "aggregate read limit in bytes per second (0 = unlimited)")
	flags.String("otel-endpoint", v.GetString(config.KeyOTelEndpoint), "OTLP gRPC endpoint for traces and metrics")
	flags.Float64("otel-sampling-ratio", v.GetFloat64(config.KeyOTelSampling), "fraction of runs to trace")
	flags.String("debug-addr", v.GetString(config.KeyDebugAddr), "serve /metrics and /debug/statsviz on this address during the scan")

	for key, flag := range map[string]string{
		config.KeyWorkers:          "workers",
		config.KeyCapacity:         "capacity",
		config.KeyMaxFileSize:      "max-file-size",
		config.KeyChunkSize:        "chunk-size",
		config.KeyOverlapSize:      "overlap-size",
		config.KeySeparators:       "separators",
		config.KeyPatterns:         "patterns",
		config.KeyPatternsFile:     "patterns-file",
		config.KeyOutput:           "output",
		config.KeyProgressInterval: "progress-interval",
		config.KeyReadRateLimit:    "read-rate-limit",
		config.KeyOTelEndpoint:     "otel-endpoint",
		config.KeyOTelSampling:     "otel-sampling-ratio",
		config.KeyDebugAddr:        "debug-addr",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func runScan(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %q: %w", cfg.Root, err)
	}

	runID := uuid.New()
	hostname, _ := os.Hostname()
	log := logger.NewWithMetadata(
		cmd.ErrOrStderr(),
		logger.ParseLevel(cfg.LogLevel),
		serviceName,
		otel.GetTraceID,
		logger.Events{},
		map[string]string{"hostname": hostname, "run_id": runID.String()},
	)

	ctx := cmd.Context()
	tp, teardown, err := otel.InitTelemetry(log, otel.Config{
		ServiceName:      serviceName,
		ExporterEndpoint: cfg.OTel.Endpoint,
		Probability:      cfg.OTel.SamplingRatio,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"host.name":        hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer teardown(context.WithoutCancel(ctx))

	tracer := tp.Tracer(serviceName)
	metrics, err := scanning.NewScanMetrics(otel.GetMeterProvider())
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	if cfg.DebugAddr != "" {
		stop, err := startDebugServer(ctx, cfg.DebugAddr, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	classifier, err := domain.NewClassifier(cfg.SeparatorBytes()...)
	if err != nil {
		return fmt.Errorf("invalid separators: %w", err)
	}
	var loader config.Loader
	if cfg.PatternsFile != "" {
		loader = fileloader.NewFileLoader(cfg.PatternsFile)
	}
	patterns, err := config.ResolvePatterns(ctx, cfg.Patterns, loader, classifier)
	if err != nil {
		return err
	}
	shapes := make([]string, 0, len(patterns))
	for _, p := range patterns {
		shapes = append(shapes, p.Name()+"="+p.Shape())
	}
	log.Debug(ctx, "Patterns resolved", "separators", string(classifier.Separators()), "patterns", shapes)

	out := cmd.OutOrStdout()
	rep, err := reporter.New(reporter.Format(cfg.Output), out)
	if err != nil {
		return err
	}

	var limiter *common.RateLimiter
	if cfg.ReadRateLimit > 0 {
		limiter = common.NewRateLimiter(cfg.ReadRateLimit, cfg.ChunkSize)
	}

	fs := filesystem.NewOS()
	newScanner := func(r domain.FindingReporter) (domain.FileScanner, error) {
		return scanner.NewWindowScanner(
			runID,
			scanner.Config{ChunkSize: cfg.ChunkSize, OverlapSize: cfg.OverlapSize},
			classifier, patterns, fs, r, limiter, log, tracer, metrics,
		)
	}

	svc := scanning.NewService(runID, scanning.ServiceConfig{
		Workers:          cfg.Workers,
		Capacity:         cfg.Capacity,
		MaxFileSize:      cfg.MaxFileSize,
		ProgressInterval: cfg.ProgressInterval,
	}, fs, rep, newScanner, log, tracer, metrics)

	summary, err := svc.Run(ctx, root)
	if err != nil {
		return err
	}

	if reporter.Format(cfg.Output) == reporter.FormatJSON {
		return writeSummaryJSON(out, summary)
	}
	printSummary(out, summary)
	return nil
}

func startDebugServer(ctx context.Context, addr string, log *logger.Logger) (func(), error) {
	srv, err := common.NewDebugServer(addr, logger.NewStdLogger(log, logger.LevelError))
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "Debug server listening", "addr", srv.Addr())

	go func() {
		if err := srv.Serve(); err != nil {
			log.Error(ctx, "Debug server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, "Failed to shut down debug server", "error", err)
		}
	}, nil
}
