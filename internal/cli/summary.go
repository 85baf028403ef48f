package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ahrav/drivescan/internal/app/scanning"
)

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, s scanning.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Fprintf(w, "\nScan summary (run %s)\n", s.RunID)
	fmt.Fprintf(w, "Threads:                %d\n", s.Workers)
	fmt.Fprintf(w, "Directories scanned:    %d\n", s.DirectoriesVisited)
	if s.DirectoriesSkipped > 0 {
		fmt.Fprintf(w, "Directories skipped:    ")
		yellow.Fprintf(w, "%d\n", s.DirectoriesSkipped)
	}
	fmt.Fprintf(w, "Files scanned:          %d\n", s.FilesProcessed)
	fmt.Fprintf(w, "Bytes scanned:          %.3f GB\n", s.GB())
	fmt.Fprintf(w, "Time for phase 1:       %.3f sec\n", s.DiscoveryDuration.Seconds())
	fmt.Fprintf(w, "Time for phase 2:       %.3f sec\n", s.ScanDuration.Seconds())
	fmt.Fprintf(w, "Total scanning time:    %.3f sec\n", s.TotalDuration.Seconds())
	fmt.Fprintf(w, "Bandwidth (per thread): %.3f GB/sec\n", s.BandwidthPerWorker())
	fmt.Fprintf(w, "Bandwidth (aggregate):  %.3f GB/sec\n", s.Bandwidth())

	fmt.Fprintf(w, "Findings:               ")
	if s.Findings > 0 {
		red.Fprintf(w, "%d\n", s.Findings)
	} else {
		green.Fprintf(w, "%d\n", s.Findings)
	}
	if s.Failures > 0 {
		fmt.Fprintf(w, "Unreadable files:       ")
		yellow.Fprintf(w, "%d\n", s.Failures)
	}
	if s.Truncated {
		yellow.Fprintf(w, "Catalog capacity reached; files beyond the first %d were not scanned.\n", s.FilesVisited)
	}
}

type summaryJSON struct {
	RunID              string  `json:"run_id"`
	Root               string  `json:"root"`
	Workers            int     `json:"workers"`
	DirectoriesVisited int64   `json:"directories_visited"`
	DirectoriesSkipped int64   `json:"directories_skipped"`
	FilesProcessed     int64   `json:"files_processed"`
	BytesRead          int64   `json:"bytes_read"`
	Findings           int64   `json:"findings"`
	Failures           int64   `json:"failures"`
	Truncated          bool    `json:"truncated"`
	DiscoverySeconds   float64 `json:"discovery_seconds"`
	ScanSeconds        float64 `json:"scan_seconds"`
	TotalSeconds       float64 `json:"total_seconds"`
	GBPerSecond        float64 `json:"gb_per_second"`
}

// writeSummaryJSON writes the report as a single {"summary": {...}} line so it
// can follow JSON-lines findings on the same stream.
func writeSummaryJSON(w io.Writer, s scanning.Summary) error {
	return json.NewEncoder(w).Encode(map[string]summaryJSON{"summary": {
		RunID:              s.RunID.String(),
		Root:               s.Root,
		Workers:            s.Workers,
		DirectoriesVisited: s.DirectoriesVisited,
		DirectoriesSkipped: s.DirectoriesSkipped,
		FilesProcessed:     s.FilesProcessed,
		BytesRead:          s.BytesRead,
		Findings:           s.Findings,
		Failures:           s.Failures,
		Truncated:          s.Truncated,
		DiscoverySeconds:   s.DiscoveryDuration.Seconds(),
		ScanSeconds:        s.ScanDuration.Seconds(),
		TotalSeconds:       s.TotalDuration.Seconds(),
		GBPerSecond:        s.Bandwidth(),
	}})
}
