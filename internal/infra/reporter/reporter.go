// Package reporter provides FindingReporter implementations that write
// findings as they are produced.
package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	domain "github.com/ahrav/drivescan/internal/domain/scanning"
)

var (
	_ domain.FindingReporter = (*Text)(nil)
	_ domain.FindingReporter = (*JSONLines)(nil)
	_ domain.FindingReporter = (*Memory)(nil)
)

// Format selects how findings are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New returns a reporter writing findings to w in the given format.
func New(format Format, w io.Writer) (domain.FindingReporter, error) {
	switch format {
	case FormatText, "":
		return NewText(w), nil
	case FormatJSON:
		return NewJSONLines(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

// Text writes one "<path>: <text>" line per finding. Writes are serialized so
// lines from concurrent workers never interleave.
type Text struct {
	mu   sync.Mutex
	w    io.Writer
	path *color.Color
}

// NewText creates a Text reporter. The path prefix is colored when w is a
// terminal that supports it.
func NewText(w io.Writer) *Text {
	return &Text{w: w, path: color.New(color.FgCyan)}
}

// Report writes f as a single line.
func (r *Text) Report(_ context.Context, f domain.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.w, "%s: %s\n", r.path.Sprint(f.Path), f.Text)
	return err
}

// JSONLines writes each finding as one JSON object per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a JSONLines reporter.
func NewJSONLines(w io.Writer) *JSONLines {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLines{enc: enc}
}

// Report encodes f followed by a newline.
func (r *JSONLines) Report(_ context.Context, f domain.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(f)
}

// Memory collects findings in memory. It is used by tests and by callers that
// post-process findings after a run.
type Memory struct {
	mu       sync.Mutex
	findings []domain.Finding
}

// NewMemory creates an empty Memory reporter.
func NewMemory() *Memory { return new(Memory) }

// Report appends f.
func (r *Memory) Report(_ context.Context, f domain.Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findings = append(r.findings, f)
	return nil
}

// Findings returns a copy of everything reported so far.
func (r *Memory) Findings() []domain.Finding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Finding(nil), r.findings...)
}
