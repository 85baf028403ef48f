package scanning

import (
	"fmt"

	"github.com/google/uuid"
)

// Finding is a single pattern occurrence in a file. Findings are emitted as
// soon as they are found and are never stored by the scanner.
type Finding struct {
	// RunID correlates every finding produced by one scan invocation.
	RunID uuid.UUID `json:"run_id"`
	// Path is the file the occurrence was found in.
	Path string `json:"path"`
	// Pattern is the name of the template that matched.
	Pattern string `json:"pattern"`
	// Offset is the absolute byte offset of Text within the file.
	Offset int64 `json:"offset"`
	// Text is the original, unclassified matched text without the boundary
	// placeholders.
	Text string `json:"text"`
}

// String renders the finding the way it is printed in text output.
func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Text)
}
