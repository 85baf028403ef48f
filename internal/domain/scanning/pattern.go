package scanning

import (
	"bytes"
	"errors"
	"fmt"
)

// Sentinel errors returned by NewPatternTemplate.
var (
	ErrPatternTooShort   = errors.New("pattern shape must have at least one symbol between its boundaries")
	ErrPatternNoAnchor   = errors.New("pattern shape must contain a digit or separator symbol")
	ErrPatternWildInside = errors.New("wildcard symbol is only allowed at the boundaries")
)

// PatternTemplate is a fixed-length shape over the classified alphabet. The
// first and last positions are boundary placeholders: they are matched
// against (AnySymbol accepts everything) but excluded from reported text.
type PatternTemplate struct {
	name     string
	shape    []byte
	interior []byte
}

// NewPatternTemplate validates shape against the classifier's alphabet.
// Interior symbols must be DigitSymbol, OtherSymbol or a separator. Boundary
// symbols may additionally be AnySymbol.
func NewPatternTemplate(name, shape string, c *Classifier) (PatternTemplate, error) {
	if len(shape) < 3 {
		return PatternTemplate{}, fmt.Errorf("pattern %q: %w", name, ErrPatternTooShort)
	}

	valid := func(s byte) bool { return s == DigitSymbol || s == OtherSymbol || c.IsSeparator(s) }

	raw := []byte(shape)
	last := len(raw) - 1
	anchored := false
	for i, s := range raw {
		boundary := i == 0 || i == last
		switch {
		case s == AnySymbol && boundary:
		case s == AnySymbol:
			return PatternTemplate{}, fmt.Errorf("pattern %q position %d: %w", name, i, ErrPatternWildInside)
		case !valid(s):
			return PatternTemplate{}, fmt.Errorf("pattern %q position %d: unknown symbol %q", name, i, s)
		case !boundary && s != OtherSymbol:
			anchored = true
		}
	}
	if !anchored {
		return PatternTemplate{}, fmt.Errorf("pattern %q: %w", name, ErrPatternNoAnchor)
	}

	return PatternTemplate{
		name:     name,
		shape:    raw,
		interior: raw[1:last],
	}, nil
}

// Name returns the template's configured name.
func (p PatternTemplate) Name() string { return p.name }

// Shape returns the full shape including boundary placeholders.
func (p PatternTemplate) Shape() string { return string(p.shape) }

// Len is the total template length, boundaries included.
func (p PatternTemplate) Len() int { return len(p.shape) }

// boundaryMatches reports whether symbol satisfies boundary placeholder want.
func boundaryMatches(want, symbol byte) bool {
	return want == AnySymbol || want == symbol
}

// ForEachMatch calls fn with the start offset of every position in classified
// where the whole template matches. The search advances one position past
// each hit, so overlapping occurrences at different starts are all reported.
func (p PatternTemplate) ForEachMatch(classified []byte, fn func(start int)) {
	n := len(p.interior)
	lead, trail := p.shape[0], p.shape[len(p.shape)-1]

	for pos := 0; pos+n <= len(classified); {
		idx := bytes.Index(classified[pos:], p.interior)
		if idx < 0 {
			return
		}
		i := pos + idx
		start, end := i-1, i+n+1
		if start >= 0 && end <= len(classified) &&
			boundaryMatches(lead, classified[start]) &&
			boundaryMatches(trail, classified[end-1]) {
			fn(start)
		}
		pos = i + 1
	}
}

// Built-in template names.
const (
	PatternSSNExpanded = "ssn-expanded"
	PatternSSNCompact  = "ssn-compact"
	PatternCCCompact   = "cc-compact"
	PatternCCExpanded  = "cc-expanded"
)

// BuiltinShapes lists the shipped templates. The compact shapes require
// "other" boundaries so they do not fire inside longer digit runs.
var BuiltinShapes = map[string]string{
	PatternSSNExpanded: "?000-00-0000?",
	PatternSSNCompact:  ".000000000.",
	PatternCCCompact:   ".0000000000000000.",
	PatternCCExpanded:  ".0000.0000.0000.0000.",
}
