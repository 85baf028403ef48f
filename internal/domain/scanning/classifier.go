// Package scanning holds the domain model for content scanning: the byte
// classifier, pattern templates, work items, findings and the ports the
// application layer drives.
package scanning

import "fmt"

// Symbols of the classified alphabet.
const (
	// DigitSymbol is what every ASCII digit classifies to.
	DigitSymbol byte = '0'
	// OtherSymbol is what every byte that is neither a digit nor a separator
	// classifies to.
	OtherSymbol byte = '.'
	// AnySymbol is only meaningful inside a pattern shape, where it matches a
	// byte of any class.
	AnySymbol byte = '?'

	// DefaultSeparator is the separator used by the built-in expanded shapes.
	DefaultSeparator byte = '-'
)

// Classifier normalizes raw bytes into a three-class alphabet (digit,
// separator, other) so pattern search can be a plain literal substring search.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	table      [256]byte
	separators []byte
}

// NewClassifier builds the lookup table. Each separator maps to itself; a
// separator may not collide with a digit or with a reserved symbol.
func NewClassifier(separators ...byte) (*Classifier, error) {
	c := &Classifier{separators: append([]byte(nil), separators...)}
	for i := range c.table {
		c.table[i] = OtherSymbol
	}
	for b := byte('0'); b <= '9'; b++ {
		c.table[b] = DigitSymbol
	}
	for _, s := range separators {
		switch {
		case s >= '0' && s <= '9':
			return nil, fmt.Errorf("separator %q collides with the digit class", s)
		case s == OtherSymbol, s == AnySymbol:
			return nil, fmt.Errorf("separator %q is a reserved symbol", s)
		}
		c.table[s] = s
	}
	return c, nil
}

// Symbol returns the class symbol of b.
func (c *Classifier) Symbol(b byte) byte { return c.table[b] }

// IsSeparator reports whether s is one of the configured separators.
func (c *Classifier) IsSeparator(s byte) bool {
	for _, sep := range c.separators {
		if sep == s {
			return true
		}
	}
	return false
}

// Separators returns a copy of the configured separators.
func (c *Classifier) Separators() []byte { return append([]byte(nil), c.separators...) }

// Classify writes the class symbol of every byte of src into dst and returns
// the classified prefix of dst. dst must be at least as long as src.
func (c *Classifier) Classify(dst, src []byte) []byte {
	dst = dst[:len(src)]
	for i, b := range src {
		dst[i] = c.table[b]
	}
	return dst
}
