package ldif

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxLineBytes bounds a single physical line.
const DefaultMaxLineBytes = 16 * 1024 * 1024

// FoldPolicy decides when a continuation line is joined onto the attribute above it.
type FoldPolicy int

const (
	// FoldEmptyOnly joins continuations only when the attribute's first
	// line had an empty value. Other continuations are reported as orphans.
	FoldEmptyOnly FoldPolicy = iota
	// FoldAlways joins every continuation onto the preceding attribute.
	FoldAlways
)

func (p FoldPolicy) String() string {
	switch p {
	case FoldEmptyOnly:
		return "empty-only"
	case FoldAlways:
		return "always"
	default:
		return fmt.Sprintf("FoldPolicy(%d)", int(p))
	}
}

// Set implements pflag.Value.
func (p *FoldPolicy) Set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "empty-only", "empty":
		*p = FoldEmptyOnly
	case "always":
		*p = FoldAlways
	default:
		return fmt.Errorf("invalid fold policy %q (want empty-only or always)", s)
	}
	return nil
}

// Type implements pflag.Value.
func (p *FoldPolicy) Type() string {
	return "policy"
}

// Options controls how LDIF text is folded and turned into records.
type Options struct {
	Fold FoldPolicy

	// StitchBaseDN enables DN stitching: a dn value that does not end with
	// this suffix absorbs the next physical line. Empty disables stitching.
	StitchBaseDN string

	// SkipEmptyValues drops attribute values that are empty after folding.
	SkipEmptyValues bool

	// MaxLineBytes overrides DefaultMaxLineBytes when positive.
	MaxLineBytes int
}

func (o Options) maxLineBytes() int {
	if o.MaxLineBytes > 0 {
		return o.MaxLineBytes
	}
	return DefaultMaxLineBytes
}

func (o Options) newScanner(r io.Reader) *bufio.Scanner {
	limit := o.maxLineBytes()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(limit, 64*1024)), limit)
	return scanner
}

// ExtractOptions matches the attribute extractor: empty values are kept
// and only empty-valued attributes fold.
func ExtractOptions() Options {
	return Options{Fold: FoldEmptyOnly}
}

// CompareOptions matches the file comparators: every continuation folds
// and empty values are not recorded.
func CompareOptions() Options {
	return Options{Fold: FoldAlways, SkipEmptyValues: true}
}

// DirectoryOptions matches the directory comparison, including DN stitching against baseDN.
func DirectoryOptions(baseDN string) Options {
	return Options{Fold: FoldEmptyOnly, StitchBaseDN: baseDN}
}

// FilterOptions returns the options used by the attribute filter.
// Under FoldAlways every continuation of a removed attribute is dropped.
func FilterOptions() Options {
	return Options{Fold: FoldAlways}
}
