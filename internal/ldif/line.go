package ldif

import (
	"fmt"
	"strings"
)

// LineKind classifies a physical or logical LDIF line.
type LineKind int

const (
	LineMalformed LineKind = iota
	LineBlank
	LineComment
	LineDN
	LineAttribute
	LineContinuation
)

func (k LineKind) String() string {
	switch k {
	case LineMalformed:
		return "malformed"
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineDN:
		return "dn"
	case LineAttribute:
		return "attribute"
	case LineContinuation:
		return "continuation"
	default:
		return fmt.Sprintf("LineKind(%d)", int(k))
	}
}

// Line is a classified line. For logical lines produced by a Folder, Value
// holds the joined value and Raw the first physical line.
type Line struct {
	Kind   LineKind
	Number int    // 1-based physical line number
	Name   string // lowercased attribute name, "dn" for dn lines
	Value  string
	Raw    string // physical text without line terminator
	Folded int    // continuation lines joined into Value
}

// Classify tags a single physical line. A trailing carriage return is ignored.
func Classify(raw string) Line {
	raw = strings.TrimSuffix(raw, "\r")
	line := Line{Raw: raw}

	switch {
	case raw == "":
		line.Kind = LineBlank
		return line
	case raw[0] == ' ':
		line.Kind = LineContinuation
		line.Value = strings.TrimSpace(raw)
		return line
	case raw[0] == '#':
		line.Kind = LineComment
		return line
	}

	name, value, ok := strings.Cut(raw, ":")
	name = strings.ToLower(strings.TrimSpace(name))
	if !ok || name == "" {
		line.Kind = LineMalformed
		return line
	}

	line.Name = name
	line.Value = strings.TrimSpace(value)
	if name == "dn" {
		line.Kind = LineDN
	} else {
		line.Kind = LineAttribute
	}
	return line
}
