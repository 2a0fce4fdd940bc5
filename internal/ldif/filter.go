package ldif

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// FilterStats counts the decisions a Filter made.
type FilterStats struct {
	Lines   int
	Kept    int
	Dropped int
}

// Filter copies LDIF text line by line, dropping attributes by name.
// Everything else, including malformed lines and lines outside records,
// is written unchanged. A "\r\n" terminator is preserved; any other line
// is terminated with "\n".
type Filter struct {
	remove map[string]struct{}
	opts   Options
}

// NewFilter returns a Filter dropping the named attributes. Names are
// matched case-insensitively. With FoldAlways the continuation lines of a
// dropped attribute are dropped too; with FoldEmptyOnly they are dropped
// only when the attribute's first line had an empty value.
func NewFilter(remove []string, opts Options) *Filter {
	set := make(map[string]struct{}, len(remove))
	for _, name := range remove {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return &Filter{remove: set, opts: opts}
}

// ParseRemovalList splits a comma separated attribute list.
func ParseRemovalList(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Removes reports whether the filter drops attribute name.
func (f *Filter) Removes(name string) bool {
	_, ok := f.remove[strings.ToLower(name)]
	return ok
}

// Copy streams src to dst. Each physical line is kept or dropped on its
// own; the only state carried between lines is whether the continuation
// lines that follow belong to a dropped attribute.
func (f *Filter) Copy(ctx context.Context, dst io.Writer, src io.Reader) (FilterStats, error) {
	var stats FilterStats

	scanner := f.opts.newScanner(src)
	scanner.Split(scanRawLines)
	w := bufio.NewWriter(dst)

	dropping := false
	for scanner.Scan() {
		stats.Lines++
		raw := scanner.Text()
		line := Classify(raw)

		keep := true
		switch line.Kind {
		case LineContinuation:
			keep = !dropping
		case LineAttribute:
			if f.Removes(line.Name) {
				keep = false
				dropping = f.opts.Fold == FoldAlways || line.Value == ""
			} else {
				dropping = false
			}
		default:
			dropping = false
		}

		if !keep {
			stats.Dropped++
			continue
		}

		stats.Kept++
		if _, err := w.WriteString(raw); err != nil {
			return stats, fmt.Errorf("writing line %d: %w", stats.Lines, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return stats, fmt.Errorf("writing line %d: %w", stats.Lines, err)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return stats, fmt.Errorf("%w: line %d exceeds %d bytes", ErrLineTooLong, stats.Lines+1, f.opts.maxLineBytes())
		}
		return stats, fmt.Errorf("reading line %d: %w", stats.Lines+1, err)
	}

	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("flushing output: %w", err)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Filtered LDIF input", map[string]any{
		"lines":   stats.Lines,
		"kept":    stats.Kept,
		"dropped": stats.Dropped,
	})
	return stats, nil
}

// scanRawLines is bufio.ScanLines without the carriage return stripping,
// so a CRLF line keeps its "\r" and round-trips byte for byte.
func scanRawLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
