package ldif

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

const subsystem = "ldif"

// Folder turns physical lines into logical lines. It is used like
// bufio.Scanner:
//
//	f := NewFolder(ctx, r, opts)
//	for f.Scan() {
//		line := f.Line()
//	}
//	if err := f.Err(); err != nil { ... }
type Folder struct {
	ctx     context.Context
	scanner *bufio.Scanner
	opts    Options

	number int
	peeked *Line
	line   Line
	err    error
}

// NewFolder returns a Folder reading from r.
func NewFolder(ctx context.Context, r io.Reader, opts Options) *Folder {
	return &Folder{
		ctx:     ctx,
		scanner: opts.newScanner(r),
		opts:    opts,
	}
}

// Scan advances to the next logical line.
func (f *Folder) Scan() bool {
	if f.err != nil {
		return false
	}

	line, ok := f.next()
	if !ok {
		return false
	}

	switch line.Kind {
	case LineDN:
		f.stitch(&line)
	case LineAttribute:
		if f.opts.Fold == FoldAlways || line.Value == "" {
			f.fold(&line)
		}
	}

	f.line = line
	return true
}

// Line returns the most recent logical line.
func (f *Folder) Line() Line {
	return f.line
}

// Err returns the first read error. End of input is not an error.
func (f *Folder) Err() error {
	return f.err
}

// Lines returns the number of physical lines read so far.
func (f *Folder) Lines() int {
	return f.number
}

func (f *Folder) fold(line *Line) {
	parts := []string{line.Value}
	for {
		next, ok := f.next()
		if !ok {
			break
		}
		if next.Kind != LineContinuation {
			f.peeked = &next
			break
		}
		parts = append(parts, next.Value)
	}

	if len(parts) > 1 {
		line.Value = strings.Join(parts, "\n")
		line.Folded = len(parts) - 1
	}
}

// stitch appends the next physical line to a dn whose value lacks the
// configured base suffix. The consumed line is taken whatever its kind.
func (f *Folder) stitch(line *Line) {
	base := f.opts.StitchBaseDN
	if base == "" || strings.HasSuffix(line.Value, base) {
		return
	}

	next, ok := f.next()
	if !ok {
		tflog.SubsystemDebug(f.ctx, subsystem, "DN does not end with base DN and input ended", map[string]any{
			"line":    line.Number,
			"dn":      line.Value,
			"base_dn": base,
		})
		return
	}

	line.Value += strings.TrimSpace(next.Raw)
	line.Folded = 1

	tflog.SubsystemTrace(f.ctx, subsystem, "Stitched wrapped DN", map[string]any{
		"line": line.Number,
		"dn":   line.Value,
	})
}

func (f *Folder) next() (Line, bool) {
	if f.peeked != nil {
		line := *f.peeked
		f.peeked = nil
		return line, true
	}

	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				f.err = fmt.Errorf("%w: line %d exceeds %d bytes", ErrLineTooLong, f.number+1, f.opts.maxLineBytes())
			} else {
				f.err = fmt.Errorf("reading line %d: %w", f.number+1, err)
			}
		}
		return Line{}, false
	}

	f.number++
	line := Classify(f.scanner.Text())
	line.Number = f.number
	return line, true
}
