package ldif

import (
	"context"
	"io"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

type parserState int

const (
	stateOutsideRecord parserState = iota
	stateInRecord
)

func (s parserState) String() string {
	switch s {
	case stateOutsideRecord:
		return "outside-record"
	case stateInRecord:
		return "in-record"
	}
	return "unknown"
}

// Stats counts what a Parser saw.
type Stats struct {
	Lines     int // physical lines
	Records   int // records emitted
	Discarded int // dn blocks without attributes
	Malformed int
	Orphans   int // continuation lines that were not folded
	Comments  int
}

// Parser groups logical lines into records. Records are sealed on a blank
// line, a new dn line or end of input; a record without attributes is
// dropped. Attribute lines outside a record are ignored.
type Parser struct {
	ctx     context.Context
	folder  *Folder
	opts    Options
	state   parserState
	current *Record
	stats   Stats
}

// NewParser returns a Parser reading LDIF text from r.
func NewParser(ctx context.Context, r io.Reader, opts Options) *Parser {
	return &Parser{
		ctx:    ctx,
		folder: NewFolder(ctx, r, opts),
		opts:   opts,
	}
}

// Next returns the next sealed record, or io.EOF once the input is
// exhausted. On a read error the partially built record is discarded.
func (p *Parser) Next() (*Record, error) {
	for p.folder.Scan() {
		line := p.folder.Line()

		switch line.Kind {
		case LineDN:
			sealed := p.seal()
			p.current = newRecord(line.Value)
			p.state = stateInRecord
			if sealed != nil {
				return sealed, nil
			}

		case LineBlank:
			sealed := p.seal()
			p.state = stateOutsideRecord
			if sealed != nil {
				return sealed, nil
			}

		case LineAttribute:
			if p.state != stateInRecord {
				continue
			}
			if line.Value == "" && p.opts.SkipEmptyValues {
				continue
			}
			p.current.add(line.Name, line.Value)

		case LineContinuation:
			p.stats.Orphans++
			tflog.SubsystemTrace(p.ctx, subsystem, "Ignoring unfolded continuation line", map[string]any{
				"line":  line.Number,
				"state": p.state.String(),
			})

		case LineComment:
			p.stats.Comments++

		case LineMalformed:
			p.stats.Malformed++
			tflog.SubsystemDebug(p.ctx, subsystem, "Ignoring malformed line", map[string]any{
				"line": line.Number,
			})
		}
	}

	p.stats.Lines = p.folder.Lines()

	if err := p.folder.Err(); err != nil {
		p.current = nil
		p.state = stateOutsideRecord
		return nil, err
	}

	p.state = stateOutsideRecord
	if sealed := p.seal(); sealed != nil {
		return sealed, nil
	}
	return nil, io.EOF
}

// Stats returns counters for the input consumed so far.
func (p *Parser) Stats() Stats {
	s := p.stats
	s.Lines = p.folder.Lines()
	return s
}

func (p *Parser) seal() *Record {
	r := p.current
	p.current = nil
	if r == nil {
		return nil
	}
	if r.Len() == 0 {
		p.stats.Discarded++
		tflog.SubsystemTrace(p.ctx, subsystem, "Discarding record without attributes", map[string]any{
			"dn": r.DN(),
		})
		return nil
	}
	p.stats.Records++
	return r
}

// ParseCollection reads every record from r into a Collection keyed by key.
// Duplicate DNs keep the last record.
func ParseCollection(ctx context.Context, r io.Reader, opts Options, key KeyFunc) (*Collection, error) {
	p := NewParser(ctx, r, opts)
	c := NewCollection(key)

	for {
		rec, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if c.Add(rec) {
			tflog.SubsystemWarn(ctx, subsystem, "Duplicate DN, keeping the last record", map[string]any{
				"dn": rec.DN(),
			})
		}
	}

	logStats(ctx, p.Stats())
	return c, nil
}

func logStats(ctx context.Context, s Stats) {
	tflog.SubsystemDebug(ctx, subsystem, "Parsed LDIF input", map[string]any{
		"lines":     s.Lines,
		"records":   s.Records,
		"discarded": s.Discarded,
		"malformed": s.Malformed,
		"orphans":   s.Orphans,
		"comments":  s.Comments,
	})
}
