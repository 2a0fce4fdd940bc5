// Package dircmp compares attribute values read from LDIF with the values
// a live directory holds for the same entries.
package dircmp

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/isometry/ldifutil/internal/ldap"
	"github.com/isometry/ldifutil/internal/ldif"
)

const subsystem = "dircmp"

// Lookuper fetches one attribute of one entry from a directory.
type Lookuper interface {
	Lookup(ctx context.Context, dn, attribute string) (*ldap.LookupResult, error)
}

// ValueMatch records whether an LDIF value exists in the directory.
type ValueMatch struct {
	Value   string
	Matched bool
}

// Comparison is the three-way result for one attribute: LDIF values with
// a match flag, and directory values that no LDIF value matched.
type Comparison struct {
	Values        []ValueMatch
	DirectoryOnly []string
}

// InSync reports whether every LDIF value matched and the directory holds nothing extra.
func (c Comparison) InSync() bool {
	if len(c.DirectoryOnly) > 0 {
		return false
	}
	for _, m := range c.Values {
		if !m.Matched {
			return false
		}
	}
	return true
}

// CompareValues checks LDIF values against directory values. LDIF order is
// kept; directory values are treated as an unordered set.
func CompareValues(ldifValues, dirValues []string) Comparison {
	var c Comparison
	for _, v := range ldifValues {
		c.Values = append(c.Values, ValueMatch{Value: v, Matched: slices.Contains(dirValues, v)})
	}
	for _, v := range dirValues {
		if !slices.Contains(ldifValues, v) {
			c.DirectoryOnly = append(c.DirectoryOnly, v)
		}
	}
	return c
}

// Status is the result class of one record's lookup.
type Status int

const (
	StatusCompared Status = iota
	StatusEntryNotFound
	StatusAttributeNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompared:
		return "compared"
	case StatusEntryNotFound:
		return "entry_not_found"
	case StatusAttributeNotFound:
		return "attribute_not_found"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result for one LDIF record.
type Outcome struct {
	DN         string
	LDIFValues []string
	Status     Status
	Comparison Comparison
	Err        error // set when Status is StatusFailed
}

// Summary counts outcomes by status.
type Summary struct {
	Records           int
	Compared          int
	OutOfSync         int
	EntryNotFound     int
	AttributeNotFound int
	Failed            int
}

func (s *Summary) add(o Outcome) {
	s.Records++
	switch o.Status {
	case StatusCompared:
		s.Compared++
		if !o.Comparison.InSync() {
			s.OutOfSync++
		}
	case StatusEntryNotFound:
		s.EntryNotFound++
	case StatusAttributeNotFound:
		s.AttributeNotFound++
	case StatusFailed:
		s.Failed++
	}
}

// Runner compares one attribute of every parsed record with the directory.
// Records are processed sequentially; a failed lookup is reported for its
// DN and the scan continues.
type Runner struct {
	Lookuper  Lookuper
	Attribute string
}

// Run reads records from p and calls fn with the outcome of each record
// that has values for the attribute. It stops on a parse error, an error
// from fn or context cancellation.
func (r *Runner) Run(ctx context.Context, p *ldif.Parser, fn func(Outcome) error) (Summary, error) {
	var summary Summary
	attr := strings.ToLower(strings.TrimSpace(r.Attribute))
	if attr == "" {
		return summary, ldif.ErrEmptyAttribute
	}

	start := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rec, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return summary, err
		}

		values := rec.Values(attr)
		if len(values) == 0 {
			continue
		}

		outcome := r.compare(ctx, rec.DN(), attr, values)
		summary.add(outcome)
		if err := fn(outcome); err != nil {
			return summary, err
		}
	}

	tflog.SubsystemInfo(ctx, subsystem, "Directory comparison finished", map[string]any{
		"attribute":           attr,
		"records":             summary.Records,
		"compared":            summary.Compared,
		"out_of_sync":         summary.OutOfSync,
		"entry_not_found":     summary.EntryNotFound,
		"attribute_not_found": summary.AttributeNotFound,
		"failed":              summary.Failed,
		"duration_ms":         time.Since(start).Milliseconds(),
	})
	return summary, nil
}

func (r *Runner) compare(ctx context.Context, dn, attr string, values []string) Outcome {
	outcome := Outcome{DN: dn, LDIFValues: values}

	result, err := r.Lookuper.Lookup(ctx, dn, attr)
	switch {
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = err
		tflog.SubsystemWarn(ctx, subsystem, "Lookup failed, continuing with next record", map[string]any{
			"dn":             dn,
			"error":          err.Error(),
			"error_category": string(ldap.GetErrorCategory(err)),
		})
		return outcome
	case !result.Found:
		outcome.Status = StatusEntryNotFound
	case !result.AttributePresent:
		outcome.Status = StatusAttributeNotFound
	default:
		outcome.Status = StatusCompared
		outcome.Comparison = CompareValues(values, result.Values)
	}

	tflog.SubsystemDebug(ctx, subsystem, "Compared record", map[string]any{
		"dn":     dn,
		"status": outcome.Status.String(),
	})
	return outcome
}
