// Package report renders command results as text.
package report

import (
	"fmt"
	"io"

	"github.com/isometry/ldifutil/internal/dircmp"
	"github.com/isometry/ldifutil/internal/ldif"
)

// WriteExtraction writes the DN followed by one "  - value" line per value.
func WriteExtraction(w io.Writer, e ldif.Extraction) error {
	if _, err := fmt.Fprintf(w, "%s:\n", e.DN); err != nil {
		return err
	}
	for _, v := range e.Values {
		if _, err := fmt.Fprintf(w, "  - %s\n", v); err != nil {
			return err
		}
	}
	return nil
}

// WriteDifference writes the DN, and the reason when explain is set.
func WriteDifference(w io.Writer, d ldif.Difference, explain bool) error {
	var err error
	if explain {
		_, err = fmt.Fprintf(w, "%s\t%s\n", d.DN, d.Kind)
	} else {
		_, err = fmt.Fprintln(w, d.DN)
	}
	return err
}

// WriteOutcome writes a directory comparison result for one record.
func WriteOutcome(w io.Writer, o dircmp.Outcome) error {
	lines := []string{o.DN + ":"}

	switch o.Status {
	case dircmp.StatusEntryNotFound:
		lines = append(lines, "  - Entry not found in directory.")
	case dircmp.StatusAttributeNotFound:
		lines = append(lines, "  - Attribute not found in directory.")
	case dircmp.StatusFailed:
		lines = append(lines, fmt.Sprintf("  - Lookup failed: %v", o.Err))
	case dircmp.StatusCompared:
		for _, m := range o.Comparison.Values {
			lines = append(lines, fmt.Sprintf("  - LDIF: %s - Match in directory: %s", m.Value, yesNo(m.Matched)))
		}
		for _, v := range o.Comparison.DirectoryOnly {
			lines = append(lines, "  - Directory only: "+v)
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
