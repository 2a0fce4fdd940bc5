package ldif

import (
	"io"
	"strings"
)

// Extraction is the projection of one record onto a single attribute.
type Extraction struct {
	DN     string
	Values []string
}

// ExtractFrom streams records from p and calls fn for each extraction.
// An error from fn stops the scan and is returned.
func ExtractFrom(p *Parser, attr string, fn func(Extraction) error) error {
	if strings.TrimSpace(attr) == "" {
		return ErrEmptyAttribute
	}
	attr = strings.ToLower(strings.TrimSpace(attr))

	for {
		r, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !r.Has(attr) {
			continue
		}
		if err := fn(Extraction{DN: r.DN(), Values: r.Values(attr)}); err != nil {
			return err
		}
	}
}
