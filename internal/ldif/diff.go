package ldif

import (
	"fmt"
	"slices"
	"strings"
)

// DiffKind says why a DN was reported.
type DiffKind int

const (
	// DiffChanged means both sides hold the entry but the compared values differ.
	DiffChanged DiffKind = iota
	DiffOnlyInFirst
	DiffOnlyInSecond
	// DiffAttributeMissing means both sides hold the entry and at least one
	// of them lacks the compared attribute.
	DiffAttributeMissing
)

func (k DiffKind) String() string {
	switch k {
	case DiffChanged:
		return "changed"
	case DiffOnlyInFirst:
		return "only-in-first"
	case DiffOnlyInSecond:
		return "only-in-second"
	case DiffAttributeMissing:
		return "attribute-missing"
	default:
		return fmt.Sprintf("DiffKind(%d)", int(k))
	}
}

// Difference is one reported DN.
type Difference struct {
	DN   string
	Kind DiffKind
}

// DiffRecords compares whole records across both collections. A DN is
// reported when it exists on one side only or when the attribute sets or
// any ordered value sequence differ. Results are sorted by key.
func DiffRecords(a, b *Collection) []Difference {
	return diff(a, b, func(ra, rb *Record) (DiffKind, bool) {
		if ra.EqualAttributes(rb) {
			return 0, false
		}
		return DiffChanged, true
	})
}

// DiffAttribute compares only attr. A DN is reported when it exists on one
// side only, when either side lacks the attribute (including both) or when
// the ordered value sequences differ.
func DiffAttribute(a, b *Collection, attr string) []Difference {
	attr = strings.ToLower(strings.TrimSpace(attr))

	return diff(a, b, func(ra, rb *Record) (DiffKind, bool) {
		va, vb := ra.Values(attr), rb.Values(attr)
		if len(va) == 0 || len(vb) == 0 {
			return DiffAttributeMissing, true
		}
		if !slices.Equal(va, vb) {
			return DiffChanged, true
		}
		return 0, false
	})
}

func diff(a, b *Collection, compare func(ra, rb *Record) (DiffKind, bool)) []Difference {
	keys := unionKeys(a, b)

	var out []Difference
	for _, k := range keys {
		ra, rb := a.byKey(k), b.byKey(k)

		switch {
		case rb == nil:
			out = append(out, Difference{DN: ra.DN(), Kind: DiffOnlyInFirst})
		case ra == nil:
			out = append(out, Difference{DN: rb.DN(), Kind: DiffOnlyInSecond})
		default:
			if kind, differs := compare(ra, rb); differs {
				out = append(out, Difference{DN: ra.DN(), Kind: kind})
			}
		}
	}
	return out
}

func unionKeys(a, b *Collection) []string {
	seen := make(map[string]struct{}, a.Len()+b.Len())
	keys := make([]string, 0, a.Len()+b.Len())
	for _, c := range []*Collection{a, b} {
		for _, k := range c.order {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
