package ldif

import (
	"slices"
	"strings"
)

// Record is one LDIF entry: a DN and its attributes in first-seen order.
// Values keep input order and duplicates.
type Record struct {
	dn     string
	names  []string
	values map[string][]string
}

// newRecord returns an empty record for dn.
func newRecord(dn string) *Record {
	return &Record{
		dn:     dn,
		values: make(map[string][]string),
	}
}

// DN returns the record's distinguished name.
func (r *Record) DN() string {
	return r.dn
}

// add appends value to the attribute name. Names are case-insensitive.
// Only the parser builds records; callers see them read-only.
func (r *Record) add(name, value string) {
	name = strings.ToLower(name)
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = append(r.values[name], value)
}

// Names returns the lowercased attribute names in first-seen order.
func (r *Record) Names() []string {
	return slices.Clone(r.names)
}

// Values returns the values of the named attribute, or nil.
func (r *Record) Values(name string) []string {
	return slices.Clone(r.values[strings.ToLower(name)])
}

// Has reports whether the record holds at least one value for name.
func (r *Record) Has(name string) bool {
	return len(r.values[strings.ToLower(name)]) > 0
}

// Len returns the number of distinct attributes.
func (r *Record) Len() int {
	return len(r.names)
}

// EqualAttributes reports whether both records carry the same attribute
// names with identical ordered value sequences. DNs and attribute order
// are not compared.
func (r *Record) EqualAttributes(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if len(r.values) != len(other.values) {
		return false
	}
	for name, values := range r.values {
		theirs, ok := other.values[name]
		if !ok || !slices.Equal(values, theirs) {
			return false
		}
	}
	return true
}

// KeyFunc maps a DN to the key a Collection indexes it under.
type KeyFunc func(dn string) string

// Collection indexes records by DN key. A later record with the same key
// replaces the earlier one but keeps its position.
type Collection struct {
	key     KeyFunc
	order   []string
	records map[string]*Record
}

// NewCollection returns an empty collection. A nil key indexes by the DN as written.
func NewCollection(key KeyFunc) *Collection {
	if key == nil {
		key = func(dn string) string { return dn }
	}
	return &Collection{
		key:     key,
		records: make(map[string]*Record),
	}
}

// Add stores r and reports whether it replaced a record with the same key.
func (c *Collection) Add(r *Record) bool {
	k := c.key(r.DN())
	_, replaced := c.records[k]
	if !replaced {
		c.order = append(c.order, k)
	}
	c.records[k] = r
	return replaced
}

// Get looks up a record by DN.
func (c *Collection) Get(dn string) (*Record, bool) {
	r, ok := c.records[c.key(dn)]
	return r, ok
}

func (c *Collection) byKey(k string) *Record {
	return c.records[k]
}

func (c *Collection) Len() int {
	return len(c.order)
}
