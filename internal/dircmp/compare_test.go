package dircmp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-log/tflogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/ldifutil/internal/ldap"
	"github.com/isometry/ldifutil/internal/ldif"
)

// fakeDirectory answers lookups from a map keyed by lowercase DN.
type fakeDirectory struct {
	entries map[string]map[string][]string
	fail    map[string]error
	calls   []string
	cancel  context.CancelFunc // called on the first lookup when set
}

func (f *fakeDirectory) Lookup(_ context.Context, dn, attribute string) (*ldap.LookupResult, error) {
	f.calls = append(f.calls, dn+"|"+attribute)
	if f.cancel != nil {
		f.cancel()
	}
	if err, ok := f.fail[strings.ToLower(dn)]; ok {
		return nil, err
	}

	res := &ldap.LookupResult{DN: dn}
	entry, ok := f.entries[strings.ToLower(dn)]
	if !ok {
		return res, nil
	}
	res.Found = true
	if values, ok := entry[attribute]; ok {
		res.AttributePresent = true
		res.Values = values
	}
	return res, nil
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name      string
		ldif      []string
		directory []string
		expected  Comparison
		inSync    bool
	}{
		{
			name:      "same values different order",
			ldif:      []string{"a", "b"},
			directory: []string{"b", "a"},
			expected: Comparison{
				Values: []ValueMatch{{Value: "a", Matched: true}, {Value: "b", Matched: true}},
			},
			inSync: true,
		},
		{
			name:      "three-way",
			ldif:      []string{"a", "c"},
			directory: []string{"a", "b"},
			expected: Comparison{
				Values:        []ValueMatch{{Value: "a", Matched: true}, {Value: "c", Matched: false}},
				DirectoryOnly: []string{"b"},
			},
		},
		{
			name:      "LDIF duplicates kept",
			ldif:      []string{"a", "a"},
			directory: []string{"a"},
			expected: Comparison{
				Values: []ValueMatch{{Value: "a", Matched: true}, {Value: "a", Matched: true}},
			},
			inSync: true,
		},
		{
			name:      "case-sensitive values",
			ldif:      []string{"Alice"},
			directory: []string{"alice"},
			expected: Comparison{
				Values:        []ValueMatch{{Value: "Alice", Matched: false}},
				DirectoryOnly: []string{"alice"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareValues(tt.ldif, tt.directory)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.inSync, got.InSync())
		})
	}
}

const directoryLDIF = `dn: cn=alice,dc=example,dc=com
mail: alice@example.com
mail: a@example.com

dn: cn=bob,dc=example,dc=com
cn: bob

dn: cn=carol,dc=example,dc=com
mail: carol@example.com

dn: cn=dave,dc=example,dc=com
mail: dave@example.com

dn: cn=erin,dc=example,dc=com
mail: erin@example.com
`

func TestRunner_Run(t *testing.T) {
	lookupErr := ldap.NewDirectoryError(ldap.PhaseSearch, errors.New("connection reset"))
	dir := &fakeDirectory{
		entries: map[string]map[string][]string{
			"cn=alice,dc=example,dc=com": {"mail": {"a@example.com", "alice@example.com"}},
			"cn=dave,dc=example,dc=com":  {"cn": {"dave"}},
			"cn=erin,dc=example,dc=com":  {"mail": {"erin@example.org"}},
		},
		fail: map[string]error{"cn=carol,dc=example,dc=com": lookupErr},
	}

	p := ldif.NewParser(t.Context(), strings.NewReader(directoryLDIF), ldif.DirectoryOptions(""))
	r := &Runner{Lookuper: dir, Attribute: "Mail"}

	var outcomes []Outcome
	summary, err := r.Run(t.Context(), p, func(o Outcome) error {
		outcomes = append(outcomes, o)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cn=alice,dc=example,dc=com|mail",
		"cn=carol,dc=example,dc=com|mail",
		"cn=dave,dc=example,dc=com|mail",
		"cn=erin,dc=example,dc=com|mail",
	}, dir.calls, "bob has no mail and is not looked up")

	require.Len(t, outcomes, 4)
	assert.Equal(t, StatusCompared, outcomes[0].Status)
	assert.True(t, outcomes[0].Comparison.InSync())
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.ErrorIs(t, outcomes[1].Err, lookupErr)
	assert.Equal(t, StatusAttributeNotFound, outcomes[2].Status)
	assert.Equal(t, StatusCompared, outcomes[3].Status)
	assert.False(t, outcomes[3].Comparison.InSync())

	assert.Equal(t, Summary{
		Records:           4,
		Compared:          2,
		OutOfSync:         1,
		AttributeNotFound: 1,
		Failed:            1,
	}, summary)
}

func TestRunner_FailureLogsErrorCategory(t *testing.T) {
	var logs bytes.Buffer
	ctx := tflogtest.RootLogger(t.Context(), &logs)

	dir := &fakeDirectory{
		fail: map[string]error{
			"cn=a": ldap.NewDirectoryError(ldap.PhaseSearch, errors.New("connection reset")),
			"cn=b": ldap.NewDirectoryError(ldap.PhaseSearch, ldap.ErrHandshakeTimeout),
		},
	}
	p := ldif.NewParser(ctx, strings.NewReader("dn: cn=a\nmail: x\n\ndn: cn=b\nmail: y\n"), ldif.DirectoryOptions(""))

	summary, err := (&Runner{Lookuper: dir, Attribute: "mail"}).Run(ctx, p, func(Outcome) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)

	entries, err := tflogtest.MultilineJSONDecode(&logs)
	require.NoError(t, err)

	categories := map[string]any{}
	for _, e := range entries {
		if e["@message"] == "Lookup failed, continuing with next record" {
			categories[e["dn"].(string)] = e["error_category"]
		}
	}
	assert.Equal(t, map[string]any{
		"cn=a": string(ldap.ErrorCategoryConnection),
		"cn=b": string(ldap.ErrorCategoryTimeout),
	}, categories)
}

func TestRunner_EntryNotFound(t *testing.T) {
	p := ldif.NewParser(t.Context(), strings.NewReader("dn: cn=ghost,dc=example\nmail: x\n"), ldif.DirectoryOptions(""))
	r := &Runner{Lookuper: &fakeDirectory{}, Attribute: "mail"}

	var got []Outcome
	summary, err := r.Run(t.Context(), p, func(o Outcome) error {
		got = append(got, o)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusEntryNotFound, got[0].Status)
	assert.Equal(t, []string{"x"}, got[0].LDIFValues)
	assert.Equal(t, 1, summary.EntryNotFound)
}

func TestRunner_Stops(t *testing.T) {
	t.Run("empty attribute", func(t *testing.T) {
		p := ldif.NewParser(t.Context(), strings.NewReader(directoryLDIF), ldif.DirectoryOptions(""))
		_, err := (&Runner{Lookuper: &fakeDirectory{}, Attribute: " "}).Run(t.Context(), p, func(Outcome) error { return nil })
		assert.ErrorIs(t, err, ldif.ErrEmptyAttribute)
	})

	t.Run("sink error", func(t *testing.T) {
		sinkErr := errors.New("disk full")
		dir := &fakeDirectory{}
		p := ldif.NewParser(t.Context(), strings.NewReader(directoryLDIF), ldif.DirectoryOptions(""))

		summary, err := (&Runner{Lookuper: dir, Attribute: "mail"}).Run(t.Context(), p, func(Outcome) error { return sinkErr })
		assert.ErrorIs(t, err, sinkErr)
		assert.Equal(t, 1, summary.Records)
		assert.Len(t, dir.calls, 1)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()
		dir := &fakeDirectory{cancel: cancel}
		p := ldif.NewParser(ctx, strings.NewReader(directoryLDIF), ldif.DirectoryOptions(""))

		summary, err := (&Runner{Lookuper: dir, Attribute: "mail"}).Run(ctx, p, func(Outcome) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, summary.Records)
		assert.Len(t, dir.calls, 1)
	})
}

func TestRunner_StitchesWrappedDN(t *testing.T) {
	input := "dn: cn=a very long name,ou=people,\n dc=example,dc=com\nmail: x\n"
	dir := &fakeDirectory{entries: map[string]map[string][]string{
		"cn=a very long name,ou=people,dc=example,dc=com": {"mail": {"x"}},
	}}
	p := ldif.NewParser(t.Context(), strings.NewReader(input), ldif.DirectoryOptions("dc=example,dc=com"))

	var got []Outcome
	_, err := (&Runner{Lookuper: dir, Attribute: "mail"}).Run(t.Context(), p, func(o Outcome) error {
		got = append(got, o)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cn=a very long name,ou=people,dc=example,dc=com", got[0].DN)
	assert.Equal(t, StatusCompared, got[0].Status)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "entry_not_found", StatusEntryNotFound.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
