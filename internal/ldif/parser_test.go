package ldif

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-log/tflogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string, opts Options) []*Record {
	t.Helper()

	p := NewParser(t.Context(), strings.NewReader(input), opts)
	var records []*Record
	for {
		rec, err := p.Next()
		if err == io.EOF {
			return records
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
}

func TestParser_Records(t *testing.T) {
	input := "version: 1\n" +
		"\n" +
		"dn: cn=a,dc=x\n" +
		"objectClass: top\n" +
		"objectClass: person\n" +
		"Mail: a@x.com\n" +
		"mail: a@x.com\n" +
		"\n" +
		"dn: cn=b,dc=x\n" +
		"cn: B\n" +
		"dn: cn=c,dc=x\n" +
		"cn: C"

	records := parse(t, input, ExtractOptions())
	require.Len(t, records, 3)

	a := records[0]
	assert.Equal(t, "cn=a,dc=x", a.DN())
	assert.Equal(t, []string{"objectclass", "mail"}, a.Names())
	assert.Equal(t, []string{"top", "person"}, a.Values("objectClass"))
	assert.Equal(t, []string{"a@x.com", "a@x.com"}, a.Values("mail"), "duplicates are kept")

	assert.Equal(t, "cn=b,dc=x", records[1].DN(), "a new dn seals the previous record")
	assert.Equal(t, []string{"C"}, records[2].Values("cn"), "end of input seals the last record")
}

func TestParser_DiscardsEmptyRecords(t *testing.T) {
	input := "dn: cn=empty\n\ndn: cn=only-malformed\ngarbage\n\ndn: cn=a\ncn: A\n"

	p := NewParser(t.Context(), strings.NewReader(input), ExtractOptions())
	rec, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "cn=a", rec.DN())

	_, err = p.Next()
	assert.Equal(t, io.EOF, err)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Records)
	assert.Equal(t, 2, stats.Discarded)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 7, stats.Lines)
}

func TestParser_TrailingBlankLineIsIdempotent(t *testing.T) {
	input := "dn: cn=a\ncn: A\nsn: X\n\ndn: cn=b\ncn: B"

	without := parse(t, input, CompareOptions())
	with := parse(t, input+"\n\n", CompareOptions())

	require.Len(t, with, len(without))
	for i := range without {
		assert.Equal(t, without[i].DN(), with[i].DN())
		assert.True(t, without[i].EqualAttributes(with[i]))
	}
}

func TestParser_EmptyValuePolicy(t *testing.T) {
	input := "dn: cn=a\ndescription:\ncn: A\nnote:\n folded\n"

	kept := parse(t, input, ExtractOptions())
	require.Len(t, kept, 1)
	assert.Equal(t, []string{""}, kept[0].Values("description"))

	skipped := parse(t, input, CompareOptions())
	require.Len(t, skipped, 1)
	assert.False(t, skipped[0].Has("description"))
	assert.Equal(t, []string{"\nfolded"}, skipped[0].Values("note"), "folded values are not empty")
}

func TestParser_FoldPolicies(t *testing.T) {
	input := "dn: cn=a\ndescription: line one\n line two\n"

	emptyOnly := parse(t, input, ExtractOptions())
	assert.Equal(t, []string{"line one"}, emptyOnly[0].Values("description"))

	always := parse(t, input, CompareOptions())
	assert.Equal(t, []string{"line one\nline two"}, always[0].Values("description"))
}

func TestParser_AttributesOutsideRecordIgnored(t *testing.T) {
	input := "cn: stray\n\ndn: cn=a\ncn: A\n\nsn: stray\n"

	records := parse(t, input, ExtractOptions())
	require.Len(t, records, 1)
	assert.Equal(t, []string{"A"}, records[0].Values("cn"))
	assert.False(t, records[0].Has("sn"))
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestParser_ReadErrorDropsPartialRecord(t *testing.T) {
	boom := errors.New("disk on fire")
	r := &failingReader{data: []byte("dn: cn=a\ncn: A\n\ndn: cn=b\ncn: B\n"), err: boom}

	p := NewParser(t.Context(), r, ExtractOptions())

	rec, err := p.Next()
	require.NoError(t, err)
	assert.Equal(t, "cn=a", rec.DN())

	rec, err = p.Next()
	require.ErrorIs(t, err, boom)
	assert.Nil(t, rec)
}

func TestParseCollection_DuplicateDNKeepsLast(t *testing.T) {
	var logs bytes.Buffer
	ctx := tflogtest.RootLogger(t.Context(), &logs)

	input := "dn: cn=a\ncn: first\n\ndn: cn=b\ncn: B\n\ndn: cn=a\ncn: second\n"
	c, err := ParseCollection(ctx, strings.NewReader(input), CompareOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"cn=a", "cn=b"}, c.order)

	rec, ok := c.Get("cn=a")
	require.True(t, ok)
	assert.Equal(t, []string{"second"}, rec.Values("cn"))

	entries, err := tflogtest.MultilineJSONDecode(&logs)
	require.NoError(t, err)

	var warned bool
	for _, entry := range entries {
		if entry["@message"] == "Duplicate DN, keeping the last record" {
			warned = true
			assert.Equal(t, "cn=a", entry["dn"])
		}
	}
	assert.True(t, warned, "duplicate DN should be logged")
}

func TestParserState_String(t *testing.T) {
	assert.Equal(t, "outside-record", stateOutsideRecord.String())
	assert.Equal(t, "in-record", stateInRecord.String())
}
