package ldif

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFrom_SkipsRecordsWithoutAttribute(t *testing.T) {
	input := "dn: cn=a,dc=x\nmail: a@x.com\nmail: b@x.com\n\n" +
		"dn: cn=b,dc=x\ncn: B\n\n" +
		"dn: cn=c,dc=x\nMail: c@x.com\n"

	p := NewParser(t.Context(), strings.NewReader(input), ExtractOptions())
	var got []Extraction
	err := ExtractFrom(p, "MAIL", func(e Extraction) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Extraction{
		{DN: "cn=a,dc=x", Values: []string{"a@x.com", "b@x.com"}},
		{DN: "cn=c,dc=x", Values: []string{"c@x.com"}},
	}, got)
}

func TestExtractFrom(t *testing.T) {
	input := "dn: cn=a\nmail: 1\n\ndn: cn=b\nmail: 2\n\ndn: cn=c\nmail: 3\n"

	t.Run("streams in order", func(t *testing.T) {
		p := NewParser(t.Context(), strings.NewReader(input), ExtractOptions())
		var seen []string
		err := ExtractFrom(p, "mail", func(e Extraction) error {
			seen = append(seen, e.DN)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"cn=a", "cn=b", "cn=c"}, seen)
	})

	t.Run("callback error stops the scan", func(t *testing.T) {
		stop := errors.New("stop")
		p := NewParser(t.Context(), strings.NewReader(input), ExtractOptions())
		calls := 0
		err := ExtractFrom(p, "mail", func(Extraction) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("empty attribute", func(t *testing.T) {
		p := NewParser(t.Context(), strings.NewReader(input), ExtractOptions())
		err := ExtractFrom(p, " ", func(Extraction) error { return nil })
		assert.ErrorIs(t, err, ErrEmptyAttribute)
	})
}
