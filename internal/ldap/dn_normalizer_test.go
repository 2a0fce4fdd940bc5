package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDN(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "mixed case with spaces",
			input:    "CN=John Smith, OU=Users,DC=Example,DC=com",
			expected: "cn=john smith,ou=users,dc=example,dc=com",
		},
		{
			name:     "multi-valued RDN",
			input:    "CN=Alice+UID=ALICE,DC=example,DC=com",
			expected: "cn=alice+uid=alice,dc=example,dc=com",
		},
		{
			name:     "surrounding whitespace",
			input:    "  dc=example,dc=com  ",
			expected: "dc=example,dc=com",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:        "no equals sign",
			input:       "not a dn",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDN(tt.input)
			if tt.expectError {
				assert.ErrorContains(t, err, "invalid DN syntax")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDNKey(t *testing.T) {
	assert.Equal(t, DNKey("CN=A, DC=Example"), DNKey("cn=a,dc=example"))
	assert.Equal(t, "not a dn", DNKey("  Not A DN "))
}

func TestIsDNWithin(t *testing.T) {
	tests := []struct {
		name     string
		dn       string
		base     string
		expected bool
	}{
		{name: "child", dn: "cn=a,ou=people,dc=example,dc=com", base: "dc=example,dc=com", expected: true},
		{name: "same entry any case", dn: "DC=Example,DC=com", base: "dc=example,dc=com", expected: true},
		{name: "sibling tree", dn: "cn=a,dc=other,dc=com", base: "dc=example,dc=com", expected: false},
		{name: "parent of base", dn: "dc=com", base: "dc=example,dc=com", expected: false},
		{name: "empty base", dn: "cn=a,dc=other", base: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsDNWithin(tt.dn, tt.base)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := IsDNWithin("garbage", "dc=example,dc=com")
	assert.Error(t, err)
}
