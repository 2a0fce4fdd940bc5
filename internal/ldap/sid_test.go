package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var domainUserSID = []byte{
	0x01, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
	0x15, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x00, 0x00,
	0x03, 0x00, 0x00, 0x00,
	0xe9, 0x03, 0x00, 0x00,
}

func TestConvertBinarySIDToString(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		errorMsg string
	}{
		{
			name:     "domain user",
			input:    domainUserSID,
			expected: "S-1-5-21-1-2-3-1001",
		},
		{
			name:     "well-known local system",
			input:    []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x12, 0x00, 0x00, 0x00},
			expected: "S-1-5-18",
		},
		{
			name:     "header truncated",
			input:    []byte{0x01, 0x05, 0x00},
			errorMsg: "too short",
		},
		{
			name:     "sub-authorities truncated",
			input:    domainUserSID[:20],
			errorMsg: "does not match 5 sub-authorities",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConvertBinarySIDToString(tt.input)
			if tt.errorMsg != "" {
				assert.ErrorContains(t, err, tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDecodeBinaryValues(t *testing.T) {
	guid := make([]byte, GUIDBytesLength)

	tests := []struct {
		name      string
		attribute string
		raw       [][]byte
		values    []string
		expected  []string
	}{
		{
			name:      "objectSid",
			attribute: "objectSid",
			raw:       [][]byte{domainUserSID},
			values:    []string{string(domainUserSID)},
			expected:  []string{"S-1-5-21-1-2-3-1001"},
		},
		{
			name:      "objectGUID any case",
			attribute: "OBJECTGUID",
			raw:       [][]byte{guid},
			values:    []string{string(guid)},
			expected:  []string{"00000000-0000-0000-0000-000000000000"},
		},
		{
			name:      "undecodable value kept",
			attribute: "objectSid",
			raw:       [][]byte{[]byte("S-1-5-18")},
			values:    []string{"S-1-5-18"},
			expected:  []string{"S-1-5-18"},
		},
		{
			name:      "plain attribute untouched",
			attribute: "mail",
			raw:       [][]byte{[]byte("a@example.com")},
			values:    []string{"a@example.com"},
			expected:  []string{"a@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeBinaryValues(tt.attribute, tt.raw, tt.values))
		})
	}
}
