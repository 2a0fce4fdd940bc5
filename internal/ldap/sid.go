package ldap

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/go-objectsid"
)

// ConvertBinarySIDToString converts a binary objectSid to S-1-5-21-... form.
func ConvertBinarySIDToString(binarySID []byte) (string, error) {
	// revision, sub-authority count and the 6-byte identifier authority
	if len(binarySID) < 8 {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(binarySID))
	}
	if want := 8 + 4*int(binarySID[1]); len(binarySID) != want {
		return "", fmt.Errorf("binary SID length %d does not match %d sub-authorities", len(binarySID), binarySID[1])
	}
	return objectsid.Decode(binarySID).String(), nil
}

// binaryAttributeDecoders render Active Directory binary attributes, keyed by lowercase name.
var binaryAttributeDecoders = map[string]func([]byte) (string, error){
	"objectsid":         ConvertBinarySIDToString,
	"objectguid":        GUIDBytesToString,
	"sidhistory":        ConvertBinarySIDToString,
	"msexchmailboxguid": GUIDBytesToString,
}

// decodeBinaryValues renders raw values of a known binary attribute. Values
// that fail to decode, and attributes without a decoder, are returned unchanged.
func decodeBinaryValues(attribute string, raw [][]byte, values []string) []string {
	decode, ok := binaryAttributeDecoders[strings.ToLower(attribute)]
	if !ok {
		return values
	}

	out := make([]string, len(raw))
	for i, b := range raw {
		s, err := decode(b)
		if err != nil {
			s = string(b)
		}
		out[i] = s
	}
	return out
}
