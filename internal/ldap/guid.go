package ldap

import (
	"fmt"

	"github.com/google/uuid"
)

// GUIDBytesLength is the size of a binary objectGUID.
const GUIDBytesLength = 16

// GUIDBytesToString converts an Active Directory objectGUID to its
// canonical string form. Active Directory stores the first three groups
// little-endian and the last 8 bytes as-is.
func GUIDBytesToString(guidBytes []byte) (string, error) {
	if len(guidBytes) != GUIDBytesLength {
		return "", fmt.Errorf("invalid GUID byte length: expected %d, got %d", GUIDBytesLength, len(guidBytes))
	}

	b := make([]byte, GUIDBytesLength)
	b[0], b[1], b[2], b[3] = guidBytes[3], guidBytes[2], guidBytes[1], guidBytes[0]
	b[4], b[5] = guidBytes[5], guidBytes[4]
	b[6], b[7] = guidBytes[7], guidBytes[6]
	copy(b[8:], guidBytes[8:])

	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
