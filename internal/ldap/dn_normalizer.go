package ldap

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// NormalizeDN returns a comparison key for dn: attribute types and values
// lowercased, insignificant spaces removed, escapes resolved.
//
// Input:  "CN=John Smith, OU=Users,DC=Example,DC=com"
// Output: "cn=john smith,ou=users,dc=example,dc=com"
func NormalizeDN(dn string) (string, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return "", nil
	}

	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "", fmt.Errorf("invalid DN syntax: %w", err)
	}

	rdns := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrs = append(attrs, strings.ToLower(attr.Type)+"="+strings.ToLower(attr.Value))
		}
		rdns = append(rdns, strings.Join(attrs, "+"))
	}
	return strings.Join(rdns, ","), nil
}

// DNKey is NormalizeDN for use as a record index key. DNs that do not
// parse fall back to their trimmed, lowercased text.
func DNKey(dn string) string {
	key, err := NormalizeDN(dn)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(dn))
	}
	return key
}

// IsDNWithin reports whether dn equals base or lies below it. Comparison
// is case-insensitive.
func IsDNWithin(dn, base string) (bool, error) {
	if strings.TrimSpace(base) == "" {
		return true, nil
	}

	child, err := ldap.ParseDN(dn)
	if err != nil {
		return false, fmt.Errorf("invalid DN: %w", err)
	}
	parent, err := ldap.ParseDN(base)
	if err != nil {
		return false, fmt.Errorf("invalid base DN: %w", err)
	}

	return parent.EqualFold(child) || parent.AncestorOfFold(child), nil
}
