package ldap

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultLDAPPort  = 389
	defaultLDAPSPort = 636
)

// ParseLDAPURL parses an ldap:// or ldaps:// URL. A missing port defaults
// to 389 or 636; any path (an RFC 4516 DN part) is ignored. A URL without
// a host, such as ldap:///, yields an empty Host: the server is then
// discovered through DNS.
func ParseLDAPURL(raw string) (*ServerInfo, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("LDAP URL cannot be empty")
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL %q: %w", raw, err)
	}

	server := &ServerInfo{}
	switch strings.ToLower(u.Scheme) {
	case "ldap":
		server.Port = defaultLDAPPort
	case "ldaps":
		server.UseTLS = true
		server.Port = defaultLDAPSPort
	default:
		return nil, fmt.Errorf("unsupported scheme in %q, must be ldap:// or ldaps://", raw)
	}

	server.Host = u.Hostname()

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
		server.Port = port
	}

	return server, nil
}
