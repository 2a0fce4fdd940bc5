package ldap

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// srvResolver is the subset of *net.Resolver used for server discovery.
type srvResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// DomainFromBaseDN joins the dc= components of baseDN into a DNS domain,
// e.g. "ou=people,dc=example,dc=com" gives "example.com". It returns ""
// when baseDN has no dc= components or does not parse.
func DomainFromBaseDN(baseDN string) string {
	parsed, err := ldap.ParseDN(baseDN)
	if err != nil {
		return ""
	}

	var labels []string
	for _, rdn := range parsed.RDNs {
		for _, attr := range rdn.Attributes {
			if strings.EqualFold(attr.Type, "dc") && attr.Value != "" {
				labels = append(labels, attr.Value)
			}
		}
	}
	return strings.ToLower(strings.Join(labels, "."))
}

// discoverServer locates a directory server for domain through the
// _ldap._tcp (or _ldaps._tcp) SRV records, preferring the lowest priority
// and then the highest weight.
func discoverServer(ctx context.Context, resolver srvResolver, domain string, useTLS bool) (*ServerInfo, error) {
	if domain == "" {
		return nil, fmt.Errorf("no domain to discover a server for")
	}

	service := "ldap"
	if useTLS {
		service = "ldaps"
	}

	start := time.Now()
	_, records, err := resolver.LookupSRV(ctx, service, "tcp", domain)
	fields := map[string]any{
		"service":     "_" + service + "._tcp." + domain,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		tflog.SubsystemDebug(ctx, subsystem, "SRV lookup failed", fields)
		return nil, fmt.Errorf("SRV lookup failed for _%s._tcp.%s: %w", service, domain, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no SRV records found for _%s._tcp.%s", service, domain)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Weight > records[j].Weight
	})

	server := &ServerInfo{
		Host:   strings.TrimSuffix(records[0].Target, "."),
		Port:   int(records[0].Port),
		UseTLS: useTLS,
	}

	fields["record_count"] = len(records)
	fields["server"] = server.URL()
	tflog.SubsystemDebug(ctx, subsystem, "Discovered directory server", fields)
	return server, nil
}
