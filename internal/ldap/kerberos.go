package ldap

import (
	"context"
	"fmt"
	"os"
	"strings"

	fqdn "github.com/Showmax/go-fqdn"
	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// kerberosIdentity is the principal a GSSAPI bind authenticates as.
type kerberosIdentity struct {
	Username string
	Realm    string
}

// performKerberosAuth performs a GSSAPI bind on conn.
func performKerberosAuth(ctx context.Context, conn *ldap.Conn, cfg *ConnectionConfig, server *ServerInfo) error {
	identity, err := resolveKerberosIdentity(cfg)
	if err != nil {
		return fmt.Errorf("kerberos configuration error: %w", err)
	}

	gssapiClient, source, err := createGSSAPIClient(cfg, identity)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}
	defer func() {
		_ = gssapiClient.DeleteSecContext()
	}()

	spn, err := buildServicePrincipal(cfg, server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	LogConnectionEvent(ctx, "kerberos_bind_attempt", map[string]any{
		"principal":          identity.Username + "@" + identity.Realm,
		"credentials_source": source,
		"spn":                spn,
	})

	if err := conn.GSSAPIBind(gssapiClient, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}
	return nil
}

// createGSSAPIClient creates a GSSAPI client from the first usable
// credential source: credential cache, keytab, then password.
func createGSSAPIClient(cfg *ConnectionConfig, id kerberosIdentity) (ldap.GSSAPIClient, string, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}
	if !fileExists(krb5conf) {
		return nil, "", fmt.Errorf("kerberos configuration file not found at %s", krb5conf)
	}

	if cfg.KerberosCCache != "" && fileExists(cfg.KerberosCCache) {
		c, err := gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf, krb5client.DisablePAFXFAST(true))
		return c, "ccache", err
	}

	if cfg.KerberosKeytab != "" && fileExists(cfg.KerberosKeytab) {
		c, err := gssapi.NewClientWithKeytab(id.Username, id.Realm, cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
		return c, "keytab", err
	}

	if cfg.Password != "" {
		c, err := gssapi.NewClientWithPassword(id.Username, id.Realm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
		return c, "password", err
	}

	if ccache := getDefaultCCachePath(); fileExists(ccache) {
		c, err := gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
		return c, "default_ccache", err
	}

	return nil, "", fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// resolveKerberosIdentity splits user@REALM when no realm is configured.
func resolveKerberosIdentity(cfg *ConnectionConfig) (kerberosIdentity, error) {
	id := kerberosIdentity{Username: cfg.Username, Realm: cfg.KerberosRealm}

	if user, realm, ok := strings.Cut(cfg.Username, "@"); ok && id.Realm == "" {
		id.Username = user
		id.Realm = strings.ToUpper(realm)
	}

	if id.Realm == "" {
		return id, fmt.Errorf("kerberos realm is required (set --kerberos-realm or use user@REALM)")
	}
	if id.Username == "" && cfg.KerberosCCache == "" {
		return id, fmt.Errorf("username (principal) is required for Kerberos authentication")
	}
	return id, nil
}

// buildServicePrincipal returns ldap/<host>. A loopback host is replaced by
// this machine's FQDN, since KDCs do not issue tickets for localhost.
func buildServicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}
	if server == nil || server.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}

	host := server.Host
	if isLocalHost(host) {
		name, err := fqdn.FqdnHostname()
		if err != nil {
			return "", fmt.Errorf("resolving local FQDN for service principal: %w", err)
		}
		host = name
	}

	return "ldap/" + strings.ToLower(host), nil
}

// getDefaultCCachePath returns the default credential cache location.
func getDefaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

// fileExists checks if a file exists and is readable.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	file.Close()
	return true
}
