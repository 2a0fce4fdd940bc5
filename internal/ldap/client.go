package ldap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Client is a bound connection to one directory server. It is not safe
// for concurrent use; lookups are issued one at a time.
type Client struct {
	conn   *ldap.Conn
	config *ConnectionConfig
	server *ServerInfo
}

// NewClient connects to cfg.URL and binds. Every error it returns is a
// fatal *DirectoryError.
func NewClient(ctx context.Context, cfg *ConnectionConfig) (*Client, error) {
	return newClient(ctx, cfg, nil)
}

// newClient accepts an alternate dialFunc for tests.
func newClient(ctx context.Context, cfg *ConnectionConfig, dial dialFunc) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, NewDirectoryError(PhaseConfig, err)
	}

	server, err := ParseLDAPURL(cfg.URL)
	if err != nil {
		return nil, NewDirectoryError(PhaseConfig, err)
	}

	if server.Host == "" {
		server, err = discoverServer(ctx, net.DefaultResolver, DomainFromBaseDN(cfg.BaseDN), server.UseTLS)
		if err != nil {
			return nil, NewDirectoryError(PhaseDial, err)
		}
	}

	tlsConfig, err := buildTLSConfig(cfg, server.Host)
	if err != nil {
		return nil, NewDirectoryError(PhaseConfig, err)
	}

	if dial == nil {
		dial = transportDialer(server, cfg, tlsConfig)
	}

	fields := map[string]any{
		"server":      server.URL(),
		"auth_method": cfg.GetAuthMethod().String(),
		"insecure":    cfg.InsecureSkipVerify,
		"socks_proxy": cfg.SOCKSProxy != "",
		"timeout_ms":  cfg.HandshakeTimeout.Milliseconds(),
	}
	LogConnectionEvent(ctx, "connection_attempt", fields)

	start := time.Now()
	netConn, err := dialWithDeadline(ctx, cfg.HandshakeTimeout, dial)
	if err != nil {
		fields["error"] = err.Error()
		LogConnectionEvent(ctx, "connection_failed", fields)
		return nil, NewDirectoryError(PhaseDial, err)
	}

	conn := ldap.NewConn(netConn, server.UseTLS)
	conn.Start()
	conn.SetTimeout(cfg.RequestTimeout)

	c := &Client{conn: conn, config: cfg, server: server}

	if cfg.StartTLS {
		err := LogOperation(ctx, "starttls", nil, func() error {
			return conn.StartTLS(tlsConfig)
		})
		if err != nil {
			c.Close()
			return nil, NewDirectoryError(PhaseTLS, err)
		}
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()
	LogConnectionEvent(ctx, "connection_established", fields)

	if err := c.authenticate(ctx); err != nil {
		c.Close()
		return nil, NewDirectoryError(PhaseBind, err)
	}

	return c, nil
}

// authenticate performs authentication based on the configured method.
func (c *Client) authenticate(ctx context.Context) error {
	authMethod := c.config.GetAuthMethod()
	fields := map[string]any{
		"auth_method": authMethod.String(),
		"username":    c.config.Username,
	}

	var err error
	switch authMethod {
	case AuthMethodSimpleBind:
		err = c.authenticateSimple()
	case AuthMethodKerberos:
		err = performKerberosAuth(ctx, c.conn, c.config, c.server)
	case AuthMethodExternal:
		err = c.conn.ExternalBind()
	default:
		err = fmt.Errorf("unsupported authentication method: %s", authMethod.String())
	}

	if err != nil {
		fields["error"] = err.Error()
		LogConnectionEvent(ctx, "authentication_failed", fields)
		return err
	}

	LogConnectionEvent(ctx, "authentication_success", fields)
	return nil
}

// authenticateSimple performs a simple bind. An empty username binds anonymously.
func (c *Client) authenticateSimple() error {
	if c.config.Username == "" {
		return c.conn.UnauthenticatedBind("")
	}
	if c.config.Password == "" {
		return fmt.Errorf("password is required for simple bind as %s", c.config.Username)
	}
	return c.conn.Bind(c.config.Username, c.config.Password)
}

// Lookup reads one attribute of the entry at dn with a base-scope search.
// A missing entry is a result, not an error; other failures are returned
// as non-fatal *DirectoryError values.
func (c *Client) Lookup(ctx context.Context, dn, attribute string) (*LookupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if within, err := IsDNWithin(dn, c.config.BaseDN); err == nil && !within {
		tflog.SubsystemDebug(ctx, subsystem, "Entry is outside the base DN", map[string]any{
			"dn":      dn,
			"base_dn": c.config.BaseDN,
		})
	}

	req := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		1,
		int(c.config.RequestTimeout.Seconds()),
		false,
		c.config.Filter,
		[]string{attribute},
		nil,
	)

	result := &LookupResult{DN: dn}
	fields := map[string]any{"dn": dn, "attribute": attribute}

	var res *ldap.SearchResult
	err := LogOperation(ctx, "lookup", fields, func() error {
		var err error
		res, err = c.conn.Search(req)
		if err == nil || ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil
		}
		return NewDirectoryError(PhaseSearch, err).withDN(dn)
	})
	if err != nil {
		return nil, err
	}

	if res == nil || len(res.Entries) == 0 {
		return result, nil
	}
	result.Found = true

	for _, attr := range res.Entries[0].Attributes {
		if !strings.EqualFold(attr.Name, attribute) || len(attr.Values) == 0 {
			continue
		}
		result.AttributePresent = true
		values := attr.Values
		if c.config.DecodeBinary {
			values = decodeBinaryValues(attribute, attr.ByteValues, values)
		}
		result.Values = append(result.Values, values...)
	}

	return result, nil
}

// Close unbinds and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	c.conn.Close()
	c.conn = nil
	return nil
}
