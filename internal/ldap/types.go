package ldap

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// ConnectionConfig holds everything needed to reach and bind to a directory.
type ConnectionConfig struct {
	// Connection settings
	URL              string        // ldap:// or ldaps:// URL
	BaseDN           string        // Base DN the compared entries live under
	HandshakeTimeout time.Duration `default:"5s"`  // Bound on TCP connect, proxy and TLS handshake
	RequestTimeout   time.Duration `default:"30s"` // Bound on each LDAP request
	Filter           string        `default:"(objectClass=*)"`

	// Authentication settings
	Username       string // Bind DN, UPN or Kerberos principal
	Password       string
	UseKerberos    bool
	KerberosRealm  string
	KerberosConfig string `default:"/etc/krb5.conf"`
	KerberosCCache string
	KerberosKeytab string
	KerberosSPN    string // Overrides ldap/<host>

	// TLS settings. InsecureSkipVerify disables certificate validation for
	// this connection only.
	InsecureSkipVerify bool
	StartTLS           bool
	CACertFile         string
	ClientCertFile     string
	ClientKeyFile      string
	PFXFile            string
	PFXPassword        string

	// SOCKSProxy routes the connection through a proxy, e.g. socks5://127.0.0.1:1080.
	SOCKSProxy string

	// DecodeBinary renders objectSid and objectGUID values as strings.
	DecodeBinary bool
}

// NewConfig returns a ConnectionConfig populated with defaults.
func NewConfig() (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying connection defaults: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration before any connection is attempted.
func (c *ConnectionConfig) Validate() error {
	server, err := ParseLDAPURL(c.URL)
	if err != nil {
		return err
	}

	var errs []error
	if server.Host == "" && DomainFromBaseDN(c.BaseDN) == "" {
		errs = append(errs, errors.New("URL has no host and the base DN has no dc= components to discover one from"))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("handshake timeout must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.StartTLS && server.UseTLS {
		errs = append(errs, errors.New("StartTLS cannot be combined with an ldaps:// URL"))
	}
	if (c.ClientCertFile == "") != (c.ClientKeyFile == "") {
		errs = append(errs, errors.New("client certificate and key must be given together"))
	}
	if c.PFXFile != "" && c.ClientCertFile != "" {
		errs = append(errs, errors.New("use either a PFX file or a certificate/key pair, not both"))
	}
	if c.GetAuthMethod() == AuthMethodExternal && !server.UseTLS && !c.StartTLS {
		errs = append(errs, errors.New("certificate authentication requires ldaps:// or StartTLS"))
	}
	return errors.Join(errs...)
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // Username/password authentication
	AuthMethodKerberos                     // GSSAPI/Kerberos authentication
	AuthMethodExternal                     // TLS client certificate authentication
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// GetAuthMethod determines the authentication method from the configuration.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	if c.UseKerberos || c.KerberosRealm != "" {
		return AuthMethodKerberos
	}
	if c.Username == "" && (c.ClientCertFile != "" || c.PFXFile != "") {
		return AuthMethodExternal
	}
	return AuthMethodSimpleBind
}

// ServerInfo identifies the directory server a URL points at.
type ServerInfo struct {
	Host   string
	Port   int
	UseTLS bool
}

// Address returns host:port.
func (s *ServerInfo) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the canonical URL for the server.
func (s *ServerInfo) URL() string {
	scheme := "ldap"
	if s.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, s.Address())
}

// LookupResult is what the directory holds for one attribute of one entry.
type LookupResult struct {
	DN               string
	Found            bool     // the entry exists
	AttributePresent bool     // the entry carries the attribute
	Values           []string // unordered
}

func isLocalHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
