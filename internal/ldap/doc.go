/*
Package ldap is the directory side of ldifutil: it connects to one LDAP
server, binds, and reads a single attribute of a single entry at a time.

# Connecting

NewClient dials the server named by ConnectionConfig.URL. Transport setup
(TCP or SOCKS proxy, then the TLS handshake for ldaps://) runs on its own
goroutine and is bounded by HandshakeTimeout; a connection that completes
after the caller stopped waiting is closed, never returned.

A URL without a host, such as ldaps:///, is resolved through DNS SRV
records for the domain spelled by the dc= components of BaseDN.

TLS certificate validation is controlled per connection through
InsecureSkipVerify, CACertFile and the client certificate settings. Nothing
in this package changes process-wide TLS state.

# Authentication

  - Simple bind with Username/Password (anonymous when both are empty)
  - Kerberos (GSSAPI) from a credential cache, keytab or password
  - External bind with a TLS client certificate (PEM pair or PFX)

# Lookups

Client.Lookup performs a base-scope search for one attribute. A missing
entry is reported through LookupResult.Found rather than as an error.
With DecodeBinary set, objectSid and objectGUID style values are rendered
in their string forms.

# Errors

Every failure is a *DirectoryError carrying the Phase it happened in.
Errors outside PhaseSearch are fatal for a comparison run.
*/
package ldap
