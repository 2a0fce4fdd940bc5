package ldap

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/go-hclog"
	"github.com/jimlambrt/gldap"
	"github.com/stretchr/testify/require"
)

// testDirectory is an in-memory directory served over LDAP by gldap.
type testDirectory struct {
	mu       sync.Mutex
	bindDN   string
	password string
	entries  map[string]map[string][]string
	searches []*gldap.SearchMessage
}

func (d *testDirectory) bind(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewBindResponse(gldap.WithResponseCode(ldap.LDAPResultInvalidCredentials))
	defer func() {
		_ = w.Write(resp)
	}()

	m, err := r.GetSimpleBindMessage()
	if err != nil {
		return
	}
	if strings.EqualFold(m.UserName, d.bindDN) && string(m.Password) == d.password {
		resp.SetResultCode(ldap.LDAPResultSuccess)
	}
}

func (d *testDirectory) search(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewSearchDoneResponse(gldap.WithResponseCode(ldap.LDAPResultNoSuchObject))
	defer func() {
		_ = w.Write(resp)
	}()

	m, err := r.GetSearchMessage()
	if err != nil {
		resp.SetResultCode(ldap.LDAPResultProtocolError)
		return
	}

	d.mu.Lock()
	d.searches = append(d.searches, m)
	d.mu.Unlock()

	var entry map[string][]string
	for dn, e := range d.entries {
		if strings.EqualFold(dn, m.BaseDN) {
			entry = e
		}
	}
	if entry == nil {
		return
	}

	attrs := make(map[string][]string)
	for name, values := range entry {
		for _, want := range m.Attributes {
			if strings.EqualFold(name, want) {
				attrs[name] = values
			}
		}
	}

	_ = w.Write(r.NewSearchResponseEntry(m.BaseDN, gldap.WithAttributes(attrs)))
	resp.SetResultCode(ldap.LDAPResultSuccess)
}

func (d *testDirectory) lastSearch() *gldap.SearchMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.searches) == 0 {
		return nil
	}
	return d.searches[len(d.searches)-1]
}

// startDirectory serves d on a loopback port and returns its ldap:// URL.
func startDirectory(t *testing.T, d *testDirectory) string {
	t.Helper()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "test-directory",
		Level: hclog.Error,
	})

	s, err := gldap.NewServer(gldap.WithLogger(logger))
	require.NoError(t, err)

	mux, err := gldap.NewMux()
	require.NoError(t, err)
	require.NoError(t, mux.Bind(d.bind))
	require.NoError(t, mux.Search(d.search))
	require.NoError(t, s.Router(mux))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	go func() {
		_ = s.Run(addr)
	}()
	t.Cleanup(func() {
		_ = s.Stop()
	})

	require.Eventually(t, s.Ready, 5*time.Second, 10*time.Millisecond)
	return "ldap://" + addr
}
