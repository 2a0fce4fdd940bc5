package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"h12.io/socks"
)

// dialFunc establishes a transport connection. It may ignore ctx; the
// caller enforces the deadline.
type dialFunc func(ctx context.Context) (net.Conn, error)

type dialResult struct {
	conn net.Conn
	err  error
}

// dialWithDeadline runs dial on its own goroutine and waits at most
// timeout for it. When the wait ends first, ErrHandshakeTimeout (or the
// parent context's error) is returned and a connection that completes
// later is closed instead of being handed out.
func dialWithDeadline(ctx context.Context, timeout time.Duration, dial dialFunc) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan dialResult, 1)
	go func() {
		conn, err := dial(dialCtx)
		done <- dialResult{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		return r.conn, r.err
	case <-dialCtx.Done():
	}

	go discardLate(ctx, done)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w after %s", ErrHandshakeTimeout, timeout)
}

func discardLate(ctx context.Context, done <-chan dialResult) {
	r := <-done
	if r.conn == nil {
		return
	}
	_ = r.conn.Close()
	LogConnectionEvent(ctx, "late_connection_discarded", map[string]any{
		"remote_addr": r.conn.RemoteAddr().String(),
	})
}

// transportDialer builds the dialFunc for a server: TCP directly or via a
// SOCKS proxy, followed by a TLS handshake for ldaps.
func transportDialer(server *ServerInfo, cfg *ConnectionConfig, tlsConfig *tls.Config) dialFunc {
	return func(ctx context.Context) (net.Conn, error) {
		var (
			conn net.Conn
			err  error
		)

		if cfg.SOCKSProxy != "" {
			conn, err = socks.Dial(cfg.SOCKSProxy)("tcp", server.Address())
		} else {
			var d net.Dialer
			conn, err = d.DialContext(ctx, "tcp", server.Address())
		}
		if err != nil {
			return nil, err
		}

		if !server.UseTLS {
			return conn, nil
		}

		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrHandshakeTimeout
			}
			return nil, fmt.Errorf("TLS handshake with %s: %w", server.Address(), err)
		}
		return tlsConn, nil
	}
}
