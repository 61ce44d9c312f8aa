package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// Bootstrap owns the dialing and TLS capability used to establish new
// connections. One Bootstrap is typically shared by every client in a
// process.
type Bootstrap struct {
	dialer *net.Dialer
	tls    *tls.Config
}

// BootstrapOption is a functional option for configuring a [Bootstrap]
// via [NewBootstrap].
type BootstrapOption func(*Bootstrap)

// WithDialer replaces the default [net.Dialer].
func WithDialer(d *net.Dialer) BootstrapOption {
	return func(b *Bootstrap) {
		b.dialer = d
	}
}

// WithTLSConfig sets the TLS configuration used for https connections.
func WithTLSConfig(cfg *tls.Config) BootstrapOption {
	return func(b *Bootstrap) {
		b.tls = cfg
	}
}

// NewBootstrap creates a Bootstrap with the provided options.
func NewBootstrap(opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{
		dialer: &net.Dialer{KeepAlive: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Connect establishes a connection to host. The TCP dial happens here,
// honoring ctx's deadline, so that connect failures surface at
// acquisition time rather than mid-request. host must include a port.
func (b *Bootstrap) Connect(ctx context.Context, scheme, host string) (Connection, error) {
	raw, err := b.dialer.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", host, err)
	}

	return newConn(scheme, host, raw, b.dialer, b.tls), nil
}
