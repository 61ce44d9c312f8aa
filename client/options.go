package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/adamwoolhether/s3exec/transport"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error

type options struct {
	bootstrap      *transport.Bootstrap
	credentials    aws.CredentialsProvider
	region         string
	endpoint       string
	scheme         string
	port           *int
	maxConns       *int
	connectTimeout *time.Duration
	throttle       *throttleConfig
	shutdownFn     ShutdownFunc
	logger         *slog.Logger
	signer         Signer
	pool           ConnectionPool
	metrics        *Collector
}

type throttleConfig struct {
	rps   int
	burst int
}

// WithBootstrap sets the dial/TLS capability new connections are
// established with. Required.
func WithBootstrap(b *transport.Bootstrap) Option {
	return func(o *options) error {
		if b == nil {
			return errors.New("bootstrap must not be nil")
		}
		o.bootstrap = b
		return nil
	}
}

// WithCredentials sets the credentials source requests are signed with.
// Required.
func WithCredentials(creds aws.CredentialsProvider) Option {
	return func(o *options) error {
		if creds == nil {
			return errors.New("credentials provider must not be nil")
		}
		o.credentials = creds
		return nil
	}
}

// WithRegion sets the signing region.
func WithRegion(region string) Option {
	return func(o *options) error {
		o.region = region
		return nil
	}
}

// WithEndpoint sets the endpoint host the client connects to. A bare
// host is joined with the configured or default port.
func WithEndpoint(endpoint string) Option {
	return func(o *options) error {
		o.endpoint = endpoint
		return nil
	}
}

// WithScheme overrides the default "https" scheme.
func WithScheme(scheme string) Option {
	return func(o *options) error {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("unsupported scheme %q", scheme)
		}
		o.scheme = scheme
		return nil
	}
}

// WithPort overrides the default endpoint port.
func WithPort(port int) Option {
	return func(o *options) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("port[%d] out of range", port)
		}
		o.port = &port
		return nil
	}
}

// WithMaxConnections bounds the connection pool. Defaults to
// [pool.DefaultMaxConnections].
func WithMaxConnections(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("max connections must be greater than zero")
		}
		o.maxConns = &n
		return nil
	}
}

// WithConnectTimeout caps connection establishment. Defaults to
// [pool.DefaultConnectTimeout].
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("connect timeout must not be negative")
		}
		o.connectTimeout = &d
		return nil
	}
}

// WithThrottle rate-limits new connection dials with a token bucket of
// rps per second and the given burst.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] must be greater than zero", rps, burst)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithShutdownFunc registers the notification fired once the client and
// every owned subsystem have finished shutting down.
func WithShutdownFunc(fn ShutdownFunc) Option {
	return func(o *options) error {
		o.shutdownFn = fn
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithSigner replaces the default SigV4 signer.
func WithSigner(s Signer) Option {
	return func(o *options) error {
		if s == nil {
			return errors.New("signer must not be nil")
		}
		o.signer = s
		return nil
	}
}

// WithConnectionPool replaces the default pool. The client still owns
// the pool it is given: it shuts the pool down when the last reference
// is released.
func WithConnectionPool(p ConnectionPool) Option {
	return func(o *options) error {
		if p == nil {
			return errors.New("connection pool must not be nil")
		}
		o.pool = p
		return nil
	}
}

// WithMetrics attaches a metrics collector to the client.
func WithMetrics(m *Collector) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
