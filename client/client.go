package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/s3exec/pool"
	"github.com/adamwoolhether/s3exec/signer"
	"github.com/adamwoolhether/s3exec/transport"
)

// DefaultPort is the endpoint port used when none is configured.
const DefaultPort = 443

const tracerName = "github.com/adamwoolhether/s3exec/client"

// config is the assembled client configuration checked by [Build] before
// anything is allocated.
type config struct {
	Bootstrap   *transport.Bootstrap    `json:"bootstrap"   validate:"required"`
	Credentials aws.CredentialsProvider `json:"credentials" validate:"required"`
	Region      string                  `json:"region"`
	Endpoint    string                  `json:"endpoint"`
}

// Client is the long-lived, reference-counted handle owning the
// connection pool and credentials source. Many requests may share one
// Client concurrently; the Client lends out connections and credentials
// but does not track its requests.
type Client struct {
	region   string
	endpoint string
	scheme   string

	pool        ConnectionPool
	credentials aws.CredentialsProvider
	signer      Signer
	logger      *slog.Logger
	metrics     *Collector
	tracer      trace.Tracer

	shutdownFn ShutdownFunc

	refCount atomic.Int64
	// shutdownWait counts owned subsystems still shutting down; the
	// decrement that reaches zero fires the shutdown notification.
	shutdownWait atomic.Int64
}

// Build constructs a Client from the provided options. Bootstrap and
// credentials are required; a configuration failure reports
// [ErrInvalidConfig] and allocates nothing observable.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	cfg := config{
		Bootstrap:   opts.bootstrap,
		Credentials: opts.credentials,
		Region:      opts.region,
		Endpoint:    opts.endpoint,
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	client := &Client{
		region:      cfg.Region,
		endpoint:    cfg.Endpoint,
		scheme:      "https",
		credentials: cfg.Credentials,
		signer:      signer.NewV4(),
		logger:      slog.Default(),
		metrics:     opts.metrics,
		tracer:      otel.Tracer(tracerName),
		shutdownFn:  opts.shutdownFn,
	}
	client.refCount.Store(1)

	if opts.scheme != "" {
		client.scheme = opts.scheme
	}
	if opts.logger != nil {
		client.logger = opts.logger
	}
	if opts.signer != nil {
		client.signer = opts.signer
	}

	if opts.pool != nil {
		client.pool = opts.pool
	} else {
		hostport := client.hostport(opts.port)
		dial := func(ctx context.Context) (transport.Connection, error) {
			return cfg.Bootstrap.Connect(ctx, client.scheme, hostport)
		}

		poolOpts := []pool.Option{pool.WithLogger(client.logger)}
		if opts.maxConns != nil {
			poolOpts = append(poolOpts, pool.WithMaxConnections(*opts.maxConns))
		}
		if opts.connectTimeout != nil {
			poolOpts = append(poolOpts, pool.WithConnectTimeout(*opts.connectTimeout))
		}
		if opts.throttle != nil {
			poolOpts = append(poolOpts, pool.WithThrottle(opts.throttle.rps, opts.throttle.burst))
		}

		p, err := pool.New(dial, poolOpts...)
		if err != nil {
			// Nothing owned has been started yet; dropping the
			// half-built client is the whole rollback.
			return nil, fmt.Errorf("constructing connection pool: %w", err)
		}
		client.pool = p
	}

	// The pool is the one owned subsystem whose shutdown the client
	// must wait for.
	client.shutdownWait.Store(1)

	return client, nil
}

// Region returns the region the client signs for.
func (c *Client) Region() string {
	return c.region
}

// Endpoint returns the endpoint host the client connects to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Acquire takes an additional reference on the client. It never fails.
func (c *Client) Acquire() {
	c.refCount.Add(1)
}

// Release drops one reference. When the last reference is gone the
// client releases its credentials handle and begins asynchronous pool
// shutdown; final teardown is signaled by the shutdown notification, not
// by Release returning.
func (c *Client) Release() {
	if c.refCount.Add(-1) > 0 {
		return
	}

	c.credentials = nil
	c.pool.Shutdown(c.onSubsystemShutdown)
}

// onSubsystemShutdown is invoked by each owned subsystem's shutdown
// notification. The decrement that reaches zero is the only path that
// fires the caller's shutdown notification, so it runs exactly once.
func (c *Client) onSubsystemShutdown() {
	if c.shutdownWait.Add(-1) > 0 {
		return
	}

	if c.shutdownFn != nil {
		c.shutdownFn()
	}
}

// hostport joins the endpoint with the configured or default port,
// leaving endpoints that already carry a port untouched. Bare IPv6
// literals are bracketed.
func (c *Client) hostport(port *int) string {
	if _, _, err := net.SplitHostPort(c.endpoint); err == nil {
		return c.endpoint
	}

	p := DefaultPort
	if port != nil {
		p = *port
	} else if c.scheme == "http" {
		p = 80
	}

	return net.JoinHostPort(c.endpoint, strconv.Itoa(p))
}
