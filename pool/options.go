package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrMustBePositive = errors.New("must be greater than zero")

// Option is a functional option for configuring a [Pool] via [New].
type Option func(*options) error

type options struct {
	maxConns       *int
	connectTimeout *time.Duration
	throttle       *throttleConfig
	logger         *slog.Logger
}

type throttleConfig struct {
	rps   int
	burst int
}

// WithMaxConnections bounds the number of live connections. Defaults to
// [DefaultMaxConnections].
func WithMaxConnections(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("max connections[%d] %w", n, ErrMustBePositive)
		}
		o.maxConns = &n
		return nil
	}
}

// WithConnectTimeout caps how long a single dial may take. Defaults to
// [DefaultConnectTimeout]; zero disables the cap.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d < 0 {
			return errors.New("connect timeout must not be negative")
		}
		o.connectTimeout = &d
		return nil
	}
}

// WithThrottle rate-limits new dials with a token bucket of rps
// connections per second and the given burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(o *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, ErrMustBePositive)
		}
		o.throttle = &throttleConfig{rps: rps, burst: burst}
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Pool].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}
