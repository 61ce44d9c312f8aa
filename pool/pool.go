package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/adamwoolhether/s3exec/transport"
)

const (
	DefaultMaxConnections = 10
	DefaultConnectTimeout = 3 * time.Second
)

var (
	ErrNilDial  = errors.New("dial func must not be nil")
	ErrShutdown = errors.New("pool is shut down")
)

// DialFunc establishes one new connection to the pool's endpoint.
type DialFunc func(ctx context.Context) (transport.Connection, error)

// AcquireFunc receives the outcome of an acquisition attempt. Exactly one
// of conn and err is non-nil.
type AcquireFunc func(conn transport.Connection, err error)

// Pool maintains up to a fixed number of live connections to one
// endpoint. It is safe for concurrent use.
type Pool struct {
	dial           DialFunc
	connectTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
	maxConns       int

	mu          sync.Mutex
	idle        []transport.Connection
	waiters     []*waiter
	live        int
	outstanding int
	down        bool
	notified    bool
	onDone      func()
}

// waiter is an acquisition queued behind a saturated pool. done closes
// when the waiter is resolved, by hand-off, redial or shutdown.
type waiter struct {
	ctx  context.Context
	fn   AcquireFunc
	done chan struct{}
}

// New creates a Pool that dials new connections with dial.
func New(dial DialFunc, optFns ...Option) (*Pool, error) {
	if dial == nil {
		return nil, ErrNilDial
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying pool option: %w", err)
		}
	}

	p := &Pool{
		dial:           dial,
		connectTimeout: DefaultConnectTimeout,
		logger:         slog.Default(),
	}

	p.maxConns = DefaultMaxConnections
	if opts.maxConns != nil {
		p.maxConns = *opts.maxConns
	}

	if opts.connectTimeout != nil {
		p.connectTimeout = *opts.connectTimeout
	}
	if opts.throttle != nil {
		p.limiter = rate.NewLimiter(rate.Limit(opts.throttle.rps), opts.throttle.burst)
	}
	if opts.logger != nil {
		p.logger = opts.logger
	}

	return p, nil
}

// Acquire hands a connection to fn asynchronously, reusing an idle one
// when available and dialing otherwise. fn is invoked exactly once, never
// synchronously from Acquire.
func (p *Pool) Acquire(ctx context.Context, fn AcquireFunc) {
	p.mu.Lock()
	if p.down {
		p.mu.Unlock()
		go fn(nil, ErrShutdown)
		return
	}

	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.outstanding++
		p.mu.Unlock()
		go fn(&pooledConn{inner: conn, pool: p}, nil)
		return
	}

	if p.live < p.maxConns {
		p.live++
		// Count the pending dial so Shutdown waits for it.
		p.outstanding++
		p.mu.Unlock()
		go p.dialAndDeliver(ctx, fn)
		return
	}

	// Every slot is a live connection already checked out; queue until
	// one drains back.
	w := &waiter{ctx: ctx, fn: fn, done: make(chan struct{})}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	go p.watchWaiter(w)
}

// watchWaiter gives a queued acquisition up when its context ends
// before a connection is handed over.
func (p *Pool) watchWaiter(w *waiter) {
	select {
	case <-w.done:
	case <-w.ctx.Done():
		if p.removeWaiter(w) {
			w.fn(nil, w.ctx.Err())
		}
	}
}

func (p *Pool) removeWaiter(w *waiter) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, cand := range p.waiters {
		if cand == w {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}

	return false
}

func (p *Pool) dialAndDeliver(ctx context.Context, fn AcquireFunc) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			p.fail(fn, fmt.Errorf("throttle wait: %w", err))
			return
		}
	}

	dctx := ctx
	if p.connectTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, p.connectTimeout)
		defer cancel()
	}

	conn, err := p.dial(dctx)
	if err != nil {
		p.logger.Error("pool dial failed", "error", err)
		p.fail(fn, fmt.Errorf("dialing connection: %w", err))
		return
	}

	p.mu.Lock()
	down := p.down
	p.mu.Unlock()
	if down {
		conn.Close()
		p.fail(fn, ErrShutdown)
		return
	}

	fn(&pooledConn{inner: conn, pool: p}, nil)
}

// Shutdown marks the pool down, closes idle connections and arranges for
// fn to fire once every outstanding connection has drained. Later Acquire
// calls fail with [ErrShutdown].
func (p *Pool) Shutdown(fn func()) {
	p.mu.Lock()
	if p.down {
		p.mu.Unlock()
		return
	}
	p.down = true
	p.onDone = fn
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, w := range waiters {
		close(w.done)
		go w.fn(nil, ErrShutdown)
	}

	for _, conn := range idle {
		if err := conn.Close(); err != nil {
			p.logger.Error("closing idle connection", "error", err)
		}
	}

	p.mu.Lock()
	p.maybeFinishLocked()
	p.mu.Unlock()
}

// fail reports err to fn after releasing the acquisition's slot and
// drain count. The freed slot can serve a queued waiter with a fresh
// dial.
func (p *Pool) fail(fn AcquireFunc, err error) {
	p.mu.Lock()
	p.live--
	p.outstanding--

	var next *waiter
	if !p.down && len(p.waiters) > 0 {
		next = p.waiters[0]
		p.waiters = p.waiters[1:]
		p.live++
		p.outstanding++
		close(next.done)
	}
	p.maybeFinishLocked()
	p.mu.Unlock()

	if next != nil {
		go p.dialAndDeliver(next.ctx, next.fn)
	}

	fn(nil, err)
}

// giveBack hands a drained connection to the oldest waiter, returns it
// to the idle set, or closes it if the pool is shutting down.
func (p *Pool) giveBack(conn transport.Connection) {
	p.mu.Lock()
	if !p.down {
		if len(p.waiters) > 0 {
			w := p.waiters[0]
			p.waiters = p.waiters[1:]
			p.mu.Unlock()

			// The check-in and the hand-off cancel out, so the
			// outstanding count is untouched.
			close(w.done)
			go w.fn(&pooledConn{inner: conn, pool: p}, nil)
			return
		}

		p.outstanding--
		p.idle = append(p.idle, conn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := conn.Close(); err != nil {
		p.logger.Error("closing connection on shutdown", "error", err)
	}

	p.mu.Lock()
	p.live--
	p.outstanding--
	p.maybeFinishLocked()
	p.mu.Unlock()
}

func (p *Pool) maybeFinishLocked() {
	if !p.down || p.outstanding != 0 || p.notified {
		return
	}
	p.notified = true

	if p.onDone != nil {
		fn := p.onDone
		p.onDone = nil
		go fn()
	}
}

// pooledConn is the checkout wrapper handed to callers. The wrapped
// connection flows back to the pool when the stream sent over it
// completes.
type pooledConn struct {
	inner    transport.Connection
	pool     *Pool
	returned atomic.Bool
}

func (c *pooledConn) SendRequest(req *http.Request, h transport.Handler) (transport.Stream, error) {
	stream, err := c.inner.SendRequest(req, &returnOnComplete{Handler: h, conn: c})
	if err != nil {
		c.release()
		return nil, err
	}

	return stream, nil
}

// Close returns the connection to the pool rather than closing the
// underlying transport; the pool owns transport lifetimes.
func (c *pooledConn) Close() error {
	c.release()
	return nil
}

func (c *pooledConn) release() {
	if c.returned.CompareAndSwap(false, true) {
		c.pool.giveBack(c.inner)
	}
}

// returnOnComplete forwards stream events untouched and releases the
// connection after the terminal event.
type returnOnComplete struct {
	transport.Handler
	conn *pooledConn
}

func (r *returnOnComplete) OnComplete(err error) {
	r.Handler.OnComplete(err)
	r.conn.release()
}
