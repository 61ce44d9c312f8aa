package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"sync/atomic"
)

const bodyChunkSize = 32 * 1024

// conn is the default Connection, backed by a dedicated single-connection
// [http.Transport]. The pre-dialed socket from [Bootstrap.Connect] is
// consumed by the first exchange; if the server closes it between
// exchanges, the next one redials transparently.
type conn struct {
	scheme string
	host   string
	rt     *http.Transport
	closed atomic.Bool
}

func newConn(scheme, host string, raw net.Conn, dialer *net.Dialer, tlsCfg *tls.Config) *conn {
	first := make(chan net.Conn, 1)
	first <- raw

	rt := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			select {
			case c := <-first:
				return c, nil
			default:
				return dialer.DialContext(ctx, network, addr)
			}
		},
		TLSClientConfig:   tlsCfg,
		MaxConnsPerHost:   1,
		MaxIdleConns:      1,
		ForceAttemptHTTP2: false,
	}

	return &conn{
		scheme: scheme,
		host:   host,
		rt:     rt,
	}
}

func (c *conn) SendRequest(req *http.Request, h Handler) (Stream, error) {
	if req == nil || req.URL == nil {
		return nil, ErrNilRequest
	}
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	// Route the message over this connection regardless of what the
	// message URL says; the pool scoped us to one endpoint already.
	cpy := req.Clone(req.Context())
	cpy.URL.Scheme = c.scheme
	cpy.URL.Host = c.host

	return &httpStream{
		rt:      c.rt,
		req:     cpy,
		handler: h,
	}, nil
}

func (c *conn) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.rt.CloseIdleConnections()
	}

	return nil
}

// httpStream runs one exchange, decomposing the response into the four
// handler events.
type httpStream struct {
	rt        http.RoundTripper
	req       *http.Request
	handler   Handler
	activated atomic.Bool
	status    atomic.Int32
}

func (s *httpStream) Activate() error {
	if !s.activated.CompareAndSwap(false, true) {
		return ErrStreamActivated
	}

	go s.run()

	return nil
}

func (s *httpStream) StatusCode() int {
	return int(s.status.Load())
}

func (s *httpStream) run() {
	resp, err := s.rt.RoundTrip(s.req)
	if err != nil {
		s.handler.OnComplete(fmt.Errorf("round trip: %w", err))
		return
	}
	defer resp.Body.Close()

	s.status.Store(int32(resp.StatusCode))

	if err := s.handler.OnHeaders(HeaderBlockMain, flatten(resp.Header)); err != nil {
		s.handler.OnComplete(fmt.Errorf("%w: %w", ErrStreamAborted, err))
		return
	}
	if err := s.handler.OnHeaderBlockDone(HeaderBlockMain); err != nil {
		s.handler.OnComplete(fmt.Errorf("%w: %w", ErrStreamAborted, err))
		return
	}

	buf := make([]byte, bodyChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if err := s.handler.OnBody(buf[:n]); err != nil {
				s.handler.OnComplete(fmt.Errorf("%w: %w", ErrStreamAborted, err))
				return
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			s.handler.OnComplete(fmt.Errorf("reading body: %w", rerr))
			return
		}
	}

	// Trailers only materialize after the body is fully read.
	if len(resp.Trailer) > 0 {
		if err := s.handler.OnHeaders(HeaderBlockTrailing, flatten(resp.Trailer)); err != nil {
			s.handler.OnComplete(fmt.Errorf("%w: %w", ErrStreamAborted, err))
			return
		}
		if err := s.handler.OnHeaderBlockDone(HeaderBlockTrailing); err != nil {
			s.handler.OnComplete(fmt.Errorf("%w: %w", ErrStreamAborted, err))
			return
		}
	}

	s.handler.OnComplete(nil)
}

// flatten converts an http.Header map to the wire event form, ordered by
// name so delivery is deterministic.
func flatten(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Header
	for _, name := range names {
		for _, v := range h[name] {
			out = append(out, Header{Name: name, Value: v})
		}
	}

	return out
}
