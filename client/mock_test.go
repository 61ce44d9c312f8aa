package client_test

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/adamwoolhether/s3exec/client"
	"github.com/adamwoolhether/s3exec/pool"
	"github.com/adamwoolhether/s3exec/signer"
	"github.com/adamwoolhether/s3exec/transport"
)

// testCredentials returns a static credentials source.
func testCredentials() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "secret",
		}, nil
	})
}

// mockSigner scripts the three signing steps. Callbacks fire
// synchronously so tests stay deterministic.
type mockSigner struct {
	signableErr error // fail NewSignable
	submitErr   error // fail SignAsync itself
	signErr     error // deliver a signer failure via the callback
	applyErr    error // fail Result.Apply

	mu        sync.Mutex
	gotConfig signer.Config
	signables int
}

func (s *mockSigner) NewSignable(req *http.Request) (signer.Signable, error) {
	if s.signableErr != nil {
		return nil, s.signableErr
	}

	s.mu.Lock()
	s.signables++
	s.mu.Unlock()

	return &mockSignable{msg: req}, nil
}

func (s *mockSigner) SignAsync(_ context.Context, _ signer.Signable, cfg signer.Config, fn func(signer.Result, error)) error {
	s.mu.Lock()
	s.gotConfig = cfg
	s.mu.Unlock()

	if s.submitErr != nil {
		return s.submitErr
	}
	if s.signErr != nil {
		fn(nil, s.signErr)
		return nil
	}

	fn(&mockResult{applyErr: s.applyErr}, nil)

	return nil
}

func (s *mockSigner) config() signer.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gotConfig
}

type mockSignable struct {
	msg *http.Request
}

func (s *mockSignable) Message() *http.Request {
	return s.msg
}

type mockResult struct {
	applyErr error
}

func (r *mockResult) Apply(req *http.Request) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	req.Header.Set("Authorization", "AWS4-HMAC-SHA256 test")

	return nil
}

// mockPool hands out a scripted connection, or an error, synchronously.
type mockPool struct {
	conn transport.Connection
	err  error

	mu        sync.Mutex
	acquires  int
	onDone    func()
	shutdowns int
}

func (p *mockPool) Acquire(_ context.Context, fn pool.AcquireFunc) {
	p.mu.Lock()
	p.acquires++
	p.mu.Unlock()

	if p.err != nil {
		fn(nil, p.err)
		return
	}
	fn(p.conn, nil)
}

// Shutdown captures the callback so tests control when the pool reports
// drained.
func (p *mockPool) Shutdown(fn func()) {
	p.mu.Lock()
	p.shutdowns++
	p.onDone = fn
	p.mu.Unlock()
}

func (p *mockPool) acquireCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquires
}

func (p *mockPool) shutdownCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdowns
}

// finishDrain invokes the captured pool shutdown callback, simulating the
// pool finishing its drain.
func (p *mockPool) finishDrain() {
	p.mu.Lock()
	fn := p.onDone
	p.onDone = nil
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// streamEvent scripts one wire-level event delivered by mockStream.
type streamEvent struct {
	kind    string // "headers", "blockDone", "body", "complete"
	block   transport.HeaderBlock
	headers []transport.Header
	body    []byte
	err     error
}

// mockConn produces mockStreams that replay scripted events on Activate.
type mockConn struct {
	sendErr     error
	activateErr error
	events      []streamEvent
}

func (c *mockConn) SendRequest(req *http.Request, h transport.Handler) (transport.Stream, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}

	return &mockStream{conn: c, handler: h}, nil
}

func (c *mockConn) Close() error { return nil }

type mockStream struct {
	conn    *mockConn
	handler transport.Handler
}

// Activate replays the scripted events synchronously. A handler error
// aborts the replay the way a real transport would.
func (s *mockStream) Activate() error {
	if s.conn.activateErr != nil {
		return s.conn.activateErr
	}

	for _, ev := range s.conn.events {
		switch ev.kind {
		case "headers":
			if err := s.handler.OnHeaders(ev.block, ev.headers); err != nil {
				s.handler.OnComplete(err)
				return nil
			}
		case "blockDone":
			if err := s.handler.OnHeaderBlockDone(ev.block); err != nil {
				s.handler.OnComplete(err)
				return nil
			}
		case "body":
			if err := s.handler.OnBody(ev.body); err != nil {
				s.handler.OnComplete(err)
				return nil
			}
		case "complete":
			s.handler.OnComplete(ev.err)
		}
	}

	return nil
}

func (s *mockStream) StatusCode() int { return http.StatusOK }

// okEvents scripts a successful exchange: headers, block done, one body
// chunk, then clean completion.
func okEvents() []streamEvent {
	return []streamEvent{
		{kind: "headers", block: transport.HeaderBlockMain, headers: []transport.Header{{Name: "Etag", Value: `"abc"`}}},
		{kind: "blockDone", block: transport.HeaderBlockMain},
		{kind: "body", body: []byte("hello world")},
		{kind: "complete"},
	}
}

// recordingHandler accumulates the event sequence a request observes.
type recordingHandler struct {
	mu     sync.Mutex
	events []string
	body   []byte

	headersErr error
	bodyErr    error
}

func (h *recordingHandler) OnHeaders(block transport.HeaderBlock, headers []transport.Header) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "headers:"+block.String())

	return h.headersErr
}

func (h *recordingHandler) OnHeaderBlockDone(block transport.HeaderBlock) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "blockDone:"+block.String())

	return nil
}

func (h *recordingHandler) OnBody(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "body")
	h.body = append(h.body, data...)

	return h.bodyErr
}

func (h *recordingHandler) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *recordingHandler) bodyString() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return string(h.body)
}

// finishRecorder captures terminal notifications.
type finishRecorder struct {
	mu    sync.Mutex
	count int
	err   error
}

func (f *finishRecorder) fn(_ *client.Request, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	f.err = err
}

func (f *finishRecorder) state() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.err
}
