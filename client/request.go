package client

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/s3exec/signer"
	"github.com/adamwoolhether/s3exec/transport"
)

// Request carries one outbound message through a single attempt. It is
// created by the caller, driven by the client's callbacks, and must not
// be reused after its finish notification fires.
//
// Stages are strictly sequential, so the mutable fields below are only
// ever touched by the one callback currently owning the request; no
// per-request lock is needed. Only state and the finish guard are read
// concurrently (by observers), hence the atomics.
type Request struct {
	client  *Client
	id      uuid.UUID
	msg     *http.Request
	handler ResponseHandler
	finish  FinishFunc

	ctx      context.Context
	signable signer.Signable
	stream   transport.Stream
	span     trace.Span
	started  time.Time

	state    atomic.Int32
	finished atomic.Bool
	err      error
}

// NewRequest creates a Request referencing c. msg is the outbound
// message; handler receives response events and may be nil; finish is
// the terminal notification and fires exactly once per submitted
// request.
func NewRequest(c *Client, msg *http.Request, handler ResponseHandler, finish FinishFunc) *Request {
	return &Request{
		client:  c,
		id:      uuid.New(),
		msg:     msg,
		handler: handler,
		finish:  finish,
	}
}

// ID returns the request's unique identifier.
func (r *Request) ID() uuid.UUID {
	return r.id
}

// Message returns the outbound message.
func (r *Request) Message() *http.Request {
	return r.msg
}

// State reports where the request is in its lifecycle.
func (r *Request) State() State {
	return State(r.state.Load())
}

// Err returns the terminal error, or nil before the request finishes or
// on success.
func (r *Request) Err() error {
	return r.err
}

// Submit starts the asynchronous pipeline for req: build the signable,
// sign, acquire a connection, send, stream the response, finish. A nil
// return means the pipeline is running and the finish notification will
// fire; a non-nil return reports a local failure, for which the finish
// notification has already fired with the same error.
func (c *Client) Submit(ctx context.Context, req *Request) error {
	if req == nil || req.msg == nil {
		return ErrNilRequest
	}
	if !req.state.CompareAndSwap(int32(StateCreated), int32(StateSigning)) {
		return ErrAlreadySubmitted
	}

	req.ctx = ctx
	req.started = time.Now()
	req.ctx, req.span = c.tracer.Start(ctx, "s3exec.request", trace.WithAttributes(
		attribute.String("request.id", req.id.String()),
		attribute.String("http.method", req.msg.Method),
		attribute.String("s3.region", c.region),
		attribute.String("s3.endpoint", c.endpoint),
	))
	c.metrics.requestStarted(req.msg.Method)

	sg, err := c.signer.NewSignable(req.msg)
	if err != nil {
		err = fmt.Errorf("building signable: %w", err)
		c.logger.Error("could not build signable", "request", req.id, "error", err)
		req.finishWith(err)
		return err
	}
	req.signable = sg

	cfg := signer.Config{
		Algorithm:   signer.AlgorithmV4,
		Credentials: c.credentials,
		Region:      c.region,
		Service:     ServiceName,
		Date:        time.Now().UTC(),
		PayloadHash: signer.UnsignedPayload,
	}

	if err := c.signer.SignAsync(req.ctx, sg, cfg, req.onSigningComplete); err != nil {
		err = fmt.Errorf("submitting sign request: %w", err)
		c.logger.Error("could not submit sign request", "request", req.id, "error", err)
		req.finishWith(err)
		return err
	}

	return nil
}

// onSigningComplete applies the signing result and moves on to
// connection acquisition. An apply failure carries the apply step's own
// error, not the signer's.
func (r *Request) onSigningComplete(res signer.Result, err error) {
	c := r.client

	if err != nil {
		c.logger.Error("signing failed", "request", r.id, "error", err)
		r.finishWith(fmt.Errorf("signing request: %w", err))
		return
	}

	if err := res.Apply(r.msg); err != nil {
		c.logger.Error("could not apply signing result", "request", r.id, "error", err)
		r.finishWith(fmt.Errorf("applying signing result: %w", err))
		return
	}

	r.setState(StateAcquiringConnection, "signed")
	c.pool.Acquire(r.ctx, r.onConnectionAcquired)
}

// onConnectionAcquired issues the wire request over the acquired
// connection with the stream adapter wired in. The connection flows back
// to the pool when the stream completes; the request never returns it
// explicitly.
func (r *Request) onConnectionAcquired(conn transport.Connection, err error) {
	c := r.client

	if err != nil {
		c.logger.Error("could not acquire connection", "request", r.id, "error", err)
		r.finishWith(fmt.Errorf("acquiring connection: %w", err))
		return
	}

	r.setState(StateSending, "connection acquired")

	stream, err := conn.SendRequest(r.msg, &streamAdapter{req: r})
	if err != nil {
		c.logger.Error("could not create stream", "request", r.id, "error", err)
		r.finishWith(fmt.Errorf("creating stream: %w", err))
		return
	}
	r.stream = stream

	// Events may start arriving the moment the stream activates.
	r.setState(StateStreamingResponse, "stream created")

	if err := stream.Activate(); err != nil {
		c.logger.Error("could not activate stream", "request", r.id, "error", err)
		r.finishWith(fmt.Errorf("activating stream: %w", err))
		return
	}
}

func (r *Request) incomingHeaders(block transport.HeaderBlock, headers []transport.Header) error {
	if r.handler == nil {
		return nil
	}
	return r.handler.OnHeaders(block, headers)
}

func (r *Request) incomingHeaderBlockDone(block transport.HeaderBlock) error {
	if r.handler == nil {
		return nil
	}
	return r.handler.OnHeaderBlockDone(block)
}

func (r *Request) incomingBody(data []byte) error {
	if r.handler == nil {
		return nil
	}
	return r.handler.OnBody(data)
}

// streamComplete is always the last stream event; finishing here is
// unconditional, carrying whatever code the transport reported.
func (r *Request) streamComplete(err error) {
	if err != nil {
		r.client.logger.Warn("stream completed with error", "request", r.id, "error", err)
	}

	r.finishWith(err)
}

// finishWith is the single terminal transition. Finishing a request
// twice is a double-completion bug, not a recoverable condition.
func (r *Request) finishWith(err error) {
	if !r.finished.CompareAndSwap(false, true) {
		panic("client: request finished twice")
	}

	stage := State(r.state.Load())
	r.state.Store(int32(StateFinished))
	r.err = err
	r.signable = nil
	r.stream = nil

	c := r.client
	c.metrics.requestFinished(r.msg.Method, stage, err, time.Since(r.started))

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, stage.String())
		} else {
			r.span.SetStatus(codes.Ok, "")
		}
		r.span.End()
	}

	c.logger.Debug("request finished", "request", r.id, "stage", stage.String(), "error", err)

	if r.finish != nil {
		r.finish(r, err)
	}
}

func (r *Request) setState(s State, event string) {
	r.state.Store(int32(s))
	if r.span != nil {
		r.span.AddEvent(event)
	}
}
