package client

import (
	"context"
	"net/http"

	"github.com/adamwoolhether/s3exec/pool"
	"github.com/adamwoolhether/s3exec/signer"
	"github.com/adamwoolhether/s3exec/transport"
)

// ServiceName is the service identifier used in the signing scope.
const ServiceName = "s3"

// State identifies where a [Request] is in its lifecycle. Stages are
// strictly sequential for one request; any state may jump straight to
// [StateFinished] on error.
type State int32

const (
	StateCreated State = iota
	StateSigning
	StateAcquiringConnection
	StateSending
	StateStreamingResponse
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSigning:
		return "signing"
	case StateAcquiringConnection:
		return "acquiring_connection"
	case StateSending:
		return "sending"
	case StateStreamingResponse:
		return "streaming_response"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// ConnectionPool is the contract the client consumes from its pool.
// *[pool.Pool] satisfies it.
type ConnectionPool interface {
	Acquire(ctx context.Context, fn pool.AcquireFunc)
	Shutdown(fn func())
}

// Signer is the contract the client consumes from its signing
// collaborator. *[signer.V4] satisfies it.
type Signer interface {
	NewSignable(req *http.Request) (signer.Signable, error)
	SignAsync(ctx context.Context, sg signer.Signable, cfg signer.Config, fn func(signer.Result, error)) error
}

// ResponseHandler is the caller-owned accumulation logic a [Request]
// forwards response events to. Returning an error from any method aborts
// the stream. A nil handler discards all events.
type ResponseHandler interface {
	OnHeaders(block transport.HeaderBlock, headers []transport.Header) error
	OnHeaderBlockDone(block transport.HeaderBlock) error
	OnBody(data []byte) error
}

// FinishFunc is the terminal-completion notification for one [Request].
// It fires exactly once; err is nil on success. After it fires, the
// request may safely be discarded.
type FinishFunc func(req *Request, err error)

// ShutdownFunc is the client's shutdown-complete notification. It fires
// exactly once, after every owned subsystem has confirmed shutdown.
type ShutdownFunc func()
