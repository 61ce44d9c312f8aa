package transport

import (
	"errors"
	"net/http"
)

var (
	ErrNilRequest       = errors.New("request must not be nil")
	ErrStreamActivated  = errors.New("stream already activated")
	ErrStreamAborted    = errors.New("stream aborted by handler")
	ErrConnectionClosed = errors.New("connection closed")
)

// HeaderBlock identifies which part of the response a header event
// belongs to.
type HeaderBlock int

const (
	HeaderBlockMain HeaderBlock = iota
	HeaderBlockInformational
	HeaderBlockTrailing
)

func (b HeaderBlock) String() string {
	switch b {
	case HeaderBlockMain:
		return "main"
	case HeaderBlockInformational:
		return "informational"
	case HeaderBlockTrailing:
		return "trailing"
	default:
		return "unknown"
	}
}

// Header is a single response header as delivered on the wire.
type Header struct {
	Name  string
	Value string
}

// Handler receives the response events for one stream. OnHeaders,
// OnHeaderBlockDone and OnBody may return an error to abort the stream;
// OnComplete is always the final event, carrying nil on success or the
// error that ended the exchange.
type Handler interface {
	OnHeaders(block HeaderBlock, headers []Header) error
	OnHeaderBlockDone(block HeaderBlock) error
	OnBody(data []byte) error
	OnComplete(err error)
}

// Stream is one request/response exchange over a connection. Events begin
// flowing only after Activate.
type Stream interface {
	// Activate starts the exchange. It fails if called twice.
	Activate() error

	// StatusCode reports the response status, or 0 if the response
	// headers haven't arrived yet.
	StatusCode() int
}

// Connection issues wire requests. Implementations are handed out by a
// connection pool; a caller holds one only for the duration of a single
// exchange.
type Connection interface {
	// SendRequest creates a stream for req with h wired in. The stream
	// is inert until activated.
	SendRequest(req *http.Request, h Handler) (Stream, error)

	Close() error
}
