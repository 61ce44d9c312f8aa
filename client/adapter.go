package client

import (
	"github.com/adamwoolhether/s3exec/transport"
)

// streamAdapter translates wire-level stream events into the owning
// request's bookkeeping. It is pure routing: the transport's calling
// convention never leaks into request logic, so the transport can be
// swapped without touching the state machine.
type streamAdapter struct {
	req *Request
}

var _ transport.Handler = (*streamAdapter)(nil)

func (a *streamAdapter) OnHeaders(block transport.HeaderBlock, headers []transport.Header) error {
	return a.req.incomingHeaders(block, headers)
}

func (a *streamAdapter) OnHeaderBlockDone(block transport.HeaderBlock) error {
	return a.req.incomingHeaderBlockDone(block)
}

func (a *streamAdapter) OnBody(data []byte) error {
	return a.req.incomingBody(data)
}

func (a *streamAdapter) OnComplete(err error) {
	a.req.streamComplete(err)
}
