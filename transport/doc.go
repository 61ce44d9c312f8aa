// Package transport defines the wire-level contracts the request engine
// consumes (connections, streams and the four response events) plus a
// default implementation built on [net/http].
//
// # Contracts
//
// A [Connection] turns one outbound message into a [Stream]. Activating the
// stream starts the exchange; the response comes back through the four
// methods of [Handler], always ending with OnComplete:
//
//	OnHeaders → OnHeaderBlockDone → OnBody (repeated) → OnComplete
//
// OnHeaders, OnHeaderBlockDone and OnBody return an error to abort the
// stream; the abort surfaces through OnComplete.
//
// # Bootstrap
//
// [Bootstrap] owns the dial and TLS capability used to establish
// connections:
//
//	b := transport.NewBootstrap()
//	conn, err := b.Connect(ctx, "https", "s3.amazonaws.com:443")
//	stream, err := conn.SendRequest(req, handler)
//	err = stream.Activate()
package transport
