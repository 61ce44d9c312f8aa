// Package client provides the asynchronous request execution core for
// an S3 protocol client: signing, pooled connection acquisition, wire
// send and response streaming, driven entirely by callbacks.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. Bootstrap
// and credentials are required:
//
//	c, err := client.Build(
//		client.WithBootstrap(transport.NewBootstrap()),
//		client.WithCredentials(creds),
//		client.WithRegion("us-east-1"),
//		client.WithEndpoint("s3.amazonaws.com"),
//	)
//
// # Submitting Requests
//
// A [Request] wraps one outbound message, a caller-owned
// [ResponseHandler] for accumulating the response, and a [FinishFunc]
// that fires exactly once when the attempt reaches its terminal state:
//
//	req := client.NewRequest(c, msg, handler, func(r *client.Request, err error) {
//		// r is safe to discard; err carries the terminal code
//	})
//	if err := c.Submit(ctx, req); err != nil { ... }
//
// Submit returns once the pipeline has started; all slow work (signing,
// connection acquisition, the exchange itself) completes through
// callbacks. A request represents a single attempt: there is no retry,
// and every failure path funnels into the one finish notification.
//
// # Shutdown
//
// Clients are reference counted. [Client.Release] dropping the last
// reference starts asynchronous teardown of the owned connection pool;
// the shutdown function passed via [WithShutdownFunc], not Release
// itself, signals that teardown is complete.
package client
