// Package pool provides a bounded, asynchronous connection pool scoped to
// a single endpoint.
//
// Connections are acquired with a callback rather than a blocking call:
//
//	p, err := pool.New(dial, pool.WithMaxConnections(10))
//	p.Acquire(ctx, func(conn transport.Connection, err error) {
//		// use conn for one exchange
//	})
//
// A connection handed out by Acquire returns to the pool on its own when
// the stream sent over it completes; callers never return it explicitly.
//
// Shutdown is two-phase: [Pool.Shutdown] marks the pool down and closes
// idle connections, and the supplied callback fires exactly once when the
// last outstanding connection has drained.
package pool
