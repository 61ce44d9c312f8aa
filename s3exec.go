// Package s3exec exposes the client builder.
package s3exec

import (
	"github.com/adamwoolhether/s3exec/client"
)

// NewClient instantiates a new *Client with the provided options.
// Bootstrap and credentials are required; everything else has defaults.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
