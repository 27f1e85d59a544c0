// Package server turns HTTP requests into calls of path-bound handlers and
// writes their results back to the wire.
//
// A Dispatcher reads the whole body, decodes it as JSON on a best-effort
// basis, resolves a Handler through an immutable Router and serializes the
// Response the handler returns. Handler failures, including panics, never
// escape a single request.
package server

import (
	"context"
	"strings"
)

// Request is the transient view of one HTTP request handed to a Handler.
type Request struct {
	// Path is the URL path with leading and trailing slashes trimmed.
	Path string
	// Query holds the first value of each query parameter.
	Query map[string]string
	// Method is lower-case ("get", "post", ...).
	Method string
	// Headers are keyed by lower-case header name.
	Headers map[string]string
	// Payload is the decoded JSON body, or an empty map when the body is
	// absent or is not a JSON object.
	Payload map[string]any

	ctx context.Context
}

// Context returns the request context. It is canceled when the client goes away.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Header returns the value of the named header, case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}
