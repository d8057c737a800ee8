package ports

import (
	"context"
	"net/http"
)

// Request is a single outbound call as seen by a transport.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response carries whatever the server answered, including non-2xx statuses.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request. An error means no response was obtained.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
