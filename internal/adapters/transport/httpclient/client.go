// Package httpclient is the net/http implementation of ports.Transport.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/IniZio/skygear-sdk-go/internal/ports"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxResponseBytes      = 8 << 20
	userAgent             = "skygear-sdk-go"
)

var ErrResponseTooLarge = errors.New("response body exceeds limit")

// Transport sends requests with HTTPClient, or http.DefaultClient when it is
// nil. Calls without a caller deadline are bounded by RequestTimeout.
type Transport struct {
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	// MaxResponseBytes defaults to 8 MiB.
	MaxResponseBytes int64
}

var _ ports.Transport = Transport{}

func (t Transport) Do(ctx context.Context, req ports.Request) (ports.Response, error) {
	if err := validateURL(req.URL); err != nil {
		return ports.Response{}, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	requestCtx, cancel := t.requestContext(ctx)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(requestCtx, method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return ports.Response{}, fmt.Errorf("create request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", userAgent)
	}

	resp, err := t.httpClient().Do(httpReq)
	if err != nil {
		return ports.Response{}, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	limit := t.maxResponseBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return ports.Response{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > limit {
		return ports.Response{}, fmt.Errorf("read response: %w (%d bytes)", ErrResponseTooLarge, limit)
	}

	return ports.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

func (t Transport) httpClient() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return http.DefaultClient
}

func (t Transport) maxResponseBytes() int64 {
	if t.MaxResponseBytes > 0 {
		return t.MaxResponseBytes
	}
	return maxResponseBytes
}

func (t Transport) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := t.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse endpoint url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("endpoint url must use http or https")
	}
	if parsed.Host == "" {
		return errors.New("endpoint url host is required")
	}
	return nil
}
