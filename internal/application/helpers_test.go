package application

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testEndPoint = "http://skygear.dev/"

type handlerFunc func(params map[string]any) (int, any)

type recordedRequest struct {
	URL    string
	Header http.Header
	Params map[string]any
}

// fakeBackend answers requests by action path, e.g. "role/get".
type fakeBackend struct {
	t        *testing.T
	mu       sync.Mutex
	handlers map[string]handlerFunc
	requests []recordedRequest
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	return &fakeBackend{t: t, handlers: map[string]handlerFunc{}}
}

func (b *fakeBackend) handle(path string, fn handlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[path] = fn
}

func (b *fakeBackend) result(path string, result any) {
	b.handle(path, func(map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"result": result}
	})
}

func (b *fakeBackend) Do(_ context.Context, req ports.Request) (ports.Response, error) {
	var params map[string]any
	if err := json.Unmarshal(req.Body, &params); err != nil {
		b.t.Errorf("request body is not a JSON object: %v", err)
	}

	path := strings.TrimPrefix(req.URL, testEndPoint)

	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{URL: req.URL, Header: req.Header, Params: params})
	handler, ok := b.handlers[path]
	b.mu.Unlock()

	if !ok {
		return ports.Response{StatusCode: http.StatusNotFound}, nil
	}

	status, body := handler(params)
	raw, err := json.Marshal(body)
	if err != nil {
		return ports.Response{}, err
	}
	return ports.Response{StatusCode: status, Body: raw}, nil
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, req := range b.requests {
		if req.URL == testEndPoint+path {
			n++
		}
	}
	return n
}

func (b *fakeBackend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	require.NotEmpty(b.t, b.requests)
	return b.requests[len(b.requests)-1]
}

func newTestContainer(t *testing.T, transport ports.Transport) *Container {
	t.Helper()

	cfg := DefaultConfig()
	cfg.APIKey = "correctApiKey"
	cfg.Transport = transport
	cfg.Metrics = prometheus.NewRegistry()

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

// signIn installs a session without going through the auth endpoints.
func signIn(t *testing.T, c *Container, token string, user *domain.Record) {
	t.Helper()

	ctx := context.Background()
	c.Session().SetAccessToken(ctx, token)
	c.Session().SetUser(ctx, user)
	require.NoError(t, c.Session().WaitListeners(ctx))
}

func serverErrorBody(name string, code int, message string) map[string]any {
	return map[string]any{"error": map[string]any{"name": name, "code": code, "message": message}}
}

// counterValue sums every series of the named counter family.
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func mockAnyContext() interface{} {
	return mock.Anything
}
