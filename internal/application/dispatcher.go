package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/IniZio/skygear-sdk-go/internal/codec"
	"github.com/IniZio/skygear-sdk-go/internal/domain"
	"github.com/IniZio/skygear-sdk-go/internal/logging"
	"github.com/IniZio/skygear-sdk-go/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	headerContentType = "Content-Type"
	headerRequestID   = "X-Skygear-Request-ID"
	contentTypeJSON   = "application/json"
)

const (
	outcomeOK          = "ok"
	outcomeServerError = "server_error"
	outcomeInvalidated = "invalidated"
	outcomeTransport   = "transport_error"
	outcomeMalformed   = "malformed"
)

// Dispatcher sends one logical call per MakeRequest. Calls are independent:
// nothing is queued, merged or retried here.
type Dispatcher struct {
	transport  ports.Transport
	credential func() domain.Credential
	endpoint   func() string
	session    *Session
	limiter    *rate.Limiter
	metrics    *metrics
	clock      ports.Clock
	log        logging.Logger
}

type errorEnvelope struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Code    float64 `json:"code"`
	Message string  `json:"message"`
}

func newDispatcher(cfg Config, credential func() domain.Credential, endpoint func() string, session *Session, m *metrics) *Dispatcher {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Dispatcher{
		transport:  cfg.Transport,
		credential: credential,
		endpoint:   endpoint,
		session:    session,
		limiter:    limiter,
		metrics:    m,
		clock:      cfg.Clock,
		log:        cfg.Logger.With("component", "dispatcher"),
	}
}

// ActionPath maps "hello:world" to "hello/world".
func ActionPath(action string) string {
	return strings.ReplaceAll(action, ":", "/")
}

// MakeRequest attaches the credential as it is at send time, so a token
// cleared while the call is in flight only affects later calls.
func (d *Dispatcher) MakeRequest(ctx context.Context, action string, params map[string]any) (any, error) {
	credential := d.credential()
	url := d.endpoint() + ActionPath(action)

	payload := make(map[string]any, len(params)+3)
	for key, value := range params {
		payload[key] = value
	}
	payload["action"] = action
	payload["api_key"] = credential.APIKey
	if credential.AccessToken != "" {
		payload["access_token"] = credential.AccessToken
	}

	encoded, err := codec.EncodeParams(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode params: %w", action, err)
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal params: %w", action, err)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: wait for rate limit: %w", action, err)
		}
	}

	header := http.Header{}
	header.Set(headerContentType, contentTypeJSON)
	header.Set(headerRequestID, uuid.NewString())

	start := d.clock.Now()
	resp, err := d.transport.Do(ctx, ports.Request{
		Method: http.MethodPost,
		URL:    url,
		Header: header,
		Body:   body,
	})
	d.metrics.duration.WithLabelValues(action).Observe(d.clock.Now().Sub(start).Seconds())
	if err != nil {
		d.metrics.requests.WithLabelValues(action, outcomeTransport).Inc()
		d.log.Warn(ctx, "request failed", "action", action, "err", err)
		return nil, &TransportError{Action: action, Err: err}
	}

	return d.handleResponse(ctx, action, resp)
}

func (d *Dispatcher) handleResponse(ctx context.Context, action string, resp ports.Response) (any, error) {
	success := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices

	var envelope map[string]json.RawMessage
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, &envelope); err != nil && success {
			d.metrics.requests.WithLabelValues(action, outcomeMalformed).Inc()
			return nil, fmt.Errorf("%s: %w: %v", action, ErrMalformedResponse, err)
		}
	}

	if raw, ok := envelope["error"]; ok && !isJSONNull(raw) {
		var env errorEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			d.metrics.requests.WithLabelValues(action, outcomeMalformed).Inc()
			return nil, fmt.Errorf("%s: %w: error envelope: %v", action, ErrMalformedResponse, err)
		}
		return nil, d.serverError(ctx, action, resp.StatusCode, env)
	}

	if !success {
		d.metrics.requests.WithLabelValues(action, outcomeServerError).Inc()
		return nil, &ServerError{
			Name:    "UnexpectedError",
			Code:    CodeUnexpectedError,
			Message: fmt.Sprintf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			Status:  resp.StatusCode,
		}
	}

	d.metrics.requests.WithLabelValues(action, outcomeOK).Inc()

	raw, ok := envelope["result"]
	if !ok || isJSONNull(raw) {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", action, ErrMalformedResponse, err)
	}
	decoded, err := codec.Decode(result)
	if err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", action, err)
	}
	return decoded, nil
}

func (d *Dispatcher) serverError(ctx context.Context, action string, status int, env errorEnvelope) error {
	name := env.Name
	if name == "" {
		name = env.Type
	}
	serverErr := &ServerError{Name: name, Code: int(env.Code), Message: env.Message, Status: status}

	if serverErr.Code != CodeAccessTokenNotAccepted {
		d.metrics.requests.WithLabelValues(action, outcomeServerError).Inc()
		return serverErr
	}

	d.metrics.requests.WithLabelValues(action, outcomeInvalidated).Inc()
	d.metrics.invalidations.Inc()
	d.log.Info(ctx, "access token not accepted, clearing session", "action", action)
	d.session.Invalidate(context.WithoutCancel(ctx))

	return serverErr
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
