package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

const defaultTimeout = 10 * time.Second

// TokenSource yields the bearer token for outgoing requests. An empty token
// means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTokenSource attaches the source of bearer tokens.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithUnauthorizedHandler registers the hook run on every 401 response.
func WithUnauthorizedHandler(fn func(context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithMetrics records per-endpoint call counts and latency.
func WithMetrics(m *metrics.PortalMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client talks to the remote clinic API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	logger         *logging.Logger
	tokens         TokenSource
	onUnauthorized func(context.Context)
	metrics        *metrics.PortalMetrics
	tracer         trace.Tracer
}

// New constructs a Client rooted at baseURL (e.g. http://localhost:5000/api).
func New(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		logger:     logger,
		tracer:     otel.Tracer("clinicportal.internal.apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// adminToken returns the held token for endpoints that take it as a query
// parameter.
func (c *Client) adminToken() (string, error) {
	tok := c.token()
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// envelope is the status wrapper every JSON response carries.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) message() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Message != "" {
		return e.Message
	}
	return fallbackMessage
}

func (c *Client) get(ctx context.Context, name, path string, q url.Values, out interface{}) error {
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	_, err := c.do(ctx, name, http.MethodGet, path, nil, out)
	return err
}

func (c *Client) doJSON(ctx context.Context, name, method, path string, body interface{}, out interface{}) error {
	_, err := c.do(ctx, name, method, path, body, out)
	return err
}

// do issues the request and classifies the outcome. When out is nil the raw
// body is returned undecoded.
func (c *Client) do(ctx context.Context, name, method, path string, body interface{}, out interface{}) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "apiclient."+name, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("clinic.endpoint", name),
	))
	defer span.End()

	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.ObserveAPICall(name, outcome, time.Since(start).Seconds())
	}()

	fail := func(err error, kind string) ([]byte, error) {
		outcome = kind
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(fmt.Errorf("marshal request: %w", err), "transport")
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err), "transport")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("clinic API request failed", "endpoint", name, "error", err)
		return fail(fmt.Errorf("%w: %v", ErrTransport, err), "transport")
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("%w: read response: %v", ErrTransport, err), "transport")
	}

	var env envelope
	if len(respBody) > 0 && isJSON(resp) {
		_ = json.Unmarshal(respBody, &env)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Info("clinic API rejected credentials", "endpoint", name)
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return fail(ErrUnauthorized, "unauthorized")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.message()
		c.logger.Warn("clinic API non-2xx response", "endpoint", name, "status", resp.StatusCode, "message", msg)
		return fail(&APIError{Status: resp.StatusCode, Message: msg}, "http_error")
	}
	if env.Success != nil && !*env.Success {
		return fail(&RejectedError{Message: env.message()}, "rejected")
	}

	if out == nil {
		return respBody, nil
	}
	if len(respBody) == 0 {
		return respBody, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fail(fmt.Errorf("decode response: %w", err), "transport")
	}
	return respBody, nil
}

func isJSON(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	return ct == "" || strings.Contains(ct, "json")
}

// IsAuthError reports whether err came from a 401 or a missing token.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoToken)
}
