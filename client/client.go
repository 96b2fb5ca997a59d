// Package client builds and dispatches requests to the agent-orchestration
// backends: the primary agent service and the independent hook/alert
// service. It normalizes failures into a small error taxonomy and exposes
// the REST and streaming operations the rest of the module consumes.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/c360studio/agentconsole/metrics"
	"github.com/c360studio/agentconsole/transport"
)

// DefaultUserID is the identity sent when none is configured.
const DefaultUserID = "admin@agentconsole.dev"

// maxErrorBody limits how much of an error response body is retained.
const maxErrorBody = 4 * 1024

// Client talks to both backends over a channel strategy chosen once at
// construction.
type Client struct {
	selector transport.Selector
	channel  transport.Channel
	userID   string
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithSelector sets the transport selector.
func WithSelector(s transport.Selector) Option {
	return func(c *Client) {
		c.selector = s
	}
}

// WithChannel sets the channel strategy.
func WithChannel(ch transport.Channel) Option {
	return func(c *Client) {
		c.channel = ch
	}
}

// WithUserID sets the identity appended to primary backend calls.
func WithUserID(id string) Option {
	return func(c *Client) {
		c.userID = id
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a backend client. Defaults: browser environment, direct
// channel, default user identity.
func New(opts ...Option) *Client {
	c := &Client{
		selector: transport.Selector{Env: transport.EnvBrowser},
		channel:  transport.NewDirectChannel(),
		userID:   DefaultUserID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the configured user identity.
func (c *Client) UserID() string {
	return c.userID
}

// do builds and dispatches one logical request and decodes the reply into
// out when non-nil. The primary backend always receives the user identity
// query parameter; the hook service never does.
func (c *Client) do(ctx context.Context, backend transport.Backend, method, path string, query url.Values, body, out any) error {
	if backend == transport.BackendPrimary {
		if query == nil {
			query = url.Values{}
		}
		query.Set("user", c.userID)
	}

	u := c.selector.BaseURL(backend) + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	c.logger.Debug("dispatching request",
		"backend", string(backend),
		"method", method,
		"url", u)

	resp, err := c.channel.Do(ctx, &transport.Request{
		Method: method,
		URL:    u,
		Body:   payload,
	})
	if err != nil {
		metrics.TransportFailures.WithLabelValues(string(backend)).Inc()
		return NewTransportError(fmt.Errorf("%s %s: %w", method, path, err))
	}
	metrics.RequestsTotal.WithLabelValues(string(backend), method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProtocolError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), maxErrorBody)}
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return &ProtocolError{
				StatusCode: resp.StatusCode,
				Body:       fmt.Sprintf("malformed response: %v", err),
			}
		}
	}
	return nil
}

// openStream opens a push stream and maps failures into the error taxonomy.
func (c *Client) openStream(ctx context.Context, backend transport.Backend, req *transport.Request) (io.ReadCloser, error) {
	resp, err := c.channel.Stream(ctx, req)
	if err != nil {
		metrics.TransportFailures.WithLabelValues(string(backend)).Inc()
		return nil, NewTransportError(fmt.Errorf("%s %s: %w", req.Method, req.URL, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		metrics.RequestsTotal.WithLabelValues(string(backend), req.Method, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	metrics.RequestsTotal.WithLabelValues(string(backend), req.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp.Body, nil
}

// OpenMessageStream issues the JSON-RPC message/stream request for the
// given agent and returns the raw push stream. The caller owns the reader.
func (c *Client) OpenMessageStream(ctx context.Context, namespace, name string, rpcBody []byte) (io.ReadCloser, error) {
	q := url.Values{}
	q.Set("user", c.userID)
	u := fmt.Sprintf("%s/api/a2a/%s/%s?%s",
		c.selector.BaseURL(transport.BackendPrimary), namespace, name, q.Encode())

	return c.openStream(ctx, transport.BackendPrimary, &transport.Request{
		Method: http.MethodPost,
		URL:    u,
		Header: map[string]string{
			"Accept":       "text/event-stream",
			"Content-Type": "application/json",
		},
		Body: rpcBody,
	})
}

// OpenAlertStream opens the persistent alert push stream on the hook service.
func (c *Client) OpenAlertStream(ctx context.Context) (io.ReadCloser, error) {
	u := c.selector.BaseURL(transport.BackendHooks) + "/api/alerts/stream"
	return c.openStream(ctx, transport.BackendHooks, &transport.Request{
		Method: http.MethodGet,
		URL:    u,
		Header: map[string]string{"Accept": "text/event-stream"},
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
