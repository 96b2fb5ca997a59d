package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseSize limits buffered response bodies to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Request is one logical HTTP request, already fully built: the channel adds
// nothing to the URL or body, only its own header policy.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   []byte
}

// Response is a fully buffered reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// StreamResponse is an open push stream. The caller owns Body and must close it.
type StreamResponse struct {
	StatusCode int
	Body       io.ReadCloser
}

// Channel carries requests to a backend. Implementations differ in how the
// bytes travel (direct networking vs. host bridge) and in header policy;
// the strategy is selected once at client construction.
type Channel interface {
	// Do executes one request and buffers the reply. Status handling is the
	// caller's concern; Do errors only on transport failure.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Stream opens a long-lived push stream for the request.
	Stream(ctx context.Context, req *Request) (*StreamResponse, error)
}

// DirectChannel issues requests straight over net/http. Headers are kept
// minimal: a content-type is added only for non-GET methods, mirroring the
// preflight-avoidance rule of the browser deployment. An auth token, when
// configured, is the one extra header.
type DirectChannel struct {
	httpClient   *http.Client
	streamClient *http.Client
	token        string
}

// DirectOption configures a DirectChannel.
type DirectOption func(*DirectChannel)

// WithHTTPClient sets the client used for buffered requests.
func WithHTTPClient(c *http.Client) DirectOption {
	return func(d *DirectChannel) {
		d.httpClient = c
	}
}

// WithAuthToken sets a bearer token attached to every request and stream.
func WithAuthToken(token string) DirectOption {
	return func(d *DirectChannel) {
		d.token = token
	}
}

// NewDirectChannel creates a channel that talks to backends directly.
func NewDirectChannel(opts ...DirectOption) *DirectChannel {
	d := &DirectChannel{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Push streams stay open indefinitely; no overall timeout.
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Do implements Channel.
func (d *DirectChannel) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := d.build(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

// Stream implements Channel.
func (d *DirectChannel) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	httpReq, err := d.build(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := d.streamClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{StatusCode: httpResp.StatusCode, Body: httpResp.Body}, nil
}

func (d *DirectChannel) build(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	if req.Method != http.MethodGet && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if d.token != "" && httpReq.Header.Get("Authorization") == "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.token)
	}
	return httpReq, nil
}
