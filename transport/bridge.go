package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// IdentityHeader carries the caller identity on bridge requests.
const IdentityHeader = "X-User-ID"

// BridgeCall describes one HTTP call handed to the privileged host bridge.
// Headers are passed explicitly and the body travels as a string: the bridge
// is a serialization boundary, not an http.RoundTripper.
type BridgeCall struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body,omitempty"`
}

// BridgeResult is the bridge's reply to a call.
type BridgeResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// BridgeFunc invokes the host bridge. A failure here is a bridge fault and
// is surfaced as a transport failure by the dispatcher.
type BridgeFunc func(ctx context.Context, call BridgeCall) (BridgeResult, error)

// BridgeChannel routes requests through a host bridge. The bridge exposes
// request/response calls only, so push streams go through the shell's
// network stack directly, with the same explicit headers.
type BridgeChannel struct {
	invoke       BridgeFunc
	identity     string
	token        string
	streamClient *http.Client
}

// BridgeOption configures a BridgeChannel.
type BridgeOption func(*BridgeChannel)

// WithIdentity sets the identity header value added to every call.
func WithIdentity(id string) BridgeOption {
	return func(b *BridgeChannel) {
		b.identity = id
	}
}

// WithBearerToken sets the bearer token added to every call.
func WithBearerToken(token string) BridgeOption {
	return func(b *BridgeChannel) {
		b.token = token
	}
}

// WithStreamClient sets the HTTP client used for push streams.
func WithStreamClient(c *http.Client) BridgeOption {
	return func(b *BridgeChannel) {
		b.streamClient = c
	}
}

// NewBridgeChannel creates a channel backed by the given bridge function.
func NewBridgeChannel(invoke BridgeFunc, opts ...BridgeOption) *BridgeChannel {
	b := &BridgeChannel{
		invoke:       invoke,
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do implements Channel.
func (b *BridgeChannel) Do(ctx context.Context, req *Request) (*Response, error) {
	call := BridgeCall{
		URL:     req.URL,
		Method:  req.Method,
		Headers: b.headers(req),
		Body:    string(req.Body),
	}
	result, err := b.invoke(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("bridge invoke: %w", err)
	}
	return &Response{StatusCode: result.Status, Body: []byte(result.Body)}, nil
}

// Stream implements Channel.
func (b *BridgeChannel) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range b.headers(req) {
		httpReq.Header.Set(k, v)
	}
	httpResp, err := b.streamClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	return &StreamResponse{StatusCode: httpResp.StatusCode, Body: httpResp.Body}, nil
}

// headers merges the request headers with the channel's identity and auth
// headers. Unlike the direct channel there is no preflight to avoid, so the
// content type is always set for bodied requests.
func (b *BridgeChannel) headers(req *Request) map[string]string {
	h := make(map[string]string, len(req.Header)+3)
	for k, v := range req.Header {
		h[k] = v
	}
	if len(req.Body) > 0 {
		if _, ok := h["Content-Type"]; !ok {
			h["Content-Type"] = "application/json"
		}
	}
	if b.identity != "" {
		h[IdentityHeader] = b.identity
	}
	if b.token != "" {
		h["Authorization"] = "Bearer " + b.token
	}
	return h
}
