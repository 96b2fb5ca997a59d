package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectChannel_Do_HeaderPolicy(t *testing.T) {
	var gotContentType string
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ch := NewDirectChannel()

	// GET stays preflight-free: no content type.
	resp, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Empty(t, gotContentType)

	// Non-GET gets a JSON content type.
	resp, err = ch.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   []byte(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", gotContentType)
}

func TestDirectChannel_Do_AuthToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// No token configured: no auth header.
	ch := NewDirectChannel()
	_, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	// Token configured: bearer header on buffered requests and streams.
	ch = NewDirectChannel(WithAuthToken("tok-456"))
	_, err = ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-456", gotAuth)

	resp, err := ch.Stream(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "Bearer tok-456", gotAuth)
}

func TestDirectChannel_Do_BuffersBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such session"))
	}))
	defer srv.Close()

	ch := NewDirectChannel()
	resp, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, err, "non-2xx is not a transport failure")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "no such session", string(resp.Body))
}

func TestDirectChannel_Do_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ch := NewDirectChannel()
	_, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: url})
	assert.Error(t, err)
}

func TestBridgeChannel_Do_ExplicitHeaders(t *testing.T) {
	var captured BridgeCall
	invoke := func(ctx context.Context, call BridgeCall) (BridgeResult, error) {
		captured = call
		return BridgeResult{Status: 201, Body: `{"id":"s1"}`}, nil
	}

	ch := NewBridgeChannel(invoke,
		WithIdentity("admin@agentconsole.dev"),
		WithBearerToken("tok-123"),
	)

	resp, err := ch.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    "http://localhost:8083/api/sessions",
		Body:   []byte(`{"agentRef":"default/observer"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, `{"id":"s1"}`, string(resp.Body))

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, `{"agentRef":"default/observer"}`, captured.Body)
	assert.Equal(t, "admin@agentconsole.dev", captured.Headers[IdentityHeader])
	assert.Equal(t, "Bearer tok-123", captured.Headers["Authorization"])
	assert.Equal(t, "application/json", captured.Headers["Content-Type"])
}

func TestBridgeChannel_Do_NoTokenNoAuthHeader(t *testing.T) {
	invoke := func(ctx context.Context, call BridgeCall) (BridgeResult, error) {
		_, ok := call.Headers["Authorization"]
		assert.False(t, ok)
		return BridgeResult{Status: 200}, nil
	}
	ch := NewBridgeChannel(invoke, WithIdentity("u1"))
	_, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://localhost:8083/api/agents"})
	require.NoError(t, err)
}

func TestBridgeChannel_Do_BridgeFault(t *testing.T) {
	invoke := func(ctx context.Context, call BridgeCall) (BridgeResult, error) {
		return BridgeResult{}, errors.New("webview bridge disposed")
	}
	ch := NewBridgeChannel(invoke)
	_, err := ch.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://localhost:8083/api/agents"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webview bridge disposed")
}

func TestBridgeChannel_Stream_UsesNetworkStack(t *testing.T) {
	var gotIdentity, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity = r.Header.Get(IdentityHeader)
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("data: hello\n\n"))
	}))
	defer srv.Close()

	invoke := func(ctx context.Context, call BridgeCall) (BridgeResult, error) {
		t.Fatal("streams must not go through the bridge")
		return BridgeResult{}, nil
	}
	ch := NewBridgeChannel(invoke, WithIdentity("u1"))

	resp, err := ch.Stream(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Header: map[string]string{"Accept": "text/event-stream"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u1", gotIdentity)
	assert.Equal(t, "text/event-stream", gotAccept)
}
