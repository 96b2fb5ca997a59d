package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/transport"
)

func testService(primaryURL string) *Service {
	c := client.New(
		client.WithSelector(transport.Selector{
			Env:             transport.EnvBrowser,
			PrimaryOverride: primaryURL,
		}),
		client.WithUserID("tester@example.com"),
	)
	return NewService(c, NewStore())
}

// chatBackend serves session creation plus a canned streamed agent reply.
func chatBackend(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(client.Session{
			ID:       "s-1",
			UserID:   r.URL.Query().Get("user"),
			AgentRef: "default/observer",
		})
	})
	mux.HandleFunc("/api/a2a/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/a2a/default/observer", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w,
			"data: {\"result\":{\"kind\":\"status-update\",\"status\":{\"message\":{\"role\":\"user\",\"parts\":[{\"kind\":\"text\",\"text\":\"echo\"}]}}}}\n\n")
		fmt.Fprintf(w,
			"data: {\"result\":{\"kind\":\"status-update\",\"status\":{\"message\":{\"role\":\"agent\",\"parts\":[{\"kind\":\"text\",\"text\":%q}]}}}}\n\n", reply)
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	return httptest.NewServer(mux)
}

func TestService_SendMessage_OK(t *testing.T) {
	srv := chatBackend(t, "the node is cordoned")
	defer srv.Close()

	svc := testService(srv.URL)
	agent := client.Agent{Name: "observer", Namespace: "default"}
	sess := svc.StartSession(context.Background(), agent, "triage")
	require.False(t, sess.Synthesized)

	res := svc.SendMessage(context.Background(), sess.ID, "what is wrong with node-3?")
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.False(t, res.Fallback())
	assert.Equal(t, "the node is cordoned", res.Message)
	assert.Equal(t, sess.ID, res.SessionID)
	assert.NoError(t, res.Err)

	// Both sides of the exchange are merged into the store.
	msgs := svc.Store().Messages("observer")
	require.Len(t, msgs, 2)
	assert.Equal(t, client.RoleUser, msgs[0].Role)
	assert.Equal(t, "what is wrong with node-3?", msgs[0].Content)
	assert.Equal(t, client.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "the node is cordoned", msgs[1].Content)
}

func TestService_SendMessage_UnknownSessionFallsBack(t *testing.T) {
	svc := testService("http://localhost:1") // never dialed
	res := svc.SendMessage(context.Background(), "missing", "hello")

	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.True(t, res.Fallback())
	assert.True(t, strings.HasPrefix(res.Message, FallbackPrefix))
	assert.True(t, client.IsNotFound(res.Err))
}

func TestService_SendMessage_StreamFailureFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/a2a/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent restarting", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := testService(srv.URL)
	svc.Store().PutSession("observer", &client.Session{ID: "s-1", AgentRef: "default/observer"})

	res := svc.SendMessage(context.Background(), "s-1", "hello")
	assert.True(t, res.Fallback())
	assert.Contains(t, res.Message, FallbackPrefix)
	assert.Contains(t, res.Message, "agent restarting")
	pe, ok := client.AsProtocol(res.Err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)

	// Failed exchanges leave no trace in the history.
	assert.Empty(t, svc.Store().Messages("observer"))
}

func TestService_SendMessage_NoAgentReplyFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/a2a/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := testService(srv.URL)
	svc.Store().PutSession("observer", &client.Session{ID: "s-1", AgentRef: "default/observer"})

	res := svc.SendMessage(context.Background(), "s-1", "hello")
	assert.True(t, res.Fallback())
	assert.True(t, client.IsNotFound(res.Err))
}

func TestService_StartSession_ReusesCached(t *testing.T) {
	srv := chatBackend(t, "ok")
	defer srv.Close()

	svc := testService(srv.URL)
	agent := client.Agent{Name: "observer", Namespace: "default"}

	first := svc.StartSession(context.Background(), agent, "triage")
	second := svc.StartSession(context.Background(), agent, "triage")
	assert.Same(t, first, second)
}

func TestService_StartSession_SynthesizesOnFailure(t *testing.T) {
	svc := testService("http://localhost:1") // connection refused
	agent := client.Agent{Name: "observer", Namespace: "default"}

	sess := svc.StartSession(context.Background(), agent, "triage")
	require.NotNil(t, sess)
	assert.True(t, sess.Synthesized)
	assert.Equal(t, "default/observer", sess.AgentRef)
	assert.True(t, strings.HasPrefix(sess.ID, "local-"))

	// The synthesized session is cached like a real one.
	cached, ok := svc.Store().Session("observer")
	require.True(t, ok)
	assert.Same(t, sess, cached)
}

func TestService_SyncHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sessions/s-1/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]client.ChatMessage{
			{ID: "m1", Role: client.RoleUser, Content: "hi", SessionID: "s-1"},
			{ID: "m2", Role: client.RoleAssistant, Content: "hello", SessionID: "s-1"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := testService(srv.URL)
	svc.Store().PutSession("observer", &client.Session{ID: "s-1", AgentRef: "default/observer"})
	svc.Store().Append("observer", client.ChatMessage{ID: "m1", Role: client.RoleUser, Content: "hi", SessionID: "s-1"})

	merged, err := svc.SyncHistory(context.Background(), "observer")
	require.NoError(t, err)
	assert.Equal(t, 1, merged, "already-known ids are not re-appended")
	assert.Len(t, svc.Store().Messages("observer"), 2)
}

func TestService_SyncHistory_SynthesizedSessionIsNoop(t *testing.T) {
	svc := testService("http://localhost:1")
	svc.Store().PutSession("observer", &client.Session{ID: "local-x", AgentRef: "default/observer", Synthesized: true})

	merged, err := svc.SyncHistory(context.Background(), "observer")
	require.NoError(t, err)
	assert.Zero(t, merged)
}
