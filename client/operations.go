package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/c360studio/agentconsole/transport"
)

// createSessionRequest is the session creation payload.
type createSessionRequest struct {
	AgentRef string `json:"agentRef"`
	Name     string `json:"name,omitempty"`
	UserID   string `json:"userId"`
}

// ListAgents fetches the full agent snapshot from the primary backend.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.do(ctx, transport.BackendPrimary, http.MethodGet, "/api/agents", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAgent fetches one agent by namespace and name.
func (c *Client) GetAgent(ctx context.Context, namespace, name string) (*Agent, error) {
	var agent Agent
	path := fmt.Sprintf("/api/agents/%s/%s", namespace, name)
	if err := c.do(ctx, transport.BackendPrimary, http.MethodGet, path, nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateSession creates a named chat session with an agent.
func (c *Client) CreateSession(ctx context.Context, agentRef, name string) (*Session, error) {
	req := createSessionRequest{AgentRef: agentRef, Name: name, UserID: c.userID}
	var sess Session
	if err := c.do(ctx, transport.BackendPrimary, http.MethodPost, "/api/sessions", nil, req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions fetches the caller's sessions.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.do(ctx, transport.BackendPrimary, http.MethodGet, "/api/sessions", nil, nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession fetches one session by id.
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := c.do(ctx, transport.BackendPrimary, http.MethodGet, "/api/sessions/"+id, nil, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes a session from the backend.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, transport.BackendPrimary, http.MethodDelete, "/api/sessions/"+id, nil, nil, nil)
}

// ListSessionMessages fetches the stored message history for a session.
func (c *Client) ListSessionMessages(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	var msgs []ChatMessage
	path := "/api/sessions/" + sessionID + "/messages"
	if err := c.do(ctx, transport.BackendPrimary, http.MethodGet, path, nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListHooks fetches all alert hooks from the hook service.
func (c *Client) ListHooks(ctx context.Context) ([]Hook, error) {
	var hooks []Hook
	if err := c.do(ctx, transport.BackendHooks, http.MethodGet, "/api/hooks", nil, nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// GetHook fetches one hook by namespace and name.
func (c *Client) GetHook(ctx context.Context, namespace, name string) (*Hook, error) {
	var hook Hook
	path := fmt.Sprintf("/api/hooks/%s/%s", namespace, name)
	if err := c.do(ctx, transport.BackendHooks, http.MethodGet, path, nil, nil, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// CreateHook registers a new declarative hook.
func (c *Client) CreateHook(ctx context.Context, hook Hook) (*Hook, error) {
	var created Hook
	if err := c.do(ctx, transport.BackendHooks, http.MethodPost, "/api/hooks", nil, hook, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateHook replaces an existing hook definition.
func (c *Client) UpdateHook(ctx context.Context, hook Hook) (*Hook, error) {
	var updated Hook
	path := fmt.Sprintf("/api/hooks/%s/%s", hook.Namespace, hook.Name)
	if err := c.do(ctx, transport.BackendHooks, http.MethodPut, path, nil, hook, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteHook removes a hook.
func (c *Client) DeleteHook(ctx context.Context, namespace, name string) error {
	path := fmt.Sprintf("/api/hooks/%s/%s", namespace, name)
	return c.do(ctx, transport.BackendHooks, http.MethodDelete, path, nil, nil, nil)
}

// ListAlerts fetches the current alert list from the hook service.
func (c *Client) ListAlerts(ctx context.Context) ([]Alert, error) {
	var alerts []Alert
	if err := c.do(ctx, transport.BackendHooks, http.MethodGet, "/api/alerts", nil, nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetAlertSummary fetches aggregate alert counts from the hook service.
func (c *Client) GetAlertSummary(ctx context.Context) (*AlertSummary, error) {
	var summary AlertSummary
	if err := c.do(ctx, transport.BackendHooks, http.MethodGet, "/api/alerts/summary", nil, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
