package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/agentconsole/a2a"
	"github.com/c360studio/agentconsole/client"
)

// FallbackPrefix marks placeholder replies synthesized after a failed send.
// Callers and tests can detect it without comparing error strings.
const FallbackPrefix = "[agent-unavailable] "

// Outcome tags a send result so callers can tell a genuine agent reply from
// a synthesized placeholder.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFallback Outcome = "fallback"
)

// Result is the outcome of one chat send.
type Result struct {
	Outcome   Outcome
	Message   string
	SessionID string
	Timestamp time.Time

	// Err holds the underlying failure when Outcome is OutcomeFallback.
	Err error
}

// Fallback reports whether the result is a synthesized placeholder.
func (r *Result) Fallback() bool {
	return r.Outcome == OutcomeFallback
}

// Service drives chat sends against the backend and merges completed
// exchanges back into the store.
type Service struct {
	client *client.Client
	store  *Store
	logger *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a chat service over the given client and store.
func NewService(c *client.Client, store *Store, opts ...ServiceOption) *Service {
	s := &Service{client: c, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing session/history store.
func (s *Service) Store() *Store {
	return s.store
}

// StartSession returns the cached live session for the agent or creates a
// new one. When creation fails, a local session is synthesized instead so
// the workflow never blocks; it carries the Synthesized marker.
func (s *Service) StartSession(ctx context.Context, agent client.Agent, name string) *client.Session {
	if sess, ok := s.store.Session(agent.Name); ok {
		return sess
	}

	sess, err := s.client.CreateSession(ctx, agent.Ref(), name)
	if err != nil {
		s.logger.Warn("session creation failed, synthesizing local session",
			"agent", agent.Name,
			"error", err)
		sess = &client.Session{
			ID:             "local-" + uuid.New().String(),
			UserID:         s.client.UserID(),
			AgentRef:       agent.Ref(),
			LastUpdateTime: time.Now(),
			Name:           name,
			Synthesized:    true,
		}
	}
	s.store.PutSession(agent.Name, sess)
	return sess
}

// SendMessage sends one user message on a session and waits for the
// streamed agent reply. Any failure along the path (session lookup, ref
// resolution, stream open, frame assembly) is converted into a fallback
// Result embedding the error text, never returned as an error: chat must
// not hang or hard-fail the surface that called it.
func (s *Service) SendMessage(ctx context.Context, sessionID, text string) *Result {
	res, err := s.send(ctx, sessionID, text)
	if err != nil {
		s.logger.Warn("chat send failed, returning placeholder",
			"session_id", sessionID,
			"error", err)
		return &Result{
			Outcome:   OutcomeFallback,
			Message:   FallbackPrefix + err.Error(),
			SessionID: sessionID,
			Timestamp: time.Now(),
			Err:       err,
		}
	}
	return res
}

func (s *Service) send(ctx context.Context, sessionID, text string) (*Result, error) {
	agentName, sess, ok := s.store.FindSessionByID(sessionID)
	if !ok {
		return nil, client.NewNotFoundError("session " + sessionID + " not found")
	}

	namespace, name := a2a.ResolveAgentRef(sess.AgentRef)
	rpc := a2a.NewStreamRequest(sessionID, text)
	body, err := json.Marshal(rpc)
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	rc, err := s.client.OpenMessageStream(ctx, namespace, name, body)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	out, err := a2a.ReadStream(rc, sessionID, a2a.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	s.store.Append(agentName,
		client.ChatMessage{
			ID:        rpc.Params.Message.MessageID,
			Role:      client.RoleUser,
			Content:   text,
			Timestamp: time.Now(),
			SessionID: sessionID,
		},
		client.ChatMessage{
			ID:        uuid.New().String(),
			Role:      client.RoleAssistant,
			Content:   out.Message,
			Timestamp: out.Timestamp,
			SessionID: sessionID,
		},
	)

	return &Result{
		Outcome:   OutcomeOK,
		Message:   out.Message,
		SessionID: sessionID,
		Timestamp: out.Timestamp,
	}, nil
}

// SyncHistory reconciles an agent's cached history with the backend's
// stored messages. Synthesized sessions have no backend history and are a
// no-op. Returns the number of messages merged in.
func (s *Service) SyncHistory(ctx context.Context, agentName string) (int, error) {
	sess, ok := s.store.Session(agentName)
	if !ok {
		return 0, client.NewNotFoundError("no cached session for agent " + agentName)
	}
	if sess.Synthesized {
		return 0, nil
	}
	msgs, err := s.client.ListSessionMessages(ctx, sess.ID)
	if err != nil {
		return 0, err
	}
	return s.store.Append(agentName, msgs...), nil
}
