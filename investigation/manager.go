package investigation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/agentconsole/client"
	"github.com/c360studio/agentconsole/metrics"
)

// AgentLister provides the deployed agent list. *client.Client satisfies it.
type AgentLister interface {
	ListAgents(ctx context.Context) ([]client.Agent, error)
}

// SessionStarter starts or resumes a chat session with an agent.
// *chat.Service satisfies it.
type SessionStarter interface {
	StartSession(ctx context.Context, agent client.Agent, name string) *client.Session
}

// MessageSource reads an agent's cached message history. *chat.Store
// satisfies it.
type MessageSource interface {
	Messages(agentName string) []client.ChatMessage
}

// Archiver persists a finished investigation. *archive.Store satisfies it.
type Archiver interface {
	Save(ctx context.Context, inv *Investigation, findings Findings) error
}

// Manager owns the single active investigation and the append-only history.
type Manager struct {
	mu      sync.Mutex
	active  *Investigation
	history []*Investigation

	agents   AgentLister
	sessions SessionStarter
	store    MessageSource
	archiver Archiver
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithArchiver persists finished investigations. Archiving is best effort:
// a save failure is logged and never blocks the transition.
func WithArchiver(a Archiver) ManagerOption {
	return func(m *Manager) {
		m.archiver = a
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an investigation manager.
func NewManager(agents AgentLister, sessions SessionStarter, store MessageSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		agents:   agents,
		sessions: sessions,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new investigation over the given agent plan. It requires
// that no investigation is active and that the first step's agent resolves
// against the deployed agent list; an unresolvable plan produces a failed
// record in history, never an active one.
func (m *Manager) Start(ctx context.Context, name, description string, plan []string) (*Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, NewStateError("investigation " + m.active.ID + " is already active")
	}
	if len(plan) == 0 {
		return nil, NewStateError("investigation plan is empty")
	}

	inv := &Investigation{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Agents:      append([]string(nil), plan...),
		CurrentStep: 0,
		Status:      StatusActive,
		StartTime:   time.Now(),
	}

	agent, err := m.resolveAndStart(ctx, inv)
	if err != nil {
		now := time.Now()
		inv.Status = StatusFailed
		inv.EndTime = &now
		m.history = append(m.history, inv)
		metrics.InvestigationTransitions.WithLabelValues("fail").Inc()
		m.logger.Error("investigation start failed", "name", name, "error", err)
		return inv.clone(), err
	}

	m.active = inv
	metrics.InvestigationTransitions.WithLabelValues("start").Inc()
	m.logger.Info("investigation started",
		"id", inv.ID,
		"name", name,
		"steps", len(plan),
		"first_agent", agent.Name)
	return inv.clone(), nil
}

// Advance moves the active investigation to the next step and starts the
// chat session for that step's agent. It is legal only while an
// investigation is active and a next step exists; otherwise it returns a
// StateError and leaves the record unchanged.
func (m *Manager) Advance(ctx context.Context) (*Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, NewStateError("no active investigation")
	}
	if m.active.CurrentStep+1 >= len(m.active.Agents) {
		return nil, NewStateError("investigation is on its final step")
	}

	m.active.CurrentStep++
	if _, err := m.resolveAndStart(ctx, m.active); err != nil {
		// Non-blocking per the progression contract: the step advances
		// even when no session could be opened for its agent.
		m.logger.Warn("no session for advanced step",
			"id", m.active.ID,
			"step", m.active.CurrentStep,
			"error", err)
	}
	metrics.InvestigationTransitions.WithLabelValues("advance").Inc()
	return m.active.clone(), nil
}

// Complete finishes the active investigation at its current step.
func (m *Manager) Complete(ctx context.Context) (*Investigation, error) {
	return m.finish(ctx, StatusCompleted, "complete")
}

// Cancel abandons the active investigation.
func (m *Manager) Cancel(ctx context.Context) (*Investigation, error) {
	return m.finish(ctx, StatusCancelled, "cancel")
}

func (m *Manager) finish(ctx context.Context, status Status, action string) (*Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, NewStateError("no active investigation")
	}

	inv := m.active
	now := time.Now()
	inv.Status = status
	inv.EndTime = &now
	m.history = append(m.history, inv)
	m.active = nil
	metrics.InvestigationTransitions.WithLabelValues(action).Inc()
	m.logger.Info("investigation finished", "id", inv.ID, "status", status)

	if m.archiver != nil {
		findings := Extract(inv, m.store)
		if err := m.archiver.Save(ctx, inv, findings); err != nil {
			m.logger.Error("investigation archive failed", "id", inv.ID, "error", err)
		}
	}
	return inv.clone(), nil
}

// IntegrateChatSessions copies the store's current messages for every agent
// in the active plan into the investigation's snapshots. The copy is taken
// at call time: callers must integrate after pending sends for those agents
// have resolved, or the snapshot captures stale data.
func (m *Manager) IntegrateChatSessions() (*Investigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, NewStateError("no active investigation")
	}

	if m.active.Snapshots == nil {
		m.active.Snapshots = make(map[string][]client.ChatMessage, len(m.active.Agents))
	}
	for i := range m.active.Agents {
		name := m.active.ResolvedAgent(i)
		m.active.Snapshots[name] = m.store.Messages(name)
	}
	metrics.InvestigationTransitions.WithLabelValues("integrate").Inc()
	return m.active.clone(), nil
}

// Active returns a copy of the active investigation, or nil.
func (m *Manager) Active() *Investigation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	return m.active.clone()
}

// History returns copies of finished investigations, oldest first.
func (m *Manager) History() []*Investigation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Investigation, len(m.history))
	for i, inv := range m.history {
		out[i] = inv.clone()
	}
	return out
}

// resolveAndStart resolves the current step's agent and starts or resumes
// its chat session, recording a substitution when resolution fell through
// to the first-available fallback.
func (m *Manager) resolveAndStart(ctx context.Context, inv *Investigation) (client.Agent, error) {
	want := inv.CurrentAgent()

	available, err := m.agents.ListAgents(ctx)
	if err != nil {
		return client.Agent{}, err
	}

	agent, substituted, ok := resolveAgent(available, want)
	if !ok {
		return client.Agent{}, client.NewNotFoundError("no agent available for step " + want)
	}
	inv.setResolved(inv.CurrentStep, agent.Name)
	if substituted {
		inv.Substitutions = append(inv.Substitutions, Substitution{
			Step:      inv.CurrentStep,
			Requested: want,
			Used:      agent.Name,
		})
		m.logger.Warn("substituted agent for investigation step",
			"id", inv.ID,
			"step", inv.CurrentStep,
			"requested", want,
			"used", agent.Name)
	}

	m.sessions.StartSession(ctx, agent, inv.Name)
	return agent, nil
}

// resolveAgent picks an agent for a planned name: exact name match, then
// substring match, then the first available agent. Only the last tier is a
// substitution worth surfacing.
func resolveAgent(available []client.Agent, want string) (agent client.Agent, substituted, ok bool) {
	if len(available) == 0 {
		return client.Agent{}, false, false
	}

	for _, a := range available {
		if a.Name == want {
			return a, false, true
		}
	}

	lower := strings.ToLower(want)
	for _, a := range available {
		name := strings.ToLower(a.Name)
		if strings.Contains(name, lower) || strings.Contains(lower, name) {
			return a, false, true
		}
	}

	return available[0], true, true
}
