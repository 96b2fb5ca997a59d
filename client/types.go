package client

import "time"

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Agent is an immutable snapshot of a deployed agent. The list is fetched
// wholesale on connect and refreshed wholesale, never partially mutated.
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	Type        string `json:"type"`
	Ready       bool   `json:"ready"`
	Accepted    bool   `json:"accepted"`
	Description string `json:"description,omitempty"`
}

// Ref returns the namespace/name reference for the agent.
func (a Agent) Ref() string {
	return a.Namespace + "/" + a.Name
}

// Session is a chat session with one agent.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	AgentRef       string    `json:"agentRef"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
	Name           string    `json:"name,omitempty"`

	// Synthesized marks a session fabricated locally after a failed
	// creation call. It never exists on the backend.
	Synthesized bool `json:"-"`
}

// ChatMessage is one message in a session's append-only history.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
}

// Alert severity levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert lifecycle states.
type AlertStatus string

const (
	AlertFiring       AlertStatus = "firing"
	AlertResolved     AlertStatus = "resolved"
	AlertAcknowledged AlertStatus = "acknowledged"
)

// Alert is one alert record from the hook service. Re-arrival of the same
// id replaces the stored record wherever alerts are kept.
type Alert struct {
	ID                string      `json:"id"`
	HookName          string      `json:"hookName"`
	Namespace         string      `json:"namespace"`
	EventType         string      `json:"eventType"`
	ResourceName      string      `json:"resourceName"`
	Severity          Severity    `json:"severity"`
	Status            AlertStatus `json:"status"`
	FirstSeen         time.Time   `json:"firstSeen"`
	LastSeen          time.Time   `json:"lastSeen"`
	Message           string      `json:"message"`
	AgentID           string      `json:"agentId"`
	SessionID         string      `json:"sessionId,omitempty"`
	TaskID            string      `json:"taskId,omitempty"`
	RemediationStatus string      `json:"remediationStatus,omitempty"`
}

// AlertSummary aggregates alert counts.
type AlertSummary struct {
	Total      int                 `json:"total"`
	Firing     int                 `json:"firing"`
	BySeverity map[Severity]int    `json:"bySeverity"`
	ByStatus   map[AlertStatus]int `json:"byStatus"`
}

// EventConfiguration binds one event type to an agent and prompt template
// inside a hook.
type EventConfiguration struct {
	EventType      string `json:"eventType"`
	AgentRef       string `json:"agentRef"`
	PromptTemplate string `json:"promptTemplate"`
}

// HookStatus is the hook service's view of a hook.
type HookStatus struct {
	ActiveEvents []string `json:"activeEvents,omitempty"`
}

// Hook is a declarative alert hook. Hooks are created and edited by the
// user, never generated at runtime.
type Hook struct {
	Name                string               `json:"name"`
	Namespace           string               `json:"namespace"`
	EventConfigurations []EventConfiguration `json:"eventConfigurations"`
	Status              HookStatus           `json:"status,omitempty"`
}
