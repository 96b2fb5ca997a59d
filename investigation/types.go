// Package investigation drives multi-agent investigations: an ordered plan
// of agents stepped through one at a time, with chat history integrated into
// point-in-time snapshots and findings extracted at completion.
package investigation

import (
	"errors"
	"time"

	"github.com/c360studio/agentconsole/client"
)

// Status is the lifecycle state of an investigation.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Substitution records a step where agent resolution fell through to the
// first-available fallback instead of the planned agent.
type Substitution struct {
	Step      int    `json:"step"`
	Requested string `json:"requested"`
	Used      string `json:"used"`
}

// Investigation is one investigation record. At most one is active at a
// time; finished records move to an append-only history.
type Investigation struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Agents is the ordered plan. CurrentStep indexes into it and never
	// reaches len(Agents).
	Agents      []string `json:"agents"`
	CurrentStep int      `json:"currentStep"`

	// Resolved holds the actual agent name each visited step resolved to.
	// It can differ from the planned name on substring matches and
	// fallback substitutions.
	Resolved []string `json:"resolved,omitempty"`

	Status    Status     `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`

	// Snapshots holds per-agent message copies taken by
	// IntegrateChatSessions. Each is a point-in-time copy, not a live view.
	Snapshots map[string][]client.ChatMessage `json:"snapshots,omitempty"`

	Substitutions []Substitution `json:"substitutions,omitempty"`
}

// CurrentAgent returns the planned agent name for the current step.
func (inv *Investigation) CurrentAgent() string {
	if inv.CurrentStep < 0 || inv.CurrentStep >= len(inv.Agents) {
		return ""
	}
	return inv.Agents[inv.CurrentStep]
}

// ResolvedAgent returns the agent name a step actually resolved to, falling
// back to the planned name for steps that never opened a session.
func (inv *Investigation) ResolvedAgent(step int) string {
	if step >= 0 && step < len(inv.Resolved) && inv.Resolved[step] != "" {
		return inv.Resolved[step]
	}
	if step >= 0 && step < len(inv.Agents) {
		return inv.Agents[step]
	}
	return ""
}

// setResolved records the resolved agent name for a step.
func (inv *Investigation) setResolved(step int, name string) {
	for len(inv.Resolved) <= step {
		inv.Resolved = append(inv.Resolved, "")
	}
	inv.Resolved[step] = name
}

// clone returns a copy safe to hand outside the manager's lock. Snapshot
// message slices are copied; ChatMessage values are plain data.
func (inv *Investigation) clone() *Investigation {
	out := *inv
	out.Agents = append([]string(nil), inv.Agents...)
	out.Resolved = append([]string(nil), inv.Resolved...)
	out.Substitutions = append([]Substitution(nil), inv.Substitutions...)
	if inv.EndTime != nil {
		t := *inv.EndTime
		out.EndTime = &t
	}
	if inv.Snapshots != nil {
		out.Snapshots = make(map[string][]client.ChatMessage, len(inv.Snapshots))
		for name, msgs := range inv.Snapshots {
			out.Snapshots[name] = append([]client.ChatMessage(nil), msgs...)
		}
	}
	return &out
}

// StateError reports an illegal state machine transition. The record the
// transition was attempted on is left unchanged.
type StateError struct {
	msg string
}

func (e *StateError) Error() string {
	return e.msg
}

// NewStateError creates a StateError with the given message.
func NewStateError(msg string) error {
	return &StateError{msg: msg}
}

// IsState returns true if the error is an illegal-transition error.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
