// Package chat owns the per-agent session and message history cache and the
// send path that talks to agents over the streamed chat protocol.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/agentconsole/client"
)

// MaxMessagesPerAgent is the retention bound applied by Trim. Trimming is
// lossy: discarded messages are not archived anywhere.
const MaxMessagesPerAgent = 50

// entry holds one agent's cached session and history.
type entry struct {
	session  *client.Session
	messages []client.ChatMessage
	seen     map[string]struct{}
}

// Store caches at most one live session plus message history per agent.
//
// Entries are keyed by agent name only, not by namespace: two agents sharing
// a name in different namespaces collide. That matches the console's current
// behavior and is kept deliberately until the namespace question is settled.
//
// The store is constructed once and passed by reference to every consumer;
// message-send completions write, investigation integration reads.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Session returns the cached live session for an agent.
func (s *Store) Session(agentName string) (*client.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[agentName]
	if !ok || e.session == nil {
		return nil, false
	}
	return e.session, true
}

// PutSession caches the live session for an agent, replacing any previous one.
func (s *Store) PutSession(agentName string, sess *client.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(agentName).session = sess
}

// FindSessionByID locates a cached session by its id.
func (s *Store) FindSessionByID(sessionID string) (agentName string, sess *client.Session, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, e := range s.entries {
		if e.session != nil && e.session.ID == sessionID {
			return name, e.session, true
		}
	}
	return "", nil, false
}

// Messages returns a copy of an agent's message history in arrival order.
func (s *Store) Messages(agentName string) []client.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[agentName]
	if !ok {
		return nil
	}
	out := make([]client.ChatMessage, len(e.messages))
	copy(out, e.messages)
	return out
}

// Append merges a batch of messages into an agent's history, de-duplicating
// by message id and preserving first-appearance order for new ones. It
// returns how many messages were actually appended.
func (s *Store) Append(agentName string, msgs ...client.ChatMessage) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(agentName)
	appended := 0
	for _, m := range msgs {
		if _, dup := e.seen[m.ID]; dup {
			continue
		}
		e.seen[m.ID] = struct{}{}
		e.messages = append(e.messages, m)
		appended++
	}
	return appended
}

// Agents lists agent names with a cache entry.
func (s *Store) Agents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Trim retains only the most recent MaxMessagesPerAgent messages per agent.
// The dedupe set is rebuilt from the retained messages, so a trimmed id can
// legitimately re-enter via a later history sync.
func (s *Store) Trim() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := 0
	for _, e := range s.entries {
		if len(e.messages) <= MaxMessagesPerAgent {
			continue
		}
		drop := len(e.messages) - MaxMessagesPerAgent
		trimmed += drop
		e.messages = append([]client.ChatMessage(nil), e.messages[drop:]...)
		e.seen = make(map[string]struct{}, len(e.messages))
		for _, m := range e.messages {
			e.seen[m.ID] = struct{}{}
		}
	}
	return trimmed
}

// PeriodicTrim runs Trim on an interval until the context is cancelled.
func (s *Store) PeriodicTrim(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Trim(); n > 0 {
				logger.Debug("trimmed chat history", "messages_dropped", n)
			}
		}
	}
}

// entry returns the entry for an agent, creating it if needed.
// Callers must hold the write lock.
func (s *Store) entry(agentName string) *entry {
	e, ok := s.entries[agentName]
	if !ok {
		e = &entry{seen: make(map[string]struct{})}
		s.entries[agentName] = e
	}
	return e
}
