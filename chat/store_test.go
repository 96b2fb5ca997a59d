package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/agentconsole/client"
)

func msg(id, role, content string) client.ChatMessage {
	return client.ChatMessage{ID: id, Role: role, Content: content, SessionID: "s1"}
}

func TestStore_AppendDeduplicatesByID(t *testing.T) {
	s := NewStore()

	n := s.Append("observer",
		msg("m1", client.RoleUser, "hello"),
		msg("m2", client.RoleAssistant, "hi"),
	)
	assert.Equal(t, 2, n)

	// Re-delivering m2 plus one new message appends only the new one.
	n = s.Append("observer",
		msg("m2", client.RoleAssistant, "hi"),
		msg("m3", client.RoleUser, "status?"),
	)
	assert.Equal(t, 1, n)

	got := s.Messages("observer")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestStore_OrderPreservedAcrossBatches(t *testing.T) {
	s := NewStore()
	s.Append("a", msg("1", "user", "x"))
	s.Append("a", msg("3", "user", "z"), msg("1", "user", "x"), msg("2", "user", "y"))

	got := s.Messages("a")
	require.Len(t, got, 3)
	// First-appearance order: 1, then 3, then 2.
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
	assert.Equal(t, "2", got[2].ID)
}

func TestStore_TrimRetainsNewest(t *testing.T) {
	s := NewStore()
	for i := 0; i < MaxMessagesPerAgent+10; i++ {
		s.Append("a", msg(fmt.Sprintf("m%03d", i), "user", "x"))
	}

	dropped := s.Trim()
	assert.Equal(t, 10, dropped)

	got := s.Messages("a")
	require.Len(t, got, MaxMessagesPerAgent)
	assert.Equal(t, "m010", got[0].ID, "oldest messages are discarded")
	assert.Equal(t, fmt.Sprintf("m%03d", MaxMessagesPerAgent+9), got[len(got)-1].ID)

	// A trimmed id may re-enter after a later sync.
	n := s.Append("a", msg("m000", "user", "x"))
	assert.Equal(t, 1, n)
}

func TestStore_PeriodicTrimEnforcesCap(t *testing.T) {
	s := NewStore()
	for i := 0; i < MaxMessagesPerAgent+10; i++ {
		s.Append("a", msg(fmt.Sprintf("m%03d", i), "user", "x"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.PeriodicTrim(ctx, 5*time.Millisecond, nil)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return len(s.Messages("a")) == MaxMessagesPerAgent
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("periodic trim did not stop on cancel")
	}
}

func TestStore_TrimNoopUnderLimit(t *testing.T) {
	s := NewStore()
	s.Append("a", msg("1", "user", "x"))
	assert.Equal(t, 0, s.Trim())
	assert.Len(t, s.Messages("a"), 1)
}

func TestStore_MessagesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("a", msg("1", "user", "original"))

	got := s.Messages("a")
	got[0].Content = "mutated"

	again := s.Messages("a")
	assert.Equal(t, "original", again[0].Content)
}

func TestStore_SessionKeyedByAgentName(t *testing.T) {
	s := NewStore()
	_, ok := s.Session("observer")
	assert.False(t, ok)

	sess := &client.Session{ID: "s1", AgentRef: "default/observer"}
	s.PutSession("observer", sess)

	got, ok := s.Session("observer")
	require.True(t, ok)
	assert.Equal(t, "s1", got.ID)

	// Same name, different namespace collides: the later session replaces
	// the earlier one. Documented behavior, not an accident.
	other := &client.Session{ID: "s2", AgentRef: "team-b/observer"}
	s.PutSession("observer", other)
	got, _ = s.Session("observer")
	assert.Equal(t, "s2", got.ID)
}

func TestStore_FindSessionByID(t *testing.T) {
	s := NewStore()
	s.PutSession("observer", &client.Session{ID: "s1", AgentRef: "default/observer"})
	s.PutSession("planner", &client.Session{ID: "s2", AgentRef: "default/planner"})

	name, sess, ok := s.FindSessionByID("s2")
	require.True(t, ok)
	assert.Equal(t, "planner", name)
	assert.Equal(t, "s2", sess.ID)

	_, _, ok = s.FindSessionByID("missing")
	assert.False(t, ok)
}
