package investigation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/agentconsole/client"
)

type fakeLister struct {
	agents []client.Agent
	err    error
}

func (f *fakeLister) ListAgents(_ context.Context) ([]client.Agent, error) {
	return f.agents, f.err
}

type fakeSessions struct {
	started []string
}

func (f *fakeSessions) StartSession(_ context.Context, agent client.Agent, _ string) *client.Session {
	f.started = append(f.started, agent.Name)
	return &client.Session{ID: "s-" + agent.Name, AgentRef: agent.Ref()}
}

type fakeStore map[string][]client.ChatMessage

func (f fakeStore) Messages(agentName string) []client.ChatMessage {
	return append([]client.ChatMessage(nil), f[agentName]...)
}

type fakeArchiver struct {
	saved []*Investigation
	err   error
}

func (f *fakeArchiver) Save(_ context.Context, inv *Investigation, _ Findings) error {
	f.saved = append(f.saved, inv)
	return f.err
}

func agents(names ...string) []client.Agent {
	out := make([]client.Agent, len(names))
	for i, n := range names {
		out[i] = client.Agent{Name: n, Namespace: "default", Ready: true}
	}
	return out
}

func newTestManager(available []client.Agent, opts ...ManagerOption) (*Manager, *fakeSessions) {
	sessions := &fakeSessions{}
	m := NewManager(&fakeLister{agents: available}, sessions, fakeStore{}, opts...)
	return m, sessions
}

func TestManager_AdvanceLegality(t *testing.T) {
	m, sessions := newTestManager(agents("a", "b", "c"))

	inv, err := m.Start(context.Background(), "triage", "", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 0, inv.CurrentStep)
	assert.Equal(t, StatusActive, inv.Status)

	// Two advances succeed on a three-step plan.
	inv, err = m.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inv.CurrentStep)

	inv, err = m.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, inv.CurrentStep)

	// The third is rejected and leaves the record unchanged.
	_, err = m.Advance(context.Background())
	require.Error(t, err)
	assert.True(t, IsState(err))
	assert.Equal(t, 2, m.Active().CurrentStep)
	assert.Equal(t, StatusActive, m.Active().Status)

	// Each successful step opened a session with its planned agent.
	assert.Equal(t, []string{"a", "b", "c"}, sessions.started)
}

func TestManager_CompleteFromAnyStep(t *testing.T) {
	for _, step := range []int{0, 1, 2} {
		m, _ := newTestManager(agents("a", "b", "c"))
		_, err := m.Start(context.Background(), "triage", "", []string{"a", "b", "c"})
		require.NoError(t, err)
		for i := 0; i < step; i++ {
			_, err = m.Advance(context.Background())
			require.NoError(t, err)
		}

		inv, err := m.Complete(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, inv.Status)
		assert.Equal(t, step, inv.CurrentStep)
		require.NotNil(t, inv.EndTime)
		assert.False(t, inv.EndTime.Before(inv.StartTime))

		assert.Nil(t, m.Active())
		require.Len(t, m.History(), 1)
		assert.Equal(t, inv.ID, m.History()[0].ID)
	}
}

func TestManager_CancelMarksCancelled(t *testing.T) {
	m, _ := newTestManager(agents("a"))
	_, err := m.Start(context.Background(), "triage", "", []string{"a"})
	require.NoError(t, err)

	inv, err := m.Cancel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, inv.Status)
	assert.Nil(t, m.Active())
}

func TestManager_SecondStartRejectedWhileActive(t *testing.T) {
	m, _ := newTestManager(agents("a"))
	_, err := m.Start(context.Background(), "one", "", []string{"a"})
	require.NoError(t, err)

	_, err = m.Start(context.Background(), "two", "", []string{"a"})
	assert.True(t, IsState(err))
}

func TestManager_StartFailsWithoutAgents(t *testing.T) {
	m, _ := newTestManager(nil)

	inv, err := m.Start(context.Background(), "triage", "", []string{"a"})
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
	require.NotNil(t, inv)
	assert.Equal(t, StatusFailed, inv.Status)

	// Failed starts land in history, never in the active slot.
	assert.Nil(t, m.Active())
	require.Len(t, m.History(), 1)
	assert.Equal(t, StatusFailed, m.History()[0].Status)
}

func TestManager_StartFailsWhenListerErrors(t *testing.T) {
	sessions := &fakeSessions{}
	m := NewManager(&fakeLister{err: errors.New("backend down")}, sessions, fakeStore{})

	_, err := m.Start(context.Background(), "triage", "", []string{"a"})
	require.Error(t, err)
	assert.Empty(t, sessions.started)
}

func TestManager_SubstitutionRecordedOnFallbackOnly(t *testing.T) {
	// "observer" matches exactly, "net" matches "network-prober" by
	// substring, "missing" falls back to the first available agent.
	m, sessions := newTestManager(agents("observer", "network-prober"))

	inv, err := m.Start(context.Background(), "triage", "", []string{"observer", "net", "missing"})
	require.NoError(t, err)
	assert.Empty(t, inv.Substitutions)

	inv, err = m.Advance(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inv.Substitutions, "substring match is not a substitution")
	assert.Equal(t, "network-prober", inv.ResolvedAgent(1))

	inv, err = m.Advance(context.Background())
	require.NoError(t, err)
	require.Len(t, inv.Substitutions, 1)
	assert.Equal(t, Substitution{Step: 2, Requested: "missing", Used: "observer"}, inv.Substitutions[0])

	assert.Equal(t, []string{"observer", "network-prober", "observer"}, sessions.started)
}

func TestManager_IntegrateSnapshotsAreNotLiveViews(t *testing.T) {
	store := fakeStore{
		"a": {{ID: "m1", Role: client.RoleAssistant, Content: "before"}},
	}
	sessions := &fakeSessions{}
	m := NewManager(&fakeLister{agents: agents("a")}, sessions, store)

	_, err := m.Start(context.Background(), "triage", "", []string{"a"})
	require.NoError(t, err)

	inv, err := m.IntegrateChatSessions()
	require.NoError(t, err)
	require.Len(t, inv.Snapshots["a"], 1)

	// Later store growth is invisible until the next integration call.
	store["a"] = append(store["a"], client.ChatMessage{ID: "m2", Role: client.RoleAssistant, Content: "after"})
	assert.Len(t, m.Active().Snapshots["a"], 1)

	inv, err = m.IntegrateChatSessions()
	require.NoError(t, err)
	assert.Len(t, inv.Snapshots["a"], 2)
}

func TestManager_IntegrateRequiresActive(t *testing.T) {
	m, _ := newTestManager(agents("a"))
	_, err := m.IntegrateChatSessions()
	assert.True(t, IsState(err))
}

func TestManager_FinishArchivesBestEffort(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("disk full")}
	m, _ := newTestManager(agents("a"), WithArchiver(arch))

	_, err := m.Start(context.Background(), "triage", "", []string{"a"})
	require.NoError(t, err)

	// An archive failure is logged, not surfaced: the record still moves
	// to history.
	inv, err := m.Complete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, inv.Status)
	require.Len(t, arch.saved, 1)
	assert.Equal(t, inv.ID, arch.saved[0].ID)
}

func TestManager_ActiveReturnsCopy(t *testing.T) {
	m, _ := newTestManager(agents("a", "b"))
	_, err := m.Start(context.Background(), "triage", "", []string{"a", "b"})
	require.NoError(t, err)

	got := m.Active()
	got.CurrentStep = 99
	got.Agents[0] = "tampered"

	again := m.Active()
	assert.Equal(t, 0, again.CurrentStep)
	assert.Equal(t, "a", again.Agents[0])
}
