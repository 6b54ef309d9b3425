package session_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlink/internal/domain"
	"agentlink/internal/session"
)

func testManager(t *testing.T, handshakeTimeout time.Duration) *session.Manager {
	t.Helper()
	return session.NewManager("alice", session.ManagerOptions{
		HandshakeTimeout: handshakeTimeout,
		SessionTTL:       time.Hour,
		SweepInterval:    10 * time.Millisecond,
		SequenceWindow:   8,
	}, zerolog.Nop())
}

func established(t *testing.T, m *session.Manager, peer string) *session.Session {
	t.Helper()
	s, _ := m.CreateOrGet(peer)
	s.SetKeys(domain.SessionKeys{})
	require.NoError(t, s.Establish(time.Hour))
	return s
}

func TestCreateOrGet_SingleSessionPerPeer(t *testing.T) {
	m := testManager(t, time.Minute)

	s1, created := m.CreateOrGet("bob")
	assert.True(t, created)
	s2, created := m.CreateOrGet("bob")
	assert.False(t, created)
	assert.Same(t, s1, s2)

	_, err := uuid.Parse(s1.ID())
	assert.NoError(t, err, "session ids are 128-bit UUIDs")
}

func TestAdopt_SupersedesExistingSession(t *testing.T) {
	m := testManager(t, time.Minute)

	old, _ := m.CreateOrGet("bob")
	adopted, err := m.Adopt(uuid.NewString(), "bob")
	require.NoError(t, err)

	assert.Equal(t, domain.StateClosed, old.State(), "superseded session is closed")
	got, ok := m.GetByPeer("bob")
	require.True(t, ok)
	assert.Same(t, adopted, got)
}

func TestAdopt_RejectsNonUUID(t *testing.T) {
	m := testManager(t, time.Minute)
	_, err := m.Adopt("not-a-uuid", "bob")
	assert.ErrorIs(t, err, domain.ErrHandshakeFailed)
}

func TestSequence_MonotonicAcceptance(t *testing.T) {
	m := testManager(t, time.Minute)
	s := established(t, m, "bob")

	for seq := uint64(0); seq < 3; seq++ {
		gap, err := s.ValidateReceive(seq)
		require.NoError(t, err, "sequence %d", seq)
		assert.Zero(t, gap)
	}

	// Resubmitting 1 after 2 was accepted is a replay.
	_, err := s.ValidateReceive(1)
	assert.ErrorIs(t, err, domain.ErrSequence)
	assert.EqualValues(t, 3, s.ExpectedReceiveSequence())
}

func TestSequence_GapAcceptedAndReported(t *testing.T) {
	m := testManager(t, time.Minute)
	s := established(t, m, "bob")

	_, err := s.ValidateReceive(0)
	require.NoError(t, err)

	gap, err := s.ValidateReceive(4)
	require.NoError(t, err, "a gap may be loss, not an attack")
	assert.EqualValues(t, 3, gap)
	assert.EqualValues(t, 5, s.ExpectedReceiveSequence())
}

func TestSequence_WindowBounded(t *testing.T) {
	m := testManager(t, time.Minute)
	s := established(t, m, "bob")

	for seq := uint64(0); seq < 20; seq++ {
		_, err := s.ValidateReceive(seq)
		require.NoError(t, err)
	}
	window := s.RecentReceiveSequences()
	assert.Len(t, window, 8)
	assert.EqualValues(t, 19, window[len(window)-1])
}

func TestNextSendSequence_NeverReused(t *testing.T) {
	m := testManager(t, time.Minute)
	s := established(t, m, "bob")

	assert.EqualValues(t, 0, s.NextSendSequence())
	assert.EqualValues(t, 1, s.NextSendSequence())
	assert.EqualValues(t, 2, s.NextSendSequence())
}

func TestClose_IdempotentAndWipesKeys(t *testing.T) {
	m := testManager(t, time.Minute)
	s := established(t, m, "bob")

	s.Close()
	s.Close()
	assert.Equal(t, domain.StateClosed, s.State())

	_, ok := s.Keys()
	assert.False(t, ok, "key material released on close")

	assert.ErrorIs(t, s.SetState(domain.StateEstablished), domain.ErrSessionClosed,
		"no transitions out of a terminal state")
}

func TestValidateReceive_RequiresEstablished(t *testing.T) {
	m := testManager(t, time.Minute)
	s, _ := m.CreateOrGet("bob")

	_, err := s.ValidateReceive(0)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSweepExpired_RemovesStuckHandshake(t *testing.T) {
	m := testManager(t, 20*time.Millisecond)

	s, _ := m.CreateOrGet("bob")
	require.NoError(t, s.SetState(domain.StateHandshakeSent))
	require.Equal(t, 1, m.Len())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, m.SweepExpired())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, domain.StateExpired, s.State())
}

func TestSweepExpired_RemovesExpiredEstablished(t *testing.T) {
	m := testManager(t, time.Minute)

	s, _ := m.CreateOrGet("bob")
	s.SetKeys(domain.SessionKeys{})
	require.NoError(t, s.Establish(10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, m.SweepExpired())
	_, ok := m.GetByPeer("bob")
	assert.False(t, ok)
}

func TestSweepExpired_KeepsLiveSessions(t *testing.T) {
	m := testManager(t, time.Minute)
	established(t, m, "bob")

	assert.Equal(t, 0, m.SweepExpired())
	assert.Equal(t, 1, m.Len())
}

func TestTerminate_Idempotent(t *testing.T) {
	m := testManager(t, time.Minute)
	s, _ := m.CreateOrGet("bob")

	m.Terminate(s.ID())
	m.Terminate(s.ID())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, domain.StateClosed, s.State())
}
