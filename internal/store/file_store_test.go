package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
)

func TestIdentityRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	id, err := crypto.GenerateIdentity("agent-a")
	require.NoError(t, err)

	require.False(t, s.HasIdentity())
	require.NoError(t, s.SaveIdentity("correct horse battery staple", id))
	require.True(t, s.HasIdentity())

	got, err := s.LoadIdentity("correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestWrongPassphrase(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	id, err := crypto.GenerateIdentity("agent-a")
	require.NoError(t, err)
	require.NoError(t, s.SaveIdentity("right", id))

	_, err = s.LoadIdentity("wrong")
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestLoadIdentityMissing(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.LoadIdentity("whatever")
	assert.Error(t, err)
}

func TestPeerDirectory(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok := s.Lookup("agent-b")
	assert.False(t, ok)

	id, err := crypto.GenerateIdentity("agent-b")
	require.NoError(t, err)
	info := domain.PeerInfo{EntityID: "agent-b", SigningKey: id.EdPub, Addr: "tcp://b:7100"}
	require.NoError(t, s.SavePeer(info))

	got, ok := s.Lookup("agent-b")
	require.True(t, ok)
	assert.Equal(t, info, got)

	// Replacing keeps one record per entity.
	info.Addr = "tcp://b:7200"
	require.NoError(t, s.SavePeer(info))
	peers, err := s.Peers()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "tcp://b:7200", peers[0].Addr)
}
