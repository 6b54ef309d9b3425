package channel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlink/internal/domain"
	"agentlink/internal/protocol/channel"
	"agentlink/internal/protocol/kdf"
)

func sessionKeys(t *testing.T) domain.SessionKeys {
	t.Helper()
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i)
	}
	keys, err := kdf.DeriveSessionKeys(secret)
	require.NoError(t, err)
	return keys
}

func metadata() channel.Metadata {
	return channel.Metadata{
		SenderID:  "alice",
		Sequence:  7,
		Timestamp: time.Unix(1700000000, 123).UTC(),
	}
}

func TestSealOpen_RoundTrip(t *testing.T) {
	keys := sessionKeys(t)
	meta := metadata()
	plaintext := []byte(`{"action":"ping"}`)

	ct, nonce, err := channel.Seal(keys, meta, plaintext)
	require.NoError(t, err)
	require.Len(t, nonce, channel.NonceSize)
	require.NotEqual(t, plaintext, ct)

	got, err := channel.Open(keys, meta, ct, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	keys := sessionKeys(t)
	meta := metadata()

	_, n1, err := channel.Seal(keys, meta, []byte("x"))
	require.NoError(t, err)
	_, n2, err := channel.Seal(keys, meta, []byte("x"))
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2, "nonce reuse under one key is a correctness violation")
}

func TestOpen_TamperedCiphertextFailsClosed(t *testing.T) {
	keys := sessionKeys(t)
	meta := metadata()

	ct, nonce, err := channel.Seal(keys, meta, []byte("sensitive"))
	require.NoError(t, err)

	for i := range ct {
		mutated := append([]byte(nil), ct...)
		mutated[i] ^= 0x01
		pt, err := channel.Open(keys, meta, mutated, nonce)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed, "byte %d", i)
		assert.Nil(t, pt, "no partial plaintext on failure")
	}
}

func TestOpen_TamperedMetadataFails(t *testing.T) {
	keys := sessionKeys(t)
	meta := metadata()

	ct, nonce, err := channel.Seal(keys, meta, []byte("payload"))
	require.NoError(t, err)

	cases := map[string]channel.Metadata{
		"sender":    {SenderID: "mallory", Sequence: meta.Sequence, Timestamp: meta.Timestamp},
		"sequence":  {SenderID: meta.SenderID, Sequence: meta.Sequence + 1, Timestamp: meta.Timestamp},
		"timestamp": {SenderID: meta.SenderID, Sequence: meta.Sequence, Timestamp: meta.Timestamp.Add(time.Second)},
	}
	for name, mutated := range cases {
		_, err := channel.Open(keys, mutated, ct, nonce)
		assert.ErrorIs(t, err, domain.ErrDecryptionFailed, "mutated %s", name)
	}
}

func TestOpen_WrongNonceLength(t *testing.T) {
	keys := sessionKeys(t)
	_, err := channel.Open(keys, metadata(), []byte("ct"), []byte("short"))
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestOpen_WrongKeysFail(t *testing.T) {
	keys := sessionKeys(t)
	meta := metadata()

	ct, nonce, err := channel.Seal(keys, meta, []byte("payload"))
	require.NoError(t, err)

	var other [32]byte
	other[0] = 0xFF
	otherKeys, err := kdf.DeriveSessionKeys(other)
	require.NoError(t, err)

	_, err = channel.Open(otherKeys, meta, ct, nonce)
	assert.ErrorIs(t, err, domain.ErrDecryptionFailed)
}
