package kdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentlink/internal/protocol/kdf"
)

func TestDeriveSessionKeys_Deterministic(t *testing.T) {
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i * 7)
	}

	a, err := kdf.DeriveSessionKeys(secret)
	require.NoError(t, err)
	b, err := kdf.DeriveSessionKeys(secret)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDeriveSessionKeys_KeysIndependent(t *testing.T) {
	var secret [32]byte
	secret[0] = 0x42

	keys, err := kdf.DeriveSessionKeys(secret)
	require.NoError(t, err)

	assert.NotEqual(t, keys.EncryptionKey, keys.AuthKey,
		"encryption and auth keys must differ")
	assert.NotEqual(t, [32]byte{}, keys.EncryptionKey)
	assert.NotEqual(t, [32]byte{}, keys.AuthKey)
}

func TestDeriveSessionKeys_SecretSensitivity(t *testing.T) {
	var s1, s2 [32]byte
	s2[31] = 1

	k1, err := kdf.DeriveSessionKeys(s1)
	require.NoError(t, err)
	k2, err := kdf.DeriveSessionKeys(s2)
	require.NoError(t, err)

	assert.NotEqual(t, k1.EncryptionKey, k2.EncryptionKey)
	assert.NotEqual(t, k1.AuthKey, k2.AuthKey)
}

func TestConfirmationFingerprint(t *testing.T) {
	var s1, s2 [32]byte
	s2[0] = 1

	k1, err := kdf.DeriveSessionKeys(s1)
	require.NoError(t, err)
	k2, err := kdf.DeriveSessionKeys(s2)
	require.NoError(t, err)

	f1 := kdf.ConfirmationFingerprint(k1)
	f2 := kdf.ConfirmationFingerprint(k2)

	assert.Equal(t, f1, kdf.ConfirmationFingerprint(k1), "fingerprint must be stable")
	assert.NotEqual(t, f1, f2)
	assert.Len(t, f1, 32)
}
