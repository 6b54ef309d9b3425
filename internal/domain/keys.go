package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ------------- X25519 -------------

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// X25519PublicFromBytes copies b into a public key, rejecting wrong lengths.
func X25519PublicFromBytes(b []byte) (X25519Public, error) {
	var out X25519Public
	if len(b) != 32 {
		return out, fmt.Errorf("%w: X25519 public key must be 32 bytes, got %d", ErrKeyFormat, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ------------- Ed25519 -------------

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// Ed25519PublicFromBytes copies b into a public key, rejecting wrong lengths.
func Ed25519PublicFromBytes(b []byte) (Ed25519Public, error) {
	var out Ed25519Public
	if len(b) != 32 {
		return out, fmt.Errorf("%w: Ed25519 public key must be 32 bytes, got %d", ErrKeyFormat, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ------------- JSON encoding -------------

// Fixed-size keys travel as base64 strings so envelopes stay readable and
// round-trip exactly.

func marshalKey(b []byte) ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

func unmarshalKey(data []byte, want int, dst []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	if len(raw) != want {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrKeyFormat, want, len(raw))
	}
	copy(dst, raw)
	return nil
}

func (k X25519Public) MarshalJSON() ([]byte, error)  { return marshalKey(k[:]) }
func (k *X25519Public) UnmarshalJSON(b []byte) error { return unmarshalKey(b, 32, k[:]) }

func (k Ed25519Public) MarshalJSON() ([]byte, error)  { return marshalKey(k[:]) }
func (k *Ed25519Public) UnmarshalJSON(b []byte) error { return unmarshalKey(b, 32, k[:]) }

func (k Ed25519Private) MarshalJSON() ([]byte, error)  { return marshalKey(k[:]) }
func (k *Ed25519Private) UnmarshalJSON(b []byte) error { return unmarshalKey(b, 64, k[:]) }
