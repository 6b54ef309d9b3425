package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// MessageType enumerates every message the protocol can carry.
type MessageType string

const (
	MsgHandshakeInit     MessageType = "handshake-init"
	MsgHandshakeResponse MessageType = "handshake-response"
	MsgHandshakeProof    MessageType = "handshake-proof"
	MsgHandshakeReady    MessageType = "handshake-ready"
	MsgHandshakeConfirm  MessageType = "handshake-confirm"
	MsgHandshakeComplete MessageType = "handshake-complete"
	MsgData              MessageType = "data"
	MsgHeartbeat         MessageType = "heartbeat"
	MsgError             MessageType = "error"
)

// Valid reports whether t is a member of the fixed message-type set.
func (t MessageType) Valid() bool {
	switch t {
	case MsgHandshakeInit, MsgHandshakeResponse, MsgHandshakeProof,
		MsgHandshakeReady, MsgHandshakeConfirm, MsgHandshakeComplete,
		MsgData, MsgHeartbeat, MsgError:
		return true
	}
	return false
}

// NonceSize is the fixed length of a replay-protection nonce.
const NonceSize = 16

// Nonce is a 128-bit random value, unique per message. It is distinct from
// the AEAD encryption nonce carried next to a ciphertext.
type Nonce [NonceSize]byte

func (n Nonce) Slice() []byte { return n[:] }

// String returns the hex form used on the wire and in logs.
func (n Nonce) String() string { return hex.EncodeToString(n[:]) }

func (n Nonce) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

func (n *Nonce) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	if len(raw) != NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrKeyFormat, NonceSize, len(raw))
	}
	copy(n[:], raw)
	return nil
}

// Envelope is the wire message. Every envelope is signed over its canonical
// byte form; an envelope whose signature does not verify is discarded before
// any other field is interpreted.
//
// Exactly one handshake payload pointer is set for handshake message types.
// Data messages (and the piggy-backed payload of handshake-confirm) carry
// Ciphertext plus EncryptionNonce and a Sequence bound to the session.
type Envelope struct {
	Version   uint16      `json:"version"`
	Type      MessageType `json:"type"`
	SenderID  string      `json:"sender_id"`
	Timestamp time.Time   `json:"timestamp"`
	Nonce     Nonce       `json:"nonce"`
	Sequence  uint64      `json:"sequence,omitempty"`
	Signature []byte      `json:"signature,omitempty"`

	Ciphertext      []byte `json:"ciphertext,omitempty"`
	EncryptionNonce []byte `json:"encryption_nonce,omitempty"`

	Init     *HandshakeInit     `json:"init,omitempty"`
	Response *HandshakeResponse `json:"response,omitempty"`
	Proof    *HandshakeProof    `json:"proof,omitempty"`
	Ready    *HandshakeReady    `json:"ready,omitempty"`
	Confirm  *HandshakeConfirm  `json:"confirm,omitempty"`
	Complete *HandshakeComplete `json:"complete,omitempty"`
	Error    *ErrorInfo         `json:"error,omitempty"`
}

// SessionID returns the session the envelope belongs to, if it carries one.
func (e *Envelope) SessionID() string {
	switch {
	case e.Init != nil:
		return e.Init.SessionID
	case e.Response != nil:
		return e.Response.SessionID
	case e.Proof != nil:
		return e.Proof.SessionID
	case e.Ready != nil:
		return e.Ready.SessionID
	case e.Confirm != nil:
		return e.Confirm.SessionID
	case e.Complete != nil:
		return e.Complete.SessionID
	}
	return ""
}

// HandshakeInit opens a handshake (message 1, initiator).
type HandshakeInit struct {
	SessionID  string        `json:"session_id"`
	Ephemeral  X25519Public  `json:"ephemeral"`
	Challenge  []byte        `json:"challenge"`
	Versions   []uint16      `json:"versions"`
	SigningKey Ed25519Public `json:"signing_key"`
}

// HandshakeResponse answers an init (message 2, responder). The
// ChallengeResponse commits the responder's ephemeral and static keys to the
// initiator's challenge.
type HandshakeResponse struct {
	SessionID         string        `json:"session_id"`
	Ephemeral         X25519Public  `json:"ephemeral"`
	Challenge         []byte        `json:"challenge"`
	ChallengeResponse []byte        `json:"challenge_response"`
	Version           uint16        `json:"version"`
	SigningKey        Ed25519Public `json:"signing_key"`
}

// HandshakeProof proves the initiator to the responder (message 3) and
// carries the negotiated session parameters.
type HandshakeProof struct {
	SessionID         string `json:"session_id"`
	ChallengeResponse []byte `json:"challenge_response"`
	SessionTTLSeconds uint32 `json:"session_ttl_seconds"`
}

// HandshakeReady confirms key derivation on the responder side (message 4).
// KeyFingerprint is a hash over the derived keys, never the keys themselves.
type HandshakeReady struct {
	SessionID      string `json:"session_id"`
	KeyFingerprint []byte `json:"key_fingerprint"`
}

// HandshakeConfirm completes the initiator side (message 5). The first
// application payload rides in the envelope's Ciphertext, already encrypted
// under the new session keys.
type HandshakeConfirm struct {
	SessionID string `json:"session_id"`
}

// HandshakeComplete closes the exchange (message 6) and reports how long the
// handshake took end to end.
type HandshakeComplete struct {
	SessionID      string `json:"session_id"`
	DurationMillis int64  `json:"duration_ms"`
}

// ErrorInfo is the payload of an error envelope.
type ErrorInfo struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// DecryptedMessage is what the application layer receives for an inbound
// data message: the opaque payload plus its provenance.
type DecryptedMessage struct {
	SessionID string
	Sender    string
	Sequence  uint64
	Gap       uint64 // messages skipped before this one, 0 if in order
	Plaintext []byte
	Timestamp time.Time
}
