package domain

import "errors"

// Protocol error taxonomy. Callers match with errors.Is; lower layers wrap
// these with context via fmt.Errorf("...: %w", ...).
var (
	// ErrKeyFormat reports malformed key bytes. Fatal to the single operation.
	ErrKeyFormat = errors.New("malformed key material")

	// ErrInvalidSignature reports a signature that does not verify. The
	// message is discarded before any other field is interpreted.
	ErrInvalidSignature = errors.New("invalid message signature")

	// ErrReplayDetected reports a nonce seen twice within the replay window.
	ErrReplayDetected = errors.New("replay detected")

	// ErrTimestampOutOfRange reports a message timestamp outside the
	// accepted clock-skew tolerance.
	ErrTimestampOutOfRange = errors.New("timestamp out of range")

	// ErrVersionMismatch reports an empty intersection of supported
	// protocol versions during handshake negotiation.
	ErrVersionMismatch = errors.New("no mutually supported protocol version")

	// ErrHandshakeFailed reports a challenge-response or key-confirmation
	// failure; the session moves to CLOSED.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrHandshakeTimeout reports a handshake that did not reach
	// ESTABLISHED within the configured bound.
	ErrHandshakeTimeout = errors.New("handshake timed out")

	// ErrSequence reports a sequence number below the expected receive
	// sequence (classified as replay). The session remains usable.
	ErrSequence = errors.New("sequence number already consumed")

	// ErrDecryptionFailed reports an AEAD open failure. Repeated failures
	// on one session signal key desynchronization.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrSessionNotFound reports a lookup for an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed reports an operation against a terminal session.
	ErrSessionClosed = errors.New("session closed")

	// ErrNoSession reports a send to a peer with no established session.
	ErrNoSession = errors.New("no established session with peer")
)
