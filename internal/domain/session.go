package domain

// SessionState tracks a session through the handshake and its steady state.
type SessionState int

const (
	// StateInitial is a freshly created session before any message is sent.
	StateInitial SessionState = iota
	// StateHandshakeSent is the initiator after emitting handshake-init.
	StateHandshakeSent
	// StateHandshakeReceived is the responder after accepting handshake-init.
	StateHandshakeReceived
	// StateKeysDerived is the initiator after verifying the responder's
	// challenge response and deriving session keys.
	StateKeysDerived
	// StateReady is the initiator after the responder's key fingerprint
	// checked out, just before emitting confirm.
	StateReady
	// StateEstablished is a live session carrying application traffic.
	StateEstablished
	// StateExpired is terminal: the session passed its expiry.
	StateExpired
	// StateClosed is terminal: explicit close or handshake failure.
	StateClosed
)

// String returns the canonical state name.
func (s SessionState) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateHandshakeSent:
		return "HANDSHAKE_SENT"
	case StateHandshakeReceived:
		return "HANDSHAKE_RECEIVED"
	case StateKeysDerived:
		return "KEYS_DERIVED"
	case StateReady:
		return "READY"
	case StateEstablished:
		return "ESTABLISHED"
	case StateExpired:
		return "EXPIRED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == StateExpired || s == StateClosed
}

// SessionKeys holds the two independent 32-byte keys derived from a
// handshake's shared secret. Never persisted; held only in memory for the
// session's lifetime.
type SessionKeys struct {
	EncryptionKey [32]byte
	AuthKey       [32]byte
}

// Wipe zeroes both keys in place.
func (k *SessionKeys) Wipe() {
	for i := range k.EncryptionKey {
		k.EncryptionKey[i] = 0
	}
	for i := range k.AuthKey {
		k.AuthKey[i] = 0
	}
}
