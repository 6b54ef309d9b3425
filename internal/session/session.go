package session

import (
	"fmt"
	"sync"
	"time"

	"agentlink/internal/domain"
)

// Session is the live state shared between the handshake engine, the secure
// channel and sequence validation. Zero or one of these exists per
// (local, remote) entity pair at any time.
type Session struct {
	mu sync.Mutex

	id       string
	localID  string
	remoteID string

	state   domain.SessionState
	version uint16

	ephPriv    domain.X25519Private
	ephPub     domain.X25519Public
	remoteEph  domain.X25519Public
	remoteSign domain.Ed25519Public
	keys       *domain.SessionKeys

	createdAt         time.Time
	expiresAt         time.Time
	handshakeDeadline time.Time

	sendSeq         uint64
	expectedRecvSeq uint64
	recvWindow      []uint64
	recvWindowSize  int
}

// New returns a fresh session in INITIAL state. The handshake deadline
// starts immediately; expiry is set once the handshake establishes.
func New(id, localID, remoteID string, handshakeTimeout time.Duration, seqWindow int) *Session {
	now := time.Now()
	return &Session{
		id:                id,
		localID:           localID,
		remoteID:          remoteID,
		state:             domain.StateInitial,
		createdAt:         now,
		handshakeDeadline: now.Add(handshakeTimeout),
		recvWindowSize:    seqWindow,
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) LocalID() string  { return s.localID }
func (s *Session) RemoteID() string { return s.remoteID }

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session. Transitions out of a terminal state are
// rejected; Close and Expire are the only paths into terminal states.
func (s *Session) SetState(next domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return fmt.Errorf("%w: session %s is %s", domain.ErrSessionClosed, s.id, s.state)
	}
	s.state = next
	return nil
}

// SetVersion records the protocol version negotiated for this session.
func (s *Session) SetVersion(v uint16) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

// Version returns the negotiated protocol version, defaulting to 1 before
// negotiation completes.
func (s *Session) Version() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version == 0 {
		return 1
	}
	return s.version
}

// BindEphemeral stores this side's one-time exchange pair.
func (s *Session) BindEphemeral(priv domain.X25519Private, pub domain.X25519Public) {
	s.mu.Lock()
	s.ephPriv, s.ephPub = priv, pub
	s.mu.Unlock()
}

// Ephemeral returns this side's exchange pair.
func (s *Session) Ephemeral() (domain.X25519Private, domain.X25519Public) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ephPriv, s.ephPub
}

// SetRemoteSigningKey pins the peer's long-term signing key before the
// handshake has supplied its ephemeral.
func (s *Session) SetRemoteSigningKey(sign domain.Ed25519Public) {
	s.mu.Lock()
	s.remoteSign = sign
	s.mu.Unlock()
}

// SetRemote records the peer's ephemeral exchange key and signing key.
func (s *Session) SetRemote(eph domain.X25519Public, sign domain.Ed25519Public) {
	s.mu.Lock()
	s.remoteEph, s.remoteSign = eph, sign
	s.mu.Unlock()
}

// RemoteEphemeral returns the peer's exchange key.
func (s *Session) RemoteEphemeral() domain.X25519Public {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteEph
}

// RemoteSigningKey returns the peer's long-term signing key as learned
// during the handshake.
func (s *Session) RemoteSigningKey() domain.Ed25519Public {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteSign
}

// SetKeys installs the derived session keys.
func (s *Session) SetKeys(keys domain.SessionKeys) {
	s.mu.Lock()
	s.keys = &keys
	s.mu.Unlock()
}

// Keys returns the session keys, or false before key derivation.
func (s *Session) Keys() (domain.SessionKeys, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		return domain.SessionKeys{}, false
	}
	return *s.keys, true
}

// Establish marks the session live for ttl and clears the handshake
// deadline.
func (s *Session) Establish(ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return fmt.Errorf("%w: session %s is %s", domain.ErrSessionClosed, s.id, s.state)
	}
	s.state = domain.StateEstablished
	s.expiresAt = time.Now().Add(ttl)
	s.handshakeDeadline = time.Time{}
	return nil
}

// Touch extends an established session's expiry, e.g. on heartbeat.
func (s *Session) Touch(ttl time.Duration) {
	s.mu.Lock()
	if s.state == domain.StateEstablished {
		s.expiresAt = time.Now().Add(ttl)
	}
	s.mu.Unlock()
}

// ExpiresAt returns the current expiry; zero until established.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// NextSendSequence returns the sequence number to stamp on an outbound
// message and advances the counter. Sequence numbers are owned exclusively
// by the local side and never reused.
func (s *Session) NextSendSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.sendSeq
	s.sendSeq++
	return seq
}

// ValidateReceive checks an inbound sequence number against the expected
// receive sequence. Below expected is a replay (domain.ErrSequence); equal
// advances; greater is accepted and the gap size reported so the
// application can surface possible message loss.
func (s *Session) ValidateReceive(seq uint64) (gap uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateEstablished {
		return 0, fmt.Errorf("%w: session %s is %s", domain.ErrNoSession, s.id, s.state)
	}
	if seq < s.expectedRecvSeq {
		return 0, fmt.Errorf("%w: got %d, expected at least %d", domain.ErrSequence, seq, s.expectedRecvSeq)
	}
	gap = seq - s.expectedRecvSeq
	s.expectedRecvSeq = seq + 1

	s.recvWindow = append(s.recvWindow, seq)
	if len(s.recvWindow) > s.recvWindowSize {
		s.recvWindow = s.recvWindow[len(s.recvWindow)-s.recvWindowSize:]
	}
	return gap, nil
}

// ExpectedReceiveSequence returns the next sequence this side will accept.
func (s *Session) ExpectedReceiveSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expectedRecvSeq
}

// RecentReceiveSequences returns a copy of the recently accepted window.
func (s *Session) RecentReceiveSequences() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.recvWindow...)
}

// Close moves the session to CLOSED and wipes key material. It is safe and
// idempotent at any point of the lifecycle.
func (s *Session) Close() {
	s.terminate(domain.StateClosed)
}

// expire moves the session to EXPIRED and wipes key material.
func (s *Session) expire() {
	s.terminate(domain.StateExpired)
}

func (s *Session) terminate(state domain.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = state
	s.wipeLocked()
}

func (s *Session) wipeLocked() {
	if s.keys != nil {
		s.keys.Wipe()
		s.keys = nil
	}
	for i := range s.ephPriv {
		s.ephPriv[i] = 0
	}
}

// dueForEviction reports whether the sweep should terminate this session,
// holding the session lock for the whole decision so it cannot race a state
// transition. It performs the terminal transition itself when due.
func (s *Session) dueForEviction(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.state.Terminal():
		return true
	case s.state == domain.StateEstablished:
		if !s.expiresAt.IsZero() && now.After(s.expiresAt) {
			s.state = domain.StateExpired
			s.wipeLocked()
			return true
		}
	default:
		// Mid-handshake: evict when stuck past the handshake deadline.
		if now.After(s.handshakeDeadline) {
			s.state = domain.StateExpired
			s.wipeLocked()
			return true
		}
	}
	return false
}
