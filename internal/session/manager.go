package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"agentlink/internal/domain"
)

type peerKey struct {
	local, remote string
}

// Manager owns every session of one entity. It is the only component with
// shared mutable state; the map is guarded by one RWMutex while per-session
// mutation stays behind each session's own lock.
type Manager struct {
	localID          string
	handshakeTimeout time.Duration
	sessionTTL       time.Duration
	sweepInterval    time.Duration
	seqWindow        int
	log              zerolog.Logger

	mu     sync.RWMutex
	byID   map[string]*Session
	byPeer map[peerKey]string
}

// ManagerOptions carries the tunables the manager needs.
type ManagerOptions struct {
	HandshakeTimeout time.Duration
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	SequenceWindow   int
}

// NewManager returns an empty manager for localID.
func NewManager(localID string, opts ManagerOptions, log zerolog.Logger) *Manager {
	return &Manager{
		localID:          localID,
		handshakeTimeout: opts.HandshakeTimeout,
		sessionTTL:       opts.SessionTTL,
		sweepInterval:    opts.SweepInterval,
		seqWindow:        opts.SequenceWindow,
		log:              log,
		byID:             make(map[string]*Session),
		byPeer:           make(map[peerKey]string),
	}
}

// LocalID returns the owning entity id.
func (m *Manager) LocalID() string { return m.localID }

// SessionTTL returns the configured established-session lifetime.
func (m *Manager) SessionTTL() time.Duration { return m.sessionTTL }

// CreateOrGet returns the live session with remoteID, creating one with a
// fresh random id when none exists. It never produces two live sessions to
// the same peer: a duplicate request reuses the existing session.
func (m *Manager) CreateOrGet(remoteID string) (s *Session, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := peerKey{m.localID, remoteID}
	if id, ok := m.byPeer[key]; ok {
		if existing := m.byID[id]; existing != nil && !existing.State().Terminal() {
			return existing, false
		}
	}

	s = New(uuid.NewString(), m.localID, remoteID, m.handshakeTimeout, m.seqWindow)
	m.byID[s.ID()] = s
	m.byPeer[key] = s.ID()
	return s, true
}

// Adopt registers a responder-side session whose id was chosen by the
// initiator. An existing live session to the same peer is superseded, never
// silently duplicated.
func (m *Manager) Adopt(sessionID, remoteID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("%w: session id %q is not a UUID", domain.ErrHandshakeFailed, sessionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byID[sessionID]; ok {
		return existing, nil
	}

	key := peerKey{m.localID, remoteID}
	if oldID, ok := m.byPeer[key]; ok {
		if old := m.byID[oldID]; old != nil {
			old.Close()
			m.log.Debug().Str("session_id", oldID).Str("peer", remoteID).
				Msg("superseding session for peer")
		}
		delete(m.byID, oldID)
	}

	s := New(sessionID, m.localID, remoteID, m.handshakeTimeout, m.seqWindow)
	m.byID[sessionID] = s
	m.byPeer[key] = sessionID
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byID[sessionID]
	return s, ok
}

// GetByPeer returns the session with remoteID, if any.
func (m *Manager) GetByPeer(remoteID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byPeer[peerKey{m.localID, remoteID}]
	if !ok {
		return nil, false
	}
	s, ok := m.byID[id]
	return s, ok
}

// UpdateState transitions the identified session.
func (m *Manager) UpdateState(sessionID string, next domain.SessionState) error {
	s, ok := m.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return s.SetState(next)
}

// Terminate closes and removes the identified session. Unknown ids are a
// no-op so termination stays idempotent.
func (m *Manager) Terminate(sessionID string) {
	m.mu.Lock()
	s, ok := m.byID[sessionID]
	if ok {
		delete(m.byID, sessionID)
		key := peerKey{m.localID, s.RemoteID()}
		if m.byPeer[key] == sessionID {
			delete(m.byPeer, key)
		}
	}
	m.mu.Unlock()

	if ok {
		s.Close()
		m.log.Debug().Str("session_id", sessionID).Str("peer", s.RemoteID()).Msg("session terminated")
	}
}

// SweepExpired removes sessions past their expiry and handshakes stuck past
// the handshake timeout. It returns how many sessions were evicted.
func (m *Manager) SweepExpired() int {
	now := time.Now()

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.byID))
	for _, s := range m.byID {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	evicted := 0
	for _, s := range candidates {
		if !s.dueForEviction(now) {
			continue
		}
		m.mu.Lock()
		delete(m.byID, s.ID())
		key := peerKey{m.localID, s.RemoteID()}
		if m.byPeer[key] == s.ID() {
			delete(m.byPeer, key)
		}
		m.mu.Unlock()
		evicted++
		m.log.Info().Str("session_id", s.ID()).Str("peer", s.RemoteID()).
			Stringer("state", s.State()).Msg("session evicted")
	}
	return evicted
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.SweepExpired(); n > 0 {
				m.log.Debug().Int("count", n).Msg("expiry sweep")
			}
		}
	}
}
