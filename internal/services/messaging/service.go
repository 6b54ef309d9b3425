package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"agentlink/internal/config"
	"agentlink/internal/domain"
	"agentlink/internal/envelope"
	"agentlink/internal/protocol/channel"
	"agentlink/internal/protocol/handshake"
	"agentlink/internal/protocol/replay"
	"agentlink/internal/session"
)

// Service sends and receives application messages for one entity. It owns
// the handshake engine; session state lives in the manager.
type Service struct {
	identity  domain.Identity
	mgr       *session.Manager
	rp        *replay.Protector
	engine    *handshake.Engine
	transport domain.Transport
	cfg       config.Config
	log       zerolog.Logger

	mu              sync.Mutex
	onMessage       func(domain.DecryptedMessage)
	decryptFailures map[string]int // session id -> consecutive failures
}

// New wires a messaging service and its handshake engine.
func New(
	id domain.Identity,
	mgr *session.Manager,
	rp *replay.Protector,
	transport domain.Transport,
	directory domain.Directory,
	cfg config.Config,
	log zerolog.Logger,
) *Service {
	s := &Service{
		identity:        id,
		mgr:             mgr,
		rp:              rp,
		transport:       transport,
		cfg:             cfg,
		log:             log,
		onMessage:       func(domain.DecryptedMessage) {},
		decryptFailures: make(map[string]int),
	}
	s.engine = handshake.NewEngine(id, mgr, rp, transport, directory, cfg, log, s.deliver)
	return s
}

// OnMessage registers the callback invoked for every decrypted inbound
// payload, including the one piggy-backed on handshake confirmation.
func (s *Service) OnMessage(fn func(domain.DecryptedMessage)) {
	if fn == nil {
		fn = func(domain.DecryptedMessage) {}
	}
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// Engine exposes the handshake engine, mainly for tests.
func (s *Service) Engine() *handshake.Engine { return s.engine }

// Connect returns an established session with remoteID, running a handshake
// if none exists. firstPayload piggy-backs on the handshake confirmation and
// consumes sequence zero. When a handshake is already in flight, Connect
// waits on it and firstPayload is discarded: the in-flight exchange keeps
// the payload it started with, and the caller should Send anything else
// once the session is up.
func (s *Service) Connect(ctx context.Context, remoteID string, firstPayload []byte) (*session.Session, error) {
	if sess, ok := s.mgr.GetByPeer(remoteID); ok && sess.State() == domain.StateEstablished {
		return sess, nil
	}
	sess, err := s.engine.Initiate(ctx, remoteID, firstPayload)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Await(ctx, sess.ID()); err != nil {
		return nil, err
	}
	// The tie-break may have superseded the session we initiated.
	if survivor, ok := s.mgr.GetByPeer(remoteID); ok {
		sess = survivor
	}
	if sess.State() != domain.StateEstablished {
		return nil, fmt.Errorf("%w: session with %s is %s", domain.ErrNoSession, remoteID, sess.State())
	}
	return sess, nil
}

// Send encrypts payload for remoteID over the established session and
// returns the sequence number it was stamped with.
func (s *Service) Send(ctx context.Context, remoteID string, payload []byte) (uint64, error) {
	sess, ok := s.mgr.GetByPeer(remoteID)
	if !ok || sess.State() != domain.StateEstablished {
		return 0, fmt.Errorf("%w: no established session with %s", domain.ErrNoSession, remoteID)
	}
	keys, ok := sess.Keys()
	if !ok {
		return 0, fmt.Errorf("%w: session %s has no keys", domain.ErrNoSession, sess.ID())
	}

	env, err := envelope.New(sess.Version(), domain.MsgData, s.identity.EntityID)
	if err != nil {
		return 0, err
	}
	seq := sess.NextSendSequence()
	ct, nonce, err := channel.Seal(keys, channel.Metadata{
		SenderID:  s.identity.EntityID,
		Sequence:  seq,
		Timestamp: env.Timestamp,
	}, payload)
	if err != nil {
		return 0, err
	}
	env.Sequence = seq
	env.Ciphertext = ct
	env.EncryptionNonce = nonce
	envelope.Sign(env, s.identity.EdPriv)

	if err := s.transport.Deliver(ctx, remoteID, env); err != nil {
		return 0, fmt.Errorf("deliver data: %w", err)
	}
	sess.Touch(s.cfg.SessionTTL())
	s.log.Debug().Str("peer", remoteID).Uint64("seq", seq).Int("bytes", len(payload)).Msg("sent")
	return seq, nil
}

// Heartbeat sends a signed keep-alive over the established session with
// remoteID, extending expiry on both sides.
func (s *Service) Heartbeat(ctx context.Context, remoteID string) error {
	sess, ok := s.mgr.GetByPeer(remoteID)
	if !ok || sess.State() != domain.StateEstablished {
		return fmt.Errorf("%w: no established session with %s", domain.ErrNoSession, remoteID)
	}

	env, err := envelope.New(sess.Version(), domain.MsgHeartbeat, s.identity.EntityID)
	if err != nil {
		return err
	}
	envelope.Sign(env, s.identity.EdPriv)

	if err := s.transport.Deliver(ctx, remoteID, env); err != nil {
		return fmt.Errorf("deliver heartbeat: %w", err)
	}
	sess.Touch(s.cfg.SessionTTL())
	return nil
}

// Close terminates the session with remoteID, if any. Key material is wiped;
// replay history for the peer is kept so old envelopes stay dead.
func (s *Service) Close(remoteID string) {
	if sess, ok := s.mgr.GetByPeer(remoteID); ok {
		s.mgr.Terminate(sess.ID())
	}
}

// HandleInbound is the single entry point the transport calls with a decoded
// envelope.
func (s *Service) HandleInbound(ctx context.Context, env *domain.Envelope) error {
	switch env.Type {
	case domain.MsgHandshakeInit, domain.MsgHandshakeResponse, domain.MsgHandshakeProof,
		domain.MsgHandshakeReady, domain.MsgHandshakeConfirm, domain.MsgHandshakeComplete:
		return s.engine.Handle(ctx, env)
	case domain.MsgData:
		return s.handleData(env)
	case domain.MsgHeartbeat:
		return s.handleHeartbeat(env)
	case domain.MsgError:
		return s.handleError(env)
	default:
		return fmt.Errorf("unknown message type %q from %s", env.Type, env.SenderID)
	}
}

func (s *Service) handleData(env *domain.Envelope) error {
	sess, err := s.verifiedSession(env)
	if err != nil {
		return err
	}
	keys, ok := sess.Keys()
	if !ok {
		return fmt.Errorf("%w: session %s has no keys", domain.ErrNoSession, sess.ID())
	}

	plaintext, err := channel.Open(keys, channel.Metadata{
		SenderID:  env.SenderID,
		Sequence:  env.Sequence,
		Timestamp: env.Timestamp,
	}, env.Ciphertext, env.EncryptionNonce)
	if err != nil {
		s.noteDecryptFailure(sess)
		return err
	}
	s.clearDecryptFailures(sess.ID())

	gap, err := sess.ValidateReceive(env.Sequence)
	if err != nil {
		s.log.Warn().Err(err).Str("sender", env.SenderID).Uint64("seq", env.Sequence).
			Msg("sequence rejected")
		return err
	}
	if gap > 0 {
		s.log.Warn().Str("sender", env.SenderID).Uint64("seq", env.Sequence).Uint64("gap", gap).
			Msg("sequence gap; possible message loss")
	}
	sess.Touch(s.cfg.SessionTTL())

	s.deliver(domain.DecryptedMessage{
		SessionID: sess.ID(),
		Sender:    env.SenderID,
		Sequence:  env.Sequence,
		Gap:       gap,
		Plaintext: plaintext,
		Timestamp: env.Timestamp,
	})
	return nil
}

func (s *Service) handleHeartbeat(env *domain.Envelope) error {
	sess, err := s.verifiedSession(env)
	if err != nil {
		return err
	}
	sess.Touch(s.cfg.SessionTTL())
	s.log.Debug().Str("peer", env.SenderID).Msg("heartbeat")
	return nil
}

// handleError logs a peer-reported failure and tears down any session still
// mid-handshake with that peer; the peer has already given up on it.
func (s *Service) handleError(env *domain.Envelope) error {
	sess, err := s.verifiedSession(env)
	if err != nil {
		return err
	}
	code, detail := "", ""
	if env.Error != nil {
		code, detail = env.Error.Code, env.Error.Detail
	}
	s.log.Warn().Str("peer", env.SenderID).Str("code", code).Str("detail", detail).
		Msg("peer reported error")
	if sess.State() != domain.StateEstablished {
		s.mgr.Terminate(sess.ID())
	}
	return nil
}

// verifiedSession authenticates a non-handshake envelope against the session
// with its sender: signature first, then replay.
func (s *Service) verifiedSession(env *domain.Envelope) (*session.Session, error) {
	sess, ok := s.mgr.GetByPeer(env.SenderID)
	if !ok {
		return nil, fmt.Errorf("%w: no session with %s", domain.ErrNoSession, env.SenderID)
	}
	if err := envelope.Verify(env, sess.RemoteSigningKey()); err != nil {
		s.log.Warn().Err(err).Str("sender", env.SenderID).Msg("discarding envelope")
		return nil, err
	}
	if err := s.rp.Check(env.SenderID, env.Nonce, env.Timestamp); err != nil {
		s.log.Warn().Err(err).Str("sender", env.SenderID).Msg("security event")
		return nil, err
	}
	return sess, nil
}

func (s *Service) noteDecryptFailure(sess *session.Session) {
	s.mu.Lock()
	s.decryptFailures[sess.ID()]++
	failures := s.decryptFailures[sess.ID()]
	s.mu.Unlock()

	s.log.Warn().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Int("failures", failures).Msg("decrypt failure")
	if failures >= s.cfg.MaxDecryptFailures {
		s.log.Error().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
			Msg("too many decrypt failures; terminating session")
		s.mgr.Terminate(sess.ID())
		s.clearDecryptFailures(sess.ID())
	}
}

func (s *Service) clearDecryptFailures(sessionID string) {
	s.mu.Lock()
	delete(s.decryptFailures, sessionID)
	s.mu.Unlock()
}

func (s *Service) deliver(m domain.DecryptedMessage) {
	s.mu.Lock()
	fn := s.onMessage
	s.mu.Unlock()
	fn(m)
}
