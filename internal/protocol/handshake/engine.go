package handshake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"agentlink/internal/config"
	"agentlink/internal/crypto"
	"agentlink/internal/domain"
	"agentlink/internal/envelope"
	"agentlink/internal/protocol/replay"
	"agentlink/internal/session"
)

// Engine runs handshakes for one local entity. It owns the in-flight
// exchange bookkeeping; established sessions live in the session manager.
type Engine struct {
	identity  domain.Identity
	mgr       *session.Manager
	replay    *replay.Protector
	transport domain.Transport
	directory domain.Directory
	cfg       config.Config
	log       zerolog.Logger

	// onMessage receives the payload piggy-backed on handshake-confirm.
	onMessage func(domain.DecryptedMessage)

	mu      sync.Mutex
	pending map[string]*exchange
}

// exchange is the per-handshake scratch state that does not belong on the
// session: challenges, negotiated version and the completion signal.
type exchange struct {
	initiator      bool
	peer           string
	started        time.Time
	localChallenge []byte
	version        uint16
	ttl            time.Duration
	firstPayload   []byte

	// linked is a superseded initiator exchange adopted through the
	// simultaneous-initiation tie-break; it completes when this one does.
	linked *exchange

	// expire reaps the exchange if it is still pending past the handshake
	// timeout; armed by Engine.register, disarmed by finish.
	expire *time.Timer

	once sync.Once
	done chan struct{}
	err  error
}

func (ex *exchange) finish(err error) {
	ex.once.Do(func() {
		if ex.expire != nil {
			ex.expire.Stop()
		}
		ex.err = err
		close(ex.done)
		if ex.linked != nil {
			ex.linked.finish(err)
		}
	})
}

// NewEngine wires a handshake engine. onMessage may be nil when the caller
// does not care about piggy-backed first payloads.
func NewEngine(
	identity domain.Identity,
	mgr *session.Manager,
	rp *replay.Protector,
	transport domain.Transport,
	directory domain.Directory,
	cfg config.Config,
	log zerolog.Logger,
	onMessage func(domain.DecryptedMessage),
) *Engine {
	if onMessage == nil {
		onMessage = func(domain.DecryptedMessage) {}
	}
	return &Engine{
		identity:  identity,
		mgr:       mgr,
		replay:    rp,
		transport: transport,
		directory: directory,
		cfg:       cfg,
		log:       log,
		onMessage: onMessage,
		pending:   make(map[string]*exchange),
	}
}

// Initiate opens a handshake with remoteID and sends message 1. The peer
// must be known to the directory: the discovery layer supplies the signing
// key every later step is verified against. The first application payload to
// piggy-back on handshake-confirm is supplied up front; it saves a round
// trip once the session establishes. Use Await to block until the handshake
// settles.
//
// When a handshake with remoteID is already in flight, the existing session
// is returned and firstPayload is discarded: the in-flight exchange keeps
// the payload it started with.
func (e *Engine) Initiate(ctx context.Context, remoteID string, firstPayload []byte) (*session.Session, error) {
	if remoteID == e.identity.EntityID {
		return nil, fmt.Errorf("%w: cannot handshake with self", domain.ErrHandshakeFailed)
	}
	info, ok := e.directory.Lookup(remoteID)
	if !ok {
		return nil, fmt.Errorf("%w: no signing key known for %q", domain.ErrHandshakeFailed, remoteID)
	}

	sess, created := e.mgr.CreateOrGet(remoteID)
	if !created {
		if len(firstPayload) > 0 && sess.State() != domain.StateEstablished {
			e.log.Debug().Str("session_id", sess.ID()).Str("peer", remoteID).
				Msg("handshake already in flight; keeping its original first payload")
		}
		return sess, nil
	}
	sess.SetRemoteSigningKey(info.SigningKey)

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	sess.BindEphemeral(ephPriv, ephPub)

	challenge, err := newChallenge()
	if err != nil {
		return nil, err
	}

	ex := &exchange{
		initiator:      true,
		peer:           remoteID,
		started:        time.Now(),
		localChallenge: challenge,
		ttl:            e.mgr.SessionTTL(),
		firstPayload:   firstPayload,
		done:           make(chan struct{}),
	}
	e.register(sess.ID(), ex)

	env, err := envelope.New(Version, domain.MsgHandshakeInit, e.identity.EntityID)
	if err != nil {
		return nil, err
	}
	env.Init = &domain.HandshakeInit{
		SessionID:  sess.ID(),
		Ephemeral:  ephPub,
		Challenge:  challenge,
		Versions:   SupportedVersions,
		SigningKey: e.identity.EdPub,
	}
	envelope.Sign(env, e.identity.EdPriv)

	if err := sess.SetState(domain.StateHandshakeSent); err != nil {
		return nil, err
	}
	e.log.Debug().Str("session_id", sess.ID()).Str("peer", remoteID).Msg("handshake initiated")

	if err := e.transport.Deliver(ctx, remoteID, env); err != nil {
		e.abort(sess, fmt.Errorf("deliver init: %w", err))
		return nil, err
	}
	return sess, nil
}

// Await blocks until the handshake for sessionID settles, the configured
// handshake timeout passes, or ctx is cancelled.
func (e *Engine) Await(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	ex, ok := e.pending[sessionID]
	e.mu.Unlock()
	if !ok {
		// Already settled; report the session's fate.
		if s, found := e.mgr.Get(sessionID); found && s.State() == domain.StateEstablished {
			return nil
		}
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	timer := time.NewTimer(e.cfg.HandshakeTimeout())
	defer timer.Stop()

	select {
	case <-ex.done:
		return ex.err
	case <-timer.C:
		e.abortByID(sessionID, domain.ErrHandshakeTimeout)
		return domain.ErrHandshakeTimeout
	case <-ctx.Done():
		e.abortByID(sessionID, ctx.Err())
		return ctx.Err()
	}
}

// Handle processes one inbound handshake envelope: signature first, then
// replay, then the step logic. It is the single entry point the transport
// layer calls for handshake message types.
func (e *Engine) Handle(ctx context.Context, env *domain.Envelope) error {
	senderKey, err := e.senderKey(env)
	if err != nil {
		return err
	}
	if err := envelope.Verify(env, senderKey); err != nil {
		e.log.Warn().Err(err).Str("sender", env.SenderID).Msg("discarding envelope")
		return err
	}
	if err := e.replay.Check(env.SenderID, env.Nonce, env.Timestamp); err != nil {
		e.log.Warn().Err(err).Str("sender", env.SenderID).Msg("security event")
		return err
	}

	switch env.Type {
	case domain.MsgHandshakeInit:
		return e.handleInit(ctx, env, senderKey)
	case domain.MsgHandshakeResponse:
		return e.handleResponse(ctx, env, senderKey)
	case domain.MsgHandshakeProof:
		return e.handleProof(ctx, env, senderKey)
	case domain.MsgHandshakeReady:
		return e.handleReady(ctx, env)
	case domain.MsgHandshakeConfirm:
		return e.handleConfirm(ctx, env)
	case domain.MsgHandshakeComplete:
		return e.handleComplete(env)
	default:
		return fmt.Errorf("%w: %q is not a handshake message", domain.ErrHandshakeFailed, env.Type)
	}
}

// senderKey resolves the signing key to verify env with. The directory wins
// when it knows the sender. Only a first-contact init may introduce its own
// key (trust-on-first-use); every later step is verified against the key
// already expected for the session's peer, never a key the message carries.
func (e *Engine) senderKey(env *domain.Envelope) (domain.Ed25519Public, error) {
	var embedded *domain.Ed25519Public
	switch {
	case env.Init != nil:
		embedded = &env.Init.SigningKey
	case env.Response != nil:
		embedded = &env.Response.SigningKey
	}

	if info, ok := e.directory.Lookup(env.SenderID); ok {
		if embedded != nil && *embedded != info.SigningKey {
			return domain.Ed25519Public{}, fmt.Errorf(
				"%w: sender %q embedded a signing key that differs from the directory",
				domain.ErrInvalidSignature, env.SenderID)
		}
		return info.SigningKey, nil
	}

	// First contact: an init may introduce the sender's key.
	if env.Init != nil {
		return *embedded, nil
	}

	// Everything after init is bound to the key expected for the session's
	// peer: pinned at Initiate for the initiator, learned from the init for
	// the responder.
	if sid := env.SessionID(); sid != "" {
		if sess, ok := e.mgr.Get(sid); ok && sess.RemoteID() == env.SenderID {
			if key := sess.RemoteSigningKey(); key != (domain.Ed25519Public{}) {
				if embedded != nil && *embedded != key {
					return domain.Ed25519Public{}, fmt.Errorf(
						"%w: sender %q embedded a signing key that differs from the expected peer key",
						domain.ErrInvalidSignature, env.SenderID)
				}
				return key, nil
			}
		}
	}
	return domain.Ed25519Public{}, fmt.Errorf("%w: no signing key known for %q",
		domain.ErrInvalidSignature, env.SenderID)
}

// sessionAndExchange fetches both halves of the handshake state for a step
// and binds the envelope's sender to the session's peer: a step for a
// session the sender does not own is discarded without touching the session.
func (e *Engine) sessionAndExchange(env *domain.Envelope) (*session.Session, *exchange, error) {
	sessionID := env.SessionID()
	sess, ok := e.mgr.Get(sessionID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	if sess.RemoteID() != env.SenderID {
		return nil, nil, fmt.Errorf("%w: sender %q does not own session %s",
			domain.ErrHandshakeFailed, env.SenderID, sessionID)
	}
	e.mu.Lock()
	ex, ok := e.pending[sessionID]
	e.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: no handshake in flight for session %s",
			domain.ErrHandshakeFailed, sessionID)
	}
	return sess, ex, nil
}

// register tracks an in-flight exchange and arms its expiry so abandoned
// handshakes cannot accumulate.
func (e *Engine) register(sessionID string, ex *exchange) {
	ex.expire = time.AfterFunc(e.cfg.HandshakeTimeout(), func() { e.expireExchange(sessionID) })
	e.mu.Lock()
	e.pending[sessionID] = ex
	e.mu.Unlock()
}

// expireExchange reaps an exchange still pending past the handshake timeout.
func (e *Engine) expireExchange(sessionID string) {
	e.mu.Lock()
	ex, ok := e.pending[sessionID]
	delete(e.pending, sessionID)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.mgr.Terminate(sessionID)
	ex.finish(domain.ErrHandshakeTimeout)
	e.log.Warn().Str("session_id", sessionID).Msg("handshake expired")
}

// Pending returns the number of in-flight exchanges.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// abort closes the session and settles its exchange with err.
func (e *Engine) abort(sess *session.Session, err error) {
	e.mu.Lock()
	ex := e.pending[sess.ID()]
	delete(e.pending, sess.ID())
	e.mu.Unlock()

	e.mgr.Terminate(sess.ID())
	if ex != nil {
		ex.finish(err)
	}
	e.log.Warn().Err(err).Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Msg("handshake aborted")
}

func (e *Engine) abortByID(sessionID string, err error) {
	if sess, ok := e.mgr.Get(sessionID); ok {
		e.abort(sess, err)
		return
	}
	e.mu.Lock()
	ex := e.pending[sessionID]
	delete(e.pending, sessionID)
	e.mu.Unlock()
	if ex != nil {
		ex.finish(err)
	}
}

// settle removes the exchange bookkeeping for an established session.
func (e *Engine) settle(sessionID string, ex *exchange) {
	e.mu.Lock()
	delete(e.pending, sessionID)
	e.mu.Unlock()
	ex.finish(nil)
}
