package handshake

import (
	"context"
	"crypto/hmac"
	"fmt"
	"time"

	"agentlink/internal/crypto"
	"agentlink/internal/domain"
	"agentlink/internal/envelope"
	"agentlink/internal/protocol/channel"
	"agentlink/internal/protocol/kdf"
	"agentlink/internal/session"
)

// handleInit is the responder receiving message 1.
func (e *Engine) handleInit(ctx context.Context, env *domain.Envelope, senderKey domain.Ed25519Public) error {
	init := env.Init
	if init == nil {
		return fmt.Errorf("%w: init message without init payload", domain.ErrHandshakeFailed)
	}
	sender := env.SenderID

	// Simultaneous initiation: if we are mid-handshake with this peer as
	// initiator, the lexicographically smaller entity id yields and adopts
	// the peer's session.
	var linked *exchange
	if existing, ok := e.mgr.GetByPeer(sender); ok && !existing.State().Terminal() {
		if existing.State() != domain.StateEstablished && e.identity.EntityID > sender {
			e.log.Debug().Str("peer", sender).Str("session_id", existing.ID()).
				Msg("dropping peer init; peer yields the tie-break")
			return nil
		}
		e.mu.Lock()
		linked = e.pending[existing.ID()]
		delete(e.pending, existing.ID())
		e.mu.Unlock()
		e.log.Debug().Str("peer", sender).Str("session_id", existing.ID()).
			Msg("yielding tie-break; adopting peer session")
	}

	sess, err := e.mgr.Adopt(init.SessionID, sender)
	if err != nil {
		if linked != nil {
			linked.finish(err)
		}
		return err
	}

	version, err := negotiate(SupportedVersions, init.Versions)
	if err != nil {
		e.sendError(ctx, sender, "version-mismatch", err.Error())
		e.abort(sess, err)
		if linked != nil {
			linked.finish(err)
		}
		return err
	}

	sess.SetRemote(init.Ephemeral, senderKey)
	sess.SetVersion(version)
	if err := sess.SetState(domain.StateHandshakeReceived); err != nil {
		return err
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		e.abort(sess, err)
		return err
	}
	sess.BindEphemeral(ephPriv, ephPub)

	challenge, err := newChallenge()
	if err != nil {
		e.abort(sess, err)
		return err
	}

	ex := &exchange{
		peer:           sender,
		started:        time.Now(),
		localChallenge: challenge,
		version:        version,
		linked:         linked,
		done:           make(chan struct{}),
	}
	e.register(sess.ID(), ex)

	out, err := envelope.New(version, domain.MsgHandshakeResponse, e.identity.EntityID)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	out.Response = &domain.HandshakeResponse{
		SessionID:         sess.ID(),
		Ephemeral:         ephPub,
		Challenge:         challenge,
		ChallengeResponse: challengeResponse(init.Challenge, ephPub, e.identity.EdPub),
		Version:           version,
		SigningKey:        e.identity.EdPub,
	}
	envelope.Sign(out, e.identity.EdPriv)

	if err := e.transport.Deliver(ctx, sender, out); err != nil {
		e.abort(sess, fmt.Errorf("deliver response: %w", err))
		return err
	}
	return nil
}

// handleResponse is the initiator receiving message 2.
func (e *Engine) handleResponse(ctx context.Context, env *domain.Envelope, senderKey domain.Ed25519Public) error {
	resp := env.Response
	if resp == nil {
		return fmt.Errorf("%w: response message without response payload", domain.ErrHandshakeFailed)
	}
	sess, ex, err := e.sessionAndExchange(env)
	if err != nil {
		return err
	}
	if !ex.initiator || sess.State() != domain.StateHandshakeSent {
		return e.outOfOrder(sess, env.Type)
	}

	if _, err := negotiate(SupportedVersions, []uint16{resp.Version}); err != nil {
		e.abort(sess, err)
		return err
	}

	expected := challengeResponse(ex.localChallenge, resp.Ephemeral, senderKey)
	if !hmac.Equal(expected, resp.ChallengeResponse) {
		err := fmt.Errorf("%w: responder challenge response does not verify", domain.ErrHandshakeFailed)
		e.abort(sess, err)
		return err
	}

	sess.SetRemote(resp.Ephemeral, senderKey)
	keys, err := e.deriveKeys(sess)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	sess.SetKeys(keys)
	if err := sess.SetState(domain.StateKeysDerived); err != nil {
		return err
	}
	ex.version = resp.Version
	sess.SetVersion(resp.Version)

	_, ephPub := sess.Ephemeral()
	out, err := envelope.New(ex.version, domain.MsgHandshakeProof, e.identity.EntityID)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	out.Proof = &domain.HandshakeProof{
		SessionID:         sess.ID(),
		ChallengeResponse: challengeResponse(resp.Challenge, ephPub, e.identity.EdPub),
		SessionTTLSeconds: uint32(ex.ttl / time.Second),
	}
	envelope.Sign(out, e.identity.EdPriv)

	if err := e.transport.Deliver(ctx, sess.RemoteID(), out); err != nil {
		e.abort(sess, fmt.Errorf("deliver proof: %w", err))
		return err
	}
	return nil
}

// handleProof is the responder receiving message 3.
func (e *Engine) handleProof(ctx context.Context, env *domain.Envelope, senderKey domain.Ed25519Public) error {
	proof := env.Proof
	if proof == nil {
		return fmt.Errorf("%w: proof message without proof payload", domain.ErrHandshakeFailed)
	}
	sess, ex, err := e.sessionAndExchange(env)
	if err != nil {
		return err
	}
	if ex.initiator || sess.State() != domain.StateHandshakeReceived {
		return e.outOfOrder(sess, env.Type)
	}

	expected := challengeResponse(ex.localChallenge, sess.RemoteEphemeral(), senderKey)
	if !hmac.Equal(expected, proof.ChallengeResponse) {
		err := fmt.Errorf("%w: initiator challenge response does not verify", domain.ErrHandshakeFailed)
		e.abort(sess, err)
		return err
	}

	keys, err := e.deriveKeys(sess)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	sess.SetKeys(keys)

	ex.ttl = time.Duration(proof.SessionTTLSeconds) * time.Second
	if ex.ttl <= 0 {
		ex.ttl = e.mgr.SessionTTL()
	}
	if err := sess.Establish(ex.ttl); err != nil {
		e.abort(sess, err)
		return err
	}
	e.log.Info().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Msg("session established (responder)")

	out, err := envelope.New(ex.version, domain.MsgHandshakeReady, e.identity.EntityID)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	out.Ready = &domain.HandshakeReady{
		SessionID:      sess.ID(),
		KeyFingerprint: kdf.ConfirmationFingerprint(keys),
	}
	envelope.Sign(out, e.identity.EdPriv)

	if err := e.transport.Deliver(ctx, sess.RemoteID(), out); err != nil {
		e.abort(sess, fmt.Errorf("deliver ready: %w", err))
		return err
	}
	return nil
}

// handleReady is the initiator receiving message 4.
func (e *Engine) handleReady(ctx context.Context, env *domain.Envelope) error {
	ready := env.Ready
	if ready == nil {
		return fmt.Errorf("%w: ready message without ready payload", domain.ErrHandshakeFailed)
	}
	sess, ex, err := e.sessionAndExchange(env)
	if err != nil {
		return err
	}
	if !ex.initiator || sess.State() != domain.StateKeysDerived {
		return e.outOfOrder(sess, env.Type)
	}

	keys, ok := sess.Keys()
	if !ok {
		err := fmt.Errorf("%w: ready before key derivation", domain.ErrHandshakeFailed)
		e.abort(sess, err)
		return err
	}
	if !hmac.Equal(ready.KeyFingerprint, kdf.ConfirmationFingerprint(keys)) {
		err := fmt.Errorf("%w: key confirmation fingerprint mismatch", domain.ErrHandshakeFailed)
		e.abort(sess, err)
		return err
	}
	if err := sess.SetState(domain.StateReady); err != nil {
		return err
	}

	out, err := envelope.New(ex.version, domain.MsgHandshakeConfirm, e.identity.EntityID)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	seq := sess.NextSendSequence()
	ct, encNonce, err := channel.Seal(keys, channel.Metadata{
		SenderID:  e.identity.EntityID,
		Sequence:  seq,
		Timestamp: out.Timestamp,
	}, ex.firstPayload)
	if err != nil {
		e.abort(sess, err)
		return err
	}
	out.Sequence = seq
	out.Ciphertext = ct
	out.EncryptionNonce = encNonce
	out.Confirm = &domain.HandshakeConfirm{SessionID: sess.ID()}
	envelope.Sign(out, e.identity.EdPriv)

	if err := sess.Establish(ex.ttl); err != nil {
		e.abort(sess, err)
		return err
	}
	e.log.Info().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Msg("session established (initiator)")
	e.settle(sess.ID(), ex)

	if err := e.transport.Deliver(ctx, sess.RemoteID(), out); err != nil {
		return fmt.Errorf("deliver confirm: %w", err)
	}
	return nil
}

// handleConfirm is the responder receiving message 5 with the piggy-backed
// first application payload.
func (e *Engine) handleConfirm(ctx context.Context, env *domain.Envelope) error {
	confirm := env.Confirm
	if confirm == nil {
		return fmt.Errorf("%w: confirm message without confirm payload", domain.ErrHandshakeFailed)
	}
	sess, ex, err := e.sessionAndExchange(env)
	if err != nil {
		return err
	}
	if ex.initiator || sess.State() != domain.StateEstablished {
		return e.outOfOrder(sess, env.Type)
	}

	keys, ok := sess.Keys()
	if !ok {
		err := fmt.Errorf("%w: confirm before key derivation", domain.ErrHandshakeFailed)
		e.abort(sess, err)
		return err
	}
	plaintext, err := channel.Open(keys, channel.Metadata{
		SenderID:  env.SenderID,
		Sequence:  env.Sequence,
		Timestamp: env.Timestamp,
	}, env.Ciphertext, env.EncryptionNonce)
	if err != nil {
		// A confirm we cannot decrypt means the two sides derived different
		// keys; that cannot self-heal.
		e.abort(sess, err)
		return err
	}

	gap, err := sess.ValidateReceive(env.Sequence)
	if err != nil {
		return err
	}
	e.onMessage(domain.DecryptedMessage{
		SessionID: sess.ID(),
		Sender:    env.SenderID,
		Sequence:  env.Sequence,
		Gap:       gap,
		Plaintext: plaintext,
		Timestamp: env.Timestamp,
	})

	duration := time.Since(ex.started)
	out, err := envelope.New(ex.version, domain.MsgHandshakeComplete, e.identity.EntityID)
	if err != nil {
		return err
	}
	out.Complete = &domain.HandshakeComplete{
		SessionID:      sess.ID(),
		DurationMillis: duration.Milliseconds(),
	}
	envelope.Sign(out, e.identity.EdPriv)

	e.settle(sess.ID(), ex)
	e.log.Info().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Dur("handshake", duration).Msg("handshake complete")

	if err := e.transport.Deliver(ctx, sess.RemoteID(), out); err != nil {
		return fmt.Errorf("deliver complete: %w", err)
	}
	return nil
}

// handleComplete is the initiator receiving message 6. Informational: the
// initiator established at confirm time.
func (e *Engine) handleComplete(env *domain.Envelope) error {
	complete := env.Complete
	if complete == nil {
		return fmt.Errorf("%w: complete message without complete payload", domain.ErrHandshakeFailed)
	}
	sess, ok := e.mgr.Get(complete.SessionID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, complete.SessionID)
	}
	if sess.RemoteID() != env.SenderID {
		return fmt.Errorf("%w: sender %q does not own session %s",
			domain.ErrHandshakeFailed, env.SenderID, complete.SessionID)
	}
	e.log.Info().Str("session_id", sess.ID()).Str("peer", sess.RemoteID()).
		Int64("duration_ms", complete.DurationMillis).Msg("peer reported handshake complete")
	return nil
}

// deriveKeys runs DH between our ephemeral private and the peer's ephemeral
// public, expands session keys and wipes the shared secret.
func (e *Engine) deriveKeys(sess *session.Session) (domain.SessionKeys, error) {
	ephPriv, _ := sess.Ephemeral()
	secret, err := crypto.DH(ephPriv, sess.RemoteEphemeral())
	if err != nil {
		return domain.SessionKeys{}, err
	}
	keys, err := kdf.DeriveSessionKeys(secret)
	crypto.Wipe(secret[:])
	return keys, err
}

// outOfOrder rejects a step that arrived while the session expects a
// different one. The step is discarded, never queued; the session state is
// left untouched.
func (e *Engine) outOfOrder(sess *session.Session, typ domain.MessageType) error {
	err := fmt.Errorf("%w: unexpected %s in state %s", domain.ErrHandshakeFailed, typ, sess.State())
	e.log.Warn().Str("session_id", sess.ID()).Stringer("state", sess.State()).
		Str("type", string(typ)).Msg("out-of-order handshake step rejected")
	return err
}

// sendError best-effort notifies the peer why the handshake died.
func (e *Engine) sendError(ctx context.Context, peer, code, detail string) {
	out, err := envelope.New(Version, domain.MsgError, e.identity.EntityID)
	if err != nil {
		return
	}
	out.Error = &domain.ErrorInfo{Code: code, Detail: detail}
	envelope.Sign(out, e.identity.EdPriv)
	if err := e.transport.Deliver(ctx, peer, out); err != nil {
		e.log.Debug().Err(err).Str("peer", peer).Msg("could not deliver error envelope")
	}
}
