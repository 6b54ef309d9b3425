// Package app assembles the protocol stack for one entity: session manager,
// replay protection, handshake engine and messaging service, ready to be
// plugged into a transport.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"agentlink/internal/config"
	"agentlink/internal/domain"
	"agentlink/internal/logging"
	"agentlink/internal/protocol/replay"
	"agentlink/internal/services/messaging"
	"agentlink/internal/session"
)

// Node is one running protocol endpoint.
type Node struct {
	Identity domain.Identity
	Config   config.Config
	Sessions *session.Manager
	Messages *messaging.Service

	log zerolog.Logger
}

// New wires a node for the given identity over the given transport and
// directory.
func New(id domain.Identity, tr domain.Transport, dir domain.Directory, cfg config.Config) *Node {
	log := logging.New("node").With().Str("entity", id.EntityID).Logger()

	mgr := session.NewManager(id.EntityID, session.ManagerOptions{
		HandshakeTimeout: cfg.HandshakeTimeout(),
		SessionTTL:       cfg.SessionTTL(),
		SweepInterval:    cfg.SweepInterval(),
		SequenceWindow:   cfg.SequenceWindow,
	}, log)
	rp := replay.New(cfg.ReplayWindow(), cfg.TimestampTolerance())
	msgs := messaging.New(id, mgr, rp, tr, dir, cfg, log)

	return &Node{
		Identity: id,
		Config:   cfg,
		Sessions: mgr,
		Messages: msgs,
		log:      log,
	}
}

// HandleInbound is the handler to register with the transport.
func (n *Node) HandleInbound(ctx context.Context, env *domain.Envelope) error {
	return n.Messages.HandleInbound(ctx, env)
}

// Run drives the expiry sweep until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	n.log.Info().Str("entity", n.Identity.EntityID).Msg("node running")
	n.Sessions.Run(ctx)
}
