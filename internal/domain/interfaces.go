package domain

import "context"

// Transport carries signed envelopes between hosts. It delivers one envelope
// at a time and has no visibility into key material. The real network
// transport lives outside this module; tests and the demo use an in-memory
// implementation.
type Transport interface {
	Deliver(ctx context.Context, to string, env *Envelope) error
}

// Directory resolves entity ids to peer records. It is fed by the discovery
// subsystem (DHT, bootstrap lists); the core never queries discovery itself.
type Directory interface {
	Lookup(entityID string) (PeerInfo, bool)
}

// IdentityStore persists the local identity, encrypted under a passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	LoadIdentity(passphrase string) (Identity, error)
}
