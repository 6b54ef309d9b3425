package domain

// Identity is an entity's long-term signing key pair. The private key never
// leaves the owning process; the public key is distributed out-of-band or
// inside the first handshake messages.
//
// An entity's public key is immutable once published. Key rotation creates a
// new Identity under a new entity id.
type Identity struct {
	EntityID string         `json:"entity_id"`
	EdPub    Ed25519Public  `json:"edpub"`
	EdPriv   Ed25519Private `json:"edpriv"`
}

// PeerInfo is what the discovery subsystem hands the core: enough to
// initiate a handshake with a peer. The core never queries discovery itself.
type PeerInfo struct {
	EntityID   string        `json:"entity_id"`
	SigningKey Ed25519Public `json:"signing_key"`
	Addr       string        `json:"addr,omitempty"`
}
