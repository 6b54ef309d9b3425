// Package domain defines the shared vocabulary of the secure peer session
// protocol: key and identity types, the session state machine values, the
// signed message envelope, and the error taxonomy.
//
// # Contents
//
//   - Fixed-size key types (X25519, Ed25519) with strict length checking
//   - Identity: an entity's long-term signing key pair
//   - SessionKeys: the per-session encryption and authentication keys
//   - SessionState: the handshake/session lifecycle states
//   - Envelope: the wire message carrying handshake steps, data, heartbeats
//     and errors, always covered by an Ed25519 signature
//   - Transport and Directory: the boundary interfaces to the excluded
//     network and discovery subsystems
//
// # Notes
//
// Key material uses fixed-size array types to avoid accidental reallocation.
// Callers should treat private keys and session keys as sensitive and wipe
// them when their lifetime ends.
package domain
