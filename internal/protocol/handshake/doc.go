// Package handshake drives the six-message exchange that authenticates two
// entities and establishes a live session with fresh keys.
//
// # Flow
//
// Initiator A, responder B:
//
//  1. init (A→B): fresh ephemeral public, random challenge, supported
//     versions. A: INITIAL → HANDSHAKE_SENT.
//  2. response (B→A): B's ephemeral public, a new challenge, B's response to
//     A's challenge, the negotiated version. B: INITIAL → HANDSHAKE_RECEIVED.
//  3. proof (A→B): A verifies B's challenge response, derives session keys,
//     answers B's challenge and names the session TTL.
//     A: HANDSHAKE_SENT → KEYS_DERIVED.
//  4. ready (B→A): B verifies the proof, derives the same keys and returns a
//     fingerprint of the derived key set. B: HANDSHAKE_RECEIVED → ESTABLISHED.
//  5. confirm (A→B): A checks the fingerprint, goes READY → ESTABLISHED and
//     piggy-backs its first application payload, already encrypted.
//  6. complete (B→A): B decrypts the piggy-backed payload and reports the
//     handshake duration.
//
// A challenge response is SHA-256 over the challenge, the responder's
// ephemeral public key and its static signing key, so it commits the keys
// the rest of the handshake uses.
//
// # Edge policy
//
// Simultaneous initiation resolves by entity id: the lexicographically
// smaller side abandons its own attempt and adopts the peer's session, so
// exactly one logical session results. Version negotiation picks the highest
// mutually supported version and fails with domain.ErrVersionMismatch when
// the intersection is empty. Out-of-order steps are rejected, not queued.
// Any verification failure aborts to CLOSED; no partial session is ever left
// established. A handshake that does not establish within the configured
// bound ends with domain.ErrHandshakeTimeout.
package handshake
