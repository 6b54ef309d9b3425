// Package replay tracks recently seen message nonces per counterparty and
// rejects duplicates and stale timestamps.
//
// # Overview
//
// Each counterparty gets its own bounded history of (nonce, first-seen)
// pairs inside a sliding time window. A nonce is accepted at most once per
// window; a timestamp outside [now − tolerance, now + tolerance] is rejected
// outright. Expired entries are evicted lazily during checks.
//
// # Concurrency
//
// Checks for different counterparties run concurrently; checks for the same
// counterparty are serialized, so two simultaneous submissions of one nonce
// can never both pass.
package replay
