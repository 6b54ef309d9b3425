// Package envelope builds, signs and verifies wire envelopes.
//
// # Overview
//
// Every envelope is signed over a canonical byte encoding with a fixed field
// order, length-prefixed variable-length fields and big-endian integers. Two
// semantically identical envelopes always produce identical canonical bytes,
// and mutating any field changes them. The canonical form is independent of
// the JSON wire serialization, so re-encoding an envelope cannot invalidate
// its signature.
//
// # Errors
//
// Verify returns domain.ErrInvalidSignature on any mismatch. A message that
// fails verification is not a message; callers discard it before looking at
// any other field.
package envelope
