// Package messaging is the send/receive surface of an entity once its
// transport and directory are wired in.
//
// # Overview
//
// Outbound, it encrypts application payloads over established sessions and
// stamps each with the session's next send sequence. Inbound, it is the
// single handler the transport calls: handshake messages go to the handshake
// engine, data messages are verified, replay-checked, decrypted and handed to
// the registered callback, heartbeats refresh session expiry.
//
// # Errors
//
// Sending without an established session fails with domain.ErrNoSession.
// Repeated inbound decrypt failures on one session terminate it; key
// desynchronization cannot self-heal.
package messaging
