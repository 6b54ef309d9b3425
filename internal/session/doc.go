// Package session holds the live session object and the manager that owns
// the collection of sessions.
//
// # Overview
//
// A Session is created when a handshake is initiated or a handshake-init is
// received. The handshake engine mutates its key material and state; message
// processing mutates its sequence counters. All mutation goes through
// methods that take the per-session lock, so a transport may drive one
// session from several goroutines without corrupting counters.
//
// The Manager keeps a primary index by session id and a secondary index by
// (local, remote) entity pair. At most one live session exists per pair;
// creating a duplicate returns the existing one. A periodic sweep closes
// sessions past their expiry and handshakes stuck past the handshake
// timeout, taking each session's lock before deciding, so a sweep never
// races an in-flight state transition.
package session
