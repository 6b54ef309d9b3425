// Package commands defines the agentlink CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - keygen         Create the local identity
//   - fingerprint    Print the identity fingerprint
//   - trust          Record a peer's entity id and signing key
//   - demo           Run two in-process entities through a full exchange
//
// # Implementation
//
// The root command builds the dependency graph (file store, identity
// service, configuration) before any subcommand runs, so handlers share one
// wired context.
package commands
