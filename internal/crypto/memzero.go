package crypto

import "runtime"

// Wipe overwrites b with zeros. Shared secrets and expired session keys go
// through here the moment they stop being needed. Best effort only: the
// noinline pragma and the KeepAlive stop the compiler from proving the
// stores dead and eliding them, but copies the GC has moved are out of
// reach.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(&b)
}
