package crypto

import "runtime"

// Wipe zeroes the provided buffer. Best-effort: it aims to keep the
// compiler from eliding the writes for short-lived key material.
//
//go:noinline
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}
