//go:build !unix

package wasi

// errnoFromSyscall has no platform errno table outside unix; callers fall
// back to the portable fs sentinel mapping.
func errnoFromSyscall(err error) (Errno, bool) {
	return ErrnoSuccess, false
}
