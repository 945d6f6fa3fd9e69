package wasi

import (
	"path"
	"path/filepath"
	"strings"
)

// resolvePath turns a directory descriptor and the guest's relative path
// bytes into a host filesystem path. Guest paths are UTF-8 with forward
// slashes; the result uses host join semantics. Paths that climb above
// the directory after cleaning are rejected.
//
// There is no containment check against the owning preopen root beyond
// that: with a root preopen the guest can reach the whole filesystem.
// Embedders wanting a sandbox must mount a narrow tree.
func resolvePath(d *descriptor, guestPath string) (string, Errno) {
	if d.kind != FiletypeDirectory {
		return "", ErrnoNotdir
	}
	if d.realPath == "" {
		return "", ErrnoInval
	}

	cleaned := path.Clean(guestPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrnoAcces
	}
	return filepath.Join(d.realPath, filepath.FromSlash(cleaned)), ErrnoSuccess
}
