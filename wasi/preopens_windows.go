//go:build windows

package wasi

import "os"

// defaultPreopens preopens one root per accessible drive letter.
func defaultPreopens() map[string]string {
	preopens := make(map[string]string)
	for c := 'A'; c <= 'Z'; c++ {
		root := string(c) + `:\`
		if _, err := os.Stat(root); err == nil {
			preopens[string(c)+":/"] = root
		}
	}
	return preopens
}
