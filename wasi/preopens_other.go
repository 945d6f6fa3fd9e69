//go:build !unix && !windows

package wasi

func defaultPreopens() map[string]string {
	return map[string]string{"/": "/"}
}
