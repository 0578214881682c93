//go:build !linux

package hostenv

// MountOf is only implemented on Linux.
func MountOf(path string) (Mount, bool) {
	return Mount{}, false
}
