//go:build linux

package hostenv

import (
	"bytes"
	"io"
	"os"
)

// MountOf returns the mount holding path. ok is false when the mount table
// cannot be read.
func MountOf(path string) (Mount, bool) {
	for _, source := range []struct {
		file  string
		parse func(io.Reader) []Mount
	}{
		{"/proc/self/mountinfo", ParseMountinfo},
		{"/proc/mounts", ParseProcMounts},
	} {
		data, err := os.ReadFile(source.file) // #nosec G304 -- fixed procfs path
		if err != nil {
			continue
		}
		if mounts := source.parse(bytes.NewReader(data)); len(mounts) > 0 {
			return MountFor(path, mounts)
		}
	}
	return Mount{}, false
}
