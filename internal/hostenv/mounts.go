package hostenv

import (
	"bufio"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Mount is one entry of the kernel mount table.
type Mount struct {
	Point   string
	FSType  string
	Source  string
	Options []string
}

// NoExec reports whether binaries on the mount cannot be executed.
func (m Mount) NoExec() bool {
	return slices.Contains(m.Options, "noexec")
}

// Contains reports whether path lies on or below the mount point.
func (m Mount) Contains(path string) bool {
	point := filepath.ToSlash(filepath.Clean(m.Point))
	path = filepath.ToSlash(filepath.Clean(path))
	switch {
	case point == "/":
		return strings.HasPrefix(path, "/")
	case path == point:
		return true
	default:
		return strings.HasPrefix(path, point+"/")
	}
}

// ParseMountinfo reads /proc/self/mountinfo. Per-mount and superblock options
// are merged, since noexec may appear in either.
//
//	36 25 0:32 / /home rw,relatime shared:1 - ext4 /dev/sda2 rw,errors=remount-ro
func ParseMountinfo(r io.Reader) []Mount {
	var mounts []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		sep := slices.Index(fields, "-")
		if sep < 6 || len(fields) < sep+3 {
			continue
		}
		m := Mount{
			Point:   unescapeOctal(fields[4]),
			FSType:  fields[sep+1],
			Source:  unescapeOctal(fields[sep+2]),
			Options: splitOptions(fields[5]),
		}
		if len(fields) > sep+3 {
			for _, opt := range splitOptions(fields[sep+3]) {
				if !slices.Contains(m.Options, opt) {
					m.Options = append(m.Options, opt)
				}
			}
		}
		mounts = append(mounts, m)
	}
	return mounts
}

// ParseProcMounts reads the fstab-style /proc/mounts.
func ParseProcMounts(r io.Reader) []Mount {
	var mounts []Mount
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			continue
		}
		mounts = append(mounts, Mount{
			Point:   unescapeOctal(fields[1]),
			FSType:  fields[2],
			Source:  unescapeOctal(fields[0]),
			Options: splitOptions(fields[3]),
		})
	}
	return mounts
}

// MountFor returns the mount holding path: the one with the longest
// matching mount point.
func MountFor(path string, mounts []Mount) (Mount, bool) {
	if path == "" || filepath.Clean(path) == "." {
		return Mount{}, false
	}
	best, found := Mount{}, false
	for _, m := range mounts {
		if m.Point == "" || !m.Contains(path) {
			continue
		}
		if !found || len(filepath.Clean(m.Point)) > len(filepath.Clean(best.Point)) {
			best, found = m, true
		}
	}
	return best, found
}

func splitOptions(s string) []string {
	var opts []string
	for _, opt := range strings.Split(s, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			opts = append(opts, opt)
		}
	}
	return opts
}

// unescapeOctal decodes the \ooo escapes procfs uses for spaces, tabs,
// newlines and backslashes in paths.
func unescapeOctal(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
