package hostenv

import (
	"path/filepath"
	"strings"
)

// loaderGlobs lists the dynamic loader locations that identify the libc family.
var loaderGlobs = []string{
	"/lib/ld-musl-*.so.1",
	"/usr/lib/ld-musl-*.so.1",
	"/lib64/ld-linux-*.so.*",
	"/lib/ld-linux-*.so.*",
	"/lib/*-linux-gnu*/ld-linux-*.so.*",
}

// DetectLibc reports "musl" or "gnu" for the running Linux host, or "" when
// neither loader can be found.
func DetectLibc() string {
	var found []string
	for _, pattern := range loaderGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		found = append(found, matches...)
	}
	return classifyLoaders(found)
}

func classifyLoaders(paths []string) string {
	gnu := false
	for _, p := range paths {
		base := filepath.Base(p)
		if strings.HasPrefix(base, "ld-musl-") {
			return "musl"
		}
		if strings.HasPrefix(base, "ld-linux") {
			gnu = true
		}
	}
	if gnu {
		return "gnu"
	}
	return ""
}
