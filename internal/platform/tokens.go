package platform

import "strings"

type token[T any] struct {
	text  string
	value T
}

// Order matters: longer or more specific spellings come first so that
// "x86_64" is not read as "x86" and "aarch64-linux-android" is not read as linux.
var osTokens = []token[OS]{
	{"android", OSOther},
	{"freebsd", OSOther},
	{"netbsd", OSOther},
	{"openbsd", OSOther},
	{"dragonfly", OSOther},
	{"illumos", OSOther},
	{"solaris", OSOther},
	{"aix", OSOther},
	{"linux", OSLinux},
	{"darwin", OSMacOS},
	{"macosx", OSMacOS},
	{"macos", OSMacOS},
	{"osx", OSMacOS},
	{"apple", OSMacOS},
	{"mac", OSMacOS},
	{"windows", OSWindows},
	{"win64", OSWindows},
	{"win32", OSWindows},
	{"mingw", OSWindows},
	{"win", OSWindows},
}

var archTokens = []token[Arch]{
	{"x86_64", ArchX64},
	{"x86-64", ArchX64},
	{"amd64", ArchX64},
	{"x64", ArchX64},
	{"aarch64", ArchARM64},
	{"arm64", ArchARM64},
	{"armv7l", ArchARM},
	{"armv7", ArchARM},
	{"armv6l", ArchARM},
	{"armv6", ArchARM},
	{"armhf", ArchARM},
	{"armel", ArchARM},
	{"arm", ArchARM},
	{"i386", ArchX86},
	{"i686", ArchX86},
	{"386", ArchX86},
	{"x86", ArchX86},
	{"riscv64", ArchOther},
	{"ppc64le", ArchOther},
	{"ppc64", ArchOther},
	{"s390x", ArchOther},
	{"mips64le", ArchOther},
	{"mips64", ArchOther},
	{"mipsle", ArchOther},
	{"mips", ArchOther},
	{"loong64", ArchOther},
}

var libcTokens = []token[Libc]{
	{"musleabihf", LibcMusl},
	{"musleabi", LibcMusl},
	{"musl", LibcMusl},
	{"gnueabihf", LibcGNU},
	{"gnueabi", LibcGNU},
	{"glibc", LibcGNU},
	{"gnu", LibcGNU},
	{"msvc", LibcMSVC},
}

// OSOf reports the OS named in an asset file name.
func OSOf(name string) (OS, bool) {
	lower := strings.ToLower(name)
	if o, ok := find(lower, osTokens); ok {
		return o, true
	}
	if strings.HasSuffix(lower, ".exe") || strings.HasSuffix(lower, ".msi") {
		return OSWindows, true
	}
	return "", false
}

// ArchOf reports the CPU architecture named in an asset file name.
func ArchOf(name string) (Arch, bool) {
	return find(strings.ToLower(name), archTokens)
}

// LibcOf reports the libc family named in an asset file name.
func LibcOf(name string) (Libc, bool) {
	return find(strings.ToLower(name), libcTokens)
}

var suffixTokens = func() []string {
	out := make([]string, 0, len(osTokens)+len(archTokens)+len(libcTokens)+5)
	for _, t := range archTokens {
		out = append(out, t.text)
	}
	for _, t := range osTokens {
		out = append(out, t.text)
	}
	for _, t := range libcTokens {
		out = append(out, t.text)
	}
	return append(out, "unknown", "pc", "static", "universal2", "universal")
}()

// TrimSuffixTokens removes trailing platform tokens ("-linux-amd64",
// "_x86_64-unknown-linux-musl") from a file stem.
func TrimSuffixTokens(stem string) string {
	for {
		next := trimOneSuffix(stem)
		if next == stem {
			return stem
		}
		stem = next
	}
}

func trimOneSuffix(stem string) string {
	for _, text := range suffixTokens {
		n := len(text) + 1
		if len(stem) <= n {
			continue
		}
		switch stem[len(stem)-n] {
		case '-', '_', '.':
		default:
			continue
		}
		if strings.EqualFold(stem[len(stem)-len(text):], text) {
			return stem[:len(stem)-n]
		}
	}
	return stem
}

func find[T any](lower string, tokens []token[T]) (T, bool) {
	for _, t := range tokens {
		if containsToken(lower, t.text) {
			return t.value, true
		}
	}
	var zero T
	return zero, false
}

// containsToken matches needle when it is not glued to a preceding letter or
// digit and not followed by a letter. Trailing digits are allowed so that
// "linux64" and "macos11" still count.
func containsToken(haystack, needle string) bool {
	for from := 0; from <= len(haystack)-len(needle); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(needle)
		if (start == 0 || !isAlnum(haystack[start-1])) && (end == len(haystack) || !isLetter(haystack[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isAlnum(c byte) bool {
	return isLetter(c) || c >= '0' && c <= '9'
}
