// Package assets picks the release asset to download for a platform.
package assets

import (
	"strings"

	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/platform"
)

// Each criterion's range stays below the weight of the one above it, so the
// total orders assets by OS, then arch, then libc, then format, then build type.
const (
	weightOS     = 10000
	weightArch   = 1000
	weightLibc   = 100
	weightFormat = 10
)

// formatRank orders archive formats. Raw binaries rank 1, unknown extensions 0.
var formatRank = map[model.ArchiveFormat]int{
	model.ArchiveFormatTarGz:  7,
	model.ArchiveFormatZip:    6,
	model.ArchiveFormatTarZst: 5,
	model.ArchiveFormatTarBz2: 4,
	model.ArchiveFormatTar:    3,
	model.ArchiveFormatTarXz:  2,
}

// packageSuffixes are installers that cannot be unpacked into a tool directory.
var packageSuffixes = []string{
	".deb", ".rpm", ".apk", ".msi", ".pkg", ".dmg", ".appimage", ".snap", ".flatpak", ".7z", ".gz", ".xz", ".bz2", ".zst",
}

var supplementalSuffixes = []string{
	".asc", ".sig", ".minisig", ".sig.ed25519", ".pem", ".crt", ".cert", ".pub", ".sbom", ".spdx",
	".json", ".jsonl", ".txt", ".md", ".sha1", ".sha256", ".sha512", ".md5", ".sha256sum", ".sha512sum", ".b2", ".b3",
}

var buildPenaltyWords = []string{"debug", "dbg", "test", "tests", "symbols", "pdb", "unstripped"}

// Score is the breakdown of one asset's ranking. Excluded assets carry the
// reason and never win.
type Score struct {
	OS       int
	Arch     int
	Libc     int
	Format   int
	Build    int
	Excluded string
}

func (s Score) Total() int {
	return s.OS*weightOS + s.Arch*weightArch + s.Libc*weightLibc + s.Format*weightFormat + s.Build
}

// Ranked is an asset with its score, in listing order.
type Ranked struct {
	Asset model.Asset
	Score Score
}

// Rank scores every asset against the profile.
func Rank(assets []model.Asset, profile platform.Profile) []Ranked {
	type facts struct {
		os, hasOS     bool
		arch, hasArch bool
	}
	out := make([]Ranked, len(assets))
	info := make([]facts, len(assets))
	anyOS, anyArch := false, false

	for i, a := range assets {
		out[i].Asset = a
		if LooksLikeSupplemental(a.Name) {
			out[i].Score.Excluded = "supplemental file"
			continue
		}
		o, hasOS := platform.OSOf(a.Name)
		ar, hasArch := platform.ArchOf(a.Name)
		info[i] = facts{os: hasOS && o == profile.OS, hasOS: hasOS, hasArch: hasArch}
		info[i].arch = hasArch && ar == profile.Arch || isUniversal(a.Name, profile)
		if info[i].arch {
			info[i].hasArch = true
		}
		if info[i].os {
			anyOS = true
		}
	}
	for i := range assets {
		if out[i].Score.Excluded == "" && (info[i].os || !info[i].hasOS && !anyOS) && info[i].arch {
			anyArch = true
		}
	}

	for i, a := range assets {
		s := &out[i].Score
		if s.Excluded != "" {
			continue
		}
		f := info[i]
		switch {
		case f.os:
			s.OS = 2
		case f.hasOS:
			s.Excluded = "different os"
			continue
		case anyOS:
			s.Excluded = "no os token"
			continue
		default:
			s.OS = 1
		}
		switch {
		case f.arch:
			s.Arch = 2
		case f.hasArch:
			s.Excluded = "different arch"
			continue
		case anyArch:
			s.Excluded = "no arch token"
			continue
		default:
			s.Arch = 1
		}
		s.Libc = libcScore(a.Name, profile)
		s.Format = FormatRank(a.Name)
		s.Build = 1
		if hasAnyWord(strings.ToLower(a.Name), buildPenaltyWords) {
			s.Build = 0
		}
	}
	return out
}

// FormatRank returns the preference of an asset's file format.
func FormatRank(name string) int {
	if f := model.DetectArchiveFormat(name); f != model.ArchiveFormatNone {
		return formatRank[f]
	}
	lower := strings.ToLower(name)
	for _, suffix := range packageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return 0
		}
	}
	if isRawBinary(lower) {
		return 1
	}
	return 0
}

// isRawBinary reports names with no extension, ".exe", or a dotted suffix
// that is part of a version or platform token rather than a file type.
func isRawBinary(lower string) bool {
	dot := strings.LastIndexByte(lower, '.')
	if dot < 0 {
		return true
	}
	ext := lower[dot+1:]
	if ext == "exe" || ext == "" || ext[0] < 'a' || ext[0] > 'z' {
		return true
	}
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return true
		}
	}
	if _, ok := platform.OSOf(ext); ok {
		return true
	}
	_, ok := platform.ArchOf(ext)
	return ok
}

func libcScore(name string, profile platform.Profile) int {
	if profile.OS != platform.OSLinux {
		return 1
	}
	libc, ok := platform.LibcOf(name)
	switch {
	case !ok || profile.Libc == platform.LibcUnknown:
		return 1
	case libc == profile.Libc:
		return 2
	default:
		return 0
	}
}

func isUniversal(name string, profile platform.Profile) bool {
	if profile.OS != platform.OSMacOS {
		return false
	}
	lower := strings.ToLower(name)
	return hasAnyWord(lower, []string{"universal", "universal2"})
}

// LooksLikeSupplemental reports names of checksums, signatures, SBOMs and
// similar files that accompany a release but are not installable.
func LooksLikeSupplemental(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range supplementalSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	if strings.Contains(lower, "checksum") || strings.Contains(lower, "sha256sum") || strings.Contains(lower, "sha512sum") {
		return true
	}
	switch lower {
	case "sha256sums", "sha512sums", "sha2-256sums", "sha2-512sums", "sums", "manifest", "license", "readme":
		return true
	}
	return false
}

func hasAnyWord(lower string, words []string) bool {
	for _, w := range words {
		if hasWord(lower, w) {
			return true
		}
	}
	return false
}

// hasWord matches w only when delimited by non-alphanumerics or the string ends.
func hasWord(s, w string) bool {
	for from := 0; ; {
		idx := strings.Index(s[from:], w)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(w)
		if (start == 0 || !isAlnum(s[start-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
