// Package platform describes the machine a tool is being installed on and
// recognizes the OS, architecture and libc tokens that release assets use in
// their file names.
package platform

import (
	"runtime"
	"strings"

	"github.com/3leaps/relinstall/internal/hostenv"
)

type OS string

const (
	OSLinux   OS = "linux"
	OSMacOS   OS = "macos"
	OSWindows OS = "windows"
	OSOther   OS = "other"
)

type Arch string

const (
	ArchX64   Arch = "x64"
	ArchARM64 Arch = "arm64"
	ArchX86   Arch = "x86"
	ArchARM   Arch = "arm"
	ArchOther Arch = "other"
)

type Libc string

const (
	LibcGNU     Libc = "gnu"
	LibcMusl    Libc = "musl"
	LibcMSVC    Libc = "msvc"
	LibcUnknown Libc = ""
)

// Profile is the immutable description of the running machine.
type Profile struct {
	OS   OS
	Arch Arch
	Libc Libc
}

// Key returns the "{os}-{arch}" form used for per-platform option overrides.
func (p Profile) Key() string {
	return string(p.OS) + "-" + string(p.Arch)
}

func (p Profile) String() string {
	if p.Libc == LibcUnknown {
		return p.Key()
	}
	return p.Key() + "-" + string(p.Libc)
}

// Detect builds the profile of the current process.
func Detect() Profile {
	p := Profile{
		OS:   FromGOOS(runtime.GOOS),
		Arch: FromGOARCH(runtime.GOARCH),
	}
	switch p.OS {
	case OSLinux:
		p.Libc = Libc(hostenv.DetectLibc())
	case OSWindows:
		p.Libc = LibcMSVC
	}
	return p
}

func FromGOOS(goos string) OS {
	switch goos {
	case "linux":
		return OSLinux
	case "darwin":
		return OSMacOS
	case "windows":
		return OSWindows
	default:
		return OSOther
	}
}

func FromGOARCH(goarch string) Arch {
	switch goarch {
	case "amd64":
		return ArchX64
	case "arm64":
		return ArchARM64
	case "386":
		return ArchX86
	case "arm":
		return ArchARM
	default:
		return ArchOther
	}
}

// Parse reads a profile from its String form ("linux-x64-musl", "macos-arm64").
func Parse(s string) (Profile, bool) {
	var p Profile
	parts := strings.Split(s, "-")
	if len(parts) < 2 || len(parts) > 3 {
		return p, false
	}
	p.OS = OS(parts[0])
	p.Arch = Arch(parts[1])
	if !validOS(p.OS) || !validArch(p.Arch) {
		return Profile{}, false
	}
	if len(parts) == 3 {
		p.Libc = Libc(parts[2])
		switch p.Libc {
		case LibcGNU, LibcMusl, LibcMSVC:
		default:
			return Profile{}, false
		}
	}
	return p, true
}

func validOS(o OS) bool {
	switch o {
	case OSLinux, OSMacOS, OSWindows, OSOther:
		return true
	}
	return false
}

func validArch(a Arch) bool {
	switch a {
	case ArchX64, ArchARM64, ArchX86, ArchARM, ArchOther:
		return true
	}
	return false
}
