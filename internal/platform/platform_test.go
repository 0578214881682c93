package platform

import "testing"

func TestProfileKey(t *testing.T) {
	t.Parallel()

	p := Profile{OS: OSLinux, Arch: ArchX64, Libc: LibcMusl}
	if got := p.Key(); got != "linux-x64" {
		t.Fatalf("key: got %q want %q", got, "linux-x64")
	}
	if got := p.String(); got != "linux-x64-musl" {
		t.Fatalf("string: got %q", got)
	}
	if got := (Profile{OS: OSMacOS, Arch: ArchARM64}).String(); got != "macos-arm64" {
		t.Fatalf("string without libc: got %q", got)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Profile
		wantOK bool
	}{
		{"linux-x64-gnu", Profile{OS: OSLinux, Arch: ArchX64, Libc: LibcGNU}, true},
		{"macos-arm64", Profile{OS: OSMacOS, Arch: ArchARM64}, true},
		{"windows-x86-msvc", Profile{OS: OSWindows, Arch: ArchX86, Libc: LibcMSVC}, true},
		{"plan9-x64", Profile{}, false},
		{"linux", Profile{}, false},
		{"linux-x64-uclibc", Profile{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("ok: got %v want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Fatalf("profile: got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestFromGo(t *testing.T) {
	t.Parallel()

	if FromGOOS("darwin") != OSMacOS || FromGOOS("plan9") != OSOther {
		t.Fatalf("FromGOOS mapping broken")
	}
	if FromGOARCH("amd64") != ArchX64 || FromGOARCH("386") != ArchX86 || FromGOARCH("riscv64") != ArchOther {
		t.Fatalf("FromGOARCH mapping broken")
	}
}

func TestTokenDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		wantOS   OS
		wantArch Arch
		wantLibc Libc
	}{
		{"tool_linux_amd64.tar.gz", OSLinux, ArchX64, ""},
		{"tool-x86_64-unknown-linux-musl.tar.gz", OSLinux, ArchX64, LibcMusl},
		{"tool-aarch64-apple-darwin.tar.gz", OSMacOS, ArchARM64, ""},
		{"tool-i686-pc-windows-msvc.zip", OSWindows, ArchX86, LibcMSVC},
		{"tool-armv7-unknown-linux-gnueabihf.tar.gz", OSLinux, ArchARM, LibcGNU},
		{"tool_Darwin_arm64.tar.gz", OSMacOS, ArchARM64, ""},
		{"tool-aarch64-linux-android.tar.gz", OSOther, ArchARM64, ""},
		{"tool.exe", OSWindows, "", ""},
		{"tool-musl", "", "", LibcMusl},
		{"tool-gnu", "", "", LibcGNU},
		{"darwinian-tool", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotOS, _ := OSOf(tc.name)
			gotArch, _ := ArchOf(tc.name)
			gotLibc, _ := LibcOf(tc.name)
			if gotOS != tc.wantOS {
				t.Fatalf("os: got %q want %q", gotOS, tc.wantOS)
			}
			if gotArch != tc.wantArch {
				t.Fatalf("arch: got %q want %q", gotArch, tc.wantArch)
			}
			if gotLibc != tc.wantLibc {
				t.Fatalf("libc: got %q want %q", gotLibc, tc.wantLibc)
			}
		})
	}
}

func TestDarwinDoesNotMatchWindows(t *testing.T) {
	t.Parallel()

	if got, _ := OSOf("tool-darwin-amd64"); got != OSMacOS {
		t.Fatalf("os: got %q want macos", got)
	}
}

func TestTrimSuffixTokens(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"tool-linux-amd64":                "tool",
		"tool_x86_64-unknown-linux-musl":  "tool",
		"tool-darwin-universal":           "tool",
		"tool":                            "tool",
		"my-tool-Linux-ARM64":             "my-tool",
		"tool_1.2.3_windows_386":          "tool_1.2.3",
		"linux":                           "linux",
	}
	for in, want := range tests {
		if got := TrimSuffixTokens(in); got != want {
			t.Fatalf("TrimSuffixTokens(%q): got %q want %q", in, got, want)
		}
	}
}
