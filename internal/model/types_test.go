package model

import "testing"

func TestDetectArchiveFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want ArchiveFormat
	}{
		{"tool_linux_amd64.tar.gz", ArchiveFormatTarGz},
		{"tool.TGZ", ArchiveFormatTarGz},
		{"tool.tar.zst", ArchiveFormatTarZst},
		{"tool.tar.xz", ArchiveFormatTarXz},
		{"tool.tbz2", ArchiveFormatTarBz2},
		{"tool.tar", ArchiveFormatTar},
		{"tool_windows.zip", ArchiveFormatZip},
		{"tool.exe", ArchiveFormatNone},
		{"tool_linux_amd64.deb", ArchiveFormatNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectArchiveFormat(tc.name); got != tc.want {
				t.Fatalf("format: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestTrimArchiveExtension(t *testing.T) {
	t.Parallel()

	if got := TrimArchiveExtension("tool-1.0.0.Tar.Gz"); got != "tool-1.0.0" {
		t.Fatalf("trim: got %q", got)
	}
	if got := TrimArchiveExtension("tool"); got != "tool" {
		t.Fatalf("trim bare: got %q", got)
	}
}

func TestForPlatform(t *testing.T) {
	t.Parallel()

	opts := ToolOptions{
		AssetPattern: "tool-*.tar.gz",
		Checksum:     "sha256:aaaa",
		Bin:          "tool",
		Platforms: map[string]PlatformOptions{
			"linux-x64":   {AssetPattern: "tool-linux-x64.tar.gz", Checksum: "sha256:bbbb"},
			"macos-arm64": {URL: "https://example.test/tool-mac.zip"},
		},
	}

	linux := opts.ForPlatform("linux-x64")
	if linux.AssetPattern != "tool-linux-x64.tar.gz" || linux.Checksum != "sha256:bbbb" {
		t.Fatalf("linux override not applied: %+v", linux)
	}
	if linux.Bin != "tool" {
		t.Fatalf("top-level field lost: %+v", linux)
	}
	if linux.Platforms != nil {
		t.Fatalf("effective options should not carry platform map")
	}

	mac := opts.ForPlatform("macos-arm64")
	if mac.AssetPattern != "tool-*.tar.gz" || mac.Checksum != "sha256:aaaa" {
		t.Fatalf("empty override fields must not clear top-level values: %+v", mac)
	}
	if mac.URL == "" {
		t.Fatalf("url override not applied")
	}

	other := opts.ForPlatform("windows-x64")
	if other.AssetPattern != opts.AssetPattern {
		t.Fatalf("unmatched key should keep top-level pattern")
	}
	if opts.Platforms["linux-x64"].AssetPattern == "" {
		t.Fatalf("ForPlatform mutated the receiver")
	}
}

func TestToolRef(t *testing.T) {
	t.Parallel()

	ref := ToolRef{Host: "codeberg.org", Owner: "mergiraf", Repo: "mergiraf"}
	if ref.Slug() != "mergiraf/mergiraf" {
		t.Fatalf("slug: got %q", ref.Slug())
	}
	if ref.String() != "codeberg.org/mergiraf/mergiraf" {
		t.Fatalf("string: got %q", ref.String())
	}
}
