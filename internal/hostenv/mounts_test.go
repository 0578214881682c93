package hostenv

import (
	"strings"
	"testing"
)

const sampleMountinfo = `36 25 0:32 / / rw,relatime - overlay overlay rw,noexec
40 36 0:45 / /home rw,relatime shared:7 - ext4 /dev/sda2 rw
41 40 0:46 / /home/user rw,relatime - ext4 /dev/sda3 rw,noexec
42 36 0:47 / /mnt/usb\040drive rw,nosuid - vfat /dev/sdb1 rw
`

func TestParseMountinfo(t *testing.T) {
	t.Parallel()

	mounts := ParseMountinfo(strings.NewReader(sampleMountinfo + "garbage line\n"))
	if len(mounts) != 4 {
		t.Fatalf("mounts: got %d want 4", len(mounts))
	}
	home := mounts[1]
	if home.Point != "/home" || home.FSType != "ext4" || home.Source != "/dev/sda2" || home.NoExec() {
		t.Fatalf("home: got %+v", home)
	}
	if !mounts[0].NoExec() {
		t.Fatal("superblock noexec should be merged into the options")
	}
	if got := mounts[3].Point; got != "/mnt/usb drive" {
		t.Fatalf("escaped mount point: got %q", got)
	}
}

func TestMountFor(t *testing.T) {
	t.Parallel()

	mounts := ParseMountinfo(strings.NewReader(sampleMountinfo))
	tests := []struct {
		path   string
		point  string
		noexec bool
	}{
		{"/tmp/bin", "/", true},
		{"/home/other/bin", "/home", false},
		{"/home/user/bin", "/home/user", true},
		{"/home/username", "/home", false},
		{"/mnt/usb drive/tools", "/mnt/usb drive", false},
	}
	for _, tc := range tests {
		m, ok := MountFor(tc.path, mounts)
		if !ok || m.Point != tc.point || m.NoExec() != tc.noexec {
			t.Fatalf("MountFor(%q): got %+v ok=%v want point %q noexec %v", tc.path, m, ok, tc.point, tc.noexec)
		}
	}

	if _, ok := MountFor("/tmp", nil); ok {
		t.Fatal("no mounts should find nothing")
	}
	if _, ok := MountFor("", mounts); ok {
		t.Fatal("empty path should find nothing")
	}
}

func TestParseProcMounts(t *testing.T) {
	t.Parallel()

	mounts := ParseProcMounts(strings.NewReader(`/dev/sda1 / ext4 rw,relatime 0 0
tmpfs /opt/tools tmpfs rw,nosuid,nodev,noexec 0 0
short line
`))
	if len(mounts) != 2 {
		t.Fatalf("mounts: got %d want 2", len(mounts))
	}
	m, ok := MountFor("/opt/tools/bin/tool", mounts)
	if !ok || m.Point != "/opt/tools" || m.FSType != "tmpfs" || !m.NoExec() {
		t.Fatalf("tools mount: got %+v", m)
	}
	if m, _ := MountFor("/usr/local/bin", mounts); m.Point != "/" || m.NoExec() {
		t.Fatalf("root mount: got %+v", m)
	}
}

func TestUnescapeOctal(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		`/plain`:         "/plain",
		`/a\040b`:        "/a b",
		`/tab\011x`:      "/tab\tx",
		`/back\134slash`: `/back\slash`,
		`/short\04`:      `/short\04`,
		`/not\999octal`:  `/not\999octal`,
	} {
		if got := unescapeOctal(in); got != want {
			t.Fatalf("unescapeOctal(%q): got %q want %q", in, got, want)
		}
	}
}
