package place

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/3leaps/relinstall/internal/extract"
	"github.com/3leaps/relinstall/internal/hostenv"
	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/planner"
	"github.com/3leaps/relinstall/internal/platform"
	"github.com/3leaps/relinstall/internal/version"
)

type staticSource []model.Release

func (s staticSource) ListReleases(context.Context, model.ToolRef, string) ([]model.Release, error) {
	return s, nil
}

type staticFetcher map[string][]byte

func (f staticFetcher) Fetch(_ context.Context, a model.Asset) ([]byte, error) {
	return f[a.Name], nil
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip header: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func planFor(t *testing.T, assetName string, data []byte) *planner.InstallationPlan {
	t.Helper()
	p := &planner.Planner{
		Source: staticSource{{TagName: "v1.2.0", Assets: []model.Asset{
			{Name: assetName, BrowserDownloadURL: "https://forge.test/dl/" + assetName},
		}}},
		Fetcher:   staticFetcher{assetName: data},
		Extractor: extract.Extractor{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	plan, err := p.Plan(context.Background(), planner.Request{
		Tool:       model.ToolRef{Host: "forge.test", Owner: "acme", Repo: "tool"},
		Constraint: version.Latest(),
		Platform:   platform.Profile{OS: platform.OSLinux, Arch: platform.ArchX64, Libc: platform.LibcGNU},
		Dir:        t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return plan
}

func TestInstallArchive(t *testing.T) {
	t.Parallel()

	data := zipOf(t, map[string]string{
		"tool-1.2.0/bin/tool":  "#!/bin/sh\n",
		"tool-1.2.0/README.md": "docs",
	})
	plan := planFor(t, "tool_linux_amd64.zip", data)

	dest := filepath.Join(t.TempDir(), "tools", "tool")
	res, err := Install(plan, dest)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if res.BinDir != filepath.Join(dest, "bin") {
		t.Fatalf("bin dir: got %q", res.BinDir)
	}
	if len(res.Binaries) != 1 || res.Binaries[0] != filepath.Join(dest, "bin", "tool") {
		t.Fatalf("binaries: got %v", res.Binaries)
	}
	if _, err := os.Stat(filepath.Join(dest, "README.md")); err != nil {
		t.Fatalf("stripped root content missing: %v", err)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(res.Binaries[0])
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Fatalf("mode: got %v want 0755", info.Mode().Perm())
		}
	}

	m, ok, err := ReadMarker(dest)
	if err != nil || !ok {
		t.Fatalf("ReadMarker: %v %v", ok, err)
	}
	if m.Version != "1.2.0" || m.Tag != "v1.2.0" || m.Asset != "tool_linux_amd64.zip" || len(m.SHA256) != 64 {
		t.Fatalf("marker: got %+v", m)
	}
}

func TestInstallSingleFile(t *testing.T) {
	t.Parallel()

	plan := planFor(t, "tool-linux-amd64", []byte("elf"))
	dest := t.TempDir()
	res, err := Install(plan, dest)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "tool"))
	if err != nil || string(got) != "elf" {
		t.Fatalf("renamed binary: got %q, %v", got, err)
	}
	if len(res.Binaries) != 1 {
		t.Fatalf("binaries: got %v", res.Binaries)
	}
}

func TestInstallReplacesPrevious(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "tool")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("seed: %v", err)
	}
	stale := filepath.Join(dest, "stale")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Install(planFor(t, "tool-linux-amd64", []byte("elf")), dest); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("previous install should be replaced, stat: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(dest))
	if err != nil {
		t.Fatalf("read parent: %v", err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(dest) {
			t.Fatalf("staging dir left behind: %s", e.Name())
		}
	}
}

func TestInstallRefusesUnverifiedPlan(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "tool")
	if _, err := Install(&planner.InstallationPlan{Rename: "tool"}, dest); err == nil {
		t.Fatal("expected refusal for an unverified plan")
	}
	if _, err := Install(nil, dest); err == nil {
		t.Fatal("expected refusal for a nil plan")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("nothing should be written, stat: %v", err)
	}
}

func TestReadMarkerMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := ReadMarker(t.TempDir())
	if err != nil || ok {
		t.Fatalf("ReadMarker empty dir: ok=%v err=%v", ok, err)
	}
}

func TestResultNoExec(t *testing.T) {
	t.Parallel()

	if (Result{}).NoExec() {
		t.Fatal("unknown mount must not report noexec")
	}
	exec := Result{Mount: &hostenv.Mount{Point: "/opt", Options: []string{"rw", "nosuid"}}}
	if exec.NoExec() {
		t.Fatal("rw mount reported noexec")
	}
	noexec := Result{Mount: &hostenv.Mount{Point: "/tmp", Options: []string{"rw", "noexec"}}}
	if !noexec.NoExec() {
		t.Fatal("noexec mount not reported")
	}
}
