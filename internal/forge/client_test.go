package forge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/model"
)

var ref = model.ToolRef{Host: "forge.test", Owner: "acme", Repo: "tool"}

type forgeServer struct {
	*httptest.Server
	listCalls atomic.Int32
	authSeen  atomic.Value
}

func newForgeServer(t *testing.T) *forgeServer {
	t.Helper()
	fs := &forgeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/repos/acme/tool/releases", func(w http.ResponseWriter, r *http.Request) {
		fs.listCalls.Add(1)
		if auth := r.Header.Get("Authorization"); auth != "" {
			fs.authSeen.Store(auth)
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"tag_name":"v0.9.0","assets":[]}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/repos/acme/tool/releases?page=2>; rel="next", <%s/api/v1/repos/acme/tool/releases?page=2>; rel="last"`, fs.URL, fs.URL))
		fmt.Fprintf(w, `[
			{"tag_name":"v2.0.0-rc1","prerelease":true,"assets":[]},
			{"tag_name":"v1.1.0","assets":[{"name":"tool_linux_amd64.tar.gz","browser_download_url":"%s/dl/broken","url":"%s/api/v1/repos/acme/tool/releases/assets/7","size":4}]},
			{"tag_name":"v1.0.5","draft":true,"assets":[]},
			{"tag_name":"v1.0.0","assets":[]}
		]`, fs.URL, fs.URL)
	})
	mux.HandleFunc("/api/v1/repos/acme/tool/releases/tags/v1.0.0", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v1.0.0","assets":[{"name":"tool.zip","browser_download_url":"x"}]}`)
	})
	mux.HandleFunc("/api/v1/repos/acme/tool/tags", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"name":"v1.1.0"},{"name":"v1.0.0"}]`)
	})
	mux.HandleFunc("/api/v1/repos/acme/tool/releases/assets/7", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/octet-stream" {
			http.Error(w, "wrong accept", http.StatusNotAcceptable)
			return
		}
		fmt.Fprint(w, "data")
	})
	mux.HandleFunc("/dl/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/dl/ok", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "payload")
	})
	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func newTestClient(t *testing.T, srv *forgeServer, allPages bool) *Client {
	t.Helper()
	c, err := New(Options{
		Token:    "secret",
		APIURL:   srv.URL + "/api/v1",
		AllPages: allPages,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestListReleases(t *testing.T) {
	t.Parallel()

	srv := newForgeServer(t)
	c := newTestClient(t, srv, false)

	releases, err := c.ListReleases(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	var tags []string
	for _, r := range releases {
		tags = append(tags, r.TagName)
	}
	if strings.Join(tags, ",") != "v1.1.0,v1.0.0" {
		t.Fatalf("tags: got %v", tags)
	}
	if releases[0].Assets[0].Size != 4 {
		t.Fatalf("asset size not decoded: %+v", releases[0].Assets[0])
	}
	if got, _ := srv.authSeen.Load().(string); got != "token secret" {
		t.Fatalf("authorization: got %q", got)
	}

	if _, err := c.ListReleases(context.Background(), ref, ""); err != nil {
		t.Fatalf("ListReleases cached: %v", err)
	}
	if n := srv.listCalls.Load(); n != 1 {
		t.Fatalf("list calls: got %d want 1 (cached)", n)
	}
}

func TestListReleasesAllPages(t *testing.T) {
	t.Parallel()

	srv := newForgeServer(t)
	c := newTestClient(t, srv, true)

	releases, err := c.ListReleases(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	if len(releases) != 3 || releases[2].TagName != "v0.9.0" {
		t.Fatalf("releases: got %+v", releases)
	}
	if n := srv.listCalls.Load(); n != 2 {
		t.Fatalf("list calls: got %d want 2", n)
	}
}

func TestGetReleaseAndTags(t *testing.T) {
	t.Parallel()

	srv := newForgeServer(t)
	c := newTestClient(t, srv, false)

	rel, err := c.GetRelease(context.Background(), ref, "", "v1.0.0")
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}
	if rel.TagName != "v1.0.0" || len(rel.Assets) != 1 {
		t.Fatalf("release: got %+v", rel)
	}

	_, err = c.GetRelease(context.Background(), ref, "", "v9.9.9")
	if !failure.Is(err, failure.KindFetch) {
		t.Fatalf("missing tag: got %v", err)
	}
	if !strings.Contains(failure.HintOf(err), "owner/repo") {
		t.Fatalf("hint: got %q", failure.HintOf(err))
	}

	tags, err := c.ListTags(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if strings.Join(tags, ",") != "v1.1.0,v1.0.0" {
		t.Fatalf("tags: got %v", tags)
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := newForgeServer(t)
	c := newTestClient(t, srv, false)

	data, err := c.Fetch(context.Background(), model.Asset{Name: "ok", BrowserDownloadURL: srv.URL + "/dl/ok"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data: got %q", data)
	}

	fallback := model.Asset{
		Name:               "tool_linux_amd64.tar.gz",
		BrowserDownloadURL: srv.URL + "/dl/broken",
		URL:                srv.URL + "/api/v1/repos/acme/tool/releases/assets/7",
	}
	data, err = c.Fetch(context.Background(), fallback)
	if err != nil {
		t.Fatalf("Fetch fallback: %v", err)
	}
	if string(data) != "data" {
		t.Fatalf("fallback data: got %q", data)
	}

	_, err = c.Fetch(context.Background(), model.Asset{Name: "broken", BrowserDownloadURL: srv.URL + "/dl/broken"})
	if !failure.Is(err, failure.KindFetch) {
		t.Fatalf("broken download: got %v", err)
	}
}

func TestTokenNotSentToOtherHosts(t *testing.T) {
	t.Parallel()

	var sawAuth atomic.Bool
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			sawAuth.Store(true)
		}
		fmt.Fprint(w, "x")
	}))
	defer other.Close()

	srv := newForgeServer(t)
	c := newTestClient(t, srv, false)
	if _, err := c.ListReleases(context.Background(), ref, ""); err != nil {
		t.Fatalf("ListReleases: %v", err)
	}
	// httptest servers share 127.0.0.1 but differ by port, which is part of Host.
	if _, err := c.Fetch(context.Background(), model.Asset{Name: "x", BrowserDownloadURL: other.URL + "/x"}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if sawAuth.Load() {
		t.Fatal("token leaked to a host that is not the forge")
	}
}

func TestNextPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		link string
		want string
	}{
		{`<https://f.test/r?page=2>; rel="next", <https://f.test/r?page=5>; rel="last"`, "https://f.test/r?page=2"},
		{`<https://f.test/r?page=1>; rel="prev"`, ""},
		{"", ""},
		{`garbage; rel="next"`, ""},
	}
	for _, tc := range tests {
		if got := nextPage(tc.link); got != tc.want {
			t.Fatalf("nextPage(%q): got %q want %q", tc.link, got, tc.want)
		}
	}
}

func TestAPIURL(t *testing.T) {
	t.Parallel()

	if got := APIURL("codeberg.org", ""); got != "https://codeberg.org/api/v1" {
		t.Fatalf("default: got %q", got)
	}
	if got := APIURL("codeberg.org", "https://git.example.test/api/v1/"); got != "https://git.example.test/api/v1" {
		t.Fatalf("override: got %q", got)
	}
}
