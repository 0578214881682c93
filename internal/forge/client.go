// Package forge talks to the release API of Forgejo, Gitea and GitHub style hosts.
package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/model"
)

const (
	// APITimeout bounds a single API request. Downloads are bounded by the caller's context.
	APITimeout = 30 * time.Second

	defaultCacheSize = 128
	pageSize         = 50
)

func UserAgent(version string) string {
	return fmt.Sprintf("relinstall/%s", version)
}

// APIURL returns the API root for host. A non-empty override wins.
func APIURL(host, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	return "https://" + host + "/api/v1"
}

type Options struct {
	Token     string
	UserAgent string
	// APIURL overrides the API root for every host.
	APIURL string
	// AllPages follows Link rel="next" when listing releases.
	AllPages   bool
	CacheSize  int
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client lists releases and downloads assets. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	token     string
	userAgent string
	apiURL    string
	allPages  bool
	logger    *slog.Logger

	releases *lru.Cache[string, []model.Release]
	// trusted holds hosts that receive the token.
	trusted sync.Map
}

func New(opts Options) (*Client, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []model.Release](size)
	if err != nil {
		return nil, fmt.Errorf("create release cache: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = UserAgent("dev")
	}
	return &Client{
		http:      httpClient,
		token:     opts.Token,
		userAgent: ua,
		apiURL:    opts.APIURL,
		allPages:  opts.AllPages,
		logger:    logger,
		releases:  cache,
	}, nil
}

func (c *Client) base(ref model.ToolRef, override string) string {
	if override == "" {
		override = c.apiURL
	}
	base := APIURL(ref.Host, override)
	if u, err := url.Parse(base); err == nil {
		c.trusted.Store(u.Host, true)
	}
	return base
}

// ListReleases returns published releases newest first. Drafts and
// prereleases are dropped. Results are cached per API root and repository.
func (c *Client) ListReleases(ctx context.Context, ref model.ToolRef, apiURL string) ([]model.Release, error) {
	base := c.base(ref, apiURL)
	key := base + "/" + ref.Slug()
	if cached, ok := c.releases.Get(key); ok {
		return cached, nil
	}

	next := fmt.Sprintf("%s/repos/%s/releases?limit=%d&per_page=%d", base, ref.Slug(), pageSize, pageSize)
	var all []model.Release
	for next != "" {
		var page []model.Release
		header, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		next = ""
		if c.allPages {
			next = nextPage(header.Get("Link"))
		}
	}

	published := all[:0]
	for _, r := range all {
		if !r.Draft && !r.Prerelease {
			published = append(published, r)
		}
	}
	c.logger.Debug("listed releases", "repo", ref.String(), "count", len(published))
	c.releases.Add(key, published)
	return published, nil
}

// GetRelease fetches one release by tag.
func (c *Client) GetRelease(ctx context.Context, ref model.ToolRef, apiURL, tag string) (model.Release, error) {
	base := c.base(ref, apiURL)
	var release model.Release
	if _, err := c.getJSON(ctx, fmt.Sprintf("%s/repos/%s/releases/tags/%s", base, ref.Slug(), url.PathEscape(tag)), &release); err != nil {
		return model.Release{}, err
	}
	return release, nil
}

// ListTags returns tag names newest first.
func (c *Client) ListTags(ctx context.Context, ref model.ToolRef, apiURL string) ([]string, error) {
	base := c.base(ref, apiURL)
	next := fmt.Sprintf("%s/repos/%s/tags?limit=%d&per_page=%d", base, ref.Slug(), pageSize, pageSize)
	var names []string
	for next != "" {
		var page []struct {
			Name string `json:"name"`
		}
		header, err := c.getJSON(ctx, next, &page)
		if err != nil {
			return nil, err
		}
		for _, t := range page {
			names = append(names, t.Name)
		}
		next = ""
		if c.allPages {
			next = nextPage(header.Get("Link"))
		}
	}
	return names, nil
}

// Fetch downloads an asset. When the browser URL fails and the asset has an
// API URL, the API URL is tried with an octet-stream Accept header.
func (c *Client) Fetch(ctx context.Context, asset model.Asset) ([]byte, error) {
	data, err := c.download(ctx, asset.BrowserDownloadURL)
	if err == nil || asset.URL == "" || asset.URL == asset.BrowserDownloadURL {
		return data, err
	}
	c.logger.Debug("browser download failed, trying api url", "asset", asset.Name, "error", err)
	return c.download(ctx, asset.URL)
}

func (c *Client) download(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure.Wrap(fmt.Errorf("read %s: %w", rawURL, err), failure.KindFetch, "")
	}
	c.logger.Debug("downloaded", "url", rawURL, "bytes", len(data))
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) (http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	resp, err := c.do(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, failure.Wrap(fmt.Errorf("decode %s: %w", rawURL, err), failure.KindFetch, "")
	}
	return resp.Header, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, failure.Wrap(err, failure.KindInvalidInput, "")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		if _, ok := c.trusted.Load(req.URL.Host); ok {
			req.Header.Set("Authorization", "token "+c.token)
		}
	}
	if strings.Contains(req.URL.Path, "/releases/assets/") {
		req.Header.Set("Accept", "application/octet-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, failure.Wrap(fmt.Errorf("GET %s: %w", rawURL, err), failure.KindFetch, "check the network or the api_url setting")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, failure.New(failure.KindFetch, statusHint(resp.StatusCode),
			"GET %s: %s: %s", rawURL, resp.Status, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func statusHint(code int) string {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "set RELINSTALL_TOKEN (or FORGEJO_TOKEN/GITHUB_TOKEN) for private repositories and rate limits"
	case http.StatusNotFound:
		return "check the host/owner/repo reference and the release tag"
	default:
		return ""
	}
}

// nextPage extracts the rel="next" target from a Link header.
func nextPage(link string) string {
	for _, part := range strings.Split(link, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}
