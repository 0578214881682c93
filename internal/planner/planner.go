// Package planner sequences version resolution, asset selection, download
// verification and layout detection into an InstallationPlan.
package planner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/3leaps/relinstall/internal/assets"
	"github.com/3leaps/relinstall/internal/failure"
	"github.com/3leaps/relinstall/internal/layout"
	"github.com/3leaps/relinstall/internal/model"
	"github.com/3leaps/relinstall/internal/placeholder"
	"github.com/3leaps/relinstall/internal/platform"
	"github.com/3leaps/relinstall/internal/verify"
	"github.com/3leaps/relinstall/internal/version"
)

// ReleaseSource lists a repository's releases, newest first.
type ReleaseSource interface {
	ListReleases(ctx context.Context, ref model.ToolRef, apiURL string) ([]model.Release, error)
}

// ReleaseGetter fetches one release by tag. A ReleaseSource implementing it
// lets exact versions missing from the listing, such as prereleases or tags
// beyond the first page, be looked up directly.
type ReleaseGetter interface {
	GetRelease(ctx context.Context, ref model.ToolRef, apiURL, tag string) (model.Release, error)
}

// Fetcher downloads the bytes of a release asset.
type Fetcher interface {
	Fetch(ctx context.Context, asset model.Asset) ([]byte, error)
}

// Extractor unpacks a downloaded asset into dest and returns the tree.
// Non-archives are written as a single file named after the asset.
type Extractor interface {
	Extract(name string, data []byte, dest string) (fs.FS, error)
}

// LockSource returns the asset pinned for a tool version on a platform.
type LockSource interface {
	Lookup(ref model.ToolRef, version, platformKey string) (model.Pin, bool)
}

type Planner struct {
	Source    ReleaseSource
	Fetcher   Fetcher
	Extractor Extractor
	// Locks is optional.
	Locks  LockSource
	Logger *slog.Logger
}

// Request describes one tool to plan.
type Request struct {
	Tool       model.ToolRef
	Constraint version.Constraint
	Options    model.ToolOptions
	Platform   platform.Profile
	// Dir receives the extracted asset. A temporary directory is created when
	// empty; the caller owns it either way.
	Dir string
}

func (p *Planner) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Plan runs every stage for one tool, stopping at the first failure. Errors
// keep the kind assigned by the stage that raised them.
func (p *Planner) Plan(ctx context.Context, req Request) (*InstallationPlan, error) {
	opts := req.Options.ForPlatform(req.Platform.Key())
	log := p.logger().With("tool", req.Tool.String(), "platform", req.Platform.String())

	resolved, release, err := p.resolve(ctx, req, opts, log)
	if err != nil {
		return nil, err
	}
	log = log.With("version", resolved.Version, "tag", resolved.Tag)
	log.Debug("resolved version", "constraint", req.Constraint.String())

	ctxVars := placeholder.Context{
		Name:    req.Tool.Repo,
		Version: resolved.Version,
		OS:      string(req.Platform.OS),
		Arch:    string(req.Platform.Arch),
		Ext:     defaultExt(req.Platform.OS),
	}

	asset, lockedSum, err := p.chooseAsset(req, opts, resolved, release, ctxVars, log)
	if err != nil {
		return nil, err
	}
	log = log.With("asset", asset.Name)

	checksum, err := p.expectedChecksum(ctx, opts, release, asset, lockedSum, log)
	if err != nil {
		return nil, err
	}

	data, err := p.Fetcher.Fetch(ctx, asset)
	if err != nil {
		return nil, err
	}
	size := opts.Size
	if size == 0 {
		size = asset.Size
	}
	receipt, err := verify.Verify(data, checksum, size)
	if err != nil {
		if lockedSum != "" && opts.Checksum == "" && failure.Is(err, failure.KindChecksumMismatch) {
			return nil, failure.Wrap(err, failure.KindChecksumMismatch,
				"the asset changed since it was locked; remove its relinstall.lock entry to accept the new content")
		}
		return nil, err
	}
	if opts.MinisignKey != "" {
		receipt, err = p.checkSignature(ctx, opts, release, asset, data, receipt)
		if err != nil {
			return nil, err
		}
	}
	log.Info("verified download", "size", verify.FormatSize(receipt.Size()), "checksum", receipt.Checked(), "signed_by", receipt.SignedBy())

	dir := req.Dir
	if dir == "" {
		dir, err = os.MkdirTemp("", "relinstall-")
		if err != nil {
			return nil, fmt.Errorf("create work dir: %w", err)
		}
	}
	tree, err := p.Extractor.Extract(asset.Name, data, dir)
	if err != nil {
		if req.Dir == "" {
			_ = os.RemoveAll(dir)
		}
		return nil, fmt.Errorf("extract %s: %w", asset.Name, err)
	}

	plan := &InstallationPlan{
		Tool:    req.Tool,
		Version: resolved,
		Asset:   asset,
		Dir:     dir,
		Tree:    tree,
		receipt: receipt,
	}
	if model.DetectArchiveFormat(asset.Name) == model.ArchiveFormatNone {
		plan.BinDir = layout.Root
		plan.Rename = layout.BinaryName(asset.Name, opts.Bin)
		return plan, nil
	}

	plan.Archive = true
	ctxVars.Ext = strings.TrimPrefix(asset.Name[len(model.TrimArchiveExtension(asset.Name)):], ".")
	lay, err := layout.Resolve(tree, layout.Options{StripComponents: opts.StripComponents, BinPath: opts.BinPath}, ctxVars)
	if err != nil {
		if req.Dir == "" {
			_ = os.RemoveAll(dir)
		}
		return nil, err
	}
	plan.StripComponents = lay.StripComponents
	plan.BinDir = lay.BinDir
	log.Debug("resolved layout", "strip_components", lay.StripComponents, "bin_dir", lay.BinDir)
	return plan, nil
}

// chooseAsset picks the asset to download. The returned checksum is the one
// recorded in the lockfile when the locked asset is reused, "" otherwise.
func (p *Planner) chooseAsset(req Request, opts model.ToolOptions, resolved version.Resolved, release model.Release, vars placeholder.Context, log *slog.Logger) (model.Asset, string, error) {
	if opts.URL != "" {
		raw := placeholder.Expand(opts.URL, vars)
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return model.Asset{}, "", failure.New(failure.KindInvalidInput, "url must be an absolute http(s) URL",
				"invalid url %q", raw)
		}
		return model.Asset{Name: path.Base(u.Path), BrowserDownloadURL: raw, Size: opts.Size}, "", nil
	}

	if p.Locks != nil {
		if pinned, ok := p.Locks.Lookup(req.Tool, resolved.Version, req.Platform.Key()); ok {
			for _, a := range release.Assets {
				if a.Name == pinned.Asset.Name {
					log.Debug("using locked asset", "asset", a.Name, "checksum", pinned.Checksum)
					return a, pinned.Checksum, nil
				}
			}
			if pinned.Asset.BrowserDownloadURL != "" {
				log.Debug("using locked asset url", "asset", pinned.Asset.Name, "url", pinned.Asset.BrowserDownloadURL)
				return pinned.Asset, pinned.Checksum, nil
			}
			log.Warn("locked asset missing from release, selecting again", "asset", pinned.Asset.Name)
		}
	}

	pattern := placeholder.Expand(opts.AssetPattern, vars)
	a, err := assets.Select(release.Assets, req.Platform, assets.Criteria{Pattern: pattern})
	return a, "", err
}

// expectedChecksum returns the digest the download must match, in order of
// precedence: the configured checksum, the lockfile, the release manifest.
func (p *Planner) expectedChecksum(ctx context.Context, opts model.ToolOptions, release model.Release, asset model.Asset, locked string, log *slog.Logger) (*verify.Checksum, error) {
	if opts.Checksum != "" {
		c, err := verify.ParseChecksum(opts.Checksum)
		if err != nil {
			return nil, err
		}
		return &c, nil
	}
	if locked != "" {
		c, err := verify.ParseChecksum(locked)
		if err != nil {
			return nil, failure.Wrap(err, failure.KindInvalidInput, "fix or remove the entry in relinstall.lock")
		}
		log.Debug("checksum from lockfile", "checksum", c.String())
		return &c, nil
	}
	if opts.ChecksumsAsset == "" {
		return nil, nil
	}

	manifest, ok := verify.FindManifest(release.Assets, asset.Name, opts.ChecksumsAsset)
	if !ok {
		if opts.ChecksumsAsset == verify.ManifestAuto {
			log.Warn("no checksum manifest in release, skipping checksum verification")
			return nil, nil
		}
		return nil, failure.New(failure.KindInvalidInput, "check checksums_asset against the release assets",
			"checksums asset %q not found in release %s", opts.ChecksumsAsset, release.TagName)
	}
	data, err := p.Fetcher.Fetch(ctx, manifest)
	if err != nil {
		return nil, err
	}
	c, err := verify.ChecksumFromManifest(data, manifest.Name, asset.Name)
	if err != nil {
		return nil, failure.Wrap(err, failure.KindChecksumMismatch, "the release manifest does not list this asset")
	}
	log.Debug("checksum from manifest", "manifest", manifest.Name, "checksum", c.String())
	return &c, nil
}

func (p *Planner) checkSignature(ctx context.Context, opts model.ToolOptions, release model.Release, asset model.Asset, data []byte, receipt verify.Receipt) (verify.Receipt, error) {
	sigName := asset.Name + verify.MinisignSuffix
	sigAsset, ok := model.Asset{}, false
	for _, a := range release.Assets {
		if a.Name == sigName {
			sigAsset, ok = a, true
			break
		}
	}
	if !ok && opts.URL != "" {
		sigAsset, ok = model.Asset{Name: sigName, BrowserDownloadURL: asset.BrowserDownloadURL + verify.MinisignSuffix}, true
	}
	if !ok {
		return verify.Receipt{}, failure.New(failure.KindSignatureInvalid,
			"minisign_key is set but the release publishes no signature for this asset",
			"signature %s not found in release %s", sigName, release.TagName)
	}
	sig, err := p.Fetcher.Fetch(ctx, sigAsset)
	if err != nil {
		return verify.Receipt{}, err
	}
	return receipt.WithSignature(data, sig, opts.MinisignKey)
}

// Versions lists the installable versions of a tool, newest first.
func (p *Planner) Versions(ctx context.Context, ref model.ToolRef, opts model.ToolOptions) ([]version.Resolved, error) {
	releases, err := p.Source.ListReleases(ctx, ref, opts.APIURL)
	if err != nil {
		return nil, err
	}
	return version.List(version.PrefixFrom(opts.VersionPrefix), tagsOf(releases)), nil
}

// Resolve returns the version Plan would install for req without downloading
// anything.
func (p *Planner) Resolve(ctx context.Context, req Request) (version.Resolved, error) {
	opts := req.Options.ForPlatform(req.Platform.Key())
	resolved, _, err := p.resolve(ctx, req, opts, p.logger().With("tool", req.Tool.String()))
	return resolved, err
}

func (p *Planner) resolve(ctx context.Context, req Request, opts model.ToolOptions, log *slog.Logger) (version.Resolved, model.Release, error) {
	prefix := version.PrefixFrom(opts.VersionPrefix)
	releases, err := p.Source.ListReleases(ctx, req.Tool, opts.APIURL)
	if err != nil {
		return version.Resolved{}, model.Release{}, err
	}
	resolved, err := version.Resolve(req.Constraint, prefix, tagsOf(releases))
	if err == nil {
		return resolved, releaseByTag(releases, resolved.Tag), nil
	}

	getter, ok := p.Source.(ReleaseGetter)
	if !ok || req.Constraint.IsLatest() {
		return version.Resolved{}, model.Release{}, err
	}
	requested := req.Constraint.String()
	for _, tag := range version.Candidates(requested, prefix) {
		release, getErr := getter.GetRelease(ctx, req.Tool, opts.APIURL, tag)
		if getErr != nil {
			if ctx.Err() != nil {
				return version.Resolved{}, model.Release{}, ctx.Err()
			}
			log.Debug("release lookup by tag failed", "tag", tag, "error", getErr)
			continue
		}
		if release.Draft {
			continue
		}
		log.Debug("found release by tag outside the listing", "tag", release.TagName)
		resolved, resolveErr := version.Resolve(req.Constraint, prefix, []string{release.TagName})
		if resolveErr != nil {
			continue
		}
		return resolved, release, nil
	}
	return version.Resolved{}, model.Release{}, err
}

func tagsOf(releases []model.Release) []string {
	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		tags = append(tags, r.TagName)
	}
	return tags
}

func releaseByTag(releases []model.Release, tag string) model.Release {
	for _, r := range releases {
		if r.TagName == tag {
			return r
		}
	}
	return model.Release{TagName: tag}
}

func defaultExt(o platform.OS) string {
	if o == platform.OSWindows {
		return "zip"
	}
	return "tar.gz"
}
