package model

// ToolOptions are the user-specified knobs for one tool. Pointer fields
// distinguish "unset" from an explicit zero value.
type ToolOptions struct {
	AssetPattern    string                     `toml:"asset_pattern,omitempty" json:"asset_pattern,omitempty"`
	VersionPrefix   *string                    `toml:"version_prefix,omitempty" json:"version_prefix,omitempty"`
	Checksum        string                     `toml:"checksum,omitempty" json:"checksum,omitempty"`
	Size            int64                      `toml:"size,omitempty" json:"size,omitempty"`
	StripComponents *int                       `toml:"strip_components,omitempty" json:"strip_components,omitempty"`
	Bin             string                     `toml:"bin,omitempty" json:"bin,omitempty"`
	BinPath         string                     `toml:"bin_path,omitempty" json:"bin_path,omitempty"`
	APIURL          string                     `toml:"api_url,omitempty" json:"api_url,omitempty"`
	ChecksumsAsset  string                     `toml:"checksums_asset,omitempty" json:"checksums_asset,omitempty"` // "auto" or a release asset name
	MinisignKey     string                     `toml:"minisign_key,omitempty" json:"minisign_key,omitempty"`       // public key, base64 form
	URL             string                     `toml:"url,omitempty" json:"url,omitempty"`                         // direct download, bypasses asset selection
	Platforms       map[string]PlatformOptions `toml:"platforms,omitempty" json:"platforms,omitempty"`             // keyed by "{os}-{arch}"
}

// PlatformOptions override ToolOptions fields for one "{os}-{arch}" key.
type PlatformOptions struct {
	AssetPattern string `toml:"asset_pattern,omitempty" json:"asset_pattern,omitempty"`
	Checksum     string `toml:"checksum,omitempty" json:"checksum,omitempty"`
	Size         int64  `toml:"size,omitempty" json:"size,omitempty"`
	URL          string `toml:"url,omitempty" json:"url,omitempty"`
}

// ForPlatform returns a copy of o with the override for key applied.
// Only non-empty override fields replace top-level values.
func (o ToolOptions) ForPlatform(key string) ToolOptions {
	out := o
	out.Platforms = nil
	override, ok := o.Platforms[key]
	if !ok {
		return out
	}
	if override.AssetPattern != "" {
		out.AssetPattern = override.AssetPattern
	}
	if override.Checksum != "" {
		out.Checksum = override.Checksum
	}
	if override.Size > 0 {
		out.Size = override.Size
	}
	if override.URL != "" {
		out.URL = override.URL
	}
	return out
}
