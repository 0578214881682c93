package model

import "strings"

// Release is the subset of the forge release payload that relinstall uses.
type Release struct {
	TagName    string  `json:"tag_name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset is the subset of the forge release asset payload that relinstall uses.
// Size is zero when the forge did not report it.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	URL                string `json:"url,omitempty"`
	Size               int64  `json:"size,omitempty"`
}

// Pin is an asset recorded in a lockfile together with the checksum of the
// content installed from it.
type Pin struct {
	Asset    Asset
	Checksum string
}

// ToolRef identifies a repository on a forge host.
type ToolRef struct {
	Host  string
	Owner string
	Repo  string
}

// Slug returns "owner/repo".
func (r ToolRef) Slug() string {
	return r.Owner + "/" + r.Repo
}

func (r ToolRef) String() string {
	return r.Host + "/" + r.Slug()
}

// ArchiveFormat specifies the extraction strategy for an asset.
type ArchiveFormat string

const (
	ArchiveFormatTarGz  ArchiveFormat = "tar.gz"
	ArchiveFormatTarZst ArchiveFormat = "tar.zst"
	ArchiveFormatTarXz  ArchiveFormat = "tar.xz"
	ArchiveFormatTarBz2 ArchiveFormat = "tar.bz2"
	ArchiveFormatTar    ArchiveFormat = "tar"
	ArchiveFormatZip    ArchiveFormat = "zip"
	ArchiveFormatNone   ArchiveFormat = ""
)

var archiveSuffixes = []struct {
	suffix string
	format ArchiveFormat
}{
	{".tar.gz", ArchiveFormatTarGz},
	{".tgz", ArchiveFormatTarGz},
	{".tar.zst", ArchiveFormatTarZst},
	{".tzst", ArchiveFormatTarZst},
	{".tar.xz", ArchiveFormatTarXz},
	{".txz", ArchiveFormatTarXz},
	{".tar.bz2", ArchiveFormatTarBz2},
	{".tbz2", ArchiveFormatTarBz2},
	{".tbz", ArchiveFormatTarBz2},
	{".tar", ArchiveFormatTar},
	{".zip", ArchiveFormatZip},
}

// DetectArchiveFormat infers the archive format from an asset file name.
// ArchiveFormatNone means the asset is a bare file.
func DetectArchiveFormat(name string) ArchiveFormat {
	lower := strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return ArchiveFormatNone
}

// TrimArchiveExtension strips a recognized archive suffix from name.
func TrimArchiveExtension(name string) string {
	lower := strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return name[:len(name)-len(s.suffix)]
		}
	}
	return name
}
