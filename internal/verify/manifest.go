package verify

import (
	"fmt"
	"strings"

	"github.com/3leaps/relinstall/internal/model"
)

// ManifestAuto asks FindManifest to look for a checksum file by name.
const ManifestAuto = "auto"

// manifestCandidates are consolidated checksum files, tried after the
// per-asset "<asset>.sha256" and "<asset>.sha512" forms.
var manifestCandidates = []string{
	"SHA256SUMS", "SHA256SUMS.txt", "sha256sums.txt", "checksums.txt", "checksums.sha256",
	"SHA512SUMS", "SHA512SUMS.txt", "sha512sums.txt",
}

// FindManifest picks the checksum manifest covering assetName. option is
// ManifestAuto or the exact name of a release asset. ok is false when no
// manifest exists.
func FindManifest(assets []model.Asset, assetName, option string) (model.Asset, bool) {
	if option == "" {
		return model.Asset{}, false
	}
	if option != ManifestAuto {
		return findAsset(assets, option)
	}
	for _, name := range []string{assetName + ".sha256", assetName + ".sha512"} {
		if a, ok := findAsset(assets, name); ok {
			return a, true
		}
	}
	for _, name := range manifestCandidates {
		if a, ok := findAssetFold(assets, name); ok {
			return a, true
		}
	}
	// Release tools such as goreleaser name the manifest "<project>_<version>_checksums.txt".
	for _, a := range assets {
		lower := strings.ToLower(a.Name)
		if strings.HasSuffix(lower, "checksums.txt") || strings.HasSuffix(lower, "sha256sums") {
			return a, true
		}
	}
	return model.Asset{}, false
}

// ChecksumFromManifest reads the digest for assetName out of a manifest named
// manifestName, guessing the algorithm from the manifest name.
func ChecksumFromManifest(manifest []byte, manifestName, assetName string) (Checksum, error) {
	algo := DetectChecksumAlgorithm(manifestName, AlgoSHA256)
	digest, err := ExtractChecksum(manifest, algo, assetName)
	if err != nil {
		return Checksum{}, fmt.Errorf("%s: %w", manifestName, err)
	}
	return Checksum{Algorithm: algo, Hex: digest}, nil
}

func findAsset(assets []model.Asset, name string) (model.Asset, bool) {
	for _, a := range assets {
		if a.Name == name {
			return a, true
		}
	}
	return model.Asset{}, false
}

func findAssetFold(assets []model.Asset, name string) (model.Asset, bool) {
	for _, a := range assets {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return model.Asset{}, false
}

// DetectChecksumAlgorithm guesses the digest algorithm from a manifest file name.
func DetectChecksumAlgorithm(filename, defaultAlgo string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.Contains(lower, "sha2-512sums"),
		strings.Contains(lower, "sha512sums"),
		strings.HasSuffix(lower, ".sha512"),
		strings.HasSuffix(lower, ".sha512.txt"):
		return AlgoSHA512
	case strings.Contains(lower, "sha2-256sums"),
		strings.Contains(lower, "sha256sums"),
		strings.HasSuffix(lower, ".sha256"),
		strings.HasSuffix(lower, ".sha256.txt"):
		return AlgoSHA256
	case strings.Contains(lower, "b2sums"), strings.HasSuffix(lower, ".b2"):
		return AlgoBlake2b
	default:
		return defaultAlgo
	}
}

// FormatSize formats bytes as human-readable size.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
