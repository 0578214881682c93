// Package verify checks downloaded bytes against expected sizes, digests and
// minisign signatures.
package verify

import (
	"crypto/md5"  // #nosec G501
	"crypto/sha1" // #nosec G505
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/3leaps/relinstall/internal/failure"
)

// Supported digest algorithms.
const (
	AlgoSHA256  = "sha256"
	AlgoSHA512  = "sha512"
	AlgoSHA1    = "sha1"
	AlgoMD5     = "md5"
	AlgoBlake2b = "blake2b"
)

// Checksum is an expected digest in "<algorithm>:<hex>" form.
type Checksum struct {
	Algorithm string
	Hex       string
}

func (c Checksum) String() string {
	return c.Algorithm + ":" + c.Hex
}

// ParseChecksum parses "<algorithm>:<hex>". The hex part is normalized to
// lower case.
func ParseChecksum(s string) (Checksum, error) {
	algo, digest, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Checksum{}, invalidChecksum("checksum %q must have the form <algorithm>:<hex>", s)
	}
	algo = strings.ToLower(strings.TrimSpace(algo))
	digest = strings.TrimSpace(digest)
	want := expectedDigestLength(algo)
	if want == 0 {
		return Checksum{}, invalidChecksum("unsupported checksum algorithm %q", algo)
	}
	if !isHexDigest(digest, want) {
		return Checksum{}, invalidChecksum("%s digest must be %d hex characters", algo, want)
	}
	return Checksum{Algorithm: algo, Hex: strings.ToLower(digest)}, nil
}

func invalidChecksum(format string, args ...any) error {
	return failure.New(failure.KindInvalidInput,
		"use sha256:<64 hex>, sha512, sha1, md5 or blake2b", format, args...)
}

// Digest computes the lower-case hex digest of data.
func Digest(algo string, data []byte) (string, error) {
	switch strings.ToLower(algo) {
	case AlgoSHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case AlgoSHA512:
		sum := sha512.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	case AlgoSHA1:
		sum := sha1.Sum(data) // #nosec G401
		return hex.EncodeToString(sum[:]), nil
	case AlgoMD5:
		sum := md5.Sum(data) // #nosec G401
		return hex.EncodeToString(sum[:]), nil
	case AlgoBlake2b:
		sum := blake2b.Sum512(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm %q", algo)
	}
}

// ExtractChecksum finds the digest for assetName in a checksum manifest. The
// manifest is either a bare digest or "<digest>  <file>" lines.
func ExtractChecksum(data []byte, algo, assetName string) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("checksum file is empty")
	}
	digestLen := expectedDigestLength(algo)
	if isHexDigest(text, digestLen) {
		return strings.ToLower(text), nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		digest := fields[0]
		if !isHexDigest(digest, digestLen) {
			continue
		}
		// sha256sum marks binary mode with a leading '*'.
		candidate := filepath.Base(strings.TrimPrefix(fields[len(fields)-1], "*"))
		if candidate == assetName {
			return strings.ToLower(digest), nil
		}
	}

	return "", fmt.Errorf("checksum for %s not found", assetName)
}

func isHexDigest(value string, expectedLen int) bool {
	if value == "" {
		return false
	}
	if expectedLen > 0 && len(value) != expectedLen {
		return false
	}
	if len(value)%2 != 0 {
		return false
	}
	for _, ch := range value {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}
	return true
}

func expectedDigestLength(algo string) int {
	switch strings.ToLower(algo) {
	case AlgoSHA256:
		return 64
	case AlgoSHA512, AlgoBlake2b:
		return 128
	case AlgoSHA1:
		return 40
	case AlgoMD5:
		return 32
	default:
		return 0
	}
}
