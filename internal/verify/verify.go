package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/3leaps/relinstall/internal/failure"
)

// Receipt proves that Verify accepted a byte buffer. Its zero value is not
// valid and only this package can build a valid one.
type Receipt struct {
	ok       bool
	size     int64
	sha256   string
	checked  string
	signedBy string
}

// Valid reports whether the receipt came from a successful verification.
func (r Receipt) Valid() bool { return r.ok }

// Size is the verified byte length.
func (r Receipt) Size() int64 { return r.size }

// SHA256 is the digest of the verified bytes, computed even when no checksum
// was expected so callers can pin it.
func (r Receipt) SHA256() string { return r.sha256 }

// Checked returns the expected checksum that matched, or "" when none was set.
func (r Receipt) Checked() string { return r.checked }

// SignedBy returns the minisign key id that signed the bytes, or "".
func (r Receipt) SignedBy() string { return r.signedBy }

// Verify checks data against an expected size and checksum. Size is checked
// first. Absent expectations are skipped.
func Verify(data []byte, expected *Checksum, size int64) (Receipt, error) {
	actual := int64(len(data))
	if size > 0 && actual != size {
		return Receipt{}, failure.New(failure.KindSizeMismatch,
			"the download is truncated or the release asset was replaced",
			"size mismatch: expected %d bytes, got %d", size, actual)
	}

	sum := sha256.Sum256(data)
	r := Receipt{ok: true, size: actual, sha256: hex.EncodeToString(sum[:])}
	if expected == nil {
		return r, nil
	}

	got := r.sha256
	if !strings.EqualFold(expected.Algorithm, AlgoSHA256) {
		var err error
		got, err = Digest(expected.Algorithm, data)
		if err != nil {
			return Receipt{}, failure.Wrap(err, failure.KindInvalidInput, "")
		}
	}
	if !strings.EqualFold(got, expected.Hex) {
		return Receipt{}, failure.New(failure.KindChecksumMismatch,
			"the release asset changed since the checksum was pinned; do not install it",
			"checksum mismatch: expected %s, got %s:%s", expected, expected.Algorithm, got)
	}
	r.checked = expected.String()
	return r, nil
}
