package verify

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/jedisct1/go-minisign"

	"github.com/3leaps/relinstall/internal/failure"
)

// MinisignSuffix is appended to an asset name to find its signature.
const MinisignSuffix = ".minisig"

// VerifyMinisign checks a minisign signature over content. publicKey is either
// the base64 key line or the whole contents of a .pub file. It returns the
// signing key id.
func VerifyMinisign(content, signature []byte, publicKey string) (string, error) {
	pubKey, err := minisign.NewPublicKey(keyLine(publicKey))
	if err != nil {
		return "", failure.Wrap(fmt.Errorf("read minisign pubkey: %w", err), failure.KindInvalidInput,
			"minisign_key must be the base64 line of a minisign .pub file")
	}

	sig, err := minisign.DecodeSignature(string(signature))
	if err != nil {
		return "", failure.Wrap(fmt.Errorf("read minisign signature: %w", err), failure.KindSignatureInvalid, "")
	}

	valid, err := pubKey.Verify(content, sig)
	if err != nil {
		return "", failure.Wrap(fmt.Errorf("minisign: verification error: %w", err), failure.KindSignatureInvalid,
			"the signature was made by a different key or the asset was modified")
	}
	if !valid {
		return "", failure.New(failure.KindSignatureInvalid, "", "minisign: signature verification failed")
	}
	return keyID(pubKey.KeyId), nil
}

// WithSignature verifies a minisign signature over data, which must be the
// bytes r was issued for, and records the signing key on a copy of r.
func (r Receipt) WithSignature(data, signature []byte, publicKey string) (Receipt, error) {
	if !r.ok {
		return Receipt{}, fmt.Errorf("cannot sign an unverified receipt")
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != r.sha256 {
		return Receipt{}, fmt.Errorf("signature check given different bytes than were verified")
	}
	id, err := VerifyMinisign(data, signature, publicKey)
	if err != nil {
		return Receipt{}, err
	}
	r.signedBy = id
	return r, nil
}

// keyLine picks the key out of a .pub file, skipping the untrusted comment.
func keyLine(publicKey string) string {
	lines := strings.Split(strings.TrimSpace(publicKey), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "untrusted comment:") {
			return line
		}
	}
	return ""
}

func keyID(id [8]byte) string {
	return fmt.Sprintf("%016X", binary.LittleEndian.Uint64(id[:]))
}
