package audit

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a "sha256:<hex>" payload hash. Buffers store the digest of
// their canonical form; trail entries and result files carry it as a
// plain string.
type Digest string

func (d Digest) String() string { return string(d) }

// IsZero reports whether d is the unset digest.
func (d Digest) IsZero() bool { return d == "" }

// Sum returns the digest of p.
func Sum(p []byte) Digest {
	h := sha256.Sum256(p)
	return Digest("sha256:" + hex.EncodeToString(h[:]))
}

// HashLine returns "sha256:<hex>" of the given bytes. Used for chain
// links between trail lines.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
