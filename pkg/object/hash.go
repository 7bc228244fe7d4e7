package object

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"math/bits"
	"strings"
)

// Hash is a raw object identifier in the repository's native length: 20
// bytes for SHA-1 repositories, 32 bytes for SHA-256 repositories.
//
// Hashes handed out by the enumerator may alias an index buffer; callers that
// retain one beyond the current iteration step should Clone it.
type Hash []byte

// String returns the lowercase hexadecimal form of the hash.
func (h Hash) String() string { return hex.EncodeToString(h) }

// Equal reports whether h and o hold the same bytes.
func (h Hash) Equal(o Hash) bool { return bytes.Equal(h, o) }

// Clone returns a copy of h that does not alias the original buffer.
func (h Hash) Clone() Hash { return bytes.Clone(h) }

// LeadingZeroBits counts consecutive zero bits from the most significant bit
// of the first byte. An all-zero hash returns its full bit length.
func (h Hash) LeadingZeroBits() int {
	for i, b := range h {
		if b != 0 {
			return i*8 + bits.LeadingZeros8(b)
		}
	}
	return len(h) * 8
}

// ParseHash decodes a 40 or 64 character hex string.
func ParseHash(s string) (Hash, error) {
	if len(s) != SHA1.HexSize() && len(s) != SHA256.HexSize() {
		return nil, fmt.Errorf("%w: %d hex chars", ErrInvalidHashLength, len(s))
	}
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	return Hash(raw), nil
}

// HashAlgo identifies the repository's object hash function.
type HashAlgo int

const (
	SHA1 HashAlgo = iota
	SHA256
)

// ParseHashAlgo maps an extensions.objectformat value to a HashAlgo. The
// empty string selects SHA1, matching Git's default.
func ParseHashAlgo(name string) (HashAlgo, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return 0, fmt.Errorf("unsupported object format %q", name)
	}
}

func (a HashAlgo) String() string {
	switch a {
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	default:
		return fmt.Sprintf("HashAlgo(%d)", int(a))
	}
}

// Size is the raw digest length in bytes.
func (a HashAlgo) Size() int {
	if a == SHA256 {
		return sha256.Size
	}
	return sha1.Size
}

// HexSize is the length of the hex form of a digest.
func (a HashAlgo) HexSize() int { return a.Size() * 2 }

// New returns a fresh hash.Hash for the algorithm.
func (a HashAlgo) New() hash.Hash {
	if a == SHA256 {
		return sha256.New()
	}
	return sha1.New()
}

// Sum hashes data in one call.
func (a HashAlgo) Sum(data []byte) Hash {
	h := a.New()
	h.Write(data)
	return Hash(h.Sum(nil))
}

// HashObject computes the object id of the envelope "kind len\0content",
// the way Git names loose and packed objects.
func (a HashAlgo) HashObject(kind ObjectKind, data []byte) Hash {
	h := a.New()
	h.Write(ObjectHeader(kind, len(data)))
	h.Write(data)
	return Hash(h.Sum(nil))
}

// CheckLength reports ErrInvalidHashLength when h is not a digest of a.
func (a HashAlgo) CheckLength(h Hash) error {
	if len(h) != a.Size() {
		return fmt.Errorf("%w: got %d bytes, want %d for %s", ErrInvalidHashLength, len(h), a.Size(), a)
	}
	return nil
}
