package values

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

// Digest is a content hash with its algorithm, serialized as
// "sha256:<hex>".
type Digest struct {
	algorithm string
	value     string
}

func hasherFor(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %s", algorithm)
	}
}

// NewDigest creates a digest from an algorithm and a hex value.
func NewDigest(algorithm, hexValue string) (Digest, error) {
	if _, err := hasherFor(algorithm); err != nil {
		return Digest{}, err
	}
	if _, err := hex.DecodeString(hexValue); err != nil {
		return Digest{}, fmt.Errorf("digest value is not hex: %w", err)
	}
	return Digest{algorithm: algorithm, value: hexValue}, nil
}

// ParseDigest parses a canonical digest string such as "sha256:abc123".
func ParseDigest(s string) (Digest, error) {
	algorithm, value, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Digest{}, fmt.Errorf("invalid digest format: %s", s)
	}
	return NewDigest(algorithm, value)
}

// ComputeDigest hashes the reader's contents with the given algorithm.
func ComputeDigest(algorithm string, r io.Reader) (Digest, error) {
	h, err := hasherFor(algorithm)
	if err != nil {
		return Digest{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return Digest{algorithm: algorithm, value: hex.EncodeToString(h.Sum(nil))}, nil
}

// ComputeDigestSHA256 hashes the reader's contents with SHA-256.
func ComputeDigestSHA256(r io.Reader) (Digest, error) {
	return ComputeDigest("sha256", r)
}

// String returns the canonical digest string.
func (d Digest) String() string {
	return d.algorithm + ":" + d.value
}

// Algorithm returns the hash algorithm.
func (d Digest) Algorithm() string { return d.algorithm }

// Value returns the hex-encoded hash.
func (d Digest) Value() string { return d.value }

// IsZero reports whether this is the zero value.
func (d Digest) IsZero() bool { return d.algorithm == "" && d.value == "" }

// Equals compares two digests.
func (d Digest) Equals(other Digest) bool {
	return d.algorithm == other.algorithm && d.value == other.value
}

// Verify checks that data hashes to this digest.
func (d Digest) Verify(data []byte) error {
	computed, err := ComputeDigest(d.algorithm, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if !d.Equals(computed) {
		return fmt.Errorf("digest mismatch: expected %s, got %s", d.String(), computed.String())
	}
	return nil
}
