package core

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
)

// Digest is the hex SHA-1 digest of a bulk dump, used for change
// detection between discovery passes.
type Digest string

// NewDigest computes the digest of a byte slice
func NewDigest(data []byte) Digest {
	sum := sha1.Sum(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (d Digest) String() string {
	return string(d)
}

// IsEmpty checks if the digest is empty
func (d Digest) IsEmpty() bool {
	return d == ""
}

// Equals checks if two digests are equal
func (d Digest) Equals(other Digest) bool {
	return d == other
}

// DigestHasher accumulates a digest over streamed chunks, so a dump can
// be hashed while it is written to disk.
type DigestHasher struct {
	h hash.Hash
}

// NewDigestHasher creates a streaming hasher
func NewDigestHasher() *DigestHasher {
	return &DigestHasher{h: sha1.New()}
}

// Write implements io.Writer
func (d *DigestHasher) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Sum returns the digest of everything written so far
func (d *DigestHasher) Sum() Digest {
	return Digest(hex.EncodeToString(d.h.Sum(nil)))
}
