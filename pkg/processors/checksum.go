// Package processors holds byte-level helpers applied to exported files:
// xxh3 checksums and zstd framing.
package processors

import (
	"encoding/binary"
	"encoding/hex"
	"hash"

	"github.com/zeebo/xxh3"
)

// Checksum accumulates an xxh3 (64-bit) hash over everything written to it.
type Checksum struct {
	h hash.Hash64
}

// NewChecksum returns an empty running checksum.
func NewChecksum() *Checksum {
	return &Checksum{h: xxh3.New()}
}

// Write adds p to the hash. It never fails.
func (c *Checksum) Write(p []byte) (int, error) {
	return c.h.Write(p)
}

// Sum returns the hex-encoded hash of the bytes written so far.
func (c *Checksum) Sum() string {
	return encode(c.h.Sum64())
}

// ComputeChecksum returns the hex-encoded xxh3 hash of data.
func ComputeChecksum(data []byte) string {
	return encode(xxh3.Hash(data))
}

func encode(v uint64) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return hex.EncodeToString(b[:])
}
