package processors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// DefaultLevel is the zstd level used when none is configured.
const DefaultLevel = 3

// Compressor turns a block into one self-contained zstd frame. Frames can be
// concatenated: a later block appended to a file decodes as a continuation.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor creates a compressor. level: 1 (fastest) to 22 (best),
// zero means DefaultLevel.
func NewCompressor(level int) (*Compressor, error) {
	if level <= 0 {
		level = DefaultLevel
	}
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Compressor{encoder: encoder}, nil
}

// Frame compresses input into a single frame. Empty input yields no bytes.
func (c *Compressor) Frame(input []byte) []byte {
	if len(input) == 0 {
		return nil
	}
	return c.encoder.EncodeAll(input, nil)
}

// Close releases the encoder.
func (c *Compressor) Close() error {
	if c.encoder == nil {
		return nil
	}
	return c.encoder.Close()
}

// Decompress decodes a stream of one or more concatenated frames.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress zstd: %w", err)
	}
	return out, nil
}

// IsCompressed reports whether data starts with the zstd frame magic.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x28 && data[1] == 0xB5 && data[2] == 0x2F && data[3] == 0xFD
}
