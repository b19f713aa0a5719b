package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// compressBlock compresses data with lz4. It returns ok=false when the block does not
// shrink, in which case the caller stores the raw bytes.
func compressBlock(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil || written == 0 || written >= len(data) {
		return nil, false
	}
	return compressed[:written], true
}

// decompressBlock restores an lz4 block of exactly rawSize bytes.
func decompressBlock(data []byte, rawSize int64) ([]byte, error) {
	out := make([]byte, rawSize)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if int64(n) != rawSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, rawSize)
	}
	return out, nil
}
