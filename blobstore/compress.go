package blobstore

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how blob contents are stored.
//
// With CompressionNone blobs are stored as written. Any other setting stores a frame:
// one tag byte, the uncompressed size as a uvarint, then the payload. Data that does not
// shrink is framed uncompressed. The setting applies to a namespace as a whole: raw blobs
// cannot be read by a compressing client and frames cannot be read by a plain one.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1 // Fast, for mixed or binary content.
	CompressionZstd Compression = 2 // Better ratios for text and JSON.
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression setting from its string representation.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("blobstore: unknown compression %q", name)
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

// Redis caps string values at 512 MiB.
const maxBlobSize = 512 << 20

var errIncompressible = errors.New("blobstore: data is incompressible")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blobstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("blobstore: zstd decoder initialization failed: " + err.Error())
	}
}

// compress frames data with c. CompressionNone returns data unchanged.
func compress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}
	var (
		payload []byte
		err     error
	)
	switch c {
	case CompressionLZ4:
		payload, err = compressLZ4(data)
	case CompressionZstd:
		payload, err = compressZstd(data)
	default:
		return nil, fmt.Errorf("blobstore: unsupported %s compression", c)
	}
	if errors.Is(err, errIncompressible) {
		c, payload, err = CompressionNone, data, nil
	}
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 1, 1+binary.MaxVarintLen64+len(payload))
	frame[0] = byte(c)
	frame = binary.AppendUvarint(frame, uint64(len(data)))
	return append(frame, payload...), nil
}

// decompress reverses compress for a client configured with c.
func decompress(stored []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return stored, nil
	}
	if len(stored) == 0 {
		return nil, errors.New("blobstore: empty frame")
	}
	tag := Compression(stored[0])
	size, n := binary.Uvarint(stored[1:])
	if n <= 0 || size > maxBlobSize {
		return nil, errors.New("blobstore: invalid frame size")
	}
	payload := stored[1+n:]
	switch tag {
	case CompressionNone:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("blobstore: frame size %d does not match expected %d", len(payload), size)
		}
		return payload, nil
	case CompressionLZ4:
		return decompressLZ4(payload, int(size))
	case CompressionZstd:
		return decompressZstd(payload, int(size))
	default:
		return nil, fmt.Errorf("blobstore: unsupported frame %s", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: lz4 compress: %w", err)
	}
	// Zero means lz4 found the data incompressible.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("blobstore: lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("blobstore: lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("blobstore: zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("blobstore: zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}
